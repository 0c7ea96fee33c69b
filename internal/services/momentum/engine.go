// Package momentum computes a double-smoothed-SMA momentum value over a
// scalar series (price or cumulative delta), an EHMA-smoothed version of
// it, bias classification and peak/trough bookkeeping.
package momentum

import (
	"math"
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
)

// sma fixed-window simple moving average over a ring buffer. Before the
// window fills it averages the samples seen so far.
type sma struct {
	window int
	values []float64
	idx    int
	count  int
	sum    float64
}

func newSMA(window int) *sma {
	if window < 1 {
		window = 1
	}
	return &sma{window: window, values: make([]float64, window)}
}

func (s *sma) update(x float64) float64 {
	if s.count < s.window {
		s.values[s.idx] = x
		s.sum += x
		s.count++
	} else {
		s.sum += x - s.values[s.idx]
		s.values[s.idx] = x
	}
	s.idx = (s.idx + 1) % s.window
	return s.sum / float64(s.count)
}

func (s *sma) clone() *sma {
	cp := *s
	cp.values = append([]float64(nil), s.values...)
	return &cp
}

// ehma exponential hull moving average: two EMAs combined through a third
// to cut lag. Coefficients are fixed at construction.
type ehma struct {
	k1, k2, k3 float64
	ema1       float64
	ema2       float64
	value      float64
	primed     bool
}

func newEHMA(period int) *ehma {
	p := float64(period)
	if p < 1 {
		p = 1
	}
	return &ehma{
		k1: 2 / (1 + p),
		k2: 2 / (1 + 0.5*p),
		k3: 2 / (1 + math.Sqrt(p)),
	}
}

// update advances the filter. The first sample initializes all three
// stages to the input, so there is no warm-up transient.
func (h *ehma) update(x float64) float64 {
	if !h.primed {
		h.ema1 = x
		h.ema2 = x
		h.value = x
		h.primed = true
		return x
	}
	h.ema1 += h.k1 * (x - h.ema1)
	h.ema2 += h.k2 * (x - h.ema2)
	h.value += h.k3 * (2*h.ema2 - h.ema1 - h.value)
	return h.value
}

// Engine momentum state machine over a scalar input series.
// Not safe for concurrent use; the owning caller serializes access.
type Engine struct {
	sma1   *sma
	sma2   *sma
	smooth *ehma

	samples    int
	prevSmooth float64
	direction  domain.SmoothDirection
	lastPeak   float64
	lastTrough float64
	upAnchor   float64
	downAnchor float64
	last       domain.MomentumResult
}

// NewEngine creates a momentum engine. period sizes the two chained SMAs
// (window period+1); smoothPeriod parameterizes the EHMA filter.
func NewEngine(period, smoothPeriod int) *Engine {
	return &Engine{
		sma1:      newSMA(period + 1),
		sma2:      newSMA(period + 1),
		smooth:    newEHMA(smoothPeriod),
		direction: domain.SmoothNeutral,
	}
}

// Update feeds one sample and returns the updated momentum snapshot.
func (e *Engine) Update(value float64, t time.Time) domain.MomentumResult {
	e.samples++

	base := e.sma2.update(e.sma1.update(value))
	mom := value - base
	if e.samples == 1 {
		mom = 0
	}

	smooth := e.smooth.update(mom)
	prevSmooth := e.prevSmooth
	prevDirection := e.direction

	dir := domain.SmoothNeutral
	if e.samples > 1 {
		switch {
		case smooth > prevSmooth:
			dir = domain.SmoothRising
		case smooth < prevSmooth:
			dir = domain.SmoothFalling
		}
	}

	// A direction reversal seals the previous swing extreme.
	if prevDirection == domain.SmoothRising && dir == domain.SmoothFalling {
		e.lastPeak = prevSmooth
	}
	if prevDirection == domain.SmoothFalling && dir == domain.SmoothRising {
		e.lastTrough = prevSmooth
	}

	bias := domain.BiasNeutral
	if mom > 0 && smooth > 0 && mom > smooth && dir == domain.SmoothRising {
		bias = domain.BiasBullish
	} else if mom < 0 && smooth < 0 && mom < smooth && dir == domain.SmoothFalling {
		bias = domain.BiasBearish
	}

	// Swing anchors reset on zero-crossings of the smoothed line.
	isPeak := false
	if smooth > 0 {
		if prevSmooth <= 0 || e.samples == 1 {
			e.upAnchor = smooth
		}
		if smooth >= e.upAnchor {
			e.upAnchor = smooth
			if bias == domain.BiasBullish {
				isPeak = true
			}
		}
	} else if smooth < 0 {
		if prevSmooth >= 0 || e.samples == 1 {
			e.downAnchor = smooth
		}
		if smooth <= e.downAnchor {
			e.downAnchor = smooth
			if bias == domain.BiasBearish {
				isPeak = true
			}
		}
	}

	e.prevSmooth = smooth
	e.direction = dir

	e.last = domain.MomentumResult{
		Momentum:        mom,
		Smooth:          smooth,
		PrevSmooth:      prevSmooth,
		SmoothDirection: dir,
		Bias:            bias,
		IsPeak:          isPeak,
		LastPeak:        e.lastPeak,
		LastTrough:      e.lastTrough,
		Time:            t,
		IsValid:         true,
	}
	return e.last
}

// LastResult returns the most recent snapshot.
func (e *Engine) LastResult() domain.MomentumResult {
	return e.last
}

// Reset clears all state, keeping the configured periods.
func (e *Engine) Reset() {
	e.sma1 = newSMA(e.sma1.window)
	e.sma2 = newSMA(e.sma2.window)
	e.smooth = &ehma{k1: e.smooth.k1, k2: e.smooth.k2, k3: e.smooth.k3}
	e.samples = 0
	e.prevSmooth = 0
	e.direction = domain.SmoothNeutral
	e.lastPeak = 0
	e.lastTrough = 0
	e.upAnchor = 0
	e.downAnchor = 0
	e.last = domain.MomentumResult{}
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *Engine) Clone() *Engine {
	cp := *e
	cp.sma1 = e.sma1.clone()
	cp.sma2 = e.sma2.clone()
	smoothCp := *e.smooth
	cp.smooth = &smoothCp
	return &cp
}

// Restore replaces the engine state with a deep copy of src.
func (e *Engine) Restore(src *Engine) {
	*e = *src
	e.sma1 = src.sma1.clone()
	e.sma2 = src.sma2.clone()
	smoothCp := *src.smooth
	e.smooth = &smoothCp
}

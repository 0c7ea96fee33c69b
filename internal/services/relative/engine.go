// Package relative ranks live volume-profile metrics against their
// time-of-day historical averages: each new sample is expressed relative
// to what the same minute of day has historically shown, plus a
// session-cumulative ranking.
package relative

import (
	"math"
	"time"
)

const (
	slotsPerDay    = 1440
	slotHistoryCap = 10
	outputCap      = 256
	metricCount    = 3
)

// Metric identifies one of the tracked quantities.
type Metric int

const (
	MetricHVNBuy Metric = iota
	MetricHVNSell
	MetricValueWidth
)

// fallback spans of the distance-weighted reference cascade, in minutes.
var fallbackSpans = [...]int{10, 30, 60}

// slotHistory bounded FIFO of observed values for one minute-of-day slot
// with a running sum for O(1) averages.
type slotHistory struct {
	values []float64
	sum    float64
}

func (h *slotHistory) add(v float64) {
	if len(h.values) == slotHistoryCap {
		h.sum -= h.values[0]
		h.values = append(h.values[:0], h.values[1:]...)
	}
	h.values = append(h.values, v)
	h.sum += v
}

func (h *slotHistory) average() (float64, bool) {
	if len(h.values) == 0 {
		return 0, false
	}
	return h.sum / float64(len(h.values)), true
}

func (h *slotHistory) clone() slotHistory {
	return slotHistory{values: append([]float64(nil), h.values...), sum: h.sum}
}

// ringBuffer fixed-capacity circular buffer, index 0 = most recent.
type ringBuffer struct {
	buf   [outputCap]float64
	head  int
	count int
}

func (r *ringBuffer) push(v float64) {
	r.head = (r.head + outputCap - 1) % outputCap
	r.buf[r.head] = v
	if r.count < outputCap {
		r.count++
	}
}

// At returns the i-th most recent value, 0 when out of range.
func (r *ringBuffer) at(i int) float64 {
	if i < 0 || i >= r.count {
		return 0
	}
	return r.buf[(r.head+i)%outputCap]
}

// Result relative and cumulative rankings for one update.
type Result struct {
	RelHVNBuy     float64
	RelHVNSell    float64
	RelValueWidth float64
	CumHVNBuy     float64
	CumHVNSell    float64
	CumValueWidth float64
	Time          time.Time
}

// Engine time-of-day relative metrics. One instance serves one profile
// variant (session or rolling); callers feed each variant its own engine.
// Not safe for concurrent use; the owning caller serializes access.
type Engine struct {
	warmup time.Duration

	tables [metricCount][slotsPerDay]slotHistory

	sessionDate  time.Time
	sessionStart time.Time
	curSum       [metricCount]float64
	refSum       [metricCount]float64
	prevCum      [metricCount]float64

	relBuf [metricCount]ringBuffer
	cumBuf [metricCount]ringBuffer
}

// NewEngine creates a relative metrics engine. warmupSeconds is the span
// at the start of each session during which cumulative rankings are
// forced to 100.
func NewEngine(warmupSeconds int) *Engine {
	return &Engine{warmup: time.Duration(warmupSeconds) * time.Second}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Update feeds one sample of the three tracked quantities and returns
// their relative and session-cumulative rankings.
func (e *Engine) Update(t time.Time, hvnBuy, hvnSell, valueWidth float64) Result {
	day := dayOf(t)
	if !day.Equal(e.sessionDate) {
		e.sessionDate = day
		e.sessionStart = t
		for m := 0; m < metricCount; m++ {
			e.curSum[m] = 0
			e.refSum[m] = 0
			e.prevCum[m] = 100
		}
	}

	minute := t.Hour()*60 + t.Minute()
	current := [metricCount]float64{hvnBuy, hvnSell, valueWidth}
	inWarmup := t.Sub(e.sessionStart) < e.warmup

	var rel, cum [metricCount]float64
	for m := 0; m < metricCount; m++ {
		ref := e.reference(m, minute)

		if current[m] > 0 && ref > 0 {
			rel[m] = current[m] / ref * 100
		}

		switch {
		case inWarmup:
			cum[m] = 100
		case current[m] > 0 && ref > 0:
			e.curSum[m] += current[m]
			e.refSum[m] += ref
			cum[m] = e.curSum[m] / e.refSum[m] * 100
		default:
			cum[m] = e.prevCum[m]
		}
		e.prevCum[m] = cum[m]

		// Feed the history table after the reference was taken, so a
		// sample never ranks against itself.
		if current[m] > 0 {
			e.tables[m][minute].add(current[m])
		}

		e.relBuf[m].push(round2(rel[m]))
		e.cumBuf[m].push(round2(cum[m]))
	}

	return Result{
		RelHVNBuy:     round2(rel[MetricHVNBuy]),
		RelHVNSell:    round2(rel[MetricHVNSell]),
		RelValueWidth: round2(rel[MetricValueWidth]),
		CumHVNBuy:     round2(cum[MetricHVNBuy]),
		CumHVNSell:    round2(cum[MetricHVNSell]),
		CumValueWidth: round2(cum[MetricValueWidth]),
		Time:          t,
	}
}

// reference resolves the historical baseline for a metric at a minute of
// day: the exact slot average when populated, else a distance-weighted
// average over expanding ±10/±30/±60 minute windows, else the global
// average over all populated slots.
func (e *Engine) reference(m, minute int) float64 {
	if avg, ok := e.tables[m][minute].average(); ok {
		return avg
	}

	for _, span := range fallbackSpans {
		var weighted, weights float64
		for off := -span; off <= span; off++ {
			if off == 0 {
				continue
			}
			slot := ((minute+off)%slotsPerDay + slotsPerDay) % slotsPerDay
			avg, ok := e.tables[m][slot].average()
			if !ok {
				continue
			}
			w := 1 / float64(absInt(off)+1)
			weighted += w * avg
			weights += w
		}
		if weights > 0 {
			return weighted / weights
		}
	}

	var sum float64
	var n int
	for slot := 0; slot < slotsPerDay; slot++ {
		if avg, ok := e.tables[m][slot].average(); ok {
			sum += avg
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Relative returns the i-th most recent relative value for a metric.
func (e *Engine) Relative(m Metric, i int) float64 {
	return e.relBuf[m].at(i)
}

// Cumulative returns the i-th most recent cumulative value for a metric.
func (e *Engine) Cumulative(m Metric, i int) float64 {
	return e.cumBuf[m].at(i)
}

// Reset clears all state, history tables included.
func (e *Engine) Reset() {
	warmup := e.warmup
	*e = Engine{warmup: warmup}
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *Engine) Clone() *Engine {
	cp := &Engine{
		warmup:       e.warmup,
		sessionDate:  e.sessionDate,
		sessionStart: e.sessionStart,
		curSum:       e.curSum,
		refSum:       e.refSum,
		prevCum:      e.prevCum,
		relBuf:       e.relBuf,
		cumBuf:       e.cumBuf,
	}
	for m := 0; m < metricCount; m++ {
		for s := 0; s < slotsPerDay; s++ {
			cp.tables[m][s] = e.tables[m][s].clone()
		}
	}
	return cp
}

// Restore replaces the engine state with a deep copy of src.
func (e *Engine) Restore(src *Engine) {
	cp := src.Clone()
	*e = *cp
}

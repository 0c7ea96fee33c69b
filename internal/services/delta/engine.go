// Package delta tracks cumulative order-flow delta: signed (buy−sell)
// volume accumulated per bar and across the whole session, with a rolling
// variant that retires bar contributions past a trailing window.
package delta

import (
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
)

// Engine session cumulative delta. Bar-level accumulators reset on every
// new bar; the running cumulative total never does.
// Not safe for concurrent use; the owning caller serializes access.
type Engine struct {
	barDelta int64
	maxDelta int64
	minDelta int64

	cumulative int64
	barCount   int
	lastPrice  float64
	lastResult domain.CumulativeDeltaResult
}

// NewEngine creates a session cumulative delta engine.
func NewEngine() *Engine {
	return &Engine{}
}

// StartNewBar resets only the bar-level accumulators. The running
// cumulative total carries across bars for the whole session.
func (e *Engine) StartNewBar() {
	e.barDelta = 0
	e.maxDelta = 0
	e.minDelta = 0
}

// AddTick applies one trade to the running bar delta. Buys add, sells
// subtract. Ticks with non-positive volume are ignored.
func (e *Engine) AddTick(volume int64, isBuy bool) {
	if volume <= 0 {
		return
	}
	if isBuy {
		e.barDelta += volume
	} else {
		e.barDelta -= volume
	}
	if e.barDelta > e.maxDelta {
		e.maxDelta = e.barDelta
	}
	if e.barDelta < e.minDelta {
		e.minDelta = e.barDelta
	}
}

// AddTickSplit applies one trade, allocating volume 50/50 between buy and
// sell when the price is unchanged from the prior tick. Odd volumes give
// the extra unit to the taker side.
func (e *Engine) AddTickSplit(price float64, volume int64, isBuy bool) {
	if price <= 0 || volume <= 0 {
		return
	}
	if price == e.lastPrice {
		buyVol := volume / 2
		if isBuy {
			buyVol = volume - volume/2
		}
		e.AddTick(buyVol, true)
		e.AddTick(volume-buyVol, false)
	} else {
		e.AddTick(volume, isBuy)
	}
	e.lastPrice = price
}

// CloseBar finalizes the running bar. The very first bar seeds the
// cumulative close with its own delta; later bars add their delta to the
// previous cumulative.
func (e *Engine) CloseBar(t time.Time) domain.CumulativeDeltaResult {
	prev := e.cumulative
	e.cumulative = prev + e.barDelta
	e.barCount++

	res := domain.CumulativeDeltaResult{
		BarDelta:             e.barDelta,
		MaxDelta:             e.maxDelta,
		MinDelta:             e.minDelta,
		CumulativeDeltaClose: e.cumulative,
		CumulativeDeltaHigh:  prev + e.maxDelta,
		CumulativeDeltaLow:   prev + e.minDelta,
		Time:                 t,
		IsValid:              true,
	}
	e.lastResult = res
	return res
}

// CurrentCumulativeDelta returns the running cumulative total.
func (e *Engine) CurrentCumulativeDelta() int64 {
	return e.cumulative
}

// LastResult returns the most recent closed-bar record.
func (e *Engine) LastResult() domain.CumulativeDeltaResult {
	return e.lastResult
}

// Reset clears all session state.
func (e *Engine) Reset() {
	*e = Engine{}
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *Engine) Clone() *Engine {
	cp := *e
	return &cp
}

// Restore replaces the engine state with a copy of src.
func (e *Engine) Restore(src *Engine) {
	*e = *src
}

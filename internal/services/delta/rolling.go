package delta

import (
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
)

// barRecord FIFO entry holding one closed bar's delta contribution.
type barRecord struct {
	delta int64
	time  time.Time
}

// RollingEngine cumulative delta over a trailing time window. Bars are
// accumulated like the session engine but their deltas are subtracted
// from the rolling total once they age out.
// Not safe for concurrent use; the owning caller serializes access.
type RollingEngine struct {
	window  time.Duration
	session Engine
	queue   []barRecord
	rolling int64
}

// NewRollingEngine creates a rolling delta engine retaining windowMinutes
// of closed-bar contributions.
func NewRollingEngine(windowMinutes int) *RollingEngine {
	return &RollingEngine{window: time.Duration(windowMinutes) * time.Minute}
}

// StartNewBar resets the bar-level accumulators.
func (e *RollingEngine) StartNewBar() {
	e.session.StartNewBar()
}

// AddTick applies one trade to the running bar delta.
func (e *RollingEngine) AddTick(volume int64, isBuy bool) {
	e.session.AddTick(volume, isBuy)
}

// AddTickSplit applies one trade with the 50/50 unchanged-price split.
func (e *RollingEngine) AddTickSplit(price float64, volume int64, isBuy bool) {
	e.session.AddTickSplit(price, volume, isBuy)
}

// CloseBar finalizes the running bar, enqueues its delta for later expiry
// and reports the rolling cumulative in the result.
func (e *RollingEngine) CloseBar(t time.Time) domain.CumulativeDeltaResult {
	res := e.session.CloseBar(t)
	e.queue = append(e.queue, barRecord{delta: res.BarDelta, time: t})
	e.rolling += res.BarDelta

	res.CumulativeDeltaClose = e.rolling
	res.CumulativeDeltaHigh = e.rolling - res.BarDelta + res.MaxDelta
	res.CumulativeDeltaLow = e.rolling - res.BarDelta + res.MinDelta
	return res
}

// ExpireOldData subtracts closed bars older than the trailing window from
// the rolling total.
func (e *RollingEngine) ExpireOldData(now time.Time) {
	cutoff := now.Add(-e.window)
	n := 0
	for n < len(e.queue) && e.queue[n].time.Before(cutoff) {
		e.rolling -= e.queue[n].delta
		n++
	}
	if n > 0 {
		e.queue = append(e.queue[:0], e.queue[n:]...)
	}
}

// CurrentCumulativeDelta returns the rolling cumulative total.
func (e *RollingEngine) CurrentCumulativeDelta() int64 {
	return e.rolling
}

// Reset clears all state.
func (e *RollingEngine) Reset() {
	window := e.window
	*e = RollingEngine{window: window}
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *RollingEngine) Clone() *RollingEngine {
	cp := *e
	cp.queue = append([]barRecord(nil), e.queue...)
	return &cp
}

// Restore replaces the engine state with a deep copy of src.
func (e *RollingEngine) Restore(src *RollingEngine) {
	e.window = src.window
	e.session = src.session
	e.queue = append([]barRecord(nil), src.queue...)
	e.rolling = src.rolling
}

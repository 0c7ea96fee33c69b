package momentum

import (
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
	"github.com/quantarb/marketprofile/internal/services/delta"
)

// CDEngine composes a session cumulative delta engine with a momentum
// engine: every closed bar's cumulative close is piped into the momentum
// series.
type CDEngine struct {
	delta    *delta.Engine
	momentum *Engine
}

// NewCDEngine creates a session cumulative-delta momentum engine.
func NewCDEngine(period, smoothPeriod int) *CDEngine {
	return &CDEngine{
		delta:    delta.NewEngine(),
		momentum: NewEngine(period, smoothPeriod),
	}
}

// StartNewBar resets the bar-level delta accumulators.
func (e *CDEngine) StartNewBar() {
	e.delta.StartNewBar()
}

// AddTick applies one trade to the running bar delta.
func (e *CDEngine) AddTick(volume int64, isBuy bool) {
	e.delta.AddTick(volume, isBuy)
}

// AddTickSplit applies one trade with the 50/50 unchanged-price split.
func (e *CDEngine) AddTickSplit(price float64, volume int64, isBuy bool) {
	e.delta.AddTickSplit(price, volume, isBuy)
}

// CloseBar finalizes the bar and advances the momentum state with the
// bar's cumulative delta close.
func (e *CDEngine) CloseBar(t time.Time) (domain.CumulativeDeltaResult, domain.MomentumResult) {
	d := e.delta.CloseBar(t)
	m := e.momentum.Update(float64(d.CumulativeDeltaClose), t)
	return d, m
}

// Reset clears both composed engines.
func (e *CDEngine) Reset() {
	e.delta.Reset()
	e.momentum.Reset()
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *CDEngine) Clone() *CDEngine {
	return &CDEngine{
		delta:    e.delta.Clone(),
		momentum: e.momentum.Clone(),
	}
}

// Restore replaces the engine state with a deep copy of src.
func (e *CDEngine) Restore(src *CDEngine) {
	e.delta.Restore(src.delta)
	e.momentum.Restore(src.momentum)
}

// RollingCDEngine composes a rolling cumulative delta engine with a
// momentum engine over the rolling cumulative close.
type RollingCDEngine struct {
	delta    *delta.RollingEngine
	momentum *Engine
}

// NewRollingCDEngine creates a rolling cumulative-delta momentum engine.
func NewRollingCDEngine(windowMinutes, period, smoothPeriod int) *RollingCDEngine {
	return &RollingCDEngine{
		delta:    delta.NewRollingEngine(windowMinutes),
		momentum: NewEngine(period, smoothPeriod),
	}
}

// StartNewBar resets the bar-level delta accumulators.
func (e *RollingCDEngine) StartNewBar() {
	e.delta.StartNewBar()
}

// AddTick applies one trade to the running bar delta.
func (e *RollingCDEngine) AddTick(volume int64, isBuy bool) {
	e.delta.AddTick(volume, isBuy)
}

// AddTickSplit applies one trade with the 50/50 unchanged-price split.
func (e *RollingCDEngine) AddTickSplit(price float64, volume int64, isBuy bool) {
	e.delta.AddTickSplit(price, volume, isBuy)
}

// CloseBar finalizes the bar and advances the momentum state with the
// rolling cumulative delta close.
func (e *RollingCDEngine) CloseBar(t time.Time) (domain.CumulativeDeltaResult, domain.MomentumResult) {
	d := e.delta.CloseBar(t)
	m := e.momentum.Update(float64(d.CumulativeDeltaClose), t)
	return d, m
}

// ExpireOldData retires closed bars past the trailing window.
func (e *RollingCDEngine) ExpireOldData(now time.Time) {
	e.delta.ExpireOldData(now)
}

// Reset clears both composed engines.
func (e *RollingCDEngine) Reset() {
	e.delta.Reset()
	e.momentum.Reset()
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *RollingCDEngine) Clone() *RollingCDEngine {
	return &RollingCDEngine{
		delta:    e.delta.Clone(),
		momentum: e.momentum.Clone(),
	}
}

// Restore replaces the engine state with a deep copy of src.
func (e *RollingCDEngine) Restore(src *RollingCDEngine) {
	e.delta.Restore(src.delta)
	e.momentum.Restore(src.momentum)
}

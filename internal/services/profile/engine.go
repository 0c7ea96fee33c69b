// Package profile implements streaming volume-at-price profiles: a
// session engine that accumulates ticks for the current trading session
// and a rolling engine that retires contributions once they age out of a
// trailing time window.
package profile

import (
	"github.com/quantarb/marketprofile/internal/domain"
)

// Engine session volume profile. Accumulates ticks into a price ladder
// and computes POC/VAH/VAL/VWAP/HVN metrics on demand.
// Not safe for concurrent use; the owning caller serializes access.
type Engine struct {
	interval   float64
	ladder     *domain.PriceLadder
	sumPV      float64
	sumP2V     float64
	closePrice float64
}

// NewEngine creates a session profile engine with the given bucket width.
func NewEngine(priceInterval float64) *Engine {
	return &Engine{
		interval: priceInterval,
		ladder:   domain.NewPriceLadder(),
	}
}

// Reset clears all accumulated state and sets a new bucket width.
func (e *Engine) Reset(priceInterval float64) {
	e.interval = priceInterval
	e.ladder.Reset()
	e.sumPV = 0
	e.sumP2V = 0
	e.closePrice = 0
}

// AddTick accumulates one trade. Ticks with non-positive price or volume
// are ignored.
func (e *Engine) AddTick(price float64, volume int64, isBuy bool) {
	if price <= 0 || volume <= 0 {
		return
	}

	bucket := domain.BucketPrice(price, e.interval)
	if isBuy {
		e.ladder.Add(bucket, volume, 0)
	} else {
		e.ladder.Add(bucket, 0, volume)
	}

	v := float64(volume)
	e.sumPV += price * v
	e.sumP2V += price * price * v
}

// SetClosePrice records the latest close used to split HVNs into
// support and resistance.
func (e *Engine) SetClosePrice(price float64) {
	e.closePrice = price
}

// ClosePrice returns the last set close price.
func (e *Engine) ClosePrice() float64 {
	return e.closePrice
}

// TotalVolume returns the volume accumulated so far.
func (e *Engine) TotalVolume() int64 {
	return e.ladder.TotalVolume()
}

// Ladder returns the internal ladder. Callers must treat it as read-only
// and clone it before storing.
func (e *Engine) Ladder() *domain.PriceLadder {
	return e.ladder
}

// Calculate computes the profile snapshot. Returns an invalid result when
// no ticks were accumulated.
func (e *Engine) Calculate(valueAreaPercent, hvnRatio float64) domain.VPResult {
	return computeProfile(profileInput{
		levels:     e.ladder.Sorted(),
		total:      e.ladder.TotalVolume(),
		sumPV:      e.sumPV,
		sumP2V:     e.sumP2V,
		closePrice: e.closePrice,
	}, valueAreaPercent, hvnRatio)
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *Engine) Clone() *Engine {
	return &Engine{
		interval:   e.interval,
		ladder:     e.ladder.Clone(),
		sumPV:      e.sumPV,
		sumP2V:     e.sumP2V,
		closePrice: e.closePrice,
	}
}

// Restore replaces the engine state with a deep copy of src.
func (e *Engine) Restore(src *Engine) {
	e.interval = src.interval
	e.ladder = src.ladder.Clone()
	e.sumPV = src.sumPV
	e.sumP2V = src.sumP2V
	e.closePrice = src.closePrice
}

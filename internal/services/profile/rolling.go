package profile

import (
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
)

// BucketWidthFunc resolves the bucket width to use for a trade price.
// Option instruments use a price-band dependent width; futures a fixed one.
type BucketWidthFunc func(price float64) float64

// FixedBucketWidth returns a width function that always yields w.
func FixedBucketWidth(w float64) BucketWidthFunc {
	return func(float64) float64 { return w }
}

// tickRecord FIFO entry retained so a tick's contribution can be
// subtracted when it ages out. The bucket used at insertion time is
// stored, never recomputed, so width changes cannot strand volume.
type tickRecord struct {
	bucket     float64
	buyVolume  int64
	sellVolume int64
	sumPV      float64
	sumP2V     float64
	time       time.Time
}

// RollingEngine volume profile over a trailing time window.
// Not safe for concurrent use; the owning caller serializes access.
type RollingEngine struct {
	window     time.Duration
	widthFn    BucketWidthFunc
	ladder     *domain.PriceLadder
	queue      []tickRecord
	sumPV      float64
	sumP2V     float64
	closePrice float64
}

// NewRollingEngine creates a rolling profile engine retaining
// windowMinutes of tick contributions.
func NewRollingEngine(windowMinutes int, widthFn BucketWidthFunc) *RollingEngine {
	return &RollingEngine{
		window:  time.Duration(windowMinutes) * time.Minute,
		widthFn: widthFn,
		ladder:  domain.NewPriceLadder(),
	}
}

// AddTick accumulates one trade and enqueues its contribution record.
// Ticks with non-positive price or volume are ignored.
func (e *RollingEngine) AddTick(price float64, volume int64, isBuy bool, t time.Time) {
	if price <= 0 || volume <= 0 {
		return
	}

	bucket := domain.BucketPrice(price, e.widthFn(price))
	rec := tickRecord{bucket: bucket, time: t}
	if isBuy {
		rec.buyVolume = volume
	} else {
		rec.sellVolume = volume
	}
	v := float64(volume)
	rec.sumPV = price * v
	rec.sumP2V = price * price * v

	e.ladder.Add(bucket, rec.buyVolume, rec.sellVolume)
	e.sumPV += rec.sumPV
	e.sumP2V += rec.sumP2V
	e.queue = append(e.queue, rec)
}

// ExpireOldData subtracts every queued contribution older than the
// trailing window, removing drained buckets from the ladder.
func (e *RollingEngine) ExpireOldData(now time.Time) {
	cutoff := now.Add(-e.window)
	n := 0
	for n < len(e.queue) && e.queue[n].time.Before(cutoff) {
		rec := e.queue[n]
		e.ladder.Subtract(rec.bucket, rec.buyVolume, rec.sellVolume)
		e.sumPV -= rec.sumPV
		e.sumP2V -= rec.sumP2V
		n++
	}
	if n > 0 {
		e.queue = append(e.queue[:0], e.queue[n:]...)
	}
	if len(e.queue) == 0 {
		e.sumPV = 0
		e.sumP2V = 0
	}
}

// SetClosePrice records the latest close used for HVN classification.
func (e *RollingEngine) SetClosePrice(price float64) {
	e.closePrice = price
}

// TotalVolume returns the volume currently inside the window.
func (e *RollingEngine) TotalVolume() int64 {
	return e.ladder.TotalVolume()
}

// LevelCount returns the number of populated ladder buckets.
func (e *RollingEngine) LevelCount() int {
	return e.ladder.Len()
}

// Calculate computes the profile over the current window contents.
func (e *RollingEngine) Calculate(valueAreaPercent, hvnRatio float64) domain.VPResult {
	return computeProfile(profileInput{
		levels:     e.ladder.Sorted(),
		total:      e.ladder.TotalVolume(),
		sumPV:      e.sumPV,
		sumP2V:     e.sumP2V,
		closePrice: e.closePrice,
	}, valueAreaPercent, hvnRatio)
}

// Reset clears all window state.
func (e *RollingEngine) Reset() {
	e.ladder.Reset()
	e.queue = nil
	e.sumPV = 0
	e.sumP2V = 0
	e.closePrice = 0
}

// Clone returns a deep value-copy of the engine for checkpointing.
func (e *RollingEngine) Clone() *RollingEngine {
	cp := &RollingEngine{
		window:     e.window,
		widthFn:    e.widthFn,
		ladder:     e.ladder.Clone(),
		queue:      append([]tickRecord(nil), e.queue...),
		sumPV:      e.sumPV,
		sumP2V:     e.sumP2V,
		closePrice: e.closePrice,
	}
	return cp
}

// Restore replaces the engine state with a deep copy of src.
func (e *RollingEngine) Restore(src *RollingEngine) {
	e.window = src.window
	e.widthFn = src.widthFn
	e.ladder = src.ladder.Clone()
	e.queue = append([]tickRecord(nil), src.queue...)
	e.sumPV = src.sumPV
	e.sumP2V = src.sumP2V
	e.closePrice = src.closePrice
}

package domain

import (
	"encoding/json"
	"math"
	"sort"
)

// keyScale fixes ladder keys at two decimal places, enough for the
// minimum price increment of every supported instrument.
const keyScale = 100

// PriceKey quantizes a bucketed price into the integer ladder key.
// Keying on the quantized integer avoids float equality hazards.
func PriceKey(price float64) int64 {
	return int64(math.Round(price * keyScale))
}

// KeyPrice converts a ladder key back to its price.
func KeyPrice(key int64) float64 {
	return float64(key) / keyScale
}

// BucketPrice rounds a trade price to the nearest bucket of the given width.
func BucketPrice(price, interval float64) float64 {
	if interval <= 0 {
		return price
	}
	return math.Round(price/interval) * interval
}

// PriceLevel accumulated volume at a single ladder bucket.
type PriceLevel struct {
	// Price bucketed price of the level.
	Price float64
	// Volume total traded volume, always BuyVolume+SellVolume.
	Volume int64
	// BuyVolume buyer-initiated volume.
	BuyVolume int64
	// SellVolume seller-initiated volume.
	SellVolume int64
}

// PriceLadder mapping from bucketed price to accumulated volume.
// Not safe for concurrent use; owning engines serialize access.
type PriceLadder struct {
	levels map[int64]PriceLevel
	total  int64
}

// NewPriceLadder creates an empty ladder.
func NewPriceLadder() *PriceLadder {
	return &PriceLadder{levels: make(map[int64]PriceLevel)}
}

// Add accumulates buy and sell volume at the given bucketed price.
func (l *PriceLadder) Add(price float64, buyVolume, sellVolume int64) {
	key := PriceKey(price)
	lvl, ok := l.levels[key]
	if !ok {
		lvl = PriceLevel{Price: KeyPrice(key)}
	}
	lvl.BuyVolume += buyVolume
	lvl.SellVolume += sellVolume
	lvl.Volume += buyVolume + sellVolume
	l.levels[key] = lvl
	l.total += buyVolume + sellVolume
}

// Subtract removes previously added volume. Levels drained to zero are
// deleted so rolling profiles do not accumulate empty buckets.
func (l *PriceLadder) Subtract(price float64, buyVolume, sellVolume int64) {
	key := PriceKey(price)
	lvl, ok := l.levels[key]
	if !ok {
		return
	}
	lvl.BuyVolume -= buyVolume
	lvl.SellVolume -= sellVolume
	lvl.Volume -= buyVolume + sellVolume
	l.total -= buyVolume + sellVolume
	if lvl.Volume <= 0 {
		delete(l.levels, key)
		return
	}
	l.levels[key] = lvl
}

// Level returns the level at the given bucketed price.
func (l *PriceLadder) Level(price float64) (PriceLevel, bool) {
	lvl, ok := l.levels[PriceKey(price)]
	return lvl, ok
}

// Len returns the number of populated levels.
func (l *PriceLadder) Len() int {
	return len(l.levels)
}

// TotalVolume returns the sum of volume across all levels.
func (l *PriceLadder) TotalVolume() int64 {
	return l.total
}

// Sorted returns all levels ordered by ascending price.
func (l *PriceLadder) Sorted() []PriceLevel {
	out := make([]PriceLevel, 0, len(l.levels))
	for _, lvl := range l.levels {
		out = append(out, lvl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// Merge adds every level of other into l.
func (l *PriceLadder) Merge(other *PriceLadder) {
	if other == nil {
		return
	}
	for _, lvl := range other.levels {
		l.Add(lvl.Price, lvl.BuyVolume, lvl.SellVolume)
	}
}

// Clone returns a deep value-copy of the ladder.
func (l *PriceLadder) Clone() *PriceLadder {
	cp := &PriceLadder{levels: make(map[int64]PriceLevel, len(l.levels)), total: l.total}
	for k, v := range l.levels {
		cp.levels[k] = v
	}
	return cp
}

// Reset drops all levels.
func (l *PriceLadder) Reset() {
	l.levels = make(map[int64]PriceLevel)
	l.total = 0
}

// MarshalJSON serializes the ladder as its sorted level list.
func (l *PriceLadder) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Sorted())
}

// UnmarshalJSON rebuilds the ladder from a level list.
func (l *PriceLadder) UnmarshalJSON(data []byte) error {
	var levels []PriceLevel
	if err := json.Unmarshal(data, &levels); err != nil {
		return err
	}
	l.Reset()
	for _, lvl := range levels {
		l.Add(lvl.Price, lvl.BuyVolume, lvl.SellVolume)
	}
	return nil
}

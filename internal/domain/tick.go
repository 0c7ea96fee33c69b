package domain

import "time"

// Tick single executed trade received from a market data feed.
type Tick struct {
	// Price trade price.
	Price float64
	// Volume traded quantity, always positive.
	Volume int64
	// IsBuy true when the aggressor was a buyer.
	IsBuy bool
	// Time exchange timestamp of the trade.
	Time time.Time
}

// Valid reports whether the tick passes the ingestion guard.
// Ticks with non-positive price or volume are ignored by every engine.
func (t Tick) Valid() bool {
	return t.Price > 0 && t.Volume > 0
}

package domain

import "time"

// CumulativeDeltaResult per-bar order-flow delta record.
type CumulativeDeltaResult struct {
	// BarDelta signed (buy−sell) volume of the bar.
	BarDelta int64
	// MaxDelta highest value the running bar delta reached intrabar.
	MaxDelta int64
	// MinDelta lowest value the running bar delta reached intrabar.
	MinDelta int64
	// CumulativeDeltaClose running cumulative delta after the bar closed.
	CumulativeDeltaClose int64
	// CumulativeDeltaHigh cumulative delta at the intrabar maximum.
	CumulativeDeltaHigh int64
	// CumulativeDeltaLow cumulative delta at the intrabar minimum.
	CumulativeDeltaLow int64
	// Time close time of the bar.
	Time time.Time
	// IsValid false before any bar has closed.
	IsValid bool
}

package domain

import "time"

// DailyBar one calendar day's OHLCV record used for range and ADR windows.
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// DailySessionProfile a finalized trading day's volume profile.
// Immutable once stored by the composite engine.
type DailySessionProfile struct {
	Date         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	POC          float64
	VAH          float64
	VAL          float64
	VWAP         float64
	TotalVolume  int64
	Ladder       *PriceLadder
	HVNs         []float64
	HVNBuyCount  int
	HVNSellCount int
}

// Clone returns a deep copy of the profile.
func (p DailySessionProfile) Clone() DailySessionProfile {
	cp := p
	if p.Ladder != nil {
		cp.Ladder = p.Ladder.Clone()
	}
	cp.HVNs = append([]float64(nil), p.HVNs...)
	return cp
}

// CompositeProfile an N-day merge of session profiles plus the live session.
type CompositeProfile struct {
	// Days number of sessions the merge covers.
	Days int
	// POC point of control of the smoothed merged ladder.
	POC float64
	VAH float64
	VAL float64
	// VWAP volume-weighted average price across the merged sessions.
	VWAP float64
	// High/Low extremes across the merged sessions with their dates.
	High     float64
	HighDate time.Time
	Low      float64
	LowDate  time.Time
	// TotalVolume merged volume.
	TotalVolume int64
	// StartDate oldest and EndDate newest session in the merge.
	StartDate time.Time
	EndDate   time.Time
	// IsValid false when no session data was available to merge.
	IsValid bool
}

// MarketControl classification of current price against the 5-day value area.
type MarketControl string

const (
	ControlBuyers  MarketControl = "buyers"
	ControlSellers MarketControl = "sellers"
	ControlBalance MarketControl = "balance"
)

// POCMigration classification of short-vs-long composite POC drift.
type POCMigration string

const (
	MigrationUp     POCMigration = "up"
	MigrationDown   POCMigration = "down"
	MigrationStable POCMigration = "stable"
)

// CompositeProfileMetrics full metrics snapshot produced by Recalculate.
// Windows that lacked enough history keep their zero defaults.
type CompositeProfileMetrics struct {
	// Composite1D..Composite10D merged profiles including the live session.
	Composite1D  CompositeProfile
	Composite3D  CompositeProfile
	Composite5D  CompositeProfile
	Composite10D CompositeProfile

	// CompRange_ND high−low over the last N daily bars strictly before today.
	CompRange1D  float64
	CompRange3D  float64
	CompRange5D  float64
	CompRange10D float64

	// RollRange_ND same windows with today's live high/low as the newest bar.
	RollRange1D  float64
	RollRange3D  float64
	RollRange5D  float64
	RollRange10D float64

	// ADR_ND trailing mean of historical N-day ranges.
	ADR1D  float64
	ADR3D  float64
	ADR5D  float64
	ADR10D float64

	// ADRRatio_ND rolling range over its ADR, 0 when ADR is unavailable.
	ADRRatio1D  float64
	ADRRatio3D  float64
	ADRRatio5D  float64
	ADRRatio10D float64

	// PriorEODRange_DN high−low of the bar N days before today.
	PriorEODRangeD2 float64
	PriorEODRangeD3 float64
	PriorEODRangeD4 float64

	// Yearly extremes across the trailing bar window plus the live session.
	YearlyHigh     float64
	YearlyHighDate time.Time
	YearlyLow      float64
	YearlyLowDate  time.Time

	// Control price location against the 5-day value area.
	Control MarketControl
	// Migration 3-day versus 5-day composite POC drift.
	Migration POCMigration

	// Time snapshot timestamp.
	Time time.Time
}

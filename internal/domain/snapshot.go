package domain

import "time"

// RelativeMetrics time-of-day relative and session-cumulative rankings
// for one profile variant.
type RelativeMetrics struct {
	RelHVNBuy     float64 `json:"rel_hvn_buy"`
	RelHVNSell    float64 `json:"rel_hvn_sell"`
	RelValueWidth float64 `json:"rel_value_width"`
	CumHVNBuy     float64 `json:"cum_hvn_buy"`
	CumHVNSell    float64 `json:"cum_hvn_sell"`
	CumValueWidth float64 `json:"cum_value_width"`
}

// AnalysisSnapshot one full analytics frame published by the analyzer.
type AnalysisSnapshot struct {
	Symbol string `json:"symbol"`

	SessionProfile VPResult `json:"session_profile"`
	RollingProfile VPResult `json:"rolling_profile"`

	SessionDelta DeltaState `json:"session_delta"`
	RollingDelta DeltaState `json:"rolling_delta"`

	Composite CompositeProfileMetrics `json:"composite"`

	Trend TrendContext `json:"trend"`

	SessionRelative RelativeMetrics `json:"session_relative"`
	RollingRelative RelativeMetrics `json:"rolling_relative"`

	Time time.Time `json:"ts"`
}

// DeltaState pairs a closed delta bar with its momentum reading.
type DeltaState struct {
	Bar      CumulativeDeltaResult `json:"bar"`
	Momentum MomentumResult        `json:"momentum"`
}

// AnalysisSnapshotRecord snapshot with its journal index.
type AnalysisSnapshotRecord struct {
	Index    uint64           `json:"index"`
	Snapshot AnalysisSnapshot `json:"snapshot"`
}

package domain

import "time"

// SmoothDirection direction of the smoothed momentum line.
type SmoothDirection string

const (
	SmoothRising  SmoothDirection = "rising"
	SmoothFalling SmoothDirection = "falling"
	SmoothNeutral SmoothDirection = "neutral"
)

// MomentumBias qualitative bias of the momentum state.
type MomentumBias string

const (
	BiasBullish MomentumBias = "bullish"
	BiasBearish MomentumBias = "bearish"
	BiasNeutral MomentumBias = "neutral"
)

// MomentumResult snapshot of the momentum state after one input sample.
type MomentumResult struct {
	// Momentum raw momentum: input minus its double-smoothed SMA.
	Momentum float64
	// Smooth EHMA-smoothed momentum.
	Smooth float64
	// PrevSmooth Smooth value of the previous sample.
	PrevSmooth float64
	// SmoothDirection comparison of Smooth against PrevSmooth.
	SmoothDirection SmoothDirection
	// Bias bullish/bearish/neutral classification.
	Bias MomentumBias
	// IsPeak true when Smooth sets a new extreme for the current swing
	// while the bias agrees with the swing direction.
	IsPeak bool
	// LastPeak Smooth value recorded at the most recent rising→falling reversal.
	LastPeak float64
	// LastTrough Smooth value recorded at the most recent falling→rising reversal.
	LastTrough float64
	// Time timestamp of the sample.
	Time time.Time
	// IsValid false until at least one sample has been processed.
	IsValid bool
}

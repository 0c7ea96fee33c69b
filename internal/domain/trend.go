package domain

// TrendContext latest daily-bar indicator values.
type TrendContext struct {
	EMA20 float64 `json:"ema20"`
	EMA50 float64 `json:"ema50"`
	RSI14 float64 `json:"rsi14"`
	ATR14 float64 `json:"atr14"`
	// Bias is bullish when the fast EMA sits above the slow one.
	Bias MomentumBias `json:"bias"`
	// IsValid false when the daily history was too short to compute.
	IsValid bool `json:"is_valid"`
}

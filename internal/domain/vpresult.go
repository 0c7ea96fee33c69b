package domain

// VPResult snapshot of a computed volume profile.
// When IsValid is false (no ticks ingested) every field keeps its zero value.
type VPResult struct {
	// POC price of the highest-volume bucket. Ties resolve to the lowest price.
	POC float64
	// VAH upper bound of the value area.
	VAH float64
	// VAL lower bound of the value area.
	VAL float64
	// VWAP volume-weighted average price.
	VWAP float64
	// HVNs high-volume-node prices, ascending, no duplicates.
	HVNs []float64
	// HVNBuyCount number of HVNs at or below the close (support).
	HVNBuyCount int
	// HVNSellCount number of HVNs above the close (resistance).
	HVNSellCount int
	// HVNBuyVolume total volume across support HVNs.
	HVNBuyVolume int64
	// HVNSellVolume total volume across resistance HVNs.
	HVNSellVolume int64
	// StdDev volume-weighted standard deviation of traded price.
	StdDev float64
	// SD bands at VWAP ± k·StdDev.
	SD1Upper  float64
	SD1Lower  float64
	SD15Upper float64
	SD15Lower float64
	SD2Upper  float64
	SD2Lower  float64
	SD25Upper float64
	SD25Lower float64
	SD3Upper  float64
	SD3Lower  float64
	// IsValid false when the profile had no data to compute from.
	IsValid bool
}

// ValueWidth returns the width of the value area.
func (r VPResult) ValueWidth() float64 {
	if !r.IsValid {
		return 0
	}
	return r.VAH - r.VAL
}

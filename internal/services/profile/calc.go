package profile

import (
	"math"

	"github.com/quantarb/marketprofile/internal/domain"
)

// profileInput raw accumulated state a profile is computed from.
type profileInput struct {
	levels     []domain.PriceLevel // ascending price order
	total      int64
	sumPV      float64
	sumP2V     float64
	closePrice float64
}

// computeProfile derives POC, value area, VWAP, SD bands and HVNs from
// accumulated ladder state. Shared by the session and rolling engines and
// by the composite merge.
func computeProfile(in profileInput, valueAreaPercent, hvnRatio float64) domain.VPResult {
	if in.total <= 0 || len(in.levels) == 0 {
		return domain.VPResult{}
	}

	pocIdx := 0
	for i, lvl := range in.levels {
		if lvl.Volume > in.levels[pocIdx].Volume {
			pocIdx = i
		}
	}
	pocVolume := in.levels[pocIdx].Volume

	res := domain.VPResult{
		POC:     in.levels[pocIdx].Price,
		IsValid: true,
	}

	totalF := float64(in.total)
	res.VWAP = in.sumPV / totalF
	variance := in.sumP2V/totalF - res.VWAP*res.VWAP
	if variance < 0 {
		variance = 0
	}
	res.StdDev = math.Sqrt(variance)
	res.SD1Upper = res.VWAP + res.StdDev
	res.SD1Lower = res.VWAP - res.StdDev
	res.SD15Upper = res.VWAP + 1.5*res.StdDev
	res.SD15Lower = res.VWAP - 1.5*res.StdDev
	res.SD2Upper = res.VWAP + 2*res.StdDev
	res.SD2Lower = res.VWAP - 2*res.StdDev
	res.SD25Upper = res.VWAP + 2.5*res.StdDev
	res.SD25Lower = res.VWAP - 2.5*res.StdDev
	res.SD3Upper = res.VWAP + 3*res.StdDev
	res.SD3Lower = res.VWAP - 3*res.StdDev

	res.VAL, res.VAH = valueArea(in.levels, pocIdx, in.total, valueAreaPercent)

	hvnThreshold := hvnRatio * float64(pocVolume)
	for _, lvl := range in.levels {
		if float64(lvl.Volume) < hvnThreshold {
			continue
		}
		res.HVNs = append(res.HVNs, lvl.Price)
		if lvl.Price <= in.closePrice {
			res.HVNBuyCount++
			res.HVNBuyVolume += lvl.Volume
		} else {
			res.HVNSellCount++
			res.HVNSellVolume += lvl.Volume
		}
	}

	return res
}

// valueArea expands outward from the POC until the accumulated volume
// reaches valueAreaPercent of the total. Each step compares the combined
// volume of the next two levels above against the next two below and
// expands toward the larger side, ties favoring up. The 2-level lookahead
// deliberately differs from a naive 1-level expansion.
func valueArea(levels []domain.PriceLevel, pocIdx int, total int64, valueAreaPercent float64) (val, vah float64) {
	target := valueAreaPercent * float64(total)
	lo, hi := pocIdx, pocIdx
	acc := levels[pocIdx].Volume

	for float64(acc) < target {
		upSum, upCount := lookahead(levels, hi+1, +1)
		downSum, downCount := lookahead(levels, lo-1, -1)

		switch {
		case upCount == 0 && downCount == 0:
			return levels[lo].Price, levels[hi].Price
		case upCount == 0:
			acc += downSum
			lo -= downCount
		case downCount == 0:
			acc += upSum
			hi += upCount
		case upSum >= downSum:
			acc += upSum
			hi += upCount
		default:
			acc += downSum
			lo -= downCount
		}
	}

	return levels[lo].Price, levels[hi].Price
}

// lookahead sums up to two levels starting at idx and stepping by dir,
// falling back to a single level at the ladder boundary.
func lookahead(levels []domain.PriceLevel, idx, dir int) (sum int64, count int) {
	for i := 0; i < 2; i++ {
		pos := idx + i*dir
		if pos < 0 || pos >= len(levels) {
			break
		}
		sum += levels[pos].Volume
		count++
	}
	return sum, count
}

// Package indicators derives daily-bar trend context with the
// cinar/indicator library: EMA crosses, RSI and ATR over the stored
// daily history. The analyzer attaches this context to metric snapshots.
package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"

	"github.com/quantarb/marketprofile/internal/domain"
)

const (
	emaFastPeriod = 20
	emaSlowPeriod = 50
	rsiPeriod     = 14
	atrPeriod     = 14
)

// Compute derives the trend context from daily bars, oldest first.
// At least emaSlowPeriod bars are required.
func Compute(bars []domain.DailyBar) (domain.TrendContext, error) {
	if len(bars) < emaSlowPeriod {
		return domain.TrendContext{}, errors.Errorf("not enough daily bars: need %d, got %d", emaSlowPeriod, len(bars))
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	atr := volatility.NewAtrWithPeriod[float64](atrPeriod)
	atrOut := helper.ChanToSlice(atr.Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	))

	ctx := domain.TrendContext{
		EMA20:   lastValue(computeOverCloses(trend.NewEmaWithPeriod[float64](emaFastPeriod), closes)),
		EMA50:   lastValue(computeOverCloses(trend.NewEmaWithPeriod[float64](emaSlowPeriod), closes)),
		RSI14:   lastValue(computeOverCloses(momentum.NewRsiWithPeriod[float64](rsiPeriod), closes)),
		ATR14:   lastValue(atrOut),
		Bias:    domain.BiasNeutral,
		IsValid: true,
	}
	switch {
	case ctx.EMA20 > ctx.EMA50:
		ctx.Bias = domain.BiasBullish
	case ctx.EMA20 < ctx.EMA50:
		ctx.Bias = domain.BiasBearish
	}
	return ctx, nil
}

type closesIndicator interface {
	Compute(<-chan float64) <-chan float64
}

func computeOverCloses(ind closesIndicator, closes []float64) []float64 {
	return helper.ChanToSlice(ind.Compute(helper.SliceToChan(closes)))
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

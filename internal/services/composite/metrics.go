package composite

import (
	"math"
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
)

// Recalculate builds the 1/3/5/10-day composite profiles and the derived
// range metrics. currentPrice, dayHigh and dayLow describe the live
// session as seen by the caller. Windows lacking enough history keep
// their zero defaults.
func (e *Engine) Recalculate(currentPrice, dayHigh, dayLow float64) domain.CompositeProfileMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := domain.CompositeProfileMetrics{Time: time.Now()}

	m.Composite1D = e.buildCompositeLocked(1)
	m.Composite3D = e.buildCompositeLocked(3)
	m.Composite5D = e.buildCompositeLocked(5)
	m.Composite10D = e.buildCompositeLocked(10)

	prior := e.priorBarsLocked()

	m.CompRange1D = compositeRange(prior, 1)
	m.CompRange3D = compositeRange(prior, 3)
	m.CompRange5D = compositeRange(prior, 5)
	m.CompRange10D = compositeRange(prior, 10)

	m.RollRange1D = rollingRange(prior, 1, dayHigh, dayLow)
	m.RollRange3D = rollingRange(prior, 3, dayHigh, dayLow)
	m.RollRange5D = rollingRange(prior, 5, dayHigh, dayLow)
	m.RollRange10D = rollingRange(prior, 10, dayHigh, dayLow)

	m.ADR1D = averageRange(prior, 1, e.cfg.ADRLookback)
	m.ADR3D = averageRange(prior, 3, e.cfg.ADRLookback)
	m.ADR5D = averageRange(prior, 5, e.cfg.ADRLookback)
	m.ADR10D = averageRange(prior, 10, e.cfg.ADRLookback)

	m.ADRRatio1D = ratio(m.RollRange1D, m.ADR1D)
	m.ADRRatio3D = ratio(m.RollRange3D, m.ADR3D)
	m.ADRRatio5D = ratio(m.RollRange5D, m.ADR5D)
	m.ADRRatio10D = ratio(m.RollRange10D, m.ADR10D)

	if n := len(prior); n >= 2 {
		m.PriorEODRangeD2 = prior[n-2].High - prior[n-2].Low
	}
	if n := len(prior); n >= 3 {
		m.PriorEODRangeD3 = prior[n-3].High - prior[n-3].Low
	}
	if n := len(prior); n >= 4 {
		m.PriorEODRangeD4 = prior[n-4].High - prior[n-4].Low
	}

	e.yearlyExtremesLocked(&m, prior, dayHigh, dayLow)

	if m.Composite5D.IsValid && currentPrice > 0 {
		switch {
		case currentPrice > m.Composite5D.VAH:
			m.Control = domain.ControlBuyers
		case currentPrice < m.Composite5D.VAL:
			m.Control = domain.ControlSellers
		default:
			m.Control = domain.ControlBalance
		}
	}

	if m.Composite3D.IsValid && m.Composite5D.IsValid {
		drift := m.Composite3D.POC - m.Composite5D.POC
		switch {
		case drift >= e.cfg.CompositeInterval:
			m.Migration = domain.MigrationUp
		case drift <= -e.cfg.CompositeInterval:
			m.Migration = domain.MigrationDown
		default:
			m.Migration = domain.MigrationStable
		}
	}

	return m
}

// priorBarsLocked returns daily bars strictly before the live session's
// date; with no active session every stored bar counts as prior.
func (e *Engine) priorBarsLocked() []domain.DailyBar {
	if !e.session.active {
		return e.dailyBars
	}
	out := e.dailyBars
	for len(out) > 0 && !out[len(out)-1].Date.Before(e.session.date) {
		out = out[:len(out)-1]
	}
	return out
}

// buildCompositeLocked merges the live session with the days−1 most
// recent finalized profiles, smooths the merged ladder and derives
// POC/VAH/VAL/VWAP and extremes.
func (e *Engine) buildCompositeLocked(days int) domain.CompositeProfile {
	cp := domain.CompositeProfile{Days: days}

	merged := domain.NewPriceLadder()
	remaining := days
	count := 0

	setDates := func(date time.Time, high, low float64) {
		if count == 1 {
			cp.StartDate = date
			cp.EndDate = date
			cp.High = high
			cp.HighDate = date
			cp.Low = low
			cp.LowDate = date
			return
		}
		if date.Before(cp.StartDate) {
			cp.StartDate = date
		}
		if date.After(cp.EndDate) {
			cp.EndDate = date
		}
		if high > cp.High {
			cp.High = high
			cp.HighDate = date
		}
		if low > 0 && low < cp.Low {
			cp.Low = low
			cp.LowDate = date
		}
	}

	if e.session.active && remaining > 0 {
		merged.Merge(e.session.ladder)
		remaining--
		count++
		setDates(e.session.date, e.session.high, e.session.low)
	}

	for i := len(e.profiles) - 1; i >= 0 && remaining > 0; i-- {
		p := e.profiles[i]
		if e.session.active && p.Date.Equal(e.session.date) {
			continue // live session supersedes a same-day finalized profile
		}
		merged.Merge(p.Ladder)
		remaining--
		count++
		setDates(p.Date, p.High, p.Low)
	}

	if count == 0 || merged.TotalVolume() <= 0 {
		return cp
	}

	cp.TotalVolume = merged.TotalVolume()
	cp.IsValid = true

	prices, raw := denseVolumes(merged, e.cfg.CompositeInterval)
	var sumPV, sumV float64
	for i, p := range prices {
		sumPV += p * raw[i]
		sumV += raw[i]
	}
	if sumV > 0 {
		cp.VWAP = sumPV / sumV
	}

	smoothed := smoothVolumes(raw, e.cfg.Smoothing)

	pocIdx := 0
	for i, v := range smoothed {
		if v > smoothed[pocIdx] {
			pocIdx = i
		}
	}
	cp.POC = prices[pocIdx]
	cp.VAL, cp.VAH = valueAreaSmoothed(prices, smoothed, pocIdx, e.cfg.ValueAreaPercent)

	return cp
}

// denseVolumes expands a ladder into contiguous interval-spaced buckets
// so the smoothing kernel sees true neighbors, including empty ones.
func denseVolumes(l *domain.PriceLadder, interval float64) (prices, volumes []float64) {
	levels := l.Sorted()
	if len(levels) == 0 {
		return nil, nil
	}
	stepKey := domain.PriceKey(interval)
	if stepKey <= 0 {
		stepKey = 1
	}
	minKey := domain.PriceKey(levels[0].Price)
	maxKey := domain.PriceKey(levels[len(levels)-1].Price)
	n := int((maxKey-minKey)/stepKey) + 1

	prices = make([]float64, n)
	volumes = make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = domain.KeyPrice(minKey + int64(i)*stepKey)
	}
	for _, lvl := range levels {
		idx := int((domain.PriceKey(lvl.Price) - minKey) / stepKey)
		volumes[idx] += float64(lvl.Volume)
	}
	return prices, volumes
}

// smoothVolumes applies the triangular smoothing kernel: each bucket's
// volume is spread to neighbors within the radius with linearly
// decreasing weights. Radius values above 1 are provisional; production
// runs at 1 (weights 1,2,1).
func smoothVolumes(vol []float64, radius int) []float64 {
	if radius <= 0 || len(vol) == 0 {
		return vol
	}
	out := make([]float64, len(vol))
	for i := range vol {
		var sum, weight float64
		for d := -radius; d <= radius; d++ {
			j := i + d
			if j < 0 || j >= len(vol) {
				continue
			}
			w := float64(radius + 1 - abs(d))
			sum += w * vol[j]
			weight += w
		}
		out[i] = sum / weight
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// valueAreaSmoothed runs the 2-level lookahead value-area expansion over
// the smoothed dense volume array.
func valueAreaSmoothed(prices, vol []float64, pocIdx int, valueAreaPercent float64) (val, vah float64) {
	var total float64
	for _, v := range vol {
		total += v
	}
	target := valueAreaPercent * total
	lo, hi := pocIdx, pocIdx
	acc := vol[pocIdx]

	for acc < target {
		upSum, upCount := lookaheadFloat(vol, hi+1, +1)
		downSum, downCount := lookaheadFloat(vol, lo-1, -1)

		switch {
		case upCount == 0 && downCount == 0:
			return prices[lo], prices[hi]
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

	return prices[lo], prices[hi]
}

func lookaheadFloat(vol []float64, idx, dir int) (sum float64, count int) {
	for i := 0; i < 2; i++ {
		pos := idx + i*dir
		if pos < 0 || pos >= len(vol) {
			break
		}
		sum += vol[pos]
		count++
	}
	return sum, count
}

// compositeRange high−low over the last days bars strictly before today.
// Zero when fewer than days bars exist.
func compositeRange(prior []domain.DailyBar, days int) float64 {
	if len(prior) < days {
		return 0
	}
	window := prior[len(prior)-days:]
	high := math.Inf(-1)
	low := math.Inf(1)
	for _, b := range window {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high - low
}

// rollingRange same window with today's live high/low substituted for the
// most recent bar. Zero without live session data or enough prior bars.
func rollingRange(prior []domain.DailyBar, days int, dayHigh, dayLow float64) float64 {
	if dayHigh <= 0 || dayLow <= 0 || len(prior) < days-1 {
		return 0
	}
	high, low := dayHigh, dayLow
	for _, b := range prior[len(prior)-(days-1):] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high - low
}

// averageRange trailing mean of historical days-long ranges, up to
// lookback windows ending at the most recent prior bar.
func averageRange(prior []domain.DailyBar, days, lookback int) float64 {
	var sum float64
	var n int
	for k := 0; k < lookback; k++ {
		end := len(prior) - k
		if end < days {
			break
		}
		window := prior[end-days : end]
		high := math.Inf(-1)
		low := math.Inf(1)
		for _, b := range window {
			if b.High > high {
				high = b.High
			}
			if b.Low < low {
				low = b.Low
			}
		}
		sum += high - low
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func ratio(value, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return value / base
}

// yearlyExtremesLocked scans up to YearlyBars trailing bars plus the live
// session for the yearly high and low.
func (e *Engine) yearlyExtremesLocked(m *domain.CompositeProfileMetrics, prior []domain.DailyBar, dayHigh, dayLow float64) {
	window := prior
	if len(window) > e.cfg.YearlyBars {
		window = window[len(window)-e.cfg.YearlyBars:]
	}

	for _, b := range window {
		if m.YearlyHigh == 0 || b.High > m.YearlyHigh {
			m.YearlyHigh = b.High
			m.YearlyHighDate = b.Date
		}
		if m.YearlyLow == 0 || (b.Low > 0 && b.Low < m.YearlyLow) {
			m.YearlyLow = b.Low
			m.YearlyLowDate = b.Date
		}
	}

	if e.session.active {
		if dayHigh > 0 && (m.YearlyHigh == 0 || dayHigh > m.YearlyHigh) {
			m.YearlyHigh = dayHigh
			m.YearlyHighDate = e.session.date
		}
		if dayLow > 0 && (m.YearlyLow == 0 || dayLow < m.YearlyLow) {
			m.YearlyLow = dayLow
			m.YearlyLowDate = e.session.date
		}
	}
}

package composite

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantarb/marketprofile/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, high, low float64) domain.DailyBar {
	return domain.DailyBar{
		Date:   day(d),
		Open:   low,
		High:   high,
		Low:    low,
		Close:  high,
		Volume: 1000,
	}
}

func tick(d int, hour int, price float64, volume int64, isBuy bool) domain.Tick {
	return domain.Tick{
		Price:  price,
		Volume: volume,
		IsBuy:  isBuy,
		Time:   day(d).Add(time.Duration(hour) * time.Hour),
	}
}

func TestEngineCompRangeNeedsEnoughBars(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddDailyBar(bar(3, 110, 100))
	e.AddDailyBar(bar(4, 115, 105))

	m := e.Recalculate(0, 0, 0)
	require.InDelta(t, 10.0, m.CompRange1D, 1e-9, "most recent prior bar H−L")
	require.Zero(t, m.CompRange3D, "3-day range needs at least 3 prior bars")
	require.Zero(t, m.CompRange10D)
}

func TestEngineCompAndRollingRanges(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddDailyBar(bar(1, 100, 90))
	e.AddDailyBar(bar(2, 108, 95))
	e.AddDailyBar(bar(3, 104, 98))

	// Live session on day 4.
	e.AddTick(tick(4, 10, 120, 10, true))

	m := e.Recalculate(120, 120, 118)
	require.InDelta(t, 6.0, m.CompRange1D, 1e-9)
	require.InDelta(t, 18.0, m.CompRange3D, 1e-9, "bars 1..3: high 108, low 90")
	require.InDelta(t, 120-95, m.RollRange3D, 1e-9, "live high replaces the oldest window bar")
	require.InDelta(t, 120-118, m.RollRange1D, 1e-9)
}

func TestEngineADR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ADRLookback = 3
	e := NewEngine(cfg)
	// Ranges: 10, 20, 30, 40.
	e.AddDailyBar(bar(1, 110, 100))
	e.AddDailyBar(bar(2, 120, 100))
	e.AddDailyBar(bar(3, 130, 100))
	e.AddDailyBar(bar(4, 140, 100))

	m := e.Recalculate(0, 0, 0)
	require.InDelta(t, 30.0, m.ADR1D, 1e-9, "mean of the last three 1-day ranges 40,30,20")
}

func TestEnginePriorEODRanges(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddDailyBar(bar(1, 110, 100)) // D-4
	e.AddDailyBar(bar(2, 125, 100)) // D-3
	e.AddDailyBar(bar(3, 135, 100)) // D-2
	e.AddDailyBar(bar(4, 150, 100)) // D-1

	m := e.Recalculate(0, 0, 0)
	require.InDelta(t, 35.0, m.PriorEODRangeD2, 1e-9)
	require.InDelta(t, 25.0, m.PriorEODRangeD3, 1e-9)
	require.InDelta(t, 10.0, m.PriorEODRangeD4, 1e-9)
}

func TestEngineDailyBarUpsertAndDedup(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddDailyBar(bar(2, 110, 100))
	e.AddDailyBar(bar(1, 105, 95))
	e.AddDailyBar(bar(2, 112, 99)) // same calendar day replaces

	bars := e.DailyBars()
	require.Len(t, bars, 2)
	require.Equal(t, day(1), bars[0].Date)
	require.Equal(t, day(2), bars[1].Date)
	require.InDelta(t, 112.0, bars[1].High, 1e-9)
}

func TestEngineSessionRolloverFinalizes(t *testing.T) {
	e := NewEngine(DefaultConfig())

	e.AddTick(tick(1, 10, 100, 10, true))
	e.AddTick(tick(1, 11, 102, 20, false))
	require.Empty(t, e.Profiles())

	// A tick on the next day auto-starts a new session and finalizes day 1.
	e.AddTick(tick(2, 10, 105, 5, true))

	profiles := e.Profiles()
	require.Len(t, profiles, 1)
	p := profiles[0]
	require.Equal(t, day(1), p.Date)
	require.InDelta(t, 100.0, p.Open, 1e-9)
	require.InDelta(t, 102.0, p.High, 1e-9)
	require.InDelta(t, 100.0, p.Low, 1e-9)
	require.InDelta(t, 102.0, p.Close, 1e-9)
	require.Equal(t, int64(30), p.TotalVolume)
	require.Equal(t, 102.0, p.POC, "bucket 102 carries 20 of 30")

	// The finalized day is also upserted as a daily bar.
	bars := e.DailyBars()
	require.Len(t, bars, 1)
	require.Equal(t, day(1), bars[0].Date)
}

func TestEngineFinalizeNeverDropsSession(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.StartSession(day(1))
	// No ticks at all: the manual fallback still stores a profile.
	e.FinalizeCurrentSession()
	require.Len(t, e.Profiles(), 1)
}

func TestEngineProfileRetentionFollowsLookback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 2
	e := NewEngine(cfg)

	for d := 1; d <= 6; d++ {
		e.AddTick(tick(d, 10, 100+float64(d), 10, true))
	}
	e.FinalizeCurrentSession()

	profiles := e.Profiles()
	require.Len(t, profiles, 3, "lookback plus one slot for a same-day profile")
	require.Equal(t, day(4), profiles[0].Date)
	require.Equal(t, day(6), profiles[2].Date)
}

func TestEngineCompositeMergesLiveAndFinalized(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Day 1: volume concentrated at 100.
	e.AddTick(tick(1, 10, 100, 100, true))
	e.AddTick(tick(1, 11, 105, 30, false))
	// Day 2 (live): volume at 105.
	e.AddTick(tick(2, 10, 105, 50, true))
	e.AddTick(tick(2, 11, 110, 20, false))

	m := e.Recalculate(105, 110, 105)

	require.True(t, m.Composite1D.IsValid)
	require.Equal(t, int64(70), m.Composite1D.TotalVolume, "1-day composite covers only the live session")
	require.InDelta(t, 105.0, m.Composite1D.POC, 1e-9)

	require.True(t, m.Composite3D.IsValid)
	require.Equal(t, int64(200), m.Composite3D.TotalVolume)
	require.InDelta(t, 100.0, m.Composite3D.POC, 1e-9, "100-bucket holds 100 of 200 after smoothing")
	require.Equal(t, day(1), m.Composite3D.StartDate)
	require.Equal(t, day(2), m.Composite3D.EndDate)
	require.InDelta(t, 110.0, m.Composite3D.High, 1e-9)
	require.Equal(t, day(2), m.Composite3D.HighDate)
	require.InDelta(t, 100.0, m.Composite3D.Low, 1e-9)

	require.LessOrEqual(t, m.Composite3D.VAL, m.Composite3D.POC)
	require.LessOrEqual(t, m.Composite3D.POC, m.Composite3D.VAH)
}

func TestEngineControlClassification(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddTick(tick(1, 10, 100, 100, true))
	e.AddTick(tick(2, 10, 100, 100, true))

	m := e.Recalculate(200, 200, 199)
	require.Equal(t, domain.ControlBuyers, m.Control)

	m = e.Recalculate(10, 0, 0)
	require.Equal(t, domain.ControlSellers, m.Control)

	m = e.Recalculate(100, 0, 0)
	require.Equal(t, domain.ControlBalance, m.Control)
}

func TestEngineSmoothingShiftsPOC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 1
	e := NewEngine(cfg)

	// Raw argmax sits at an isolated spike; the triangular kernel favors
	// the cluster with strong neighbors.
	e.AddTick(tick(1, 10, 200, 55, true)) // isolated spike at 200
	e.AddTick(tick(1, 11, 100, 50, true))
	e.AddTick(tick(1, 12, 105, 50, true))
	e.AddTick(tick(1, 13, 110, 50, true))
	e.AddTick(tick(1, 14, 105, 4, false))

	m := e.Recalculate(105, 0, 0)
	require.True(t, m.Composite1D.IsValid)
	require.InDelta(t, 105.0, m.Composite1D.POC, 1e-9,
		"smoothed POC moves off the isolated raw maximum")
}

func TestEngineYearlyExtremes(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddDailyBar(bar(1, 150, 90))
	e.AddDailyBar(bar(2, 140, 100))
	e.AddTick(tick(3, 10, 155, 10, true))

	m := e.Recalculate(155, 160, 120)
	require.InDelta(t, 160.0, m.YearlyHigh, 1e-9, "live session high beats history")
	require.Equal(t, day(3), m.YearlyHighDate)
	require.InDelta(t, 90.0, m.YearlyLow, 1e-9)
	require.Equal(t, day(1), m.YearlyLowDate)
}

func TestEngineCloneRestoreRoundTrip(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddDailyBar(bar(1, 110, 100))
	e.AddTick(tick(2, 10, 100, 50, true))
	e.AddTick(tick(2, 11, 104, 25, false))

	snapshot := e.Clone()
	e.AddTick(tick(2, 12, 300, 500, true))
	e.Restore(snapshot)

	e.AddTick(tick(2, 13, 102, 10, true))
	snapshot.AddTick(tick(2, 13, 102, 10, true))

	m1 := e.Recalculate(102, 104, 100)
	m2 := snapshot.Recalculate(102, 104, 100)
	m1.Time = m2.Time
	require.Equal(t, m2, m1)
}

func TestEngineIgnoresInvalidTicks(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.AddTick(domain.Tick{Price: -1, Volume: 10, Time: day(1)})
	e.AddTick(domain.Tick{Price: 100, Volume: 0, Time: day(1)})
	require.False(t, e.SessionActive())
}

func TestEngineConcurrentTickAndRecalculate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			e.AddTick(tick(1+i/400, 10, 100+float64(i%7), 5, i%2 == 0))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			e.Recalculate(100, 103, 99)
		}
	}()
	wg.Wait()

	m := e.Recalculate(100, 103, 99)
	require.True(t, m.Composite1D.IsValid)
}

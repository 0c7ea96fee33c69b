package relative

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(d, hour, minute, second int) time.Time {
	return time.Date(2025, 3, d, hour, minute, second, 0, time.UTC)
}

func TestEngineExactSlotReference(t *testing.T) {
	e := NewEngine(15)

	// Two prior sessions populate the 10:30 slot with 4 and 6.
	e.Update(at(1, 10, 30, 20), 4, 4, 4)
	e.Update(at(2, 10, 30, 20), 6, 6, 6)

	// Third session: current 10 against slot average 5 → 200.
	res := e.Update(at(3, 10, 30, 20), 10, 10, 10)
	require.InDelta(t, 200.0, res.RelHVNBuy, 1e-9)
	require.InDelta(t, 200.0, res.RelHVNSell, 1e-9)
	require.InDelta(t, 200.0, res.RelValueWidth, 1e-9)
}

func TestEngineNearbySlotFallback(t *testing.T) {
	e := NewEngine(15)

	// History exists only at 10:30.
	e.Update(at(1, 10, 30, 20), 8, 8, 8)

	// 10:33 has no exact history: the ±10 window finds 10:30 (weight
	// 1/4), so the reference is its average.
	res := e.Update(at(2, 10, 33, 20), 4, 4, 4)
	require.InDelta(t, 50.0, res.RelHVNBuy, 1e-9)
}

func TestEngineGlobalFallback(t *testing.T) {
	e := NewEngine(15)

	// History only at 09:20; a sample at 15:00 is beyond every window.
	e.Update(at(1, 9, 20, 20), 8, 8, 8)

	res := e.Update(at(2, 15, 0, 20), 4, 4, 4)
	require.InDelta(t, 50.0, res.RelHVNBuy, 1e-9, "global average is the last resort")
}

func TestEngineZeroInputsGiveZeroRelative(t *testing.T) {
	e := NewEngine(15)
	e.Update(at(1, 10, 30, 20), 5, 5, 5)

	res := e.Update(at(2, 10, 30, 20), 0, 0, 0)
	require.Zero(t, res.RelHVNBuy)
	require.Zero(t, res.RelValueWidth)
}

func TestEngineWarmupForcesCumulative100(t *testing.T) {
	e := NewEngine(15)
	e.Update(at(1, 9, 15, 0), 5, 5, 5)

	// First sample of a new session is inside the 15-second warm-up.
	res := e.Update(at(2, 9, 15, 5), 5, 5, 5)
	require.InDelta(t, 100.0, res.CumHVNBuy, 1e-9)

	// Past the warm-up the cumulative ratio takes over: 10/5·100.
	res = e.Update(at(2, 9, 15, 30), 10, 10, 10)
	require.InDelta(t, 200.0, res.CumHVNBuy, 1e-9)
}

func TestEngineCumulativeCarriesForwardOnGaps(t *testing.T) {
	e := NewEngine(15)
	e.Update(at(1, 9, 15, 0), 5, 5, 5)
	e.Update(at(1, 9, 16, 0), 5, 5, 5)

	e.Update(at(2, 9, 15, 0), 5, 5, 5) // warm-up → 100
	res := e.Update(at(2, 9, 16, 0), 10, 10, 10)
	require.InDelta(t, 200.0, res.CumHVNBuy, 1e-9)

	// A zero sample keeps the previous cumulative value.
	res = e.Update(at(2, 9, 17, 0), 0, 0, 0)
	require.InDelta(t, 200.0, res.CumHVNBuy, 1e-9)
}

func TestEngineSessionRolloverResetsCumulative(t *testing.T) {
	e := NewEngine(15)
	e.Update(at(1, 9, 15, 0), 5, 5, 5)
	e.Update(at(1, 9, 16, 0), 20, 20, 20)

	// New calendar day: cumulative state restarts in warm-up.
	res := e.Update(at(2, 9, 15, 2), 20, 20, 20)
	require.InDelta(t, 100.0, res.CumHVNBuy, 1e-9)
}

func TestEngineSlotHistoryBounded(t *testing.T) {
	e := NewEngine(15)
	// Eleven sessions feed the same slot; only the last ten count.
	for d := 1; d <= 11; d++ {
		e.Update(at(d, 10, 30, 20), float64(d), 1, 1)
	}

	h := e.tables[MetricHVNBuy][10*60+30]
	require.Len(t, h.values, 10)
	avg, ok := h.average()
	require.True(t, ok)
	require.InDelta(t, 6.5, avg, 1e-9, "mean of 2..11")
}

func TestEngineOutputBuffersRoundedMostRecentFirst(t *testing.T) {
	e := NewEngine(15)
	e.Update(at(1, 10, 30, 20), 3, 3, 3)
	e.Update(at(2, 10, 30, 20), 1, 1, 1) // ref 3 → 33.33
	e.Update(at(2, 10, 31, 20), 2, 2, 2)

	require.InDelta(t, 33.33, e.Relative(MetricHVNBuy, 1), 1e-9, "rounded to 2 decimals")
	require.Zero(t, e.Relative(MetricHVNBuy, 2), "first ever sample had no history")
	require.Zero(t, e.Relative(MetricHVNBuy, 200), "unfilled slots read as 0")
}

func TestEngineCloneRestoreRoundTrip(t *testing.T) {
	e := NewEngine(15)
	for d := 1; d <= 3; d++ {
		e.Update(at(d, 10, 30, 20), float64(d*2), float64(d), float64(d*3))
	}

	snapshot := e.Clone()
	e.Update(at(4, 10, 30, 20), 999, 999, 999)
	e.Restore(snapshot)

	r1 := e.Update(at(4, 10, 31, 0), 7, 7, 7)
	r2 := snapshot.Update(at(4, 10, 31, 0), 7, 7, 7)
	require.Equal(t, r2, r1)
}

package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEngineCalculateBasicScenario(t *testing.T) {
	e := NewEngine(1.0)
	e.AddTick(100, 10, true)
	e.AddTick(101, 10, true)
	e.AddTick(99, 20, false)
	e.SetClosePrice(99.5)

	require.Equal(t, int64(40), e.TotalVolume())

	lvl, ok := e.Ladder().Level(99)
	require.True(t, ok)
	require.Equal(t, int64(20), lvl.Volume)
	require.Equal(t, int64(20), lvl.SellVolume)

	lvl, ok = e.Ladder().Level(100)
	require.True(t, ok)
	require.Equal(t, int64(10), lvl.Volume)

	lvl, ok = e.Ladder().Level(101)
	require.True(t, ok)
	require.Equal(t, int64(10), lvl.Volume)

	res := e.Calculate(0.7, 0.25)
	require.True(t, res.IsValid)
	require.Equal(t, 99.0, res.POC, "highest single-bucket volume is 20 at 99")
	require.InDelta(t, 99.775, res.VWAP, 1e-9)
	require.LessOrEqual(t, res.VAL, res.POC)
	require.LessOrEqual(t, res.POC, res.VAH)
}

func TestEngineEmptyIsInvalid(t *testing.T) {
	e := NewEngine(1.0)
	res := e.Calculate(0.7, 0.25)
	require.False(t, res.IsValid)
	require.Zero(t, res.POC)
	require.Zero(t, res.VWAP)
	require.Empty(t, res.HVNs)
}

func TestEngineIgnoresInvalidTicks(t *testing.T) {
	e := NewEngine(1.0)
	e.AddTick(-5, 10, true)
	e.AddTick(100, 0, true)
	e.AddTick(0, 10, false)
	require.Equal(t, int64(0), e.TotalVolume())

	e.AddTick(100, 10, true)
	require.Equal(t, int64(10), e.TotalVolume())
}

func TestEngineVolumeConservation(t *testing.T) {
	e := NewEngine(0.5)
	var ingested int64
	prices := []float64{100.1, 100.2, 99.7, 101.3, 100.1, 98.9, 100.6}
	for i, p := range prices {
		vol := int64(5 + i)
		e.AddTick(p, vol, i%2 == 0)
		ingested += vol
	}

	var ladderTotal int64
	for _, lvl := range e.Ladder().Sorted() {
		require.Equal(t, lvl.Volume, lvl.BuyVolume+lvl.SellVolume)
		ladderTotal += lvl.Volume
	}
	require.Equal(t, ingested, ladderTotal)
	require.Equal(t, ingested, e.TotalVolume())
}

func TestEngineValueAreaCoversTarget(t *testing.T) {
	e := NewEngine(1.0)
	// Volume concentrated around 100 with thin tails.
	ticks := map[float64]int64{95: 5, 96: 8, 97: 15, 98: 40, 99: 70, 100: 100, 101: 60, 102: 30, 103: 10, 104: 4}
	var total int64
	for p, v := range ticks {
		e.AddTick(p, v, true)
		total += v
	}

	res := e.Calculate(0.7, 0.25)
	require.True(t, res.IsValid)
	require.Equal(t, 100.0, res.POC)
	require.LessOrEqual(t, res.VAL, res.POC)
	require.LessOrEqual(t, res.POC, res.VAH)

	var inArea int64
	for p, v := range ticks {
		if p >= res.VAL && p <= res.VAH {
			inArea += v
		}
	}
	require.GreaterOrEqual(t, float64(inArea), 0.7*float64(total))
}

func TestEnginePOCTieLowestPrice(t *testing.T) {
	e := NewEngine(1.0)
	e.AddTick(100, 10, true)
	e.AddTick(102, 10, false)

	res := e.Calculate(0.7, 0.25)
	require.Equal(t, 100.0, res.POC)
}

func TestEngineHVNClassification(t *testing.T) {
	e := NewEngine(1.0)
	e.AddTick(98, 50, false)
	e.AddTick(100, 100, true)
	e.AddTick(102, 40, true)
	e.AddTick(104, 10, false) // below 25% of POC volume, not an HVN
	e.SetClosePrice(100)

	res := e.Calculate(0.7, 0.25)
	require.Equal(t, []float64{98, 100, 102}, res.HVNs)
	require.Equal(t, 2, res.HVNBuyCount, "98 and 100 sit at or below the close")
	require.Equal(t, 1, res.HVNSellCount)
	require.Equal(t, int64(150), res.HVNBuyVolume)
	require.Equal(t, int64(40), res.HVNSellVolume)
}

func TestEngineStdDevBands(t *testing.T) {
	e := NewEngine(1.0)
	e.AddTick(99, 10, true)
	e.AddTick(101, 10, false)

	res := e.Calculate(0.7, 0.25)
	require.InDelta(t, 100.0, res.VWAP, 1e-9)
	require.InDelta(t, 1.0, res.StdDev, 1e-9)
	require.InDelta(t, 101.0, res.SD1Upper, 1e-9)
	require.InDelta(t, 99.0, res.SD1Lower, 1e-9)
	require.InDelta(t, 101.5, res.SD15Upper, 1e-9)
	require.InDelta(t, 97.5, res.SD25Lower, 1e-9)
	require.InDelta(t, 103.0, res.SD3Upper, 1e-9)
}

func TestEngineCloneRestoreRoundTrip(t *testing.T) {
	e := NewEngine(1.0)
	e.AddTick(100, 10, true)
	e.AddTick(101, 5, false)
	e.SetClosePrice(100.5)

	snapshot := e.Clone()

	// Diverge the original, then restore it from the snapshot.
	e.AddTick(120, 100, true)
	e.Restore(snapshot)

	// The same next operation must now produce identical results.
	e.AddTick(102, 7, true)
	snapshot.AddTick(102, 7, true)
	require.Equal(t, snapshot.Calculate(0.7, 0.25), e.Calculate(0.7, 0.25))
}

func TestRollingEngineExpiry(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	e := NewRollingEngine(60, FixedBucketWidth(1.0))

	for i := 0; i < 5; i++ {
		e.AddTick(100+float64(i), 10, i%2 == 0, base.Add(time.Duration(i)*time.Minute))
	}
	require.Equal(t, int64(50), e.TotalVolume())

	// Expire past the window for every tick: ladder must drain to empty.
	e.ExpireOldData(base.Add(70 * time.Minute))
	require.Equal(t, int64(0), e.TotalVolume())
	require.Equal(t, 0, e.LevelCount())
	require.False(t, e.Calculate(0.7, 0.25).IsValid)
}

func TestRollingEnginePartialExpiry(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	e := NewRollingEngine(60, FixedBucketWidth(1.0))

	e.AddTick(100, 10, true, base)
	e.AddTick(101, 20, false, base.Add(30*time.Minute))

	e.ExpireOldData(base.Add(61 * time.Minute))
	require.Equal(t, int64(20), e.TotalVolume())

	res := e.Calculate(0.7, 0.25)
	require.True(t, res.IsValid)
	require.Equal(t, 101.0, res.POC)
	require.InDelta(t, 101.0, res.VWAP, 1e-9)
}

func TestRollingEngineDynamicWidth(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	// Band-dependent width: coarse buckets above 200.
	widthFn := func(price float64) float64 {
		if price > 200 {
			return 5.0
		}
		return 1.0
	}
	e := NewRollingEngine(60, widthFn)

	e.AddTick(100.4, 10, true, base)
	e.AddTick(203.0, 10, false, base)

	_, ok := e.ladder.Level(100)
	require.True(t, ok)
	_, ok = e.ladder.Level(205)
	require.True(t, ok, "203 buckets to 205 under width 5")

	// Expiry must use the width stored at insertion time.
	e.ExpireOldData(base.Add(61 * time.Minute))
	require.Equal(t, 0, e.LevelCount())
}

func TestRollingEngineCloneRestore(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	e := NewRollingEngine(60, FixedBucketWidth(1.0))
	e.AddTick(100, 10, true, base)
	e.AddTick(101, 20, false, base.Add(time.Minute))

	snapshot := e.Clone()
	e.AddTick(150, 99, true, base.Add(2*time.Minute))
	e.Restore(snapshot)

	e.ExpireOldData(base.Add(30 * time.Second))
	snapshot.ExpireOldData(base.Add(30 * time.Second))
	require.Equal(t, snapshot.Calculate(0.7, 0.25), e.Calculate(0.7, 0.25))
	require.Equal(t, snapshot.TotalVolume(), e.TotalVolume())
}

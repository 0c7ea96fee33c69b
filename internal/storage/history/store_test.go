package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantarb/marketprofile/internal/domain"
	"github.com/quantarb/marketprofile/internal/services/composite"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "NIFTY-FUT")
	require.NoError(t, err)

	ladder := domain.NewPriceLadder()
	ladder.Add(100, 30, 10)
	ladder.Add(105, 5, 15)

	state := composite.State{
		DailyBars: []domain.DailyBar{
			{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Open: 100, High: 110, Low: 95, Close: 105, Volume: 500},
		},
		Profiles: []domain.DailySessionProfile{
			{
				Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				Open:        100,
				High:        110,
				Low:         95,
				Close:       105,
				POC:         100,
				VAH:         108,
				VAL:         97,
				VWAP:        102.5,
				TotalVolume: 60,
				Ladder:      ladder,
			},
		},
	}

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.DailyBars, 1)
	require.Len(t, loaded.Profiles, 1)
	require.InDelta(t, 100.0, loaded.Profiles[0].POC, 1e-9)
	require.Equal(t, int64(40), func() int64 {
		lvl, ok := loaded.Profiles[0].Ladder.Level(100)
		require.True(t, ok)
		return lvl.Volume
	}())
	require.Equal(t, int64(60), loaded.Profiles[0].Ladder.TotalVolume())
}

func TestStoreLoadMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir(), "BANKNIFTY")
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestStoreRejectsEmptySymbol(t *testing.T) {
	_, err := NewStore(t.TempDir(), "  ")
	require.Error(t, err)
}

func TestStoreFeedsEngineImport(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "NIFTY")
	require.NoError(t, err)

	src := composite.NewEngine(composite.DefaultConfig())
	src.AddDailyBar(domain.DailyBar{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Open: 100, High: 112, Low: 98, Close: 110, Volume: 900})
	src.AddTick(domain.Tick{Price: 100, Volume: 50, IsBuy: true, Time: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)})
	src.FinalizeCurrentSession()

	require.NoError(t, store.Save(src.ExportState()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	dst := composite.NewEngine(composite.DefaultConfig())
	dst.ImportState(*loaded)
	require.Len(t, dst.DailyBars(), 2, "explicit bar plus the finalized session")
	require.Len(t, dst.Profiles(), 1)
}

package snapshots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantarb/marketprofile/internal/domain"
)

func snap(symbol string, poc float64) domain.AnalysisSnapshot {
	return domain.AnalysisSnapshot{
		Symbol: symbol,
		SessionProfile: domain.VPResult{
			POC:     poc,
			IsValid: true,
		},
		Time: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWALStoreSaveAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(snap("NIFTY", 100)))
	require.NoError(t, store.Save(snap("NIFTY", 101)))
	require.NoError(t, store.Save(snap("NIFTY", 102)))

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.InDelta(t, 100.0, records[0].Snapshot.SessionProfile.POC, 1e-9)
	require.Equal(t, uint64(3), store.CurrentIndex())

	tail, err := store.SnapshotsAfter(2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.InDelta(t, 102.0, tail[0].Snapshot.SessionProfile.POC, 1e-9)
}

func TestWALStoreRejectsMissingSymbol(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Save(domain.AnalysisSnapshot{}))
}

func TestWALStoreNothingAfterCurrent(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(snap("NIFTY", 100)))

	records, err := store.SnapshotsAfter(store.CurrentIndex())
	require.NoError(t, err)
	require.Empty(t, records)
}

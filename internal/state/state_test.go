package state

import (
	"testing"

	"github.com/containerman17/btc-chainstate-analytics/internal/cohort"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
)

func TestExportImportRoundTrip(t *testing.T) {
	root := t.TempDir()

	s := New()
	s.Txs[1] = &TxData{}
	s.Addresses[7] = &AddressData{}
	s.Cohorts.UTXORunning[AllID] = &CohortRunningState{Supply: 500, Count: 2, CostBasis: 123.45}
	s.Cohorts.UTXORunning[cohort.ID{Dimension: cohort.DimensionAge, Age: cohort.AgeUpTo1Day}] = &CohortRunningState{Supply: 10}
	s.DateData.Push(mapstore.Date{Year: 2024, Month: 1, Day: 1}, BlockSummary{Height: 0, Timestamp: 1})
	s.DateData.Push(mapstore.Date{Year: 2024, Month: 1, Day: 1}, BlockSummary{Height: 1, Timestamp: 2})

	if err := s.Export(root); err != nil {
		t.Fatalf("export: %v", err)
	}

	reloaded, found, err := Import(root)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !found {
		t.Fatal("expected a previously exported snapshot to be found")
	}

	if _, ok := reloaded.Txs[1]; !ok {
		t.Fatal("expected tx 1 to survive the round trip")
	}
	if _, ok := reloaded.Addresses[7]; !ok {
		t.Fatal("expected address 7 to survive the round trip")
	}

	all, ok := reloaded.Cohorts.UTXORunning[AllID]
	if !ok || all.Supply != 500 || all.CostBasis != 123.45 {
		t.Fatalf("expected the AllID cohort running state to round trip, got %+v (ok=%v)", all, ok)
	}

	if len(reloaded.DateData) != 1 {
		t.Fatalf("expected one DateData entry (both pushes share a date), got %d", len(reloaded.DateData))
	}
	if last := reloaded.DateData[0].LastHeight(); last != 1 {
		t.Fatalf("expected last pushed height 1, got %d", last)
	}
}

func TestImportMissingSnapshotReturnsFreshState(t *testing.T) {
	root := t.TempDir()

	s, found, err := Import(root)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if found {
		t.Fatal("expected found=false when no snapshot has been written yet")
	}
	if len(s.Txs) != 0 || len(s.Addresses) != 0 {
		t.Fatal("expected a fresh empty state")
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	s.Txs[1] = &TxData{}
	s.NextTxoutIndex = 99
	s.DateData.Push(mapstore.Date{Year: 2024, Month: 1, Day: 1}, BlockSummary{Height: 0})

	s.Reset()

	if len(s.Txs) != 0 || s.NextTxoutIndex != 0 || len(s.DateData) != 0 {
		t.Fatal("expected Reset to clear all in-memory state")
	}
	if s.Cohorts == nil || len(s.Cohorts.UTXORunning) == 0 {
		t.Fatal("expected Reset to reseed a fresh cohort roster")
	}
}

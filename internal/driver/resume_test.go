package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/datemetadata"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
	"github.com/containerman17/btc-chainstate-analytics/internal/perr"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

// fakeDataset reports a fixed FirstUnsafeHeight, standing in for a real
// mapstore-backed dataset whose maps were reopened after a checkpoint.
type fakeDataset struct {
	firstUnsafe *uint32
}

func (f fakeDataset) Name() string { return "fake" }
func (f fakeDataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{FirstUnsafeHeight: f.firstUnsafe}
}
func (f fakeDataset) InsertBlockData(*parser.ProcessedBlockData) {}
func (f fakeDataset) InsertDateData(*parser.ProcessedDateData)   {}
func (f fakeDataset) Compute(*dataset.ExportData)                {}
func (f fakeDataset) Maps() []mapstore.ExportableMap             { return nil }

func uint32p(v uint32) *uint32 { return &v }

func newTestDriver(t *testing.T, firstUnsafe *uint32, safetyDepth uint32) *Driver {
	t.Helper()
	return &Driver{
		cfg:      Config{SafetyDepth: safetyDepth},
		sets:     dataset.Collection{fakeDataset{firstUnsafe: firstUnsafe}},
		state:    state.New(),
		dateMeta: datemetadata.New(t.TempDir()),
	}
}

func TestResumeHeightHealthyResumeIsNotStale(t *testing.T) {
	// safetyDepth 6 -> firstUnsafe = lastPersisted - 5. A dataset that last
	// persisted through height 96 reports firstUnsafe 91.
	d := newTestDriver(t, uint32p(91), 6)
	d.state.DateData.Push(mapstore.Date{Year: 2024, Month: 1, Day: 1}, state.BlockSummary{Height: 96})

	height, err := d.resumeHeight(context.Background())
	if err != nil {
		t.Fatalf("expected a healthy resume, got error: %v", err)
	}
	if height != 91 {
		t.Fatalf("expected resume height 91, got %d", height)
	}
}

func TestResumeHeightStaleWhenDatasetsLagSnapshot(t *testing.T) {
	// Datasets last persisted around height 50 (firstUnsafe 45), but the
	// snapshot's date history runs through height 200 — genuinely stale.
	d := newTestDriver(t, uint32p(45), 6)
	d.state.DateData.Push(mapstore.Date{Year: 2024, Month: 1, Day: 1}, state.BlockSummary{Height: 200})

	_, err := d.resumeHeight(context.Background())
	if !errors.Is(err, perr.ErrStateStale) {
		t.Fatalf("expected ErrStateStale, got %v", err)
	}
}

func TestResumeHeightStaleWhenNoDatasetPersistedYet(t *testing.T) {
	d := newTestDriver(t, nil, 6)
	d.state.DateData.Push(mapstore.Date{Year: 2024, Month: 1, Day: 1}, state.BlockSummary{Height: 10})

	_, err := d.resumeHeight(context.Background())
	if !errors.Is(err, perr.ErrStateStale) {
		t.Fatalf("expected ErrStateStale, got %v", err)
	}
}

func TestResumeHeightFreshStateIsNotStale(t *testing.T) {
	d := newTestDriver(t, nil, 6)

	height, err := d.resumeHeight(context.Background())
	if err != nil {
		t.Fatalf("expected no error on a fully fresh run, got %v", err)
	}
	if height != 0 {
		t.Fatalf("expected height 0, got %d", height)
	}
}

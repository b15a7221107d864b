package driver

import (
	"testing"

	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
)

func TestShouldCheckpointOnMonthBoundary(t *testing.T) {
	d := &Driver{cfg: Config{CheckpointTailBlocks: 60}}

	lastDayOfMonth := mapstore.Date{Year: 2024, Month: 1, Day: 31}
	if !d.shouldCheckpoint(lastDayOfMonth, 1000, 100_000) {
		t.Fatalf("expected a checkpoint when the closed date rolls into a new month")
	}
}

func TestShouldCheckpointNearSafeTip(t *testing.T) {
	d := &Driver{cfg: Config{CheckpointTailBlocks: 60}}

	midMonth := mapstore.Date{Year: 2024, Month: 1, Day: 15}
	if d.shouldCheckpoint(midMonth, 1000, 100_000) {
		t.Fatalf("expected no checkpoint mid-month, far from the safe tip")
	}
	if !d.shouldCheckpoint(midMonth, 99_950, 100_000) {
		t.Fatalf("expected a checkpoint once fewer than CheckpointTailBlocks remain before the safe tip")
	}
}

package cointime

import (
	"testing"

	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
)

func TestComputeLivelinessVaultednessComplement(t *testing.T) {
	root := t.TempDir()
	d := New(root, 6)

	destroyed := mapstore.NewHeightMap[float64](root, "destroyed_stub", mapstore.FormatBinary, true, 6)
	supply := mapstore.NewHeightMap[float64](root, "supply_stub", mapstore.FormatBinary, true, 6)
	for h := uint32(0); h < 5; h++ {
		destroyed.Insert(h, 1)
		supply.Insert(h, 10)
	}

	d.Compute(&dataset.ExportData{CoinblocksHeight: destroyed, CirculatingSupply: supply})

	for h := uint32(0); h < 5; h++ {
		live, ok := d.Liveliness.Get(h)
		if !ok {
			t.Fatalf("height %d: missing liveliness", h)
		}
		vaulted, ok := d.Vaultedness.Get(h)
		if !ok {
			t.Fatalf("height %d: missing vaultedness", h)
		}
		if got, want := live+vaulted, 1.0; got != want {
			t.Errorf("height %d: liveliness+vaultedness = %v, want %v", h, got, want)
		}
	}
}

func TestComputeNoOpWithoutUpstreamViews(t *testing.T) {
	root := t.TempDir()
	d := New(root, 6)
	d.Compute(&dataset.ExportData{})

	if _, ok := d.Liveliness.Get(0); ok {
		t.Fatalf("expected no liveliness entries without CoinblocksHeight/CirculatingSupply in the view")
	}
}

package mining

import (
	"testing"

	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

func TestComputeDerivesCirculatingSupplyAndInflation(t *testing.T) {
	root := t.TempDir()
	d := New(root, 6)

	for h := uint32(0); h < 5; h++ {
		d.InsertBlockData(&parser.ProcessedBlockData{
			Height:   h,
			Coinbase: 5_0000_0000, // 5 BTC
			Fees:     []uint64{1_0000_0000},
		})
	}

	priceHeight := mapstore.NewHeightMap[float64](root, "price_stub", mapstore.FormatBinary, true, 6)
	for h := uint32(0); h < 5; h++ {
		priceHeight.Insert(h, 100)
	}

	view := &dataset.ExportData{PriceHeight: priceHeight}
	d.Compute(view)

	supply, ok := d.CirculatingSupply.Get(4)
	if !ok || supply != 25 {
		t.Fatalf("expected cumulative supply 25 at height 4, got %v (ok=%v)", supply, ok)
	}

	subsidy, ok := d.Subsidy.Height.Get(0)
	if !ok || subsidy != 4 {
		t.Fatalf("expected subsidy 4 BTC at height 0, got %v (ok=%v)", subsidy, ok)
	}

	inDollars, ok := d.SubsidyInDollars.Get(0)
	if !ok || inDollars != 400 {
		t.Fatalf("expected subsidy_in_dollars 400 at height 0, got %v (ok=%v)", inDollars, ok)
	}

	if view.CirculatingSupply != d.CirculatingSupply {
		t.Fatalf("Compute must publish CirculatingSupply on the shared view")
	}
}

func TestComputeBlocksMinedMovingAverages(t *testing.T) {
	root := t.TempDir()
	d := New(root, 6)

	base := mapstore.Date{Year: 2024, Month: 1, Day: 1}
	for i := 0; i < 10; i++ {
		d.InsertDateData(&parser.ProcessedDateData{Date: base.AddDays(i), BlockCount: 144})
	}
	d.Compute(&dataset.ExportData{})

	sma7, ok := d.BlocksMinedSMA7.Get(base.AddDays(6))
	if !ok || sma7 != 144 {
		t.Fatalf("expected sma7 144 once the window is full of constant 144s, got %v (ok=%v)", sma7, ok)
	}
}

// Package coinblocks implements the coinblocks-destroyed series, per
// spec.md §4.4: "Coinblocks. Per-height destroyed = last element of
// coinblocks_destroyed_vec; per-date = sum over that date's blocks (flow
// metric)."
package coinblocks

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

const satsPerBTC = 100_000_000

// Dataset tracks coinblocks destroyed per height (this block's total) with
// a date rollup computed by summing the heights belonging to each date.
type Dataset struct {
	Destroyed *mapstore.BiMap[float64]
}

func New(root string, heightSafety uint32) *Dataset {
	return &Dataset{
		Destroyed: mapstore.NewBiMap[float64](root, "coinblocks/destroyed", mapstore.FormatBinary, true, heightSafety, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
	}
}

func (d *Dataset) Name() string { return "coinblocks" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{
		FirstUnsafeHeight: d.Destroyed.Height.InitialFirstUnsafe(),
		FirstUnsafeDate:   d.Destroyed.Date.InitialFirstUnsafe(),
	}
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	d.Destroyed.InsertHeight(pbd.Height, float64(pbd.SatBlocksDestroyed)/satsPerBTC)
}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

func (d *Dataset) Compute(view *dataset.ExportData) {
	if view == nil || view.DateRanges == nil {
		return
	}
	d.Destroyed.ComputeDate(view.DateRanges)
	if view != nil {
		view.CoinblocksHeight = d.Destroyed.Height
	}
}

func (d *Dataset) Maps() []mapstore.ExportableMap { return d.Destroyed.Maps() }

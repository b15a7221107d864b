// Package transaction implements the per-height/date transaction-count
// series and an annualized transaction-volume derivative, supplementing
// spec.md's dataset roster per SPEC_FULL.md §4.1.
package transaction

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

const blocksPerYear = 52_560

type Dataset struct {
	Count             *mapstore.BiMap[float64]
	AnnualizedVolume  *mapstore.HeightMap[float64]
}

func New(root string, heightSafety uint32) *Dataset {
	return &Dataset{
		Count:            mapstore.NewBiMap[float64](root, "transaction/count", mapstore.FormatBinary, true, heightSafety, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
		AnnualizedVolume: mapstore.NewHeightMap[float64](root, "transaction/annualized_volume", mapstore.FormatBinary, true, heightSafety),
	}
}

func (d *Dataset) Name() string { return "transaction" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{
		FirstUnsafeHeight: d.Count.Height.InitialFirstUnsafe(),
		FirstUnsafeDate:   d.Count.Date.InitialFirstUnsafe(),
	}
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	d.Count.InsertHeight(pbd.Height, float64(pbd.TransactionCount))
}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

func (d *Dataset) Compute(view *dataset.ExportData) {
	if view != nil && view.DateRanges != nil {
		d.Count.ComputeDate(view.DateRanges)
	}
	heights, counts := d.Count.Height.Snapshot()
	annualized := mapstore.LastXSum(counts, blocksPerYear)
	for i, h := range heights {
		d.AnnualizedVolume.Insert(h, annualized[i])
	}
}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	return append(d.Count.Maps(), d.AnnualizedVolume)
}

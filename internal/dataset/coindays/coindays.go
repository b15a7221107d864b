// Package coindays implements the coindays-destroyed series, mirroring
// coinblocks but keyed by day-age rather than block-age (GLOSSARY:
// "Coindays destroyed. sats × days held at spend").
package coindays

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

const satsPerBTC = 100_000_000

type Dataset struct {
	Destroyed *mapstore.BiMap[float64]
}

func New(root string, heightSafety uint32) *Dataset {
	return &Dataset{
		Destroyed: mapstore.NewBiMap[float64](root, "coindays/destroyed", mapstore.FormatBinary, true, heightSafety, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
	}
}

func (d *Dataset) Name() string { return "coindays" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{
		FirstUnsafeHeight: d.Destroyed.Height.InitialFirstUnsafe(),
		FirstUnsafeDate:   d.Destroyed.Date.InitialFirstUnsafe(),
	}
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	d.Destroyed.InsertHeight(pbd.Height, float64(pbd.SatDaysDestroyed)/satsPerBTC)
}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

func (d *Dataset) Compute(view *dataset.ExportData) {
	if view == nil || view.DateRanges == nil {
		return
	}
	d.Destroyed.ComputeDate(view.DateRanges)
	if view != nil {
		view.CoindaysHeight = d.Destroyed.Height
	}
}

func (d *Dataset) Maps() []mapstore.ExportableMap { return d.Destroyed.Maps() }

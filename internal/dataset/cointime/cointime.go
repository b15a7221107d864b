// Package cointime implements the coinblocks-destroyed-relative
// "liveliness"/"vaultedness" ratios referenced by
// original_source/src/datasets/mod.rs's module list (no body survived in
// the retrieved slice; derived here from the coinblocks_destroyed/supply
// relationship the rest of the slice establishes, per SPEC_FULL.md §4.1).
package cointime

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

// Dataset derives liveliness (the fraction of cumulative coinblocks created
// that have since been destroyed) and vaultedness (its complement) — each
// new block ages every outstanding satoshi by one coinblock, so cumulative
// coinblocks created through height h approximates the running sum of
// circulating_supply(h).
type Dataset struct {
	Liveliness  *mapstore.HeightMap[float64]
	Vaultedness *mapstore.HeightMap[float64]
}

func New(root string, safetyDepth uint32) *Dataset {
	return &Dataset{
		Liveliness:  mapstore.NewHeightMap[float64](root, "cointime/liveliness", mapstore.FormatBinary, true, safetyDepth),
		Vaultedness: mapstore.NewHeightMap[float64](root, "cointime/vaultedness", mapstore.FormatBinary, true, safetyDepth),
	}
}

func (d *Dataset) Name() string { return "cointime" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{FirstUnsafeHeight: minHeight(d.Liveliness.InitialFirstUnsafe(), d.Vaultedness.InitialFirstUnsafe())}
}

func (d *Dataset) InsertBlockData(*parser.ProcessedBlockData) {}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

// Compute must run after both mining and coinblocks have populated the
// ExportData view (circulating supply and per-height coinblocks destroyed).
func (d *Dataset) Compute(view *dataset.ExportData) {
	if view == nil || view.CoinblocksHeight == nil || view.CirculatingSupply == nil {
		return
	}
	heights, destroyed := view.CoinblocksHeight.Snapshot()

	var cumDestroyed, cumCreated float64
	for i, h := range heights {
		cumDestroyed += destroyed[i]
		supply, ok := view.CirculatingSupply.Get(h)
		if !ok {
			continue
		}
		cumCreated += supply
		if cumCreated == 0 {
			continue
		}
		liveliness := cumDestroyed / cumCreated
		d.Liveliness.Insert(h, liveliness)
		d.Vaultedness.Insert(h, 1-liveliness)
	}
}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	return []mapstore.ExportableMap{d.Liveliness, d.Vaultedness}
}

func minHeight(values ...*uint32) *uint32 {
	var out *uint32
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || *v < *out {
			h := *v
			out = &h
		}
	}
	return out
}

// Package blockmetadata implements the per-height timestamp/date columns
// every other dataset's compute phase joins against, grounded on
// spec.md §4.4's "BlockMetadata. Per-height timestamp: u32 and date:
// NaiveDate."
package blockmetadata

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

// Dataset stores, for every parsed height, the block's unix timestamp and
// the calendar date it falls on (as a day-ordinal, since Date is not itself
// a scalar HeightMap can hold).
type Dataset struct {
	Timestamp   *mapstore.HeightMap[uint32]
	DateOrdinal *mapstore.HeightMap[int64]
}

// New opens (or creates) the block-metadata maps rooted at root.
func New(root string, safetyDepth uint32) *Dataset {
	return &Dataset{
		Timestamp:   mapstore.NewHeightMap[uint32](root, "block_metadata/timestamp", mapstore.FormatBinary, true, safetyDepth),
		DateOrdinal: mapstore.NewHeightMap[int64](root, "block_metadata/date", mapstore.FormatBinary, true, safetyDepth),
	}
}

func (d *Dataset) Name() string { return "block_metadata" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{FirstUnsafeHeight: minHeight(d.Timestamp.InitialFirstUnsafe(), d.DateOrdinal.InitialFirstUnsafe())}
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	d.Timestamp.Insert(pbd.Height, pbd.Timestamp)
	d.DateOrdinal.Insert(pbd.Height, pbd.Date.Ordinal())
}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

func (d *Dataset) Compute(*dataset.ExportData) {}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	return []mapstore.ExportableMap{d.Timestamp, d.DateOrdinal}
}

// DateAt returns the calendar date recorded for height h, if any.
func (d *Dataset) DateAt(h uint32) (mapstore.Date, bool) {
	o, ok := d.DateOrdinal.Get(h)
	if !ok {
		return mapstore.Date{}, false
	}
	return mapstore.DateFromOrdinal(o), true
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

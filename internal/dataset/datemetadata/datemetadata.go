// Package datemetadata implements the date→height-range index the various
// BiMap.ComputeDate rollups depend on, supplementing spec.md's dataset
// roster per SPEC_FULL.md §4.1 ("companion to BlockMetadataDataset, needed
// by the last_height_to_date / sum_heights_to_date converters").
package datemetadata

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

// Dataset records, for every calendar date fully observed, the first and
// last block height belonging to it.
type Dataset struct {
	FirstHeight *mapstore.DateMap[uint32]
	LastHeight  *mapstore.DateMap[uint32]
	BlockCount  *mapstore.DateMap[uint32]
}

func New(root string) *Dataset {
	return &Dataset{
		FirstHeight: mapstore.NewDateMap[uint32](root, "date_metadata/first_height", mapstore.FormatJSON, false, mapstore.NumberOfUnsafeDates),
		LastHeight:  mapstore.NewDateMap[uint32](root, "date_metadata/last_height", mapstore.FormatJSON, false, mapstore.NumberOfUnsafeDates),
		BlockCount:  mapstore.NewDateMap[uint32](root, "date_metadata/block_count", mapstore.FormatJSON, false, mapstore.NumberOfUnsafeDates),
	}
}

func (d *Dataset) Name() string { return "date_metadata" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{FirstUnsafeDate: minDate(d.FirstHeight.InitialFirstUnsafe(), d.LastHeight.InitialFirstUnsafe(), d.BlockCount.InitialFirstUnsafe())}
}

func (d *Dataset) InsertBlockData(*parser.ProcessedBlockData) {}

func (d *Dataset) InsertDateData(pdd *parser.ProcessedDateData) {
	d.FirstHeight.Insert(pdd.Date, pdd.FirstHeight)
	d.LastHeight.Insert(pdd.Date, pdd.LastHeight)
	d.BlockCount.Insert(pdd.Date, uint32(pdd.BlockCount))
}

func (d *Dataset) Compute(*dataset.ExportData) {}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	return []mapstore.ExportableMap{d.FirstHeight, d.LastHeight, d.BlockCount}
}

// Ranges builds the date->[first,last height] index every BiMap.ComputeDate
// rollup consumes.
func (d *Dataset) Ranges() map[mapstore.Date][2]uint32 {
	dates, firsts := d.FirstHeight.Snapshot()
	out := make(map[mapstore.Date][2]uint32, len(dates))
	for i, date := range dates {
		last, ok := d.LastHeight.Get(date)
		if !ok {
			continue
		}
		out[date] = [2]uint32{firsts[i], last}
	}
	return out
}

func minDate(values ...*mapstore.Date) *mapstore.Date {
	var out *mapstore.Date
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || v.Before(*out) {
			d := *v
			out = &d
		}
	}
	return out
}

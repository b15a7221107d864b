package state

import "github.com/containerman17/btc-chainstate-analytics/internal/mapstore"

// BlockSummary is the slim per-block record DateData accumulates while a
// calendar date is still open.
type BlockSummary struct {
	Height    uint32
	Timestamp uint32
}

// DateData is the list of block summaries that together cover one
// calendar date; it is closed (no more blocks appended) once the driver
// observes the next block's date differ, per spec.md §3 "DateData
// lifecycle".
type DateData struct {
	Date   mapstore.Date
	Blocks []BlockSummary
}

// FirstHeight returns the height of the date's first block.
func (d DateData) FirstHeight() uint32 { return d.Blocks[0].Height }

// LastHeight returns the height of the date's last block so far.
func (d DateData) LastHeight() uint32 { return d.Blocks[len(d.Blocks)-1].Height }

// DateDataVec is the append-only, height-ordered history of every date the
// run has observed, mirroring the source's `date_data_vec` snapshot field.
type DateDataVec []DateData

// Push appends a block summary, opening a new DateData if d differs from
// the last entry's date (or the vec is empty).
func (v *DateDataVec) Push(d mapstore.Date, b BlockSummary) {
	if n := len(*v); n > 0 && (*v)[n-1].Date.Equal(d) {
		(*v)[n-1].Blocks = append((*v)[n-1].Blocks, b)
		return
	}
	*v = append(*v, DateData{Date: d, Blocks: []BlockSummary{b}})
}

// LastDate returns the most recently observed date, and false if the vec
// is empty.
func (v DateDataVec) LastDate() (mapstore.Date, bool) {
	if len(v) == 0 {
		return mapstore.Date{}, false
	}
	return v[len(v)-1].Date, true
}

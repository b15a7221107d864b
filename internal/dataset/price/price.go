// Package price implements the Price/Date dataset: a daily close fetched
// once from the external feed, cached in memory, and persisted as a small
// JSON date map (plus a binary per-height map), per spec.md §4.4 ("Price/Date... cached in-memory and
// persisted as JSON (small)") and §6/§8 scenario S6.
package price

import (
	"context"
	"fmt"

	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
	"github.com/containerman17/btc-chainstate-analytics/internal/pricefeed"
)

// Dataset holds the daily close series plus a per-height rollup (every
// height within a date takes that date's close, since the feed has no
// finer granularity).
type Dataset struct {
	Symbol string
	Feed   pricefeed.Feed

	DateClose   *mapstore.DateMap[float64]
	HeightClose *mapstore.HeightMap[float64]

	fetched bool
	cache   map[mapstore.Date]float64
}

func New(root, symbol string, feed pricefeed.Feed, safetyDepth uint32) *Dataset {
	return &Dataset{
		Symbol:      symbol,
		Feed:        feed,
		DateClose:   mapstore.NewDateMap[float64](root, "price/date", mapstore.FormatJSON, true, mapstore.NumberOfUnsafeDates),
		HeightClose: mapstore.NewHeightMap[float64](root, "price/height", mapstore.FormatBinary, true, safetyDepth),
	}
}

func (d *Dataset) Name() string { return "price" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{
		FirstUnsafeHeight: d.HeightClose.InitialFirstUnsafe(),
		FirstUnsafeDate:   d.DateClose.InitialFirstUnsafe(),
	}
}

// Close returns the USD/BTC close for the given date, fetching (and caching)
// the full daily history from the feed on first miss, per S6: the feed is
// invoked at most once per run.
func (d *Dataset) Close(ctx context.Context, date mapstore.Date) (float64, error) {
	if v, ok := d.DateClose.Get(date); ok {
		return v, nil
	}
	if v, ok := d.cache[date]; ok {
		return v, nil
	}
	if !d.fetched {
		rows, err := d.Feed.FetchDaily(ctx, d.Symbol)
		if err != nil {
			return 0, fmt.Errorf("fetch daily prices: %w", err)
		}
		d.cache = rows
		d.fetched = true
	}
	v, ok := d.cache[date]
	if !ok {
		return 0, fmt.Errorf("%s: %w", date, pricefeed.ErrDateNotFound)
	}
	return v, nil
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	d.DateClose.Insert(pbd.Date, pbd.DatePrice)
	d.HeightClose.Insert(pbd.Height, pbd.BlockPrice)
}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

func (d *Dataset) Compute(*dataset.ExportData) {}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	return []mapstore.ExportableMap{d.DateClose, d.HeightClose}
}

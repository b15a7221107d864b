// Package dataset defines the uniform capability every statistical series
// deriver exposes to the driver, per spec.md §4.4/§9: datasets are stored
// heterogeneously (one struct per concern, each owning its own maps) but
// driven through a single interface so import/export/compute can fan out
// over them without the driver knowing each dataset's concrete shape.
package dataset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

// MinInitialState summarizes the earliest position a dataset still needs —
// the minimum of every map it owns — used by the driver to compute the
// overall resume height per spec.md §4.6.
type MinInitialState struct {
	FirstUnsafeHeight *uint32
	FirstUnsafeDate   *mapstore.Date
}

// mergeHeight folds another map's first unsafe height into the running
// minimum.
func (s *MinInitialState) mergeHeight(h *uint32) {
	if h == nil {
		return
	}
	if s.FirstUnsafeHeight == nil || *h < *s.FirstUnsafeHeight {
		v := *h
		s.FirstUnsafeHeight = &v
	}
}

func (s *MinInitialState) mergeDate(d *mapstore.Date) {
	if d == nil {
		return
	}
	if s.FirstUnsafeDate == nil || d.Before(*s.FirstUnsafeDate) {
		v := *d
		s.FirstUnsafeDate = &v
	}
}

// ExportData is the read-only "already computed series" view passed to
// Compute, per the design note on cyclic dataset knowledge (spec.md §9):
// datasets that produce these series run their Compute phase first: in
// practice BlockMetadata/DateMetadata, then Mining (supply), then
// Coinblocks/Coindays, then everything that derives from those.
type ExportData struct {
	DateRanges map[mapstore.Date][2]uint32

	CirculatingSupply *mapstore.HeightMap[float64]
	PriceHeight       *mapstore.HeightMap[float64]
	PriceDate         *mapstore.DateMap[float64]
	CoinblocksHeight  *mapstore.HeightMap[float64]
	CoindaysHeight    *mapstore.HeightMap[float64]
}

// Dataset is the capability set every deriver exposes, per the trait-object
// design note: insertion is driven block-by-block and date-by-date as the
// parser advances, Compute runs once per checkpoint to derive dependent
// series, and Export/Clean/MinInitialState round out the checkpoint and
// resume lifecycle.
type Dataset interface {
	Name() string
	MinInitialState() MinInitialState
	InsertBlockData(pbd *parser.ProcessedBlockData)
	InsertDateData(pdd *parser.ProcessedDateData)
	Compute(view *ExportData)
	Maps() []mapstore.ExportableMap
}

// Collection is the heterogeneous container the driver iterates for bulk
// checkpoint operations (spec.md §5: "one task per dataset's export call").
type Collection []Dataset

// MinInitialState returns the minimum initial-state across every dataset in
// the collection and every map each one owns.
func (c Collection) MinInitialState() MinInitialState {
	var out MinInitialState
	for _, d := range c {
		mis := d.MinInitialState()
		out.mergeHeight(mis.FirstUnsafeHeight)
		out.mergeDate(mis.FirstUnsafeDate)
	}
	return out
}

// InsertBlockData fans the same ProcessedBlockData out to every dataset.
// Each dataset's own InsertBlockData is a pure in-memory map write — no I/O
// — so this runs inline rather than through errgroup, matching the parser's
// single-threaded discipline (spec.md §5).
func (c Collection) InsertBlockData(pbd *parser.ProcessedBlockData) {
	for _, d := range c {
		d.InsertBlockData(pbd)
	}
}

// InsertDateData fans the same ProcessedDateData out to every dataset.
func (c Collection) InsertDateData(pdd *parser.ProcessedDateData) {
	for _, d := range c {
		d.InsertDateData(pdd)
	}
}

// Compute runs every dataset's Compute phase in the fixed topological order
// the collection was built in (spec.md §9: "explicit topological ordering").
// Compute is deliberately sequential, not fanned out, since later datasets
// read the ExportData view that earlier ones populate.
func (c Collection) Compute(view *ExportData) {
	for _, d := range c {
		d.Compute(view)
	}
}

// Export flushes every dataset's maps in parallel, one goroutine per map
// (no concurrency limit is set on the errgroup), matching spec.md §5's "data-parallel over a vector
// of datasets" export phase.
func (c Collection) Export(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, d := range c {
		for _, m := range d.Maps() {
			m := m
			g.Go(func() error {
				m.PreExport()
				if err := m.Export(); err != nil {
					return fmt.Errorf("export %s: %w", m.Name(), err)
				}
				m.PostExport()
				return nil
			})
		}
	}
	return g.Wait()
}

// Clean resets every dataset's on-disk maps, used when the driver detects a
// stale state snapshot and must rebuild from height 0 (spec.md §4.6).
func (c Collection) Clean() error {
	for _, d := range c {
		for _, m := range d.Maps() {
			if err := m.Reset(); err != nil {
				return fmt.Errorf("reset %s: %w", m.Name(), err)
			}
		}
	}
	return nil
}

// Manifest builds the paths.json content: every exported map path mapped to
// its stringified element type name (spec.md §6).
func (c Collection) Manifest() map[string]string {
	out := make(map[string]string)
	for _, d := range c {
		for _, m := range d.Maps() {
			out[m.ExportedPath()] = m.TypeName()
		}
	}
	return out
}

// Package cohort implements the six cohort sub-datasets spec.md §4.4 names
// (input/output/realized/supply/unrealized/price-paid), each indexed by
// cohort.ID and backed by one map per metric per cohort cell (a BiMap for
// the flow metrics, a HeightMap for the point-in-time ones). One
// Dataset instance covers the UTXO-keyed family (age + size cohorts); a
// second covers the address-keyed family (size cohorts only, per spec.md
// §4.3's "age cohort is always current" for addresses).
package cohort

import (
	"fmt"

	cc "github.com/containerman17/btc-chainstate-analytics/internal/cohort"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

// cellMaps bundles the per-cohort series: input/output volume and count
// (flow, from CohortBlockStats), realized P/L (flow), and supply/count/
// unrealized-P/L/price-paid (point-in-time, from CohortRunningState). The
// flow series carry both a height and a date half (subs/input.rs rolls
// these up per day per cohort); the point-in-time series stay height-only.
type cellMaps struct {
	InputCount   *mapstore.BiMap[float64]
	InputVolume  *mapstore.BiMap[float64]
	OutputCount  *mapstore.BiMap[float64]
	OutputVolume *mapstore.BiMap[float64]

	RealizedProfitUSD *mapstore.BiMap[float64]
	RealizedLossUSD   *mapstore.BiMap[float64]

	Supply       *mapstore.HeightMap[float64]
	Count        *mapstore.HeightMap[float64]
	UnrealizedPL *mapstore.HeightMap[float64]
	PricePaid    *mapstore.HeightMap[float64]
}

func (c *cellMaps) flows() []*mapstore.BiMap[float64] {
	return []*mapstore.BiMap[float64]{
		c.InputCount, c.InputVolume, c.OutputCount, c.OutputVolume,
		c.RealizedProfitUSD, c.RealizedLossUSD,
	}
}

func (c *cellMaps) all() []mapstore.ExportableMap {
	out := make([]mapstore.ExportableMap, 0, 10)
	for _, f := range c.flows() {
		out = append(out, f.Maps()...)
	}
	return append(out, c.Supply, c.Count, c.UnrealizedPL, c.PricePaid)
}

// Dataset is one cohort family (UTXO or address), holding cellMaps for
// every ID in its roster.
type Dataset struct {
	name   string
	isUTXO bool
	roster []cc.ID
	cells  map[cc.ID]*cellMaps
}

// NewUTXO opens the UTXO-keyed cohort family: every age bucket, every size
// bucket, and the chain-wide "all" aggregate.
func NewUTXO(root string, safetyDepth uint32) *Dataset {
	roster := append(append([]cc.ID{}, cc.AllAgeIDs()...), append(cc.AllSizeIDs(), state.AllID)...)
	return newDataset(root, "utxo_cohorts", roster, true, safetyDepth)
}

// NewAddress opens the address-keyed cohort family: every size bucket plus
// the "all" aggregate (no age dimension — an address's held coins span many
// ages at once).
func NewAddress(root string, safetyDepth uint32) *Dataset {
	roster := append(append([]cc.ID{}, cc.AllSizeIDs()...), state.AllID)
	return newDataset(root, "address_cohorts", roster, false, safetyDepth)
}

func newDataset(root, name string, roster []cc.ID, isUTXO bool, safetyDepth uint32) *Dataset {
	cells := make(map[cc.ID]*cellMaps, len(roster))
	for _, id := range roster {
		base := fmt.Sprintf("cohort/%s/%s", name, idSlug(id))
		cells[id] = &cellMaps{
			InputCount:        mapstore.NewBiMap[float64](root, base+"/input_count", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
			InputVolume:       mapstore.NewBiMap[float64](root, base+"/input_volume", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
			OutputCount:       mapstore.NewBiMap[float64](root, base+"/output_count", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
			OutputVolume:      mapstore.NewBiMap[float64](root, base+"/output_volume", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
			RealizedProfitUSD: mapstore.NewBiMap[float64](root, base+"/realized_profit_usd", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
			RealizedLossUSD:   mapstore.NewBiMap[float64](root, base+"/realized_loss_usd", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
			Supply:            mapstore.NewHeightMap[float64](root, base+"/supply", mapstore.FormatBinary, true, safetyDepth),
			Count:             mapstore.NewHeightMap[float64](root, base+"/count", mapstore.FormatBinary, true, safetyDepth),
			UnrealizedPL:      mapstore.NewHeightMap[float64](root, base+"/unrealized_pl", mapstore.FormatBinary, true, safetyDepth),
			PricePaid:         mapstore.NewHeightMap[float64](root, base+"/price_paid", mapstore.FormatBinary, true, safetyDepth),
		}
	}
	return &Dataset{name: name, isUTXO: isUTXO, roster: roster, cells: cells}
}

// idSlug names a cohort cell's on-disk directory. state.AllID deliberately
// collides with SizePlankton under cc.ID.String() (its zero Size value), so
// it needs its own slug to avoid clobbering the plankton cohort's files.
func idSlug(id cc.ID) string {
	if id == state.AllID {
		return "all"
	}
	return id.String()
}

func (d *Dataset) Name() string { return d.name }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	var out dataset.MinInitialState
	for _, cells := range d.cells {
		for _, m := range cells.all() {
			hm, ok := m.(interface{ InitialFirstUnsafe() *uint32 })
			if !ok {
				continue
			}
			if h := hm.InitialFirstUnsafe(); h != nil {
				if out.FirstUnsafeHeight == nil || *h < *out.FirstUnsafeHeight {
					v := *h
					out.FirstUnsafeHeight = &v
				}
			}
		}
	}
	return out
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	stats := pbd.AddressCohortBlockStats
	snap := pbd.AddressCohortSnapshot
	if d.isUTXO {
		stats = pbd.UTXOCohortBlockStats
		snap = pbd.UTXOCohortSnapshot
	}

	for id, cells := range d.cells {
		if s, ok := stats[id]; ok {
			cells.InputCount.InsertHeight(pbd.Height, float64(s.InputCount))
			cells.InputVolume.InsertHeight(pbd.Height, state.Btc(s.InputVolume))
			cells.OutputCount.InsertHeight(pbd.Height, float64(s.OutputCount))
			cells.OutputVolume.InsertHeight(pbd.Height, state.Btc(s.OutputVolume))
			cells.RealizedProfitUSD.InsertHeight(pbd.Height, s.RealizedProfitUSD)
			cells.RealizedLossUSD.InsertHeight(pbd.Height, s.RealizedLossUSD)
		}
		if running, ok := snap[id]; ok {
			cells.Supply.Insert(pbd.Height, state.Btc(running.Supply))
			cells.Count.Insert(pbd.Height, float64(running.Count))
			cells.PricePaid.Insert(pbd.Height, running.PricePaid())
			cells.UnrealizedPL.Insert(pbd.Height, running.UnrealizedPL(pbd.BlockPrice))
		}
	}
}

func (d *Dataset) InsertDateData(*parser.ProcessedDateData) {}

// Compute rolls each cohort cell's flow series (input/output volume and
// count, realized P/L) forward into their date halves; every series this
// family publishes is otherwise already a point-in-time or per-block flow
// value taken directly from the snapshot the parser handed over, per
// spec.md §4.4's "insert takes a ProcessedBlockData plus the cohort's
// current state snapshot."
func (d *Dataset) Compute(view *dataset.ExportData) {
	if view == nil || view.DateRanges == nil {
		return
	}
	for _, cells := range d.cells {
		for _, f := range cells.flows() {
			f.ComputeDate(view.DateRanges)
		}
	}
}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	out := make([]mapstore.ExportableMap, 0, len(d.cells)*10)
	for _, cells := range d.cells {
		out = append(out, cells.all()...)
	}
	return out
}

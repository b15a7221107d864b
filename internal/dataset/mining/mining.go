// Package mining implements the coinbase/subsidy/inflation series, per
// spec.md §4.4: "Mining. Per-height coinbase, fees (in BTC). Derived:
// subsidy = coinbase − fees; subsidy_in_dollars = subsidy × height-price;
// annualized_issuance = last-N-block sum of subsidy (N = one-year block
// count); yearly_inflation_rate = annualized_issuance / circulating_supply;
// blocks_mined SMA over 7 and 30 days."
package mining

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
)

const satsPerBTC = 100_000_000

// blocksPerYear approximates one year of blocks at Bitcoin's ~10 minute
// target spacing, used as the window for annualized_issuance.
const blocksPerYear = 52_560

func btc(sats uint64) float64 { return float64(sats) / satsPerBTC }

// Dataset tracks per-height mining economics and the circulating-supply
// series every other dataset's Compute phase reads via ExportData.
// Coinbase/Fees/Subsidy are flow metrics (per-block issuance), so they carry
// both the height and date halves (mining.rs rolls these up per day too);
// the purely derived series stay height-only.
type Dataset struct {
	Coinbase *mapstore.BiMap[float64]
	Fees     *mapstore.BiMap[float64]
	Subsidy  *mapstore.BiMap[float64]

	SubsidyInDollars    *mapstore.HeightMap[float64]
	CirculatingSupply   *mapstore.HeightMap[float64]
	AnnualizedIssuance  *mapstore.HeightMap[float64]
	YearlyInflationRate *mapstore.HeightMap[float64]

	BlocksMined      *mapstore.DateMap[uint32]
	BlocksMinedSMA7  *mapstore.DateMap[float64]
	BlocksMinedSMA30 *mapstore.DateMap[float64]
}

func New(root string, safetyDepth uint32) *Dataset {
	return &Dataset{
		Coinbase:            mapstore.NewBiMap[float64](root, "mining/coinbase", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
		Fees:                mapstore.NewBiMap[float64](root, "mining/fees", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
		Subsidy:             mapstore.NewBiMap[float64](root, "mining/subsidy", mapstore.FormatBinary, true, safetyDepth, mapstore.NumberOfUnsafeDates, mapstore.RollupSum),
		SubsidyInDollars:    mapstore.NewHeightMap[float64](root, "mining/subsidy_in_dollars", mapstore.FormatBinary, true, safetyDepth),
		CirculatingSupply:   mapstore.NewHeightMap[float64](root, "mining/circulating_supply", mapstore.FormatBinary, true, safetyDepth),
		AnnualizedIssuance:  mapstore.NewHeightMap[float64](root, "mining/annualized_issuance", mapstore.FormatBinary, true, safetyDepth),
		YearlyInflationRate: mapstore.NewHeightMap[float64](root, "mining/yearly_inflation_rate", mapstore.FormatBinary, true, safetyDepth),
		BlocksMined:         mapstore.NewDateMap[uint32](root, "mining/blocks_mined", mapstore.FormatJSON, false, mapstore.NumberOfUnsafeDates),
		BlocksMinedSMA7:     mapstore.NewDateMap[float64](root, "mining/blocks_mined_sma7", mapstore.FormatJSON, false, mapstore.NumberOfUnsafeDates),
		BlocksMinedSMA30:    mapstore.NewDateMap[float64](root, "mining/blocks_mined_sma30", mapstore.FormatJSON, false, mapstore.NumberOfUnsafeDates),
	}
}

func (d *Dataset) Name() string { return "mining" }

func (d *Dataset) MinInitialState() dataset.MinInitialState {
	return dataset.MinInitialState{
		FirstUnsafeHeight: minHeight(
			d.Coinbase.Height.InitialFirstUnsafe(), d.Fees.Height.InitialFirstUnsafe(), d.Subsidy.Height.InitialFirstUnsafe(),
			d.SubsidyInDollars.InitialFirstUnsafe(), d.CirculatingSupply.InitialFirstUnsafe(),
			d.AnnualizedIssuance.InitialFirstUnsafe(), d.YearlyInflationRate.InitialFirstUnsafe(),
		),
		FirstUnsafeDate: minDate(
			d.Coinbase.Date.InitialFirstUnsafe(), d.Fees.Date.InitialFirstUnsafe(), d.Subsidy.Date.InitialFirstUnsafe(),
			d.BlocksMined.InitialFirstUnsafe(), d.BlocksMinedSMA7.InitialFirstUnsafe(), d.BlocksMinedSMA30.InitialFirstUnsafe(),
		),
	}
}

func (d *Dataset) InsertBlockData(pbd *parser.ProcessedBlockData) {
	var feeSats uint64
	for _, f := range pbd.Fees {
		feeSats += f
	}
	coinbaseBTC := btc(pbd.Coinbase)
	feesBTC := btc(feeSats)
	d.Coinbase.InsertHeight(pbd.Height, coinbaseBTC)
	d.Fees.InsertHeight(pbd.Height, feesBTC)
	d.Subsidy.InsertHeight(pbd.Height, coinbaseBTC-feesBTC)
}

func (d *Dataset) InsertDateData(pdd *parser.ProcessedDateData) {
	d.BlocksMined.Insert(pdd.Date, uint32(pdd.BlockCount))
}

// Compute derives subsidy_in_dollars, circulating_supply,
// annualized_issuance, yearly_inflation_rate, and the blocks-mined moving
// averages from the series inserted so far, then rolls the flow series
// (coinbase/fees/subsidy) forward into their date halves. It must run
// before any dataset that reads view.CirculatingSupply.
func (d *Dataset) Compute(view *dataset.ExportData) {
	heights, subsidies := d.Subsidy.Height.Snapshot()
	coinbaseHeights, coinbases := d.Coinbase.Height.Snapshot()

	supply := mapstore.CumulativeSum(coinbases)
	for i, h := range coinbaseHeights {
		d.CirculatingSupply.Insert(h, supply[i])
	}

	annualized := mapstore.LastXSum(subsidies, blocksPerYear)
	for i, h := range heights {
		d.AnnualizedIssuance.Insert(h, annualized[i])

		if view != nil && view.PriceHeight != nil {
			if price, ok := view.PriceHeight.Get(h); ok {
				d.SubsidyInDollars.Insert(h, subsidies[i]*price)
			}
		}
		if circ, ok := d.CirculatingSupply.Get(h); ok && circ != 0 {
			d.YearlyInflationRate.Insert(h, annualized[i]/circ)
		}
	}

	dates, counts := d.BlocksMined.Snapshot()
	countsF := make([]float64, len(counts))
	for i, c := range counts {
		countsF[i] = float64(c)
	}
	sma7 := mapstore.SimpleMovingAverage(countsF, 7)
	sma30 := mapstore.SimpleMovingAverage(countsF, 30)
	for i, date := range dates {
		d.BlocksMinedSMA7.Insert(date, sma7[i])
		d.BlocksMinedSMA30.Insert(date, sma30[i])
	}

	if view != nil && view.DateRanges != nil {
		d.Coinbase.ComputeDate(view.DateRanges)
		d.Fees.ComputeDate(view.DateRanges)
		d.Subsidy.ComputeDate(view.DateRanges)
	}

	if view != nil {
		view.CirculatingSupply = d.CirculatingSupply
	}
}

func (d *Dataset) Maps() []mapstore.ExportableMap {
	out := make([]mapstore.ExportableMap, 0, 10)
	out = append(out, d.Coinbase.Maps()...)
	out = append(out, d.Fees.Maps()...)
	out = append(out, d.Subsidy.Maps()...)
	out = append(out,
		d.SubsidyInDollars, d.CirculatingSupply,
		d.AnnualizedIssuance, d.YearlyInflationRate,
		d.BlocksMined, d.BlocksMinedSMA7, d.BlocksMinedSMA30,
	)
	return out
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

func minDate(values ...*mapstore.Date) *mapstore.Date {
	var out *mapstore.Date
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || v.Before(*out) {
			dd := *v
			out = &dd
		}
	}
	return out
}

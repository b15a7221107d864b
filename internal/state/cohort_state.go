package state

import "github.com/containerman17/btc-chainstate-analytics/internal/cohort"

// CohortRunningState is the persistent (block-to-block) accounting kept
// per cohort cell: how much supply it currently holds, how many UTXOs
// (or, for address cohorts, how many addresses) make that up, and the
// cost basis needed to derive unrealized P/L and the cohort's average
// "price paid" at any later block price.
type CohortRunningState struct {
	Supply    uint64  // sats currently attributed to this cohort
	Count     uint64  // number of UTXOs (or addresses) in this cohort
	CostBasis float64 // Σ sats_i(BTC) * acquisition_price_i, in USD
}

// Add folds a newly attributed unit (a received output, or an address
// entering this size bucket) into the running state.
func (s *CohortRunningState) Add(sats uint64, acquisitionPrice float64) {
	s.Supply += sats
	s.Count++
	s.CostBasis += Btc(sats) * acquisitionPrice
}

// Remove folds out a spent/departing unit. costBasisShare is the USD amount
// of CostBasis being removed; the parser's removeCohort always passes the
// share proportional to sats/Supply, not the unit's own acquisition cost.
func (s *CohortRunningState) Remove(sats uint64, costBasisShare float64) {
	if sats > s.Supply {
		panic("state: cohort remove exceeds supply")
	}
	s.Supply -= sats
	if s.Count > 0 {
		s.Count--
	}
	s.CostBasis -= costBasisShare
	if s.CostBasis < 0 {
		s.CostBasis = 0
	}
}

// PricePaid returns the cohort's sats-weighted average acquisition price
// ("realized price" in the source dataset naming), or 0 if the cohort
// currently holds no supply.
func (s *CohortRunningState) PricePaid() float64 {
	supplyBTC := Btc(s.Supply)
	if supplyBTC == 0 {
		return 0
	}
	return s.CostBasis / supplyBTC
}

// UnrealizedPL returns the cohort's paper profit/loss at the given
// current USD/BTC price.
func (s *CohortRunningState) UnrealizedPL(currentPrice float64) float64 {
	return Btc(s.Supply)*currentPrice - s.CostBasis
}

// CohortBlockStats is the transient per-block accumulator the parser
// builds fresh for every block and hands to the cohort sub-datasets
// (input/output/realized) — reset every call, unlike CohortRunningState.
type CohortBlockStats struct {
	InputCount    uint64
	InputVolume   uint64
	OutputCount   uint64
	OutputVolume  uint64
	RealizedProfitUSD float64
	RealizedLossUSD   float64
}

// CohortStates bundles the running state for every cohort cell across both
// dimensions (age and size) plus the "all" aggregate, for both UTXOs and
// addresses. One instance lives in State and persists across the whole
// run; a fresh set of CohortBlockStats is allocated by the parser on every
// block.
type CohortStates struct {
	UTXORunning    map[cohort.ID]*CohortRunningState
	AddressRunning map[cohort.ID]*CohortRunningState
}

// AllCohortIDs returns every age ID, every size ID, and the "all" sentinel
// ID, in a stable order — the full roster each cohort dataset iterates.
func AllCohortIDs() []cohort.ID {
	ids := append(cohort.AllAgeIDs(), cohort.AllSizeIDs()...)
	return append(ids, AllID)
}

// AllID is the sentinel cohort.ID representing the chain-wide aggregate
// ("all" in the source dataset naming), not keyed by any single dimension.
var AllID = cohort.ID{Dimension: cohort.Dimension(-1)}

// NewCohortStates seeds an empty running-state entry for every cohort cell.
func NewCohortStates() *CohortStates {
	cs := &CohortStates{
		UTXORunning:    make(map[cohort.ID]*CohortRunningState),
		AddressRunning: make(map[cohort.ID]*CohortRunningState),
	}
	for _, id := range AllCohortIDs() {
		cs.UTXORunning[id] = &CohortRunningState{}
	}
	for _, id := range append(cohort.AllSizeIDs(), AllID) {
		cs.AddressRunning[id] = &CohortRunningState{}
	}
	return cs
}

// NewBlockStats allocates a fresh transient accumulator for every UTXO
// cohort cell, to be populated by the parser over the course of one block.
func (cs *CohortStates) NewBlockStats() map[cohort.ID]*CohortBlockStats {
	out := make(map[cohort.ID]*CohortBlockStats, len(cs.UTXORunning))
	for id := range cs.UTXORunning {
		out[id] = &CohortBlockStats{}
	}
	return out
}

// Package parser implements the single-threaded per-block state-transition
// function (spec.md §4.3): consume inputs (resolving prior UTXOs, marking
// them spent, emitting SpentData and realized P/L), then apply outputs
// (allocating UTXOs, assigning addresses, emitting ReceivedData), then hand
// the result to every dataset for insertion.
package parser

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/cohort"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

// SpentData accumulates, per block-path of the spending transaction, the
// total value and coin-age destroyed by every input of that transaction.
type SpentData struct {
	Sats                uint64
	CoinblocksDestroyed uint64
	CoindaysDestroyed   uint64
}

// ReceivedData accumulates, per block-path, the total value of every
// output a transaction created.
type ReceivedData struct {
	Sats uint64
}

// AddressRealizedData is the realized profit/loss a single address
// contributed during one block.
type AddressRealizedData struct {
	RealizedProfitUSD float64
	RealizedLossUSD   float64
}

// ProcessedBlockData is everything the parser produced for one block,
// handed unchanged to every dataset's insert_block_data. Field roster
// grounded on original_source/src/datasets/mod.rs's ProcessedBlockData,
// generalized from Rust references to owned Go values.
type ProcessedBlockData struct {
	Height          uint32
	Timestamp       uint32
	Date            mapstore.Date
	DateFirstHeight uint32
	IsDateLastBlock bool

	BlockPrice float64
	DatePrice  float64

	Coinbase uint64
	Fees     []uint64

	SatBlocksDestroyed uint64
	SatDaysDestroyed   uint64
	SatsSent           uint64
	TransactionCount   int

	SpentByPath    map[state.BlockPath]SpentData
	ReceivedByPath map[state.BlockPath]ReceivedData

	AddressIndexToRealizedData       map[uint32]AddressRealizedData
	AddressIndexToRemovedAddressData map[uint32]state.AddressData

	// UTXOCohortBlockStats / AddressCohortBlockStats are this block's
	// transient per-cohort deltas (input/output/realized), reset every
	// call. UTXOCohortSnapshot / AddressCohortSnapshot are the running
	// point-in-time totals (supply, count, cost basis) immediately after
	// this block's mutations were applied.
	UTXOCohortBlockStats  map[cohort.ID]state.CohortBlockStats
	UTXOCohortSnapshot    map[cohort.ID]state.CohortRunningState
	AddressCohortBlockStats map[cohort.ID]state.CohortBlockStats
	AddressCohortSnapshot   map[cohort.ID]state.CohortRunningState
}

// ProcessedDateData is handed to every dataset's insert_date_data once a
// calendar date is fully closed.
type ProcessedDateData struct {
	Date        mapstore.Date
	FirstHeight uint32
	LastHeight  uint32
	BlockCount  int
}

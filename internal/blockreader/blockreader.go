// Package blockreader defines the external collaborator contract for
// decoding raw blocks out of a local node's block store. The real decoder
// (reading LevelDB/flat-file block storage, validating scripts, classifying
// output addresses) is out of scope per spec.md §1 ("block reader... is an
// external collaborator, contract-only"); this package only pins the shape
// the parser depends on, plus a thin stub the driver can run against in
// tests, grounded on the teacher's own block-source abstraction in
// indexing-subnet-evm/block.go.
package blockreader

import (
	"context"
	"fmt"

	"github.com/containerman17/btc-chainstate-analytics/internal/address"
)

// NumberOfUnsafeBlocks is the fixed safety depth below the node's reported
// tip that is never parsed on a given run, per spec.md §1/§4.3.
const NumberOfUnsafeBlocks = 6

// Input is a transaction input, resolved later by the parser against
// whatever the producing output was.
type Input struct {
	PrevTxid [32]byte
	Vout     uint32
}

// Output is a transaction output with its classified address payload
// already resolved by the reader (script interpretation is the reader's
// job, not the parser's).
type Output struct {
	Sats uint64
	Raw  address.Raw
}

// Transaction is a single block transaction.
type Transaction struct {
	Txid     [32]byte
	Coinbase bool
	Inputs   []Input
	Outputs  []Output
}

// Block is one decoded block, in height order.
type Block struct {
	Height       uint32
	Time         uint32 // unix seconds, per header.time
	Transactions []Transaction
}

// Reader streams decoded blocks from the node's local block store.
type Reader interface {
	// BlockCount returns the node's current reported block count (tip
	// height + 1). Used by the driver to compute the safe iteration bound.
	BlockCount(ctx context.Context) (uint32, error)

	// IterBlocks streams blocks [startHeight, startHeight+safeCount) in
	// ascending height order. The channel is closed (with a nil error) when
	// the range is exhausted; a non-nil error on the error channel aborts
	// the run.
	IterBlocks(ctx context.Context, startHeight, safeCount uint32) (<-chan Block, <-chan error)

	// ResolveOutput looks up the output that produced (prevTxid, vout), for
	// resolving a spent input. Only ever called for outputs within the
	// current run's safe range; the block reader owns whatever on-disk
	// index makes this lookup fast.
	ResolveOutput(ctx context.Context, prevTxid [32]byte, vout uint32) (Output, error)
}

// ErrOutputNotFound is returned by ResolveOutput when the referenced output
// cannot be located. This should never happen for a chain-valid block and
// is treated by the parser as an invariant violation (see internal/perr).
var ErrOutputNotFound = fmt.Errorf("blockreader: output not found")

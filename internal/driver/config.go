// Package driver implements the iteration driver: the date-grouped block
// walk, checkpoint cadence, and resume/snapshot discipline of
// spec.md §4.5/§4.6, grounded on original_source/src/iter_blocks.rs.
package driver

// Config holds the on-disk roots and safety parameters the driver is
// configured with, threaded through from cmd/analyticsd per the "global-ish
// on-disk roots" design note (spec.md §9).
type Config struct {
	DatasetsRoot  string
	DatabasesRoot string
	StatesRoot    string

	// SafetyDepth is NUMBER_OF_UNSAFE_BLOCKS: the fixed depth below the
	// node's reported tip that is never parsed on a given run.
	SafetyDepth uint32

	// CheckpointTailBlocks is the "10 x SAFETY" threshold from spec.md
	// §4.5: a checkpoint is forced once fewer than this many blocks remain
	// before the safety-gated tip.
	CheckpointTailBlocks uint32

	PriceSymbol string
}

// DefaultConfig returns the roots and depths spec.md §6/§9 names as
// defaults: ./datasets, ./databases, ./states, safety depth 6.
func DefaultConfig() Config {
	return Config{
		DatasetsRoot:         "./datasets",
		DatabasesRoot:        "./databases",
		StatesRoot:           "./states",
		SafetyDepth:          6,
		CheckpointTailBlocks: 60,
		PriceSymbol:          "BTCUSD",
	}
}

// Package perr collects the sentinel errors named by spec.md §7's error
// table, checked with errors.Is along the call chain from parser/driver up
// to cmd/analyticsd.
package perr

import "errors"

// ErrInvariantViolation marks a programmer-error condition the parser
// cannot recover from (e.g. current-block-date > loop-date, or a spend
// referencing an output that was never recorded). Per spec.md §7 this
// aborts the run; there is no retry.
var ErrInvariantViolation = errors.New("parser: invariant violation")

// ErrStateStale marks a resume where the in-memory state snapshot's
// latest date implies a height ahead of what the datasets last persisted,
// per spec.md §4.6. The driver response is to wipe state and companion
// indices and restart from height 0.
var ErrStateStale = errors.New("driver: state snapshot is stale relative to datasets")

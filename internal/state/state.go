package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/containerman17/btc-chainstate-analytics/internal/cohort"
)

// State bundles every in-memory structure the parser mutates: the
// transaction/UTXO tables, the address book, the cohort running states,
// and the date-boundary history. It is the "authoritative UTXO and
// address state image" spec.md §1 describes.
type State struct {
	Txs            map[uint32]*TxData
	Txouts         map[uint64]*TxoutValue
	NextTxoutIndex uint64

	Addresses map[uint32]*AddressData

	Cohorts *CohortStates

	DateData DateDataVec
}

// New returns an empty state, as used on a from-height-0 run.
func New() *State {
	return &State{
		Txs:       make(map[uint32]*TxData),
		Txouts:    make(map[uint64]*TxoutValue),
		Addresses: make(map[uint32]*AddressData),
		Cohorts:   NewCohortStates(),
	}
}

// snapshot is the on-disk JSON representation of State. Cohort running
// states are flattened to slices because cohort.ID is not itself a valid
// JSON map key.
type snapshot struct {
	Txs            map[uint32]TxData      `json:"txs"`
	Txouts         map[uint64]TxoutValue  `json:"txouts"`
	NextTxoutIndex uint64                 `json:"next_txout_index"`
	Addresses      map[uint32]AddressData `json:"addresses"`
	UTXOCohorts    []cohortEntry          `json:"utxo_cohorts"`
	AddressCohorts []cohortEntry          `json:"address_cohorts"`
	DateData       DateDataVec            `json:"date_data"`
}

type cohortEntry struct {
	ID    cohort.ID          `json:"id"`
	State CohortRunningState `json:"state"`
}

func snapshotPath(root string) string { return filepath.Join(root, "snapshot.json") }

// Import loads a previously exported snapshot from root, or returns a
// fresh empty State with ok=false if none exists yet.
func Import(root string) (*State, bool, error) {
	data, err := os.ReadFile(snapshotPath(root))
	if os.IsNotExist(err) {
		return New(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode state snapshot: %w", err)
	}

	s := New()
	for k, v := range snap.Txs {
		v := v
		s.Txs[k] = &v
	}
	for k, v := range snap.Txouts {
		v := v
		s.Txouts[k] = &v
	}
	s.NextTxoutIndex = snap.NextTxoutIndex
	for k, v := range snap.Addresses {
		v := v
		s.Addresses[k] = &v
	}
	for _, e := range snap.UTXOCohorts {
		st := e.State
		s.Cohorts.UTXORunning[e.ID] = &st
	}
	for _, e := range snap.AddressCohorts {
		st := e.State
		s.Cohorts.AddressRunning[e.ID] = &st
	}
	s.DateData = snap.DateData

	return s, true, nil
}

// Export atomically writes the full state snapshot to root/snapshot.json.
func (s *State) Export(root string) error {
	snap := snapshot{
		Txs:            make(map[uint32]TxData, len(s.Txs)),
		Txouts:         make(map[uint64]TxoutValue, len(s.Txouts)),
		NextTxoutIndex: s.NextTxoutIndex,
		Addresses:      make(map[uint32]AddressData, len(s.Addresses)),
		DateData:       s.DateData,
	}
	for k, v := range s.Txs {
		snap.Txs[k] = *v
	}
	for k, v := range s.Txouts {
		snap.Txouts[k] = *v
	}
	for k, v := range s.Addresses {
		snap.Addresses[k] = *v
	}
	for id, v := range s.Cohorts.UTXORunning {
		snap.UTXOCohorts = append(snap.UTXOCohorts, cohortEntry{ID: id, State: *v})
	}
	for id, v := range s.Cohorts.AddressRunning {
		snap.AddressCohorts = append(snap.AddressCohorts, cohortEntry{ID: id, State: *v})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode state snapshot: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", root, err)
	}
	tmp, err := os.CreateTemp(root, ".tmp-snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), snapshotPath(root)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Reset clears the in-memory state entirely, used when the driver detects
// a stale snapshot (spec.md §4.6).
func (s *State) Reset() {
	s.Txs = make(map[uint32]*TxData)
	s.Txouts = make(map[uint64]*TxoutValue)
	s.NextTxoutIndex = 0
	s.Addresses = make(map[uint32]*AddressData)
	s.Cohorts = NewCohortStates()
	s.DateData = nil
}

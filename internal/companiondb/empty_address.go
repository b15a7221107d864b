package companiondb

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

// EmptyAddressSummary is the slim record kept for an address whose balance
// has returned to zero. Losing the full UTXO history would be fine (there
// is nothing left to spend) but the cohort state machine still needs to
// know when the address first appeared and how much ever passed through it,
// in case it receives funds again later and re-enters a cohort.
type EmptyAddressSummary struct {
	FirstReceivedHeight uint32 `json:"first_received_height"`
	EmptiedHeight       uint32 `json:"emptied_height"`
	CumulativeReceived  uint64 `json:"cumulative_received_sats"`
	CumulativeSent      uint64 `json:"cumulative_sent_sats"`
}

func (s EmptyAddressSummary) encode() ([]byte, error) { return json.Marshal(s) }

func decodeEmptyAddressSummary(b []byte) (EmptyAddressSummary, error) {
	var s EmptyAddressSummary
	if err := json.Unmarshal(b, &s); err != nil {
		return EmptyAddressSummary{}, fmt.Errorf("decode empty address summary: %w", err)
	}
	return s, nil
}

// EmptyAddressIndex maps address-index -> EmptyAddressSummary.
type EmptyAddressIndex struct {
	db  *pebble.DB
	dir string

	mu    sync.Mutex
	batch *pebble.Batch
}

func OpenEmptyAddressIndex(dir string) (*EmptyAddressIndex, error) {
	db, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	return &EmptyAddressIndex{db: db, dir: dir, batch: db.NewBatch()}, nil
}

func keyForIndex(idx uint32) []byte {
	return []byte{byte(idx >> 24), byte(idx >> 16), byte(idx >> 8), byte(idx)}
}

// Put buffers (or overwrites) the summary for an address index that just
// emptied out.
func (e *EmptyAddressIndex) Put(idx uint32, summary EmptyAddressSummary) error {
	b, err := summary.encode()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.batch.Set(keyForIndex(idx), b, nil); err != nil {
		return fmt.Errorf("buffer empty address summary for index %d: %w", idx, err)
	}
	return nil
}

// Get returns the summary for an address index, if it is currently known
// to be empty.
func (e *EmptyAddressIndex) Get(idx uint32) (EmptyAddressSummary, bool, error) {
	val, closer, err := e.db.Get(keyForIndex(idx))
	if err == pebble.ErrNotFound {
		return EmptyAddressSummary{}, false, nil
	}
	if err != nil {
		return EmptyAddressSummary{}, false, fmt.Errorf("get empty address summary for index %d: %w", idx, err)
	}
	defer closer.Close()
	s, err := decodeEmptyAddressSummary(val)
	return s, err == nil, err
}

// Delete removes the summary when an address is funded again and leaves
// the "empty" pool.
func (e *EmptyAddressIndex) Delete(idx uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.batch.Delete(keyForIndex(idx), nil); err != nil {
		return fmt.Errorf("buffer delete of empty address summary for index %d: %w", idx, err)
	}
	return nil
}

func (e *EmptyAddressIndex) Export() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit empty address index batch: %w", err)
	}
	e.batch = e.db.NewBatch()
	return nil
}

// Reset wipes every empty-address summary. Safe to do independently of the
// address index itself: summaries are a derived cache, rebuildable by
// replaying from the height they were emptied at.
func (e *EmptyAddressIndex) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close empty address index before reset: %w", err)
	}
	if err := resetDir(e.dir); err != nil {
		return err
	}
	db, err := openDB(e.dir)
	if err != nil {
		return err
	}
	e.db = db
	e.batch = db.NewBatch()
	return nil
}

func (e *EmptyAddressIndex) Close() error { return e.db.Close() }

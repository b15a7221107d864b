package companiondb

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

const addrCounterKey = "\x00counter"

// AddressIndex maps a Bitcoin address's textual form to a stable uint32
// index, minted in insertion order. The mapping is append-only: once minted
// an index is never reused, even if the address's balance later returns to
// zero (its empty-address summary migrates instead, see EmptyAddressIndex).
type AddressIndex struct {
	db  *pebble.DB
	dir string

	mu      sync.Mutex
	batch   *pebble.Batch
	next    uint32
	pending map[string]uint32
}

// OpenAddressIndex opens (or creates) the address index rooted at dir.
func OpenAddressIndex(dir string) (*AddressIndex, error) {
	db, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	next, _, err := getUint32(db, []byte(addrCounterKey))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &AddressIndex{
		db:      db,
		dir:     dir,
		batch:   db.NewBatch(),
		next:    next,
		pending: make(map[string]uint32),
	}, nil
}

// Lookup returns the index already assigned to addr, if any.
func (a *AddressIndex) Lookup(addr string) (uint32, bool, error) {
	a.mu.Lock()
	if idx, ok := a.pending[addr]; ok {
		a.mu.Unlock()
		return idx, true, nil
	}
	a.mu.Unlock()
	return getUint32(a.db, []byte(addr))
}

// GetOrCreate returns the existing index for addr, minting a new one (and
// buffering it for the next Export) if this is the first time addr is seen.
func (a *AddressIndex) GetOrCreate(addr string) (uint32, error) {
	if idx, ok, err := a.Lookup(addr); err != nil {
		return 0, err
	} else if ok {
		return idx, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Re-check under lock: another caller may have minted it between the
	// unlocked Lookup above and here.
	if idx, ok := a.pending[addr]; ok {
		return idx, nil
	}
	idx := a.next
	a.next++
	a.pending[addr] = idx
	if err := putUint32(a.batch, []byte(addr), idx); err != nil {
		return 0, fmt.Errorf("buffer address index for %s: %w", addr, err)
	}
	return idx, nil
}

// Export commits the buffered batch (new address assignments plus the
// updated counter) durably to disk.
func (a *AddressIndex) Export() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := putUint32(a.batch, []byte(addrCounterKey), a.next); err != nil {
		return err
	}
	if err := a.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit address index batch: %w", err)
	}
	a.batch = a.db.NewBatch()
	a.pending = make(map[string]uint32)
	return nil
}

// Reset wipes the address index entirely. Only invoked when the caller asks
// for a full reindex (addresses, unlike the tx index, are not reset on
// every stale-state recovery since they are expensive to rebuild).
func (a *AddressIndex) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close address index before reset: %w", err)
	}
	if err := resetDir(a.dir); err != nil {
		return err
	}
	db, err := openDB(a.dir)
	if err != nil {
		return err
	}
	a.db = db
	a.batch = db.NewBatch()
	a.next = 0
	a.pending = make(map[string]uint32)
	return nil
}

// Close releases the underlying pebble handle.
func (a *AddressIndex) Close() error { return a.db.Close() }

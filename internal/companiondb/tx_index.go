package companiondb

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

const txCounterKey = "\x00counter"

// TxIndex maps a 32-byte txid to a stable uint32 index, minted in the order
// transactions are first seen. Unlike the address index this is cheap to
// rebuild, so a stale-state recovery always resets it rather than trying to
// reconcile partial contents.
type TxIndex struct {
	db  *pebble.DB
	dir string

	mu      sync.Mutex
	batch   *pebble.Batch
	next    uint32
	pending map[[32]byte]uint32
}

func OpenTxIndex(dir string) (*TxIndex, error) {
	db, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	next, _, err := getUint32(db, []byte(txCounterKey))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &TxIndex{
		db:      db,
		dir:     dir,
		batch:   db.NewBatch(),
		next:    next,
		pending: make(map[[32]byte]uint32),
	}, nil
}

func (t *TxIndex) Lookup(txid [32]byte) (uint32, bool, error) {
	t.mu.Lock()
	if idx, ok := t.pending[txid]; ok {
		t.mu.Unlock()
		return idx, true, nil
	}
	t.mu.Unlock()
	return getUint32(t.db, txid[:])
}

// GetOrCreate returns the existing index for txid, minting a new one if
// this is the first time the transaction is indexed this run.
func (t *TxIndex) GetOrCreate(txid [32]byte) (uint32, error) {
	if idx, ok, err := t.Lookup(txid); err != nil {
		return 0, err
	} else if ok {
		return idx, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.pending[txid]; ok {
		return idx, nil
	}
	idx := t.next
	t.next++
	t.pending[txid] = idx
	if err := putUint32(t.batch, txid[:], idx); err != nil {
		return 0, fmt.Errorf("buffer tx index: %w", err)
	}
	return idx, nil
}

func (t *TxIndex) Export() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := putUint32(t.batch, []byte(txCounterKey), t.next); err != nil {
		return err
	}
	if err := t.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit tx index batch: %w", err)
	}
	t.batch = t.db.NewBatch()
	t.pending = make(map[[32]byte]uint32)
	return nil
}

// Reset wipes the tx index. This is the cheap path taken on every stale
// state recovery, since txids can be re-derived from the blocks themselves
// as the pipeline replays forward.
func (t *TxIndex) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("close tx index before reset: %w", err)
	}
	if err := resetDir(t.dir); err != nil {
		return err
	}
	db, err := openDB(t.dir)
	if err != nil {
		return err
	}
	t.db = db
	t.batch = db.NewBatch()
	t.next = 0
	t.pending = make(map[[32]byte]uint32)
	return nil
}

func (t *TxIndex) Close() error { return t.db.Close() }

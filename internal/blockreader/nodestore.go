package blockreader

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
)

// keyBlkPrefix / keyOutPrefix mirror the fixed-width big-endian key layout
// indexers/pcx/runner/p_runner.go uses for its own blocksDB: a short prefix
// followed by a big-endian numeric suffix so range scans stay ordered.
var (
	keyBlkPrefix = []byte("blk:")
	keyOutPrefix = []byte("out:")
)

// NodeStore is a thin stub Reader backed by a local pebble store of
// already-decoded blocks, standing in for the real node block decoder
// (spec.md §1 Out-of-scope). It owns no consensus logic: blocks must
// already be present (keyed by height) and every output already indexed
// (keyed by txid||vout) for ResolveOutput to work.
type NodeStore struct {
	db *pebble.DB
}

// OpenNodeStore opens (or creates) the stub block store rooted at dir.
func OpenNodeStore(dir string) (*NodeStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open node store at %s: %w", dir, err)
	}
	return &NodeStore{db: db}, nil
}

func (n *NodeStore) Close() error { return n.db.Close() }

func blockKey(height uint32) []byte {
	k := make([]byte, len(keyBlkPrefix)+4)
	copy(k, keyBlkPrefix)
	binary.BigEndian.PutUint32(k[len(keyBlkPrefix):], height)
	return k
}

func outputKey(txid [32]byte, vout uint32) []byte {
	k := make([]byte, len(keyOutPrefix)+32+4)
	copy(k, keyOutPrefix)
	copy(k[len(keyOutPrefix):], txid[:])
	binary.BigEndian.PutUint32(k[len(keyOutPrefix)+32:], vout)
	return k
}

// BlockCount returns one past the highest height this store holds.
func (n *NodeStore) BlockCount(ctx context.Context) (uint32, error) {
	iter, err := n.db.NewIter(&pebble.IterOptions{LowerBound: keyBlkPrefix, UpperBound: upperBound(keyBlkPrefix)})
	if err != nil {
		return 0, fmt.Errorf("create block-count iterator: %w", err)
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, nil
	}
	height := binary.BigEndian.Uint32(iter.Key()[len(keyBlkPrefix):])
	return height + 1, nil
}

// IterBlocks streams [startHeight, startHeight+safeCount) from the store.
func (n *NodeStore) IterBlocks(ctx context.Context, startHeight, safeCount uint32) (<-chan Block, <-chan error) {
	out := make(chan Block)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		lower := blockKey(startHeight)
		upper := blockKey(startHeight + safeCount)
		iter, err := n.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
		if err != nil {
			errc <- fmt.Errorf("create block iterator: %w", err)
			return
		}
		defer iter.Close()

		for iter.First(); iter.Valid(); iter.Next() {
			var blk Block
			if err := decodeBlock(iter.Value(), &blk); err != nil {
				errc <- fmt.Errorf("decode block at %s: %w", iter.Key(), err)
				return
			}
			select {
			case out <- blk:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := iter.Error(); err != nil {
			errc <- fmt.Errorf("block iterator error: %w", err)
		}
	}()

	return out, errc
}

// ResolveOutput looks up a previously indexed output by (txid, vout).
func (n *NodeStore) ResolveOutput(ctx context.Context, prevTxid [32]byte, vout uint32) (Output, error) {
	val, closer, err := n.db.Get(outputKey(prevTxid, vout))
	if err == pebble.ErrNotFound {
		return Output{}, ErrOutputNotFound
	}
	if err != nil {
		return Output{}, fmt.Errorf("resolve output: %w", err)
	}
	defer closer.Close()
	var o Output
	if err := decodeOutput(val, &o); err != nil {
		return Output{}, fmt.Errorf("decode resolved output: %w", err)
	}
	return o, nil
}

// PutBlock indexes a block (and every one of its outputs) into the store,
// for seeding NodeStore; nothing in this module calls it.
func (n *NodeStore) PutBlock(blk Block) error {
	data, err := encodeBlock(blk)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", blk.Height, err)
	}
	batch := n.db.NewBatch()
	if err := batch.Set(blockKey(blk.Height), data, nil); err != nil {
		return err
	}
	for _, tx := range blk.Transactions {
		for vout, o := range tx.Outputs {
			od, err := encodeOutput(o)
			if err != nil {
				return fmt.Errorf("encode output %x:%d: %w", tx.Txid, vout, err)
			}
			if err := batch.Set(outputKey(tx.Txid, uint32(vout)), od, nil); err != nil {
				return err
			}
		}
	}
	return batch.Commit(pebble.Sync)
}

func upperBound(prefix []byte) []byte {
	up := make([]byte, len(prefix))
	copy(up, prefix)
	for i := len(up) - 1; i >= 0; i-- {
		up[i]++
		if up[i] != 0 {
			return up
		}
	}
	return nil
}

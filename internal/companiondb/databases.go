package companiondb

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Databases bundles the three companion pebble stores the parser consults
// on every block: addresses, their empty-balance summaries, and txids.
type Databases struct {
	Addresses     *AddressIndex
	EmptyAddrs    *EmptyAddressIndex
	Transactions  *TxIndex
}

// Open opens (or creates) all three companion databases under root.
func Open(root string) (*Databases, error) {
	addrs, err := OpenAddressIndex(filepath.Join(root, "addresses"))
	if err != nil {
		return nil, err
	}
	empty, err := OpenEmptyAddressIndex(filepath.Join(root, "empty_addresses"))
	if err != nil {
		addrs.Close()
		return nil, err
	}
	txs, err := OpenTxIndex(filepath.Join(root, "transactions"))
	if err != nil {
		addrs.Close()
		empty.Close()
		return nil, err
	}
	return &Databases{Addresses: addrs, EmptyAddrs: empty, Transactions: txs}, nil
}

// Export flushes all three companion databases in parallel, one goroutine
// per database, the same fan-out shape the runner uses for checkpoint
// flushes of heterogeneous datasets.
func (d *Databases) Export(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(d.Addresses.Export)
	g.Go(d.EmptyAddrs.Export)
	g.Go(d.Transactions.Export)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("export companion databases: %w", err)
	}
	return nil
}

// Reset clears the cheap-to-rebuild tx index unconditionally, and also
// the address indices when includeAddresses is set (a full reindex,
// reserved for the rare case where the address space itself is suspected
// corrupt rather than just stale).
func (d *Databases) Reset(ctx context.Context, includeAddresses bool) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(d.Transactions.Reset)
	if includeAddresses {
		g.Go(d.Addresses.Reset)
		g.Go(d.EmptyAddrs.Reset)
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reset companion databases: %w", err)
	}
	return nil
}

// Close releases all three underlying pebble handles.
func (d *Databases) Close() error {
	if err := d.Addresses.Close(); err != nil {
		return err
	}
	if err := d.EmptyAddrs.Close(); err != nil {
		return err
	}
	return d.Transactions.Close()
}

package companiondb

import (
	"context"
	"testing"
)

func TestAddressIndexMintsStableIndices(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenAddressIndex(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	idx1, err := a.GetOrCreate("bc1qexampleaddress")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	idx2, err := a.GetOrCreate("bc1qexampleaddress")
	if err != nil {
		t.Fatalf("get or create repeat: %v", err)
	}
	if idx1 != idx2 {
		t.Errorf("expected stable index, got %d then %d", idx1, idx2)
	}

	idx3, err := a.GetOrCreate("bc1qanotheraddress")
	if err != nil {
		t.Fatalf("get or create second: %v", err)
	}
	if idx3 == idx1 {
		t.Errorf("expected distinct index for a distinct address")
	}

	if err := a.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, ok, err := a.Lookup("bc1qexampleaddress"); err != nil || !ok {
		t.Errorf("lookup after export: ok=%v err=%v", ok, err)
	}
}

func TestAddressIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenAddressIndex(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx, err := a.GetOrCreate("bc1qpersisted")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := a.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenAddressIndex(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Lookup("bc1qpersisted")
	if err != nil || !ok {
		t.Fatalf("lookup after reopen: ok=%v err=%v", ok, err)
	}
	if got != idx {
		t.Errorf("index changed across reopen: got %d want %d", got, idx)
	}

	next, err := reopened.GetOrCreate("bc1qfreshaftereopen")
	if err != nil {
		t.Fatalf("get or create after reopen: %v", err)
	}
	if next <= idx {
		t.Errorf("counter did not advance past persisted index: next=%d idx=%d", next, idx)
	}
}

func TestEmptyAddressIndexPutGetDelete(t *testing.T) {
	dir := t.TempDir()
	e, err := OpenEmptyAddressIndex(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer e.Close()

	summary := EmptyAddressSummary{FirstReceivedHeight: 100, EmptiedHeight: 200, CumulativeReceived: 5000, CumulativeSent: 5000}
	if err := e.Put(42, summary); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}

	got, ok, err := e.Get(42)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != summary {
		t.Errorf("got %+v want %+v", got, summary)
	}

	if err := e.Delete(42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := e.Export(); err != nil {
		t.Fatalf("export after delete: %v", err)
	}
	if _, ok, err := e.Get(42); err != nil || ok {
		t.Errorf("expected summary gone after delete, ok=%v err=%v", ok, err)
	}
}

func TestTxIndexResetClearsButKeepsDirUsable(t *testing.T) {
	dir := t.TempDir()
	tx, err := OpenTxIndex(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer tx.Close()

	var txid [32]byte
	txid[0] = 0xAB
	idx, err := tx.GetOrCreate(txid)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := tx.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}

	if err := tx.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, err := tx.Lookup(txid); err != nil || ok {
		t.Errorf("expected txid gone after reset, ok=%v err=%v", ok, err)
	}

	reIdx, err := tx.GetOrCreate(txid)
	if err != nil {
		t.Fatalf("get or create after reset: %v", err)
	}
	if reIdx != 0 {
		t.Errorf("expected counter restarted at 0 after reset, got %d", reIdx)
	}
	_ = idx
}

func TestDatabasesParallelExportAndReset(t *testing.T) {
	dir := t.TempDir()
	dbs, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer dbs.Close()

	if _, err := dbs.Addresses.GetOrCreate("bc1qparalleltest"); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	var txid [32]byte
	if _, err := dbs.Transactions.GetOrCreate(txid); err != nil {
		t.Fatalf("get or create: %v", err)
	}

	ctx := context.Background()
	if err := dbs.Export(ctx); err != nil {
		t.Fatalf("export: %v", err)
	}

	if err := dbs.Reset(ctx, false); err != nil {
		t.Fatalf("reset without addresses: %v", err)
	}
	if _, ok, err := dbs.Addresses.Lookup("bc1qparalleltest"); err != nil || !ok {
		t.Errorf("expected address to survive a non-address reset, ok=%v err=%v", ok, err)
	}
	if _, ok, err := dbs.Transactions.Lookup(txid); err != nil || ok {
		t.Errorf("expected tx index cleared by reset, ok=%v err=%v", ok, err)
	}
}

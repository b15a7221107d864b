package cohort

import (
	"testing"

	cc "github.com/containerman17/btc-chainstate-analytics/internal/cohort"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

func TestIdSlugAvoidsPlanktonCollision(t *testing.T) {
	plankton := cc.ID{Dimension: cc.DimensionSize, Size: cc.SizePlankton}
	if got, want := idSlug(plankton), idSlug(state.AllID); got == want {
		t.Fatalf("state.AllID (%q) collides on disk with SizePlankton (%q)", want, got)
	}
	if idSlug(state.AllID) != "all" {
		t.Fatalf("expected state.AllID to slug to \"all\", got %q", idSlug(state.AllID))
	}
}

func TestNewUTXORosterCoversAgeAndSize(t *testing.T) {
	root := t.TempDir()
	d := NewUTXO(root, 6)

	if !d.isUTXO {
		t.Fatal("NewUTXO must produce a UTXO-keyed dataset")
	}
	if _, ok := d.cells[state.AllID]; !ok {
		t.Fatal("UTXO roster must include the chain-wide aggregate cohort")
	}
	for _, id := range cc.AllAgeIDs() {
		if _, ok := d.cells[id]; !ok {
			t.Fatalf("UTXO roster missing age cohort %v", id)
		}
	}
}

func TestNewAddressRosterHasNoAgeDimension(t *testing.T) {
	root := t.TempDir()
	d := NewAddress(root, 6)

	if d.isUTXO {
		t.Fatal("NewAddress must produce an address-keyed dataset")
	}
	for _, id := range cc.AllAgeIDs() {
		if _, ok := d.cells[id]; ok {
			t.Fatalf("address roster must not carry an age cohort, found %v", id)
		}
	}
}

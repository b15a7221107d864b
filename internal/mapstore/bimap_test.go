package mapstore

import "testing"

func TestBiMapComputeDateRollupModes(t *testing.T) {
	root := t.TempDir()

	last := NewBiMap[float32](root, "price", FormatBinary, false, 0, 0, RollupLast)
	sum := NewBiMap[float32](root, "coinbase", FormatBinary, false, 0, 0, RollupSum)

	// Three heights belong to day 1 (0-2), two to day 2 (3-4).
	for h := uint32(0); h <= 4; h++ {
		v := float32(h + 1)
		last.InsertHeight(h, v)
		sum.InsertHeight(h, v)
	}

	ranges := map[Date][2]uint32{
		d(2024, 1, 1): {0, 2},
		d(2024, 1, 2): {3, 4},
	}
	last.ComputeDate(ranges)
	sum.ComputeDate(ranges)

	if v, ok := last.Date.Get(d(2024, 1, 1)); !ok || v != 3 {
		t.Errorf("rollup last day1: got %v ok=%v want 3", v, ok)
	}
	if v, ok := last.Date.Get(d(2024, 1, 2)); !ok || v != 5 {
		t.Errorf("rollup last day2: got %v ok=%v want 5", v, ok)
	}

	if v, ok := sum.Date.Get(d(2024, 1, 1)); !ok || v != 6 {
		t.Errorf("rollup sum day1: got %v ok=%v want 6 (1+2+3)", v, ok)
	}
	if v, ok := sum.Date.Get(d(2024, 1, 2)); !ok || v != 9 {
		t.Errorf("rollup sum day2: got %v ok=%v want 9 (4+5)", v, ok)
	}
}

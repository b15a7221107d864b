package mapstore

import (
	"path/filepath"
	"testing"
)

func TestHeightMapRoundTrip(t *testing.T) {
	root := t.TempDir()

	m := NewHeightMap[float32](root, "coinbase", FormatBinary, true, 6)
	for h := uint32(0); h < 10; h++ {
		m.Insert(h, float32(h)*50)
	}
	m.PreExport()
	if err := m.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	m.PostExport()

	reopened := NewHeightMap[float32](root, "coinbase", FormatBinary, true, 6)
	for h := uint32(0); h < 10; h++ {
		v, ok := reopened.Get(h)
		if !ok {
			t.Fatalf("height %d missing after round trip", h)
		}
		if v != float32(h)*50 {
			t.Errorf("height %d: got %v want %v", h, v, float32(h)*50)
		}
	}
}

func TestHeightMapSafetyGate(t *testing.T) {
	root := t.TempDir()

	m := NewHeightMap[float32](root, "subsidy", FormatBinary, true, 10)
	for h := uint32(0); h <= 100; h++ {
		m.Insert(h, float32(h))
	}
	m.PreExport()
	if err := m.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	m.PostExport()

	// Safety depth 10 -> first unsafe = 100 - 9 = 91.
	reopened := NewHeightMap[float32](root, "subsidy", FormatBinary, true, 10)
	firstUnsafe := reopened.InitialFirstUnsafe()
	if firstUnsafe == nil || *firstUnsafe != 91 {
		t.Fatalf("expected first unsafe 91, got %v", firstUnsafe)
	}

	for h := uint32(0); h <= 90; h++ {
		before, beforeOK := reopened.Get(h)
		reopened.Insert(h, 999999)
		after, afterOK := reopened.Get(h)
		if beforeOK != afterOK || before != after {
			t.Fatalf("height %d: insert below safety gate mutated value (%v->%v)", h, before, after)
		}
	}
}

func TestSimpleMovingAverageInvariant(t *testing.T) {
	series := []float32{1, 2, 3, 4, 5, 6, 7}
	window := 3
	sma := SimpleMovingAverage(series, window)

	for k := 0; k < len(series); k++ {
		if k < window-1 {
			if sma[k] != 0 {
				t.Errorf("index %d: expected default 0 before window filled, got %v", k, sma[k])
			}
			continue
		}
		var sum float32
		for i := k - window + 1; i <= k; i++ {
			sum += series[i]
		}
		want := sum / float32(window)
		if sma[k] != want {
			t.Errorf("index %d: got %v want %v", k, sma[k], want)
		}
	}
}

func TestLastXSum(t *testing.T) {
	series := []float32{1, 1, 1, 1, 1}
	sums := LastXSum(series, 2)
	want := []float32{0, 2, 2, 2, 2}
	for i := range want {
		if sums[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, sums[i], want[i])
		}
	}
}

func TestDivideByZeroYieldsDefault(t *testing.T) {
	a := []float32{10, 10}
	b := []float32{0, 5}
	got := DivHeight(a, b)
	if got[0] != 0 {
		t.Errorf("division by zero: got %v want 0", got[0])
	}
	if got[1] != 2 {
		t.Errorf("division: got %v want 2", got[1])
	}
}

func TestHeightMapExportedPath(t *testing.T) {
	root := t.TempDir()
	m := NewHeightMap[float32](root, "fees", FormatBinary, false, 0)
	want := filepath.Join(root, "fees")
	if m.ExportedPath() != want {
		t.Errorf("got %s want %s", m.ExportedPath(), want)
	}
}

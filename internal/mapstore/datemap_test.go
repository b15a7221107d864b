package mapstore

import (
	"testing"
	"time"
)

func d(y int, m time.Month, day int) Date { return Date{Year: y, Month: m, Day: day} }

func TestDateMapRoundTrip(t *testing.T) {
	root := t.TempDir()

	m := NewDateMap[float32](root, "close", FormatJSON, true, NumberOfUnsafeDates)
	dates := []Date{d(2023, 12, 30), d(2023, 12, 31), d(2024, 1, 1), d(2024, 1, 2)}
	for i, date := range dates {
		m.Insert(date, float32(i)*100)
	}
	m.PreExport()
	if err := m.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	m.PostExport()

	reopened := NewDateMap[float32](root, "close", FormatJSON, true, NumberOfUnsafeDates)
	for i, date := range dates {
		v, ok := reopened.Get(date)
		if !ok {
			t.Fatalf("date %s missing after round trip", date)
		}
		if v != float32(i)*100 {
			t.Errorf("date %s: got %v want %v", date, v, float32(i)*100)
		}
	}
}

func TestDateMapMidYearResumeMerge(t *testing.T) {
	root := t.TempDir()

	m := NewDateMap[float32](root, "supply", FormatBinary, false, 0)
	m.Insert(d(2024, 1, 1), 1)
	m.Insert(d(2024, 6, 15), 2)
	m.PreExport()
	if err := m.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	m.PostExport()

	// Resume mid-year: first inserted date this run is NOT Jan 1, so the
	// existing 2024 chunk must be merged in, not overwritten.
	resumed := NewDateMap[float32](root, "supply", FormatBinary, false, 0)
	resumed.Insert(d(2024, 12, 25), 3)
	resumed.PreExport()
	if err := resumed.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	resumed.PostExport()

	final := NewDateMap[float32](root, "supply", FormatBinary, false, 0)
	for _, tc := range []struct {
		date Date
		want float32
	}{
		{d(2024, 1, 1), 1},
		{d(2024, 6, 15), 2},
		{d(2024, 12, 25), 3},
	} {
		v, ok := final.Get(tc.date)
		if !ok {
			t.Fatalf("date %s missing after mid-year resume", tc.date)
		}
		if v != tc.want {
			t.Errorf("date %s: got %v want %v", tc.date, v, tc.want)
		}
	}
}

func TestDateMapSafetyGateNoOp(t *testing.T) {
	root := t.TempDir()
	safetyDepth := 5
	m := NewDateMap[float32](root, "realized", FormatBinary, true, safetyDepth)

	for day := 1; day <= 20; day++ {
		m.Insert(d(2024, 1, day), float32(day))
	}
	m.PreExport()
	if err := m.Export(); err != nil {
		t.Fatalf("export: %v", err)
	}
	m.PostExport()

	// safetyDepth=5 -> safetyDays=4 -> firstUnsafe = day20 - 4 = day16.
	reopened := NewDateMap[float32](root, "realized", FormatBinary, true, safetyDepth)
	firstUnsafe := reopened.InitialFirstUnsafe()
	want := d(2024, 1, 16)
	if firstUnsafe == nil || !firstUnsafe.Equal(want) {
		t.Fatalf("expected first unsafe %s, got %v", want, firstUnsafe)
	}

	blocked := d(2024, 1, 10)
	before, _ := reopened.Get(blocked)
	reopened.Insert(blocked, 999)
	after, _ := reopened.Get(blocked)
	if before != after {
		t.Errorf("insert below safety gate mutated value: %v -> %v", before, after)
	}
}

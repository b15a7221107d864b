package mapstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NumberOfUnsafeDates is the default safety depth for date-keyed maps; it
// mirrors the analogous NUMBER_OF_UNSAFE_BLOCKS constant for heights but at
// date granularity, since a single unsafe block can still roll a date back.
const NumberOfUnsafeDates = 2

// dateKey packs a Date into a sortable int64 ordinal for on-disk records.
func dateKey(d Date) int64 { return d.ordinal() }

func dateFromKey(k int64) Date {
	t := time.Unix(k*86400, 0).UTC()
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateMap is a sparse, date-keyed persistent series, chunked on disk by
// calendar year and lazily loaded per year.
type DateMap[T scalar] struct {
	mu sync.RWMutex

	root       string
	name       string
	format     Format
	exportLast bool
	safetyDays int // safety depth - 1, in days

	initialLastDate    *Date
	initialFirstUnsafe *Date

	loaded  map[int]map[Date]T // year -> date -> value
	pending map[int]map[Date]T
}

// NewDateMap opens (or creates) a date-keyed map rooted at <root>/<name>/date.
func NewDateMap[T scalar](root, name string, format Format, exportLast bool, safetyDepth int) *DateMap[T] {
	m := &DateMap[T]{
		root:       root,
		name:       name,
		format:     format,
		exportLast: exportLast,
		loaded:     make(map[int]map[Date]T),
		pending:    make(map[int]map[Date]T),
	}
	if safetyDepth > 0 {
		m.safetyDays = safetyDepth - 1
	}
	m.importLast()
	return m
}

func (m *DateMap[T]) dir() string { return filepath.Join(m.root, m.name, "date") }

func (m *DateMap[T]) chunkPath(year int) string {
	return filepath.Join(m.dir(), fmt.Sprintf("%d.%s", year, m.format.extension()))
}

func (m *DateMap[T]) lastPath() string {
	return filepath.Join(m.root, m.name, "last."+m.format.extension())
}

func (m *DateMap[T]) listYears() []int {
	entries, err := os.ReadDir(m.dir())
	if err != nil {
		return nil
	}
	var years []int
	ext := "." + m.format.extension()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if len(stem) != 4 {
			continue
		}
		y, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func (m *DateMap[T]) loadYear(year int) {
	if _, ok := m.loaded[year]; ok {
		return
	}
	data, err := readFile(m.chunkPath(year))
	if err != nil || data == nil {
		return
	}
	chunk := make(map[Date]T)
	if m.format == FormatJSON {
		flat := map[string]T{}
		if err := decodeJSON(data, &flat); err != nil {
			return // decode error: drop this chunk, keep others
		}
		for k, v := range flat {
			d, err := parseDateString(k)
			if err != nil {
				continue
			}
			chunk[d] = v
		}
	} else {
		keys, values, err := decodeBinary[T](data)
		if err != nil {
			return
		}
		for i, k := range keys {
			chunk[dateFromKey(k)] = values[i]
		}
	}
	m.loaded[year] = chunk
}

func parseDateString(s string) (Date, error) {
	var y, mo, d int
	if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &y, &mo, &d); err != nil {
		return Date{}, err
	}
	return Date{Year: y, Month: time.Month(mo), Day: d}, nil
}

func (m *DateMap[T]) importLast() {
	years := m.listYears()
	if len(years) == 0 {
		return
	}
	last := years[len(years)-1]
	m.loadYear(last)
	chunk := m.loaded[last]
	var max Date
	found := false
	for d := range chunk {
		if !found || d.After(max) {
			max = d
			found = true
		}
	}
	if !found {
		return
	}
	m.initialLastDate = &max
	firstUnsafe := max.AddDays(-m.safetyDays)
	m.initialFirstUnsafe = &firstUnsafe
}

// InitialFirstUnsafe returns the earliest date this map might still need to
// (re)write.
func (m *DateMap[T]) InitialFirstUnsafe() *Date { return m.initialFirstUnsafe }

// IsDateSafe reports whether d is beyond the safety gate (insert allowed).
func (m *DateMap[T]) IsDateSafe(d Date) bool {
	return m.initialFirstUnsafe == nil || !d.Before(*m.initialFirstUnsafe)
}

// Insert records (d, v) iff the safety gate permits it.
func (m *DateMap[T]) Insert(d Date, v T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.IsDateSafe(d) {
		return v
	}
	chunk, ok := m.pending[d.Year]
	if !ok {
		chunk = make(map[Date]T)
		m.pending[d.Year] = chunk
	}
	chunk[d] = v
	return v
}

// Get returns the value at d and whether it is present.
func (m *DateMap[T]) Get(d Date) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chunk, ok := m.pending[d.Year]; ok {
		if v, ok := chunk[d]; ok {
			return v, true
		}
	}
	if _, ok := m.loaded[d.Year]; !ok {
		m.loadYear(d.Year)
	}
	if chunk, ok := m.loaded[d.Year]; ok {
		if v, ok := chunk[d]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// PreExport merges pending years with their on-disk counterpart whenever
// the first pending date of that year is not January 1st (a mid-year
// resume), so the merge never silently drops earlier entries.
func (m *DateMap[T]) PreExport() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for year, pend := range m.pending {
		var min Date
		first := true
		for d := range pend {
			if first || d.Before(min) {
				min = d
				first = false
			}
		}
		if !min.IsFirstOfYear() {
			m.loadYear(year)
		}
		dst, ok := m.loaded[year]
		if !ok {
			dst = make(map[Date]T)
			m.loaded[year] = dst
		}
		for d, v := range pend {
			dst[d] = v
		}
	}
}

// Export atomically writes every touched year, and the compact last.* file
// if configured (taken from the chronologically last touched year).
func (m *DateMap[T]) Export() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return nil
	}

	years := make([]int, 0, len(m.pending))
	for y := range m.pending {
		years = append(years, y)
	}
	sort.Ints(years)

	var lastDate Date
	haveLast := false

	for _, year := range years {
		chunk := m.loaded[year]
		if err := m.writeYear(year, chunk); err != nil {
			return err
		}
		for d := range chunk {
			if !haveLast || d.After(lastDate) {
				lastDate = d
				haveLast = true
			}
		}
	}

	if m.exportLast && haveLast {
		v := m.loaded[lastDate.Year][lastDate]
		data, err := m.encodeLast(v)
		if err != nil {
			return err
		}
		if err := atomicWriteFile(m.lastPath(), data); err != nil {
			return err
		}
	}

	if haveLast {
		m.initialLastDate = &lastDate
		firstUnsafe := lastDate.AddDays(-m.safetyDays)
		m.initialFirstUnsafe = &firstUnsafe
	}

	return nil
}

func (m *DateMap[T]) writeYear(year int, chunk map[Date]T) error {
	var data []byte
	var err error
	if m.format == FormatJSON {
		flat := make(map[string]T, len(chunk))
		for d, v := range chunk {
			flat[d.String()] = v
		}
		data, err = encodeJSON(flat)
	} else {
		ds := make([]Date, 0, len(chunk))
		for d := range chunk {
			ds = append(ds, d)
		}
		sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
		keys := make([]int64, len(ds))
		values := make([]T, len(ds))
		for i, d := range ds {
			keys[i] = dateKey(d)
			values[i] = chunk[d]
		}
		data, err = encodeBinary(keys, values)
	}
	if err != nil {
		return fmt.Errorf("encode year %d for %s: %w", year, m.name, err)
	}
	return atomicWriteFile(m.chunkPath(year), data)
}

func (m *DateMap[T]) encodeLast(v T) ([]byte, error) {
	if m.format == FormatJSON {
		return encodeJSON(v)
	}
	return encodeBinary([]int64{0}, []T{v})
}

// PostExport retains only the most recent year resident in memory, evicting
// older years, and clears pending state.
func (m *DateMap[T]) PostExport() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.loaded) > 1 {
		maxYear := 0
		first := true
		for y := range m.loaded {
			if first || y > maxYear {
				maxYear = y
				first = false
			}
		}
		for y := range m.loaded {
			if y != maxYear {
				delete(m.loaded, y)
			}
		}
	}
	m.pending = make(map[int]map[Date]T)
}

// Reset deletes the entire on-disk directory for this map and clears all
// in-memory state.
func (m *DateMap[T]) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(m.root, m.name)); err != nil {
		return fmt.Errorf("reset %s: %w", m.name, err)
	}
	m.loaded = make(map[int]map[Date]T)
	m.pending = make(map[int]map[Date]T)
	m.initialLastDate = nil
	m.initialFirstUnsafe = nil
	return nil
}

// Name returns the map's on-disk name, used by the export manifest.
func (m *DateMap[T]) Name() string { return m.name }

// TypeName returns the stringified element type, for paths.json.
func (m *DateMap[T]) TypeName() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// ExportedPath returns the map's root directory, for paths.json.
func (m *DateMap[T]) ExportedPath() string { return filepath.Join(m.root, m.name) }

// Snapshot returns every pending+loaded (date,value) pair, sorted ascending.
func (m *DateMap[T]) Snapshot() (dates []Date, values []T) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merged := make(map[Date]T)
	for _, chunk := range m.loaded {
		for d, v := range chunk {
			merged[d] = v
		}
	}
	for _, chunk := range m.pending {
		for d, v := range chunk {
			merged[d] = v
		}
	}
	ds := make([]Date, 0, len(merged))
	for d := range merged {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
	vs := make([]T, len(ds))
	for i, d := range ds {
		vs[i] = merged[d]
	}
	return ds, vs
}

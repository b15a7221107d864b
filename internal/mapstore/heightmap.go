package mapstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// heightsPerChunk bounds how many heights share one on-disk chunk file.
const heightsPerChunk = uint32(1_000_000)

func heightChunkStart(h uint32) uint32 { return (h / heightsPerChunk) * heightsPerChunk }

// HeightMap is a dense, height-keyed persistent series, chunked on disk by
// height range and lazily loaded per chunk.
type HeightMap[T scalar] struct {
	mu sync.RWMutex

	root       string
	name       string
	format     Format
	exportLast bool
	safetyGap  uint32 // safety depth - 1

	initialLastHeight  *uint32
	initialFirstUnsafe *uint32

	loaded  map[uint32]map[uint32]T // chunkStart -> height -> value
	pending map[uint32]map[uint32]T
}

// NewHeightMap opens (or creates) a height-keyed map rooted at
// <root>/<name>/height. safetyDepth is the number of trailing persisted
// heights this run may rewrite: on open, inserts below
// lastPersisted-(safetyDepth-1) are no-ops.
func NewHeightMap[T scalar](root, name string, format Format, exportLast bool, safetyDepth uint32) *HeightMap[T] {
	m := &HeightMap[T]{
		root:       root,
		name:       name,
		format:     format,
		exportLast: exportLast,
		loaded:     make(map[uint32]map[uint32]T),
		pending:    make(map[uint32]map[uint32]T),
	}
	if safetyDepth > 0 {
		m.safetyGap = safetyDepth - 1
	}
	m.importLast()
	return m
}

func (m *HeightMap[T]) dir() string { return filepath.Join(m.root, m.name, "height") }

func (m *HeightMap[T]) chunkPath(chunkStart uint32) string {
	end := chunkStart + heightsPerChunk - 1
	return filepath.Join(m.dir(), fmt.Sprintf("%d-%d.%s", chunkStart, end, m.format.extension()))
}

func (m *HeightMap[T]) lastPath() string {
	return filepath.Join(m.root, m.name, "last."+m.format.extension())
}

// listChunks returns every chunk start present on disk, ascending.
func (m *HeightMap[T]) listChunks() []uint32 {
	entries, err := os.ReadDir(m.dir())
	if err != nil {
		return nil
	}
	var starts []uint32
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := "." + m.format.extension()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		parts := strings.SplitN(stem, "-", 2)
		if len(parts) != 2 {
			continue
		}
		start, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		starts = append(starts, uint32(start))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}

func (m *HeightMap[T]) loadChunk(chunkStart uint32) error {
	if _, ok := m.loaded[chunkStart]; ok {
		return nil
	}
	data, err := readFile(m.chunkPath(chunkStart))
	if err != nil {
		return err
	}
	chunk := make(map[uint32]T)
	if data != nil {
		if m.format == FormatJSON {
			flat := map[string]T{}
			if err := decodeJSON(data, &flat); err != nil {
				return fmt.Errorf("decode chunk %d for %s: %w", chunkStart, m.name, err)
			}
			for k, v := range flat {
				h, err := strconv.ParseUint(k, 10, 32)
				if err != nil {
					continue
				}
				chunk[uint32(h)] = v
			}
		} else {
			keys, values, err := decodeBinary[T](data)
			if err != nil {
				// Decode error on a chunk: drop it, keep others.
				return nil
			}
			for i, k := range keys {
				chunk[uint32(k)] = values[i]
			}
		}
	}
	m.loaded[chunkStart] = chunk
	return nil
}

// importLast loads only the most recent chunk, to recover
// initialLastHeight/initialFirstUnsafe without paying for a full import.
func (m *HeightMap[T]) importLast() {
	chunks := m.listChunks()
	if len(chunks) == 0 {
		return
	}
	last := chunks[len(chunks)-1]
	if err := m.loadChunk(last); err != nil {
		return
	}
	var max uint32
	found := false
	for h := range m.loaded[last] {
		if !found || h > max {
			max = h
			found = true
		}
	}
	if !found {
		return
	}
	m.initialLastHeight = &max
	firstUnsafe := uint32(0)
	if max > m.safetyGap {
		firstUnsafe = max - m.safetyGap
	}
	m.initialFirstUnsafe = &firstUnsafe
}

// InitialFirstUnsafe returns the earliest height this map might still need
// to (re)write, i.e. its resume point.
func (m *HeightMap[T]) InitialFirstUnsafe() *uint32 { return m.initialFirstUnsafe }

// IsHeightSafe reports whether h is beyond the safety gate (insert allowed).
func (m *HeightMap[T]) IsHeightSafe(h uint32) bool {
	return m.initialFirstUnsafe == nil || h >= *m.initialFirstUnsafe
}

// Insert records (h, v) iff the safety gate permits it; otherwise it is a
// silent no-op and the already-persisted value is assumed authoritative.
func (m *HeightMap[T]) Insert(h uint32, v T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.IsHeightSafe(h) {
		return v
	}
	chunkStart := heightChunkStart(h)
	chunk, ok := m.pending[chunkStart]
	if !ok {
		chunk = make(map[uint32]T)
		m.pending[chunkStart] = chunk
	}
	chunk[h] = v
	return v
}

// Get returns the value at h and whether it is present (pending or loaded).
func (m *HeightMap[T]) Get(h uint32) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunkStart := heightChunkStart(h)
	if chunk, ok := m.pending[chunkStart]; ok {
		if v, ok := chunk[h]; ok {
			return v, true
		}
	}
	if _, ok := m.loaded[chunkStart]; !ok {
		m.loadChunk(chunkStart)
	}
	if chunk, ok := m.loaded[chunkStart]; ok {
		if v, ok := chunk[h]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// PreExport merges pending chunks with their on-disk counterpart for every
// chunk whose first pending key is not the chunk's first height, preventing
// a partial write from clobbering history on a mid-chunk resume.
func (m *HeightMap[T]) PreExport() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for chunkStart, pend := range m.pending {
		min := chunkStart
		first := true
		for h := range pend {
			if first || h < min {
				min = h
				first = false
			}
		}
		if min != chunkStart {
			m.loadChunk(chunkStart)
		}
		dst, ok := m.loaded[chunkStart]
		if !ok {
			dst = make(map[uint32]T)
			m.loaded[chunkStart] = dst
		}
		for h, v := range pend {
			dst[h] = v
		}
	}
}

// Export atomically writes every touched chunk, and the compact last.* file
// if configured.
func (m *HeightMap[T]) Export() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return nil
	}

	starts := make([]uint32, 0, len(m.pending))
	for c := range m.pending {
		starts = append(starts, c)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	var lastTouchedMax uint32
	haveLastTouched := false

	for _, chunkStart := range starts {
		chunk := m.loaded[chunkStart]
		if err := m.writeChunk(chunkStart, chunk); err != nil {
			return err
		}
		for h := range chunk {
			if !haveLastTouched || h > lastTouchedMax {
				lastTouchedMax = h
				haveLastTouched = true
			}
		}
	}

	if m.exportLast && haveLastTouched {
		lastChunk := m.loaded[heightChunkStart(lastTouchedMax)]
		v := lastChunk[lastTouchedMax]
		data, err := m.encodeLast(v)
		if err != nil {
			return err
		}
		if err := atomicWriteFile(m.lastPath(), data); err != nil {
			return err
		}
	}

	m.initialLastHeight = &lastTouchedMax
	firstUnsafe := uint32(0)
	if lastTouchedMax > m.safetyGap {
		firstUnsafe = lastTouchedMax - m.safetyGap
	}
	m.initialFirstUnsafe = &firstUnsafe

	return nil
}

func (m *HeightMap[T]) writeChunk(chunkStart uint32, chunk map[uint32]T) error {
	var data []byte
	var err error
	if m.format == FormatJSON {
		flat := make(map[string]T, len(chunk))
		for h, v := range chunk {
			flat[strconv.FormatUint(uint64(h), 10)] = v
		}
		data, err = encodeJSON(flat)
	} else {
		keys := make([]int64, 0, len(chunk))
		values := make([]T, 0, len(chunk))
		hs := make([]uint32, 0, len(chunk))
		for h := range chunk {
			hs = append(hs, h)
		}
		sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
		for _, h := range hs {
			keys = append(keys, int64(h))
			values = append(values, chunk[h])
		}
		data, err = encodeBinary(keys, values)
	}
	if err != nil {
		return fmt.Errorf("encode chunk %d for %s: %w", chunkStart, m.name, err)
	}
	return atomicWriteFile(m.chunkPath(chunkStart), data)
}

func (m *HeightMap[T]) encodeLast(v T) ([]byte, error) {
	if m.format == FormatJSON {
		return encodeJSON(v)
	}
	return encodeBinary([]int64{0}, []T{v})
}

// PostExport retains only the most recently touched chunk resident in
// memory, evicting older chunks, and clears pending state.
func (m *HeightMap[T]) PostExport() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.loaded) > 1 {
		var maxChunk uint32
		first := true
		for c := range m.loaded {
			if first || c > maxChunk {
				maxChunk = c
				first = false
			}
		}
		for c := range m.loaded {
			if c != maxChunk {
				delete(m.loaded, c)
			}
		}
	}
	m.pending = make(map[uint32]map[uint32]T)
}

// Reset deletes the entire on-disk directory for this map and clears all
// in-memory state.
func (m *HeightMap[T]) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(m.root, m.name)); err != nil {
		return fmt.Errorf("reset %s: %w", m.name, err)
	}
	m.loaded = make(map[uint32]map[uint32]T)
	m.pending = make(map[uint32]map[uint32]T)
	m.initialLastHeight = nil
	m.initialFirstUnsafe = nil
	return nil
}

// Name returns the map's on-disk name, used by the export manifest.
func (m *HeightMap[T]) Name() string { return m.name }

// TypeName returns the stringified element type, for paths.json.
func (m *HeightMap[T]) TypeName() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// ExportedPath returns the map's root directory, for paths.json.
func (m *HeightMap[T]) ExportedPath() string { return filepath.Join(m.root, m.name) }

// Snapshot returns a copy of every pending+loaded (height,value) pair,
// sorted ascending by height. Intended for tests and derived-series math
// that needs the whole series in memory.
func (m *HeightMap[T]) Snapshot() (heights []uint32, values []T) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merged := make(map[uint32]T)
	for _, chunk := range m.loaded {
		for h, v := range chunk {
			merged[h] = v
		}
	}
	for _, chunk := range m.pending {
		for h, v := range chunk {
			merged[h] = v
		}
	}
	hs := make([]uint32, 0, len(merged))
	for h := range merged {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	vs := make([]T, len(hs))
	for i, h := range hs {
		vs[i] = merged[h]
	}
	return hs, vs
}

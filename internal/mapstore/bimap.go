package mapstore

// RollupMode selects how a BiMap rolls its height series forward into its
// date series.
type RollupMode int

const (
	// RollupLast takes the value of the last height of the date — correct
	// for point-in-time metrics (e.g. circulating supply, a price).
	RollupLast RollupMode = iota
	// RollupSum sums every height belonging to the date — correct for flow
	// metrics (e.g. coinbase issued, coinblocks destroyed that day).
	RollupSum
)

// BiMap composes a HeightMap and a DateMap of the same element type T, with
// a single rollup rule translating one into the other.
type BiMap[T scalar] struct {
	Height *HeightMap[T]
	Date   *DateMap[T]
	mode   RollupMode
}

// NewBiMap opens (or creates) both the height- and date-keyed halves of a
// derived series rooted at <root>/<name>.
func NewBiMap[T scalar](root, name string, format Format, exportLast bool, heightSafety uint32, dateSafety int, mode RollupMode) *BiMap[T] {
	return &BiMap[T]{
		Height: NewHeightMap[T](root, name, format, exportLast, heightSafety),
		Date:   NewDateMap[T](root, name, format, exportLast, dateSafety),
		mode:   mode,
	}
}

// InsertHeight inserts into the height half only.
func (b *BiMap[T]) InsertHeight(h uint32, v T) T { return b.Height.Insert(h, v) }

// InsertDateSum accumulates v into the date half for flow-style callers
// that compute their own per-date sum incrementally (e.g. a dataset that
// sums into the date bucket block by block rather than rolling up after
// the fact).
func (b *BiMap[T]) InsertDateSum(d Date, v T) T {
	existing, _ := b.Date.Get(d)
	return b.Date.Insert(d, existing+v)
}

// ComputeDate rolls the height series forward into the date series using
// the configured RollupMode, given the first/last height of every date
// (as produced by the DateMetadata dataset's date->height-range index).
func (b *BiMap[T]) ComputeDate(dateRanges map[Date][2]uint32) {
	for d, rng := range dateRanges {
		first, last := rng[0], rng[1]
		switch b.mode {
		case RollupLast:
			if v, ok := b.Height.Get(last); ok {
				b.Date.Insert(d, v)
			}
		case RollupSum:
			var sum T
			any := false
			for h := first; h <= last; h++ {
				if v, ok := b.Height.Get(h); ok {
					sum += v
					any = true
				}
			}
			if any {
				b.Date.Insert(d, sum)
			}
		}
	}
}

// SetHeight overwrites every height in the series from a freshly computed
// map (used by derived series such as subsidy = coinbase - fees).
func (b *BiMap[T]) SetHeight(heights []uint32, values []T) {
	for i, h := range heights {
		b.Height.Insert(h, values[i])
	}
}

// PreExport/Export/PostExport/Reset satisfy ExportableMap-like bulk
// lifecycle methods for both halves together; BiMap itself is not stored
// directly in the bulk-export slice (its two halves are, individually, via
// Maps), and no dataset in this module calls these.
func (b *BiMap[T]) PreExport() {
	b.Height.PreExport()
	b.Date.PreExport()
}

func (b *BiMap[T]) Export() error {
	if err := b.Height.Export(); err != nil {
		return err
	}
	return b.Date.Export()
}

func (b *BiMap[T]) PostExport() {
	b.Height.PostExport()
	b.Date.PostExport()
}

func (b *BiMap[T]) Reset() error {
	if err := b.Height.Reset(); err != nil {
		return err
	}
	return b.Date.Reset()
}

// Maps returns both halves as ExportableMap, for inclusion in a dataset's
// bulk-export vector.
func (b *BiMap[T]) Maps() []ExportableMap {
	return []ExportableMap{b.Height, b.Date}
}

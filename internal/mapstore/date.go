// Package mapstore implements the persistent, year-chunked associative
// containers (HeightMap, DateMap, BiMap) that back every derived series in
// the pipeline.
package mapstore

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day component, matching the role
// NaiveDate plays in the source material this pipeline was derived from.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateFromTime truncates a timestamp (as produced by a block header) to its
// UTC calendar date.
func DateFromTime(unixSeconds uint32) Date {
	t := time.Unix(int64(unixSeconds), 0).UTC()
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d occurs strictly before o.
func (d Date) Before(o Date) bool { return d.time().Before(o.time()) }

// After reports whether d occurs strictly after o.
func (d Date) After(o Date) bool { return d.time().After(o.time()) }

// Equal reports whether d and o name the same calendar date.
func (d Date) Equal(o Date) bool { return d == o }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	t := d.time().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// IsFirstOfYear reports whether d is January 1st.
func (d Date) IsFirstOfYear() bool { return d.Month == time.January && d.Day == 1 }

// IsFirstOfMonth reports whether d is the first day of its month.
func (d Date) IsFirstOfMonth() bool { return d.Day == 1 }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ordinal returns a monotonically increasing integer for ordering/diffing
// purposes (days since an arbitrary epoch).
func (d Date) ordinal() int64 {
	return d.time().Unix() / 86400
}

// Ordinal exposes the date's day-ordinal for datasets that need to store a
// Date inside a scalar-keyed HeightMap (e.g. block-metadata's per-height
// date column).
func (d Date) Ordinal() int64 { return d.ordinal() }

// DateFromOrdinal reverses Ordinal.
func DateFromOrdinal(o int64) Date { return dateFromKey(o) }

// DaysSince returns d - o in days.
func (d Date) DaysSince(o Date) int64 {
	return d.ordinal() - o.ordinal()
}

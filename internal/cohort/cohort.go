// Package cohort classifies addresses and UTXOs into the age- and
// size-based buckets the realized/unrealized P/L datasets are indexed by.
// An address (or a single UTXO, for the coin-age ladder) belongs to exactly
// one bucket per dimension at any moment; moving between buckets is always
// an explicit transition, never a duplication.
package cohort

import "time"

// AgeCohort buckets coins by how long they have sat unspent.
type AgeCohort int

const (
	AgeUpTo1Day AgeCohort = iota
	Age1DayTo1Week
	Age1WeekTo1Month
	Age1MonthTo3Months
	Age3MonthsTo6Months
	Age6MonthsTo1Year
	Age1YearTo2Years
	Age2YearsTo3Years
	Age3YearsTo5Years
	Age5YearsTo7Years
	Age7YearsTo10Years
	AgeOver10Years

	NumAgeCohorts = int(AgeOver10Years) + 1
)

func (a AgeCohort) String() string {
	switch a {
	case AgeUpTo1Day:
		return "up_to_1d"
	case Age1DayTo1Week:
		return "1d_to_1w"
	case Age1WeekTo1Month:
		return "1w_to_1m"
	case Age1MonthTo3Months:
		return "1m_to_3m"
	case Age3MonthsTo6Months:
		return "3m_to_6m"
	case Age6MonthsTo1Year:
		return "6m_to_1y"
	case Age1YearTo2Years:
		return "1y_to_2y"
	case Age2YearsTo3Years:
		return "2y_to_3y"
	case Age3YearsTo5Years:
		return "3y_to_5y"
	case Age5YearsTo7Years:
		return "5y_to_7y"
	case Age7YearsTo10Years:
		return "7y_to_10y"
	case AgeOver10Years:
		return "gt_10y"
	default:
		return "unknown"
	}
}

// ageThresholdDays holds the inclusive upper bound of each bucket in days,
// in ascending order; the last bucket (>10y) has no upper bound.
var ageThresholdDays = [...]int{1, 7, 30, 91, 182, 365, 730, 1095, 1825, 2555, 3650}

// ClassifyAge returns the age cohort for a coin held for the given number
// of days.
func ClassifyAge(heldDays int) AgeCohort {
	for i, threshold := range ageThresholdDays {
		if heldDays <= threshold {
			return AgeCohort(i)
		}
	}
	return AgeOver10Years
}

// ClassifyAgeAt is a convenience wrapper computing heldDays from two times.
func ClassifyAgeAt(acquired, now time.Time) AgeCohort {
	days := int(now.Sub(acquired).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return ClassifyAge(days)
}

// SizeCohort buckets addresses by their current total balance, using the
// conventional whale-watching ladder (in BTC, expressed in sats to avoid
// float comparisons).
type SizeCohort int

const (
	SizePlankton SizeCohort = iota // < 1 BTC
	SizeShrimp                     // 1 - 10
	SizeCrab                       // 10 - 50
	SizeFish                       // 50 - 100
	SizeShark                      // 100 - 1_000
	SizeWhale                      // 1_000 - 10_000
	SizeHumpback                   // >= 10_000

	NumSizeCohorts = int(SizeHumpback) + 1
)

func (s SizeCohort) String() string {
	switch s {
	case SizePlankton:
		return "plankton"
	case SizeShrimp:
		return "shrimp"
	case SizeCrab:
		return "crab"
	case SizeFish:
		return "fish"
	case SizeShark:
		return "shark"
	case SizeWhale:
		return "whale"
	case SizeHumpback:
		return "humpback"
	default:
		return "unknown"
	}
}

const satsPerBTC = 100_000_000

var sizeThresholdsBTC = [...]uint64{1, 10, 50, 100, 1_000, 10_000}

// ClassifySize returns the size cohort for a balance expressed in satoshis.
func ClassifySize(sats uint64) SizeCohort {
	btc := sats / satsPerBTC
	for i, threshold := range sizeThresholdsBTC {
		if btc < threshold {
			return SizeCohort(i)
		}
	}
	return SizeHumpback
}

// ID names a single cohort cell for the per-cohort datasets (there is one
// independent accumulator per age cohort and one per size cohort; they are
// never cross-multiplied).
type ID struct {
	Dimension Dimension
	Age       AgeCohort
	Size      SizeCohort
}

type Dimension int

const (
	DimensionAge Dimension = iota
	DimensionSize
)

func (id ID) String() string {
	if id.Dimension == DimensionAge {
		return "age:" + id.Age.String()
	}
	return "size:" + id.Size.String()
}

// AllAgeIDs returns every age-cohort ID, for seeding per-cohort state maps.
func AllAgeIDs() []ID {
	out := make([]ID, NumAgeCohorts)
	for i := range out {
		out[i] = ID{Dimension: DimensionAge, Age: AgeCohort(i)}
	}
	return out
}

// AllSizeIDs returns every size-cohort ID, for seeding per-cohort state maps.
func AllSizeIDs() []ID {
	out := make([]ID, NumSizeCohorts)
	for i := range out {
		out[i] = ID{Dimension: DimensionSize, Size: SizeCohort(i)}
	}
	return out
}

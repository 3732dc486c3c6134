package ledger

import (
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Half-open reporting window
// =============================================================================

// Period is the reporting window [Start, End). Statistics attribute a
// movement to the period when Start <= movement date < End.
type Period struct {
	Start TimePoint
	End   TimePoint
	Unit  PeriodUnit
}

// Contains returns true if the time point is within [Start, End).
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.Before(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

// PeriodUnit defines how a reporting period is calculated.
type PeriodUnit string

const (
	UnitMonth      PeriodUnit = "month"
	UnitQuarter    PeriodUnit = "quarter"
	UnitYear       PeriodUnit = "year"
	UnitFirstHalf  PeriodUnit = "first_half"  // days 1-15 of the month
	UnitSecondHalf PeriodUnit = "second_half" // day 16 to end of month
)

var unitAliases = map[string]PeriodUnit{
	"":            UnitMonth,
	"month":       UnitMonth,
	"mes":         UnitMonth,
	"quarter":     UnitQuarter,
	"trimestre":   UnitQuarter,
	"year":        UnitYear,
	"año":         UnitYear,
	"anio":        UnitYear,
	"first_half":  UnitFirstHalf,
	"repo1":       UnitFirstHalf,
	"second_half": UnitSecondHalf,
	"repo2":       UnitSecondHalf,
}

// ParsePeriodUnit maps wire names (English or legacy Spanish) to a unit.
// Unknown names fall back to UnitMonth, the default reporting unit.
func ParsePeriodUnit(s string) PeriodUnit {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u
	}
	return UnitMonth
}

// PeriodQuery selects a reporting period. Year is mandatory; Month and
// Quarter default to 1 when zero.
type PeriodQuery struct {
	Unit    PeriodUnit
	Year    int
	Month   int
	Quarter int
}

// Validate rejects queries that cannot be resolved.
func (q PeriodQuery) Validate() error {
	if q.Year == 0 {
		return ErrYearRequired
	}
	return nil
}

// =============================================================================
// PERIOD RESOLVER
// =============================================================================

// ResolvePeriod maps a query to its half-open interval in the business
// location. Out-of-range month/quarter values are normalized by time.Date.
func ResolvePeriod(q PeriodQuery) Period {
	month := q.Month
	if month == 0 {
		month = 1
	}
	quarter := q.Quarter
	if quarter == 0 {
		quarter = 1
	}

	unit := q.Unit
	var start, end TimePoint
	switch unit {
	case UnitYear:
		start = NewTimePoint(q.Year, time.January, 1)
		end = start.AddYears(1)

	case UnitQuarter:
		start = NewTimePoint(q.Year, time.Month((quarter-1)*3+1), 1)
		end = start.AddMonths(3)

	case UnitFirstHalf:
		start = NewTimePoint(q.Year, time.Month(month), 1)
		end = NewTimePoint(q.Year, time.Month(month), 16)

	case UnitSecondHalf:
		start = NewTimePoint(q.Year, time.Month(month), 16)
		end = NewTimePoint(q.Year, time.Month(month), 1).AddMonths(1)

	default:
		unit = UnitMonth
		start = NewTimePoint(q.Year, time.Month(month), 1)
		end = start.AddMonths(1)
	}

	return Period{Start: start, End: end, Unit: unit}
}

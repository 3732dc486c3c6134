package ledger

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// =============================================================================
// BUSINESS LOCATION - All dates are civil dates in a fixed timezone
// =============================================================================

// LocationName is the civil calendar the business operates in.
const LocationName = "America/Argentina/Buenos_Aires"

// DateLayout is the wire format for movement dates.
const DateLayout = "2006-01-02"

// Location is the business timezone. Argentina has no DST, so the fixed
// offset fallback is only used if the tz database cannot be loaded.
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation(LocationName)
	if err != nil {
		return time.FixedZone("ART", -3*60*60)
	}
	return loc
}

// =============================================================================
// TIME POINT - Civil date at day resolution
// =============================================================================

// TimePoint is a calendar day in the business location. Comparisons are at
// day resolution: two instants on the same civil day are Equal.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, Location)}
}

// At returns the civil day containing t.
func At(t time.Time) TimePoint {
	t = t.In(Location)
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint { return At(time.Now()) }

// ParseTimePoint parses a YYYY-MM-DD date in the business location.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.ParseInLocation(DateLayout, s, Location)
	if err != nil {
		return TimePoint{}, err
	}
	return TimePoint{Time: t}, nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	t := tp.Time.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, n, 0)} }
func (tp TimePoint) AddYears(n int) TimePoint  { return TimePoint{Time: tp.normalize().AddDate(n, 0, 0)} }

// Properties
func (tp TimePoint) Year() int         { return tp.normalize().Year() }
func (tp TimePoint) Month() time.Month { return tp.normalize().Month() }
func (tp TimePoint) Day() int          { return tp.normalize().Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// Instant returns midnight of the civil day in the business location.
func (tp TimePoint) Instant() time.Time { return tp.normalize() }

func (tp TimePoint) String() string { return tp.normalize().Format(DateLayout) }

// MarshalJSON encodes the day as "YYYY-MM-DD".
func (tp TimePoint) MarshalJSON() ([]byte, error) {
	if tp.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + tp.String() + `"`), nil
}

func (tp *TimePoint) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*tp = TimePoint{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseTimePoint(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Civil calendar date (no time of day, always UTC)
// =============================================================================

// DateLayout is the wire format of every date in rows and API payloads.
const DateLayout = "2006-01-02"

type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	// Rows sometimes carry a full timestamp; only the date part matters.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int              { return d.Time.Year() }
func (d Date) Month() time.Month      { return d.Time.Month() }
func (d Date) Day() int               { return d.Time.Day() }
func (d Date) Weekday() time.Weekday  { return d.Time.Weekday() }
func (d Date) IsWeekend() bool        { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) IsZero() bool           { return d.Time.IsZero() }
func (d Date) String() string         { return d.Time.Format(DateLayout) }

// At returns the instant hh:mm on this date in loc.
func (d Date) At(minutes int, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).Add(time.Duration(minutes) * time.Minute)
}

// =============================================================================
// HOLIDAY CALENDAR - Explicit holiday records
// =============================================================================

// HolidayRecord is one row of the external holiday calendar.
type HolidayRecord struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (h HolidayRecord) Date() Date {
	return NewDate(h.Year, time.Month(h.Month), h.Day)
}

// Valid reports whether the record names a real calendar day.
func (h HolidayRecord) Valid() bool {
	return h.Month >= 1 && h.Month <= 12 && h.Day >= 1 && h.Day <= DaysInMonth(h.Year, time.Month(h.Month))
}

// HolidaySet answers "is this date an explicit holiday" in O(1).
// The zero value is an empty set.
type HolidaySet struct {
	days map[dayKey]struct{}
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(d Date) dayKey { return dayKey{d.Year(), d.Month(), d.Day()} }

func NewHolidaySet(records []HolidayRecord) HolidaySet {
	s := HolidaySet{days: make(map[dayKey]struct{}, len(records))}
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		s.days[keyOf(r.Date())] = struct{}{}
	}
	return s
}

func (s HolidaySet) Contains(d Date) bool {
	_, ok := s.days[keyOf(d)]
	return ok
}

func (s HolidaySet) Len() int { return len(s.days) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}

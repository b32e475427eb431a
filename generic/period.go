package generic

import "time"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of days. A nil End on an
// assignment is modelled by the caller, not here: periods are always closed.
type Period struct {
	Start Date
	End   Date
}

// MonthPeriod returns the first..last day of the month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Contains returns true if d is within [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps reports whether [start, end] intersects the period. A nil end is
// open-ended.
func (p Period) Overlaps(start Date, end *Date) bool {
	if start.After(p.End) {
		return false
	}
	if end != nil && end.Before(p.Start) {
		return false
	}
	return true
}

// Days returns all days in the period in order.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// ValidMonth checks a 1-based month number.
func ValidMonth(year, month int) error {
	if month < 1 || month > 12 || year < 1 {
		return &MonthError{Year: year, Month: month}
	}
	return nil
}

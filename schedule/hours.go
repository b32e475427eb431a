package schedule

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/care-hours/generic"
)

// =============================================================================
// TIME SLOT VALIDATION
// =============================================================================

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

const minutesPerDay = 24 * 60

// Valid reports whether both ends are HH:MM.
func (s TimeSlot) Valid() bool {
	return clockPattern.MatchString(s.Start) && clockPattern.MatchString(s.End)
}

// ValidSlots drops every slot failing the HH:MM check, keeping order.
// Always returns a fresh slice.
func ValidSlots(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// clockMinutes converts "HH:MM" to minutes since midnight.
func clockMinutes(hhmm string) (int, bool) {
	if !clockPattern.MatchString(hhmm) {
		return 0, false
	}
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return h*60 + m, true
}

// =============================================================================
// HOURS CALCULATOR
// =============================================================================

// DurationMinutes is end-start in minutes, wrapping past midnight when the
// end is earlier than the start. Invalid or non-positive spans are 0.
func DurationMinutes(start, end string) int {
	s, ok := clockMinutes(start)
	if !ok {
		return 0
	}
	e, ok := clockMinutes(end)
	if !ok {
		return 0
	}
	d := e - s
	if d < 0 {
		d += minutesPerDay
	}
	if d <= 0 {
		return 0
	}
	return d
}

// HoursBetween is the decimal hour length of start..end (overnight aware).
func HoursBetween(start, end string) decimal.Decimal {
	return generic.HoursFromMinutes(DurationMinutes(start, end))
}

// SlotHours is the computed duration of a slot. The explicit Hours field is
// not consulted here; see HoursProfileOf.
func SlotHours(s TimeSlot) decimal.Decimal {
	return HoursBetween(s.Start, s.End)
}

// TotalHours sums slot durations. Overlapping slots are not merged.
func TotalHours(slots []TimeSlot) decimal.Decimal {
	return TallyOf(slots).Hours()
}

// =============================================================================
// TALLY - Exact hour accumulation
// =============================================================================

// Tally accumulates computed durations as whole minutes and explicit hour
// values as decimals. Minutes are divided by 60 only when Hours is read, so
// 3 x 20 minutes is exactly 1h no matter how many days are added up.
type Tally struct {
	Minutes  int
	Explicit decimal.Decimal
}

// TallyOf sums the computed durations of slots.
func TallyOf(slots []TimeSlot) Tally {
	var t Tally
	for _, s := range slots {
		t.Minutes += DurationMinutes(s.Start, s.End)
	}
	return t
}

func (t Tally) Add(other Tally) Tally {
	return Tally{
		Minutes:  t.Minutes + other.Minutes,
		Explicit: t.Explicit.Add(other.Explicit),
	}
}

// Hours converts the tally to decimal hours.
func (t Tally) Hours() decimal.Decimal {
	return generic.HoursFromMinutes(t.Minutes).Add(t.Explicit)
}

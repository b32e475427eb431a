package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/care-hours/generic"
)

// =============================================================================
// HOURS PROFILE - Per-weekday totals used by the monthly aggregation
// =============================================================================

// HoursProfile is the hour tally of one assignment per weekday, plus the
// tally it covers on each holiday-context day.
type HoursProfile struct {
	Weekday [7]Tally // indexed by time.Weekday
	Holiday Tally
}

// Day returns the tally for a weekday.
func (p HoursProfile) Day(wd time.Weekday) Tally {
	if wd < time.Sunday || wd > time.Saturday {
		return Tally{}
	}
	return p.Weekday[wd]
}

// On returns the hours for a weekday.
func (p HoursProfile) On(wd time.Weekday) decimal.Decimal {
	return p.Day(wd).Hours()
}

// HolidayHoursPerDay returns the hours covered on each holiday-context day.
func (p HoursProfile) HolidayHoursPerDay() decimal.Decimal {
	return p.Holiday.Hours()
}

// HoursProfileOf sums a schedule into per-weekday tallies.
//
// For an enabled day each well-formed slot counts its explicit "hours" value when
// present, else its computed (overnight aware) duration. A day that is
// missing, or enabled with no slots, falls back to the legacy weekdayHours
// map. Disabled days are zero.
//
// Holiday hours come from the holiday override slots (holiday_config first)
// and fall back to the legacy holidayHoursPerDay number.
func HoursProfileOf(cfg Config) HoursProfile {
	var p HoursProfile
	for wd := 0; wd < 7; wd++ {
		key := WeekdayKey(wd)
		day := cfg.Day(key)
		switch {
		case day != nil && !day.IsEnabled():
			p.Weekday[wd] = Tally{}
		case day != nil && len(day.TimeSlots) > 0:
			p.Weekday[wd] = tallySlots(day.TimeSlots)
		default:
			p.Weekday[wd] = legacyTally(cfg.WeekdayHours, key)
		}
	}

	if slots := cfg.HolidaySlots(); len(slots) > 0 {
		p.Holiday = tallySlots(slots)
	} else if cfg.HolidayHoursPerDay != nil && *cfg.HolidayHoursPerDay > 0 {
		p.Holiday = Tally{Explicit: generic.HoursFromFloat(*cfg.HolidayHoursPerDay)}
	}
	return p
}

// tallySlots keeps computed durations in minutes; only explicit hours are
// added as decimals.
func tallySlots(slots []TimeSlot) Tally {
	var t Tally
	for _, s := range ValidSlots(slots) {
		if s.Hours != nil {
			if *s.Hours > 0 {
				t.Explicit = t.Explicit.Add(generic.HoursFromFloat(*s.Hours))
			}
			continue
		}
		t.Minutes += DurationMinutes(s.Start, s.End)
	}
	return t
}

func legacyTally(m map[string]float64, key string) Tally {
	if h, ok := m[key]; ok && h > 0 {
		return Tally{Explicit: generic.HoursFromFloat(h)}
	}
	return Tally{}
}

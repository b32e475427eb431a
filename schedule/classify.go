package schedule

import (
	"github.com/warp/care-hours/generic"
)

// =============================================================================
// DATE CONTEXT CLASSIFIER
// =============================================================================

// weekdayKeys is indexed by time.Weekday (0 = Sunday).
var weekdayKeys = [7]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// WeekdayKey maps a day-of-week index to its schedule key. Indexes outside
// 0..6 fall back to "monday".
func WeekdayKey(weekday int) string {
	if weekday < 0 || weekday >= len(weekdayKeys) {
		return "monday"
	}
	return weekdayKeys[weekday]
}

// DateKey is WeekdayKey for a date.
func DateKey(d generic.Date) string {
	return WeekdayKey(int(d.Weekday()))
}

// IsHolidayContext is true on Saturdays, Sundays and explicit holidays.
func IsHolidayContext(d generic.Date, holidays generic.HolidaySet) bool {
	return d.IsWeekend() || holidays.Contains(d)
}

package generic_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/care-hours/generic"
)

// =============================================================================
// DATES
// =============================================================================

func TestParseDate_AcceptsTimestampPrefix(t *testing.T) {
	for _, in := range []string{"2026-02-04", "2026-02-04T00:00:00Z", " 2026-02-04 10:30:00+01 "} {
		d, err := generic.ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2026-02-04", d.String(), in)
	}
}

func TestParseDate_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "04/02/2026", "2026-02-30"} {
		_, err := generic.ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestDate_WeekendAndArithmetic(t *testing.T) {
	// Feb 2 2026 is a Monday
	monday := generic.NewDate(2026, time.February, 2)
	assert.Equal(t, time.Monday, monday.Weekday())
	assert.False(t, monday.IsWeekend())
	assert.True(t, monday.AddDays(5).IsWeekend())
	assert.True(t, monday.AddDays(-1).IsWeekend())

	// Crossing a month boundary
	assert.Equal(t, "2026-03-01", generic.NewDate(2026, time.February, 28).AddDays(1).String())
	assert.True(t, monday.Before(monday.AddDays(1)))
	assert.True(t, monday.BeforeOrEqual(monday))
	assert.True(t, monday.AfterOrEqual(monday))
}

func TestDate_At(t *testing.T) {
	d := generic.NewDate(2026, time.February, 2)
	at := d.At(8*60+30, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC), at)

	// Past midnight rolls into the next day
	assert.Equal(t, 3, d.At(24*60+60, time.UTC).Day())
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func TestHolidaySet_SkipsImpossibleDates(t *testing.T) {
	// GIVEN: one real holiday and three records no calendar has
	set := generic.NewHolidaySet([]generic.HolidayRecord{
		{Day: 4, Month: 2, Year: 2026},
		{Day: 30, Month: 2, Year: 2026},
		{Day: 1, Month: 13, Year: 2026},
		{Day: 0, Month: 1, Year: 2026},
	})

	// THEN
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains(generic.NewDate(2026, time.February, 4)))
	assert.False(t, set.Contains(generic.NewDate(2027, time.February, 4)))
}

func TestHolidaySet_ZeroValueIsEmpty(t *testing.T) {
	var set generic.HolidaySet
	assert.False(t, set.Contains(generic.NewDate(2026, time.January, 1)))
	assert.Zero(t, set.Len())
}

func TestHolidayRecord_Valid(t *testing.T) {
	assert.True(t, generic.HolidayRecord{Day: 29, Month: 2, Year: 2024}.Valid())
	assert.False(t, generic.HolidayRecord{Day: 29, Month: 2, Year: 2026}.Valid())
	assert.True(t, generic.HolidayRecord{Day: 31, Month: 12, Year: 2026}.Valid())
}

// =============================================================================
// PERIODS
// =============================================================================

func TestMonthPeriod_February(t *testing.T) {
	p := generic.MonthPeriod(2026, time.February)

	days := p.Days()
	require.Len(t, days, 28)
	assert.Equal(t, "2026-02-01", days[0].String())
	assert.Equal(t, "2026-02-28", days[27].String())

	weekend := 0
	for _, d := range days {
		if d.IsWeekend() {
			weekend++
		}
	}
	assert.Equal(t, 8, weekend)
	assert.Equal(t, 29, generic.DaysInMonth(2024, time.February))
}

func TestPeriod_Overlaps(t *testing.T) {
	p := generic.MonthPeriod(2026, time.February)
	date := func(m time.Month, d int) generic.Date { return generic.NewDate(2026, m, d) }
	ptr := func(d generic.Date) *generic.Date { return &d }

	tests := []struct {
		name  string
		start generic.Date
		end   *generic.Date
		want  bool
	}{
		{"open ended before", date(time.January, 1), nil, true},
		{"starts after", date(time.March, 1), nil, false},
		{"ends before", date(time.January, 1), ptr(date(time.January, 31)), false},
		{"ends on first day", date(time.January, 1), ptr(date(time.February, 1)), true},
		{"starts on last day", date(time.February, 28), nil, true},
		{"inside", date(time.February, 10), ptr(date(time.February, 12)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Overlaps(tt.start, tt.end))
		})
	}
}

func TestValidMonth(t *testing.T) {
	assert.NoError(t, generic.ValidMonth(2026, 1))
	assert.NoError(t, generic.ValidMonth(2026, 12))

	for _, m := range []int{0, 13, -1} {
		err := generic.ValidMonth(2026, m)
		require.Error(t, err)
		assert.ErrorIs(t, err, generic.ErrInvalidMonth)
		assert.True(t, generic.IsClientError(err))
	}
	assert.Equal(t, "invalid month 2026-13", generic.ValidMonth(2026, 13).Error())
}

// =============================================================================
// HOURS AND ERRORS
// =============================================================================

func TestHoursFromMinutes(t *testing.T) {
	assert.True(t, generic.HoursFromMinutes(90).Equal(decimal.NewFromFloat(1.5)))
	assert.Equal(t, 0.33, generic.HoursToFloat(generic.HoursFromMinutes(20)))
	assert.True(t, generic.Percent(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.True(t, generic.Percent(decimal.NewFromInt(45), decimal.NewFromInt(180)).Equal(decimal.NewFromInt(25)))
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("load row: %w", generic.ErrNotFound)
	assert.True(t, generic.IsNotFound(wrapped))
	assert.False(t, generic.IsClientError(wrapped))

	slotErr := &generic.TimeSlotError{Day: "monday", Index: 1, Start: "25:00", End: "10:00"}
	assert.ErrorIs(t, slotErr, generic.ErrInvalidTimeSlot)
	assert.True(t, generic.IsClientError(fmt.Errorf("parse: %w", slotErr)))
}

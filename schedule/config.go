/*
Package schedule resolves which care time slots apply on a calendar date.

PURPOSE:
  An assignment links a care worker to a client with a weekly schedule plus
  an optional holiday override. This package parses that schedule blob,
  classifies dates (weekday vs holiday context), resolves the slots for a
  date, gates them by assignment type and converts slots into hours.

KEY CONCEPTS IN THIS FILE (config.go):
  Config:        the schedule blob, bit-compatible with the stored JSON
  DaySchedule:   {enabled, timeSlots} under monday..sunday and holiday
  HolidayConfig: {has_holiday_service, holiday_timeSlots}
  Parse:         fail-soft normalization of whatever the row carried

JSON SHAPE:
  {
    "monday":  { "enabled": true, "timeSlots": [{"start":"09:00","end":"13:00"}] },
    ...
    "sunday":  { ... },
    "holiday": { "enabled": true, "timeSlots": [...] },
    "holiday_config": { "has_holiday_service": true, "holiday_timeSlots": [...] }
  }

  Older rows may also carry a flat "weekdayHours" map and a
  "holidayHoursPerDay" number. Both are kept as fallbacks (see profile.go).

FAIL-SOFT CONTRACT:
  Parse never returns an error. A malformed string or a non-object value
  yields Empty(), and the assignment simply contributes zero hours.

SEE ALSO:
  - resolver.go: slot resolution for a date
  - hours.go: slot durations
  - profile.go: per-weekday hour totals for monthly aggregation
*/
package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/warp/care-hours/generic"
)

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// TimeSlot is one "HH:MM"-"HH:MM" interval. Hours, when present, overrides
// the computed duration during monthly aggregation.
type TimeSlot struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Hours *float64 `json:"hours,omitempty"`
}

// DaySchedule is the configuration of one weekday (or of the holiday key).
type DaySchedule struct {
	Enabled   *bool      `json:"enabled,omitempty"`
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// IsEnabled defaults to true when unspecified.
func (d *DaySchedule) IsEnabled() bool {
	return d != nil && (d.Enabled == nil || *d.Enabled)
}

// HolidayConfig is the newer holiday override shape.
type HolidayConfig struct {
	HasHolidayService *bool      `json:"has_holiday_service,omitempty"`
	HolidayTimeSlots  []TimeSlot `json:"holiday_timeSlots"`
}

// Config is the full schedule of an assignment.
type Config struct {
	Monday    *DaySchedule `json:"monday,omitempty"`
	Tuesday   *DaySchedule `json:"tuesday,omitempty"`
	Wednesday *DaySchedule `json:"wednesday,omitempty"`
	Thursday  *DaySchedule `json:"thursday,omitempty"`
	Friday    *DaySchedule `json:"friday,omitempty"`
	Saturday  *DaySchedule `json:"saturday,omitempty"`
	Sunday    *DaySchedule `json:"sunday,omitempty"`

	Holiday       *DaySchedule   `json:"holiday,omitempty"`
	HolidayConfig *HolidayConfig `json:"holiday_config,omitempty"`

	// Legacy flat totals, read only as fallbacks.
	WeekdayHours       map[string]float64 `json:"weekdayHours,omitempty"`
	HolidayHoursPerDay *float64           `json:"holidayHoursPerDay,omitempty"`
}

// Day returns the schedule stored under a weekday key, or nil.
func (c Config) Day(key string) *DaySchedule {
	switch key {
	case "monday":
		return c.Monday
	case "tuesday":
		return c.Tuesday
	case "wednesday":
		return c.Wednesday
	case "thursday":
		return c.Thursday
	case "friday":
		return c.Friday
	case "saturday":
		return c.Saturday
	case "sunday":
		return c.Sunday
	case "holiday":
		return c.Holiday
	}
	return nil
}

// HolidaySlots returns the valid holiday override slots.
// holiday_config.holiday_timeSlots wins over holiday.timeSlots when non-empty.
func (c Config) HolidaySlots() []TimeSlot {
	if c.HolidayConfig != nil {
		if slots := ValidSlots(c.HolidayConfig.HolidayTimeSlots); len(slots) > 0 {
			return slots
		}
	}
	if c.Holiday != nil {
		return ValidSlots(c.Holiday.TimeSlots)
	}
	return nil
}

// Empty is the safe default: every day disabled, no holiday hours.
func Empty() Config {
	off := func() *DaySchedule {
		disabled := false
		return &DaySchedule{Enabled: &disabled, TimeSlots: []TimeSlot{}}
	}
	zero := 0.0
	return Config{
		Monday:             off(),
		Tuesday:            off(),
		Wednesday:          off(),
		Thursday:           off(),
		Friday:             off(),
		Saturday:           off(),
		Sunday:             off(),
		HolidayHoursPerDay: &zero,
	}
}

// =============================================================================
// PARSING
// =============================================================================

// Parse normalizes a raw schedule value. It accepts a JSON string, raw bytes,
// a decoded map, or an already typed Config. Anything unusable yields Empty().
func Parse(raw any) Config {
	cfg, err := ParseStrict(raw)
	if err != nil {
		return Empty()
	}
	return cfg
}

// ParseStrict is Parse with the failure reported. Used on write paths that
// want to reject a bad blob instead of silently storing it.
func ParseStrict(raw any) (Config, error) {
	switch v := raw.(type) {
	case nil:
		return Config{}, fmt.Errorf("%w: empty", generic.ErrInvalidSchedule)
	case Config:
		return v.clone(), nil
	case *Config:
		if v == nil {
			return Config{}, fmt.Errorf("%w: empty", generic.ErrInvalidSchedule)
		}
		return v.clone(), nil
	case string:
		return decode([]byte(v))
	case []byte:
		return decode(v)
	case json.RawMessage:
		return decode(v)
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v", generic.ErrInvalidSchedule, err)
		}
		return decode(b)
	default:
		return Config{}, fmt.Errorf("%w: unsupported type %T", generic.ErrInvalidSchedule, raw)
	}
}

func decode(b []byte) (Config, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		// Some rows were double-encoded: a JSON string holding the object.
		var inner string
		if len(b) > 0 && b[0] == '"' && json.Unmarshal(b, &inner) == nil {
			return decode([]byte(inner))
		}
		return Config{}, fmt.Errorf("%w: not a JSON object", generic.ErrInvalidSchedule)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", generic.ErrInvalidSchedule, err)
	}
	return cfg, nil
}

// Validate reports the first slot that fails the HH:MM check. Parse keeps such
// slots (they are dropped at resolution time); write paths reject them.
func (c Config) Validate() error {
	for _, key := range append(weekdayKeys[:], "holiday") {
		day := c.Day(key)
		if day == nil {
			continue
		}
		for i, s := range day.TimeSlots {
			if !s.Valid() {
				return &generic.TimeSlotError{Day: key, Index: i, Start: s.Start, End: s.End}
			}
		}
	}
	if c.HolidayConfig != nil {
		for i, s := range c.HolidayConfig.HolidayTimeSlots {
			if !s.Valid() {
				return &generic.TimeSlotError{Day: "holiday_config", Index: i, Start: s.Start, End: s.End}
			}
		}
	}
	return nil
}

// JSON encodes the config in the stored shape.
func (c Config) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (c Config) clone() Config {
	out := c
	out.Monday = c.Monday.clone()
	out.Tuesday = c.Tuesday.clone()
	out.Wednesday = c.Wednesday.clone()
	out.Thursday = c.Thursday.clone()
	out.Friday = c.Friday.clone()
	out.Saturday = c.Saturday.clone()
	out.Sunday = c.Sunday.clone()
	out.Holiday = c.Holiday.clone()
	if c.HolidayConfig != nil {
		hc := *c.HolidayConfig
		hc.HolidayTimeSlots = cloneSlots(c.HolidayConfig.HolidayTimeSlots)
		out.HolidayConfig = &hc
	}
	if c.WeekdayHours != nil {
		out.WeekdayHours = make(map[string]float64, len(c.WeekdayHours))
		for k, v := range c.WeekdayHours {
			out.WeekdayHours[k] = v
		}
	}
	return out
}

func (d *DaySchedule) clone() *DaySchedule {
	if d == nil {
		return nil
	}
	out := *d
	out.TimeSlots = cloneSlots(d.TimeSlots)
	return &out
}

func cloneSlots(in []TimeSlot) []TimeSlot {
	if in == nil {
		return nil
	}
	out := make([]TimeSlot, len(in))
	copy(out, in)
	return out
}

// UnmarshalJSON tolerates non-string times and string hour values so that a
// single bad slot is dropped later instead of failing the whole schedule.
func (s *TimeSlot) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = TimeSlot{}
		return nil
	}
	start, _ := raw["start"].(string)
	end, _ := raw["end"].(string)
	*s = TimeSlot{Start: start, End: end}
	switch h := raw["hours"].(type) {
	case float64:
		s.Hours = &h
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(h), 64); err == nil {
			s.Hours = &f
		}
	}
	return nil
}

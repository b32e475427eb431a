/*
resolver.go - Canonical slot resolution for a calendar date

PURPOSE:
  Answers "which time slots does this assignment cover on this date".
  Every daily view and the optional always-applicable branch of the monthly
  aggregation go through Resolver; nothing else re-derives these rules.

RESOLUTION ORDER:
  daySlots     = enabled(schedule[weekday]) ? valid(schedule[weekday].timeSlots) : []
  holidaySlots = valid(holiday_config.holiday_timeSlots) if non-empty
                 else valid(holiday.timeSlots)
  useHoliday   = holidayContext || type == festivos

  1. useHoliday and holidaySlots non-empty -> holidaySlots
  2. daySlots non-empty                    -> daySlots
  3. otherwise                             -> holidaySlots (possibly empty)

TYPE GATE (Applicable):
  laborables:             only outside holiday context
  festivos:               only in holiday context
  flexible, completa:     always
  personalizada:          always
  anything else:          never

PURITY:
  Resolver has no state. Identical inputs give equal outputs, and every
  returned slice is freshly allocated so callers may modify it.
*/
package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/warp/care-hours/generic"
)

// SlotResolver is what daily views and aggregators depend on.
type SlotResolver interface {
	Resolve(cfg Config, t AssignmentType, date generic.Date, holidayCtx bool) []TimeSlot
	Applicable(cfg Config, t AssignmentType, date generic.Date, holidayCtx bool) []TimeSlot
}

// Resolver is the canonical SlotResolver.
type Resolver struct{}

var _ SlotResolver = Resolver{}

// Resolve returns the slots for date before type gating.
func (Resolver) Resolve(cfg Config, t AssignmentType, date generic.Date, holidayCtx bool) []TimeSlot {
	var daySlots []TimeSlot
	if day := cfg.Day(DateKey(date)); day.IsEnabled() {
		daySlots = ValidSlots(day.TimeSlots)
	}
	holidaySlots := cfg.HolidaySlots()

	mustUseHoliday := holidayCtx || t == TypeFestivos

	switch {
	case mustUseHoliday && len(holidaySlots) > 0:
		return holidaySlots
	case len(daySlots) > 0:
		return daySlots
	case holidaySlots != nil:
		return holidaySlots
	default:
		return []TimeSlot{}
	}
}

// Applicable is Resolve followed by the assignment type gate.
func (r Resolver) Applicable(cfg Config, t AssignmentType, date generic.Date, holidayCtx bool) []TimeSlot {
	if !TypeAllows(t, holidayCtx) {
		return []TimeSlot{}
	}
	return r.Resolve(cfg, t, date, holidayCtx)
}

// TypeAllows is the type gate on its own.
func TypeAllows(t AssignmentType, holidayCtx bool) bool {
	switch t {
	case TypeLaborables:
		return !holidayCtx
	case TypeFestivos:
		return holidayCtx
	case TypeFlexible, TypeCompleta, TypePersonalizada:
		return true
	default:
		return false
	}
}

// =============================================================================
// DAILY VIEW
// =============================================================================

// DayPlan is what a daily screen needs for one assignment on one date.
type DayPlan struct {
	Assignment     Assignment
	Date           generic.Date
	HolidayContext bool
	Active         bool       // status active and date within range
	Resolved       []TimeSlot // before the type gate
	Slots          []TimeSlot // applicable slots (empty when gated or inactive)
	Hours          decimal.Decimal
}

// PlanFor resolves a single assignment for a date.
func (r Resolver) PlanFor(a Assignment, date generic.Date, holidays generic.HolidaySet) DayPlan {
	holidayCtx := IsHolidayContext(date, holidays)
	plan := DayPlan{
		Assignment:     a,
		Date:           date,
		HolidayContext: holidayCtx,
		Active:         a.IsActiveOn(date),
		Resolved:       r.Resolve(a.Schedule, a.Type, date, holidayCtx),
		Slots:          []TimeSlot{},
		Hours:          decimal.Zero,
	}
	if plan.Active {
		plan.Slots = r.Applicable(a.Schedule, a.Type, date, holidayCtx)
		plan.Hours = TotalHours(plan.Slots)
	}
	return plan
}

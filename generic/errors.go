/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine itself is fail-soft: schedule parsing, slot resolution and
  balance aggregation recover locally and never return these. They are used
  by the stores, the strict parsing path and the HTTP layer.

ERROR CATEGORIES:
  1. Input errors - malformed schedules, slots, months (HTTP 400)
  2. Lookup errors - missing rows (HTTP 404)

USAGE:
    if errors.Is(err, generic.ErrNotFound) {
        writeError(w, http.StatusNotFound, ...)
    }

SEE ALSO:
  - api/handlers.go: maps these to HTTP status codes
  - store/sqlite/sqlite.go: returns ErrNotFound
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidSchedule is returned by strict schedule parsing when the blob
	// is not a JSON object.
	ErrInvalidSchedule = errors.New("invalid schedule config")

	// ErrInvalidTimeSlot is returned when a slot is not HH:MM-HH:MM.
	ErrInvalidTimeSlot = errors.New("invalid time slot")

	// ErrInvalidMonth is returned for month numbers outside 1..12.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidDate is returned for unreadable or impossible calendar dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidAssignmentType is returned for unknown assignment types on write.
	ErrInvalidAssignmentType = errors.New("invalid assignment type")

	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MonthError carries the offending year/month.
type MonthError struct {
	Year  int
	Month int
}

func (e *MonthError) Error() string {
	return fmt.Sprintf("invalid month %04d-%02d", e.Year, e.Month)
}

func (e *MonthError) Unwrap() error {
	return ErrInvalidMonth
}

// TimeSlotError identifies which slot of which day failed validation.
type TimeSlotError struct {
	Day   string
	Index int
	Start string
	End   string
}

func (e *TimeSlotError) Error() string {
	return fmt.Sprintf("invalid time slot %s[%d]: %q-%q", e.Day, e.Index, e.Start, e.End)
}

func (e *TimeSlotError) Unwrap() error {
	return ErrInvalidTimeSlot
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidTimeSlot) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidAssignmentType)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

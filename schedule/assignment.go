package schedule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/care-hours/generic"
)

// =============================================================================
// ASSIGNMENT TYPE
// =============================================================================

// AssignmentType decides which days an assignment is eligible on.
type AssignmentType string

const (
	TypeLaborables    AssignmentType = "laborables"    // non-holiday weekdays only
	TypeFestivos      AssignmentType = "festivos"      // holiday context only
	TypeFlexible      AssignmentType = "flexible"      // every day
	TypeCompleta      AssignmentType = "completa"      // every day
	TypePersonalizada AssignmentType = "personalizada" // every day, no extra rules
)

// ParseAssignmentType lower-cases and trims. Unknown values are returned as
// is; Known reports whether the result is one of the five types.
func ParseAssignmentType(s string) AssignmentType {
	return AssignmentType(strings.ToLower(strings.TrimSpace(s)))
}

func (t AssignmentType) Known() bool {
	switch t {
	case TypeLaborables, TypeFestivos, TypeFlexible, TypeCompleta, TypePersonalizada:
		return true
	}
	return false
}

// AlwaysApplicable is true for the types that are not gated by day context.
func (t AssignmentType) AlwaysApplicable() bool {
	switch t {
	case TypeFlexible, TypeCompleta, TypePersonalizada:
		return true
	}
	return false
}

// =============================================================================
// ASSIGNMENT
// =============================================================================

const StatusActive = "active"

// Assignment links a worker to a client with a parsed schedule.
type Assignment struct {
	ID        generic.AssignmentID
	Type      AssignmentType
	Schedule  Config
	StartDate generic.Date
	EndDate   *generic.Date // nil = open-ended
	Status    string
	WorkerID  generic.WorkerID
	UserID    generic.ClientID
}

// IsActiveOn is true when the row is active and d is in [StartDate, EndDate].
func (a Assignment) IsActiveOn(d generic.Date) bool {
	if a.Status != StatusActive {
		return false
	}
	if d.Before(a.StartDate) {
		return false
	}
	if a.EndDate != nil && d.After(*a.EndDate) {
		return false
	}
	return true
}

// Overlaps is true when the row is active for at least one day of p.
func (a Assignment) Overlaps(p generic.Period) bool {
	return a.Status == StatusActive && p.Overlaps(a.StartDate, a.EndDate)
}

// Row is the assignment as fetched from the data service.
type Row struct {
	ID             string          `json:"id"`
	AssignmentType string          `json:"assignment_type"`
	Schedule       json.RawMessage `json:"schedule"`
	StartDate      string          `json:"start_date"`
	EndDate        *string         `json:"end_date"`
	Status         string          `json:"status"`
	WorkerID       string          `json:"worker_id"`
	UserID         string          `json:"user_id"`
}

// FromRow converts a fetched row. The schedule is parsed fail-soft; only an
// unreadable start_date is an error, since such a row can never be placed
// on the calendar.
func FromRow(r Row) (Assignment, error) {
	start, err := generic.ParseDate(r.StartDate)
	if err != nil {
		return Assignment{}, fmt.Errorf("assignment %s: start_date: %w", r.ID, err)
	}
	a := Assignment{
		ID:        generic.AssignmentID(r.ID),
		Type:      ParseAssignmentType(r.AssignmentType),
		Schedule:  Parse(json.RawMessage(r.Schedule)),
		StartDate: start,
		Status:    strings.ToLower(strings.TrimSpace(r.Status)),
		WorkerID:  generic.WorkerID(r.WorkerID),
		UserID:    generic.ClientID(r.UserID),
	}
	if r.EndDate != nil && strings.TrimSpace(*r.EndDate) != "" {
		end, err := generic.ParseDate(*r.EndDate)
		if err != nil {
			return Assignment{}, fmt.Errorf("assignment %s: end_date: %w", r.ID, err)
		}
		a.EndDate = &end
	}
	return a, nil
}

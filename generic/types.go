/*
Package generic provides the domain-agnostic building blocks of the care
hours engine.

PURPOSE:
  Everything in here is free of home-care vocabulary. Dates, month periods,
  the holiday calendar and hour quantities are shared by the schedule
  resolver, the balance aggregators, the stores and the HTTP layer.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: decimal hour quantities (never float64 inside the engine)
  - Identifiers: type-safe client, worker and assignment IDs

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every hour total, floats only at the edge
  2. Type Safety: distinct ID types so a worker ID can't be passed as a client
  3. Values: everything here is an immutable value, safe to share

SEE ALSO:
  - time.go: Date and holiday calendar
  - period.go: month periods and day walks
  - errors.go: sentinel errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Decimal hour quantities
// =============================================================================

var (
	minutesPerHour = decimal.NewFromInt(60)
	hundred        = decimal.NewFromInt(100)
)

// HoursFromMinutes converts a minute count into decimal hours.
func HoursFromMinutes(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour)
}

// HoursFromFloat converts an externally supplied number into decimal hours.
func HoursFromFloat(h float64) decimal.Decimal {
	return decimal.NewFromFloat(h)
}

// RoundHours rounds to two decimals, the precision shown on balance screens.
func RoundHours(h decimal.Decimal) decimal.Decimal {
	return h.Round(2)
}

// HoursToFloat converts hours to float64 for JSON responses.
func HoursToFloat(h decimal.Decimal) float64 {
	return RoundHours(h).InexactFloat64()
}

// Percent returns part/total*100, or zero when total is zero.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ClientID identifies the person receiving care (user_id in the rows).
type ClientID string

// WorkerID identifies the care worker.
type WorkerID string

// AssignmentID identifies a worker-to-client assignment.
type AssignmentID string

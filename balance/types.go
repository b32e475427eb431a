/*
Package balance aggregates resolved schedules into monthly hour balances.

PURPOSE:
  Answers "how many hours does this client's schedule add up to this month,
  and how does that compare with the hours they are contracted for".

KEY CONCEPTS:
  Source:              the fetch boundary (profile, holidays, assignments)
  UserMonthlyBalance:  one client, one month, assigned vs theoretical
  WorkerClientBalance: one row of a worker's monthly report
  Aggregator:          the month walk plus the per-worker fan-out

CROSS-WORKER TOTALS:
  A client's balance sums every active assignment for that client across
  ALL workers. The worker report lists the worker's clients, but each row
  still carries the client's full cross-worker balance.

FAIL-SOFT:
  A missing profile means "no data" (nil balance). Any fetch failure after
  that, including context cancellation, produces a degraded balance with
  theoretical = 0 and difference = -assigned. Nothing here returns an error
  for data problems; only an invalid month is rejected.

SEE ALSO:
  - monthly.go: MonthlyBalance
  - worker.go: WorkerClientsBalance
  - schedule/profile.go: per-weekday hour totals
*/
package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
)

// =============================================================================
// SOURCE - External data the aggregation needs
// =============================================================================

// ClientProfile is the part of the client row the balance needs.
type ClientProfile struct {
	UserID               generic.ClientID
	Name                 string
	Surname              string
	MonthlyAssignedHours decimal.Decimal
}

// DisplayName is "{name} {surname}", the report sort key.
func (p ClientProfile) DisplayName() string {
	if p.Surname == "" {
		return p.Name
	}
	if p.Name == "" {
		return p.Surname
	}
	return p.Name + " " + p.Surname
}

// Source fetches the rows an aggregation consumes. Implementations must be
// safe for concurrent use.
type Source interface {
	// ClientProfile returns nil, nil when the client has no profile.
	ClientProfile(ctx context.Context, id generic.ClientID) (*ClientProfile, error)

	// Holidays returns the calendar records for the month.
	Holidays(ctx context.Context, year int, month time.Month) ([]generic.HolidayRecord, error)

	// ClientAssignments returns the active assignments of the client, for any
	// worker, overlapping the period.
	ClientAssignments(ctx context.Context, id generic.ClientID, period generic.Period) ([]schedule.Assignment, error)

	// WorkerClients returns the distinct clients of the worker's active
	// assignments overlapping the period.
	WorkerClients(ctx context.Context, id generic.WorkerID, period generic.Period) ([]generic.ClientID, error)
}

// Service is what the HTTP layer consumes. *Aggregator implements it, and
// so does the Redis cache decorator.
type Service interface {
	MonthlyBalance(ctx context.Context, userID generic.ClientID, year, month int) (*UserMonthlyBalance, error)
	WorkerClientsBalance(ctx context.Context, workerID generic.WorkerID, year, month int) ([]WorkerClientBalance, error)
}

// Recorder observes fail-soft events. Optional.
type Recorder interface {
	DegradedBalance(reason string)
}

// =============================================================================
// RESULTS
// =============================================================================

// UserMonthlyBalance is the balance of one client for one month.
type UserMonthlyBalance struct {
	UserID                  generic.ClientID `json:"userId"`
	Year                    int              `json:"year"`
	Month                   int              `json:"month"`
	AssignedMonthlyHours    decimal.Decimal  `json:"assignedMonthlyHours"`
	TheoreticalMonthlyHours decimal.Decimal  `json:"theoreticalMonthlyHours"`
	LaborablesMonthlyHours  decimal.Decimal  `json:"laborablesMonthlyHours"`
	HolidaysMonthlyHours    decimal.Decimal  `json:"holidaysMonthlyHours"`
	Difference              decimal.Decimal  `json:"difference"`

	// Degraded is set when a fetch failed and theoretical hours are unknown.
	Degraded bool `json:"degraded,omitempty"`
}

// WorkerClientBalance is one row of a worker's monthly report.
type WorkerClientBalance struct {
	UserID               generic.ClientID `json:"userId"`
	UserName             string           `json:"userName"`
	AssignedMonthlyHours decimal.Decimal  `json:"assignedMonthlyHours"`
	LaborablesHours      decimal.Decimal  `json:"laborablesHours"`
	HolidaysHours        decimal.Decimal  `json:"holidaysHours"`
	TotalHours           decimal.Decimal  `json:"totalHours"`
	Difference           decimal.Decimal  `json:"difference"`
	Degraded             bool             `json:"degraded,omitempty"`
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options tunes the aggregator. The zero value reproduces the historical
// monthly totals.
type Options struct {
	// IncludeAlwaysApplicable counts flexible, completa and personalizada
	// assignments in the monthly totals. Off by default: the month walk only
	// recognizes laborables and festivos, even though daily views show the
	// other types every day.
	IncludeAlwaysApplicable bool

	// Concurrency caps parallel client balances in a worker report.
	Concurrency int

	// Locale drives the report's name ordering (BCP 47, e.g. "es").
	Locale string
}

const (
	DefaultConcurrency = 4
	DefaultLocale      = "es"
)

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	return o
}

package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes monthly balances. It holds no per-call state and is
// safe for concurrent use.
type Aggregator struct {
	source   Source
	resolver schedule.SlotResolver
	opts     Options
	logger   *zap.Logger
	recorder Recorder
}

var _ Service = (*Aggregator)(nil)

// NewAggregator wires an aggregator. logger may be nil.
func NewAggregator(source Source, opts Options, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		source:   source,
		resolver: schedule.Resolver{},
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// WithRecorder attaches a fail-soft observer (metrics).
func (a *Aggregator) WithRecorder(r Recorder) *Aggregator {
	a.recorder = r
	return a
}

// Options returns the effective options.
func (a *Aggregator) Options() Options { return a.opts }

// =============================================================================
// MONTHLY BALANCE
// =============================================================================

// MonthlyBalance computes one client's balance for year/month.
//
// Returns (nil, nil) when the client has no profile. Fetch failures and
// cancellation produce a degraded balance, never an error; the only error is
// an invalid month.
func (a *Aggregator) MonthlyBalance(ctx context.Context, userID generic.ClientID, year, month int) (*UserMonthlyBalance, error) {
	if err := generic.ValidMonth(year, month); err != nil {
		return nil, err
	}
	b, _ := a.monthlyBalance(ctx, userID, year, time.Month(month))
	return b, nil
}

// monthlyBalance also returns the profile so the worker report can name rows
// without a second fetch.
func (a *Aggregator) monthlyBalance(ctx context.Context, userID generic.ClientID, year int, month time.Month) (*UserMonthlyBalance, *ClientProfile) {
	log := a.logger.With(
		zap.String("user_id", string(userID)),
		zap.Int("year", year),
		zap.Int("month", int(month)),
	)

	profile, err := a.source.ClientProfile(ctx, userID)
	if err != nil {
		log.Warn("client profile fetch failed, returning degraded balance", zap.Error(err))
		a.degraded("profile")
		p := &ClientProfile{UserID: userID, MonthlyAssignedHours: decimal.Zero}
		return degradedBalance(userID, year, month, p.MonthlyAssignedHours), p
	}
	if profile == nil {
		log.Debug("client has no profile")
		return nil, nil
	}
	assigned := profile.MonthlyAssignedHours

	holidays, err := a.source.Holidays(ctx, year, month)
	if err != nil {
		log.Warn("holiday fetch failed, returning degraded balance", zap.Error(err))
		a.degraded("holidays")
		return degradedBalance(userID, year, month, assigned), profile
	}

	period := generic.MonthPeriod(year, month)
	assignments, err := a.source.ClientAssignments(ctx, userID, period)
	if err != nil {
		log.Warn("assignment fetch failed, returning degraded balance", zap.Error(err))
		a.degraded("assignments")
		return degradedBalance(userID, year, month, assigned), profile
	}
	if err := ctx.Err(); err != nil {
		log.Warn("balance canceled, returning degraded balance", zap.Error(err))
		a.degraded("canceled")
		return degradedBalance(userID, year, month, assigned), profile
	}

	holidaySet := generic.NewHolidaySet(holidays)
	laborables, festivos := a.walkMonth(period, holidaySet, assignments)
	theoretical := laborables.Add(festivos)

	log.Debug("monthly balance computed",
		zap.Int("assignments", len(assignments)),
		zap.Int("holidays", holidaySet.Len()),
		zap.String("theoretical", theoretical.String()),
	)

	return &UserMonthlyBalance{
		UserID:                  userID,
		Year:                    year,
		Month:                   int(month),
		AssignedMonthlyHours:    assigned,
		TheoreticalMonthlyHours: theoretical,
		LaborablesMonthlyHours:  laborables,
		HolidaysMonthlyHours:    festivos,
		Difference:              theoretical.Sub(assigned),
	}, profile
}

// walkMonth visits every day of the period and every assignment active on
// it. Profiles are computed once per assignment, not once per day. Totals
// are kept as tallies and converted to hours once at the end.
func (a *Aggregator) walkMonth(period generic.Period, holidays generic.HolidaySet, assignments []schedule.Assignment) (laborables, festivos decimal.Decimal) {
	var lab, fest schedule.Tally

	profiles := make([]schedule.HoursProfile, len(assignments))
	for i, as := range assignments {
		profiles[i] = schedule.HoursProfileOf(as.Schedule)
	}

	for _, day := range period.Days() {
		holidayCtx := schedule.IsHolidayContext(day, holidays)
		weekday := day.Weekday()

		for i, as := range assignments {
			if !as.IsActiveOn(day) {
				continue
			}
			switch as.Type {
			case schedule.TypeLaborables:
				if !holidayCtx && weekday >= time.Monday && weekday <= time.Friday {
					lab = lab.Add(profiles[i].Day(weekday))
				}
			case schedule.TypeFestivos:
				if holidayCtx {
					fest = fest.Add(profiles[i].Holiday)
				}
			default:
				if !a.opts.IncludeAlwaysApplicable || !as.Type.AlwaysApplicable() {
					continue
				}
				t := schedule.TallyOf(a.resolver.Applicable(as.Schedule, as.Type, day, holidayCtx))
				if holidayCtx {
					fest = fest.Add(t)
				} else {
					lab = lab.Add(t)
				}
			}
		}
	}
	return lab.Hours(), fest.Hours()
}

func (a *Aggregator) degraded(reason string) {
	if a.recorder != nil {
		a.recorder.DegradedBalance(reason)
	}
}

func degradedBalance(userID generic.ClientID, year int, month time.Month, assigned decimal.Decimal) *UserMonthlyBalance {
	return &UserMonthlyBalance{
		UserID:                  userID,
		Year:                    year,
		Month:                   int(month),
		AssignedMonthlyHours:    assigned,
		TheoreticalMonthlyHours: decimal.Zero,
		LaborablesMonthlyHours:  decimal.Zero,
		HolidaysMonthlyHours:    decimal.Zero,
		Difference:              assigned.Neg(),
		Degraded:                true,
	}
}

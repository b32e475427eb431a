package balance

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/warp/care-hours/generic"
)

// =============================================================================
// WORKER REPORT
// =============================================================================

// WorkerClientsBalance lists, for every distinct client the worker is
// assigned to during the month, that client's monthly balance. Rows are
// sorted by "{name} {surname}" using the configured locale.
//
// Client balances are computed concurrently (bounded by
// Options.Concurrency); order comes from the final sort only. Clients
// without a profile are left out. A failure listing the worker's clients
// yields an empty report.
func (a *Aggregator) WorkerClientsBalance(ctx context.Context, workerID generic.WorkerID, year, month int) ([]WorkerClientBalance, error) {
	if err := generic.ValidMonth(year, month); err != nil {
		return nil, err
	}
	log := a.logger.With(zap.String("worker_id", string(workerID)), zap.Int("year", year), zap.Int("month", month))

	period := generic.MonthPeriod(year, time.Month(month))
	clientIDs, err := a.source.WorkerClients(ctx, workerID, period)
	if err != nil {
		log.Warn("worker client listing failed, returning empty report", zap.Error(err))
		a.degraded("worker_clients")
		return []WorkerClientBalance{}, nil
	}
	clientIDs = distinct(clientIDs)

	type result struct {
		row  WorkerClientBalance
		name string
		ok   bool
	}
	results := make([]result, len(clientIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, id := range clientIDs {
		i, id := i, id
		g.Go(func() error {
			b, profile := a.monthlyBalance(gctx, id, year, time.Month(month))
			if b == nil {
				return nil
			}
			name := profile.DisplayName()
			results[i] = result{
				name: name,
				ok:   true,
				row: WorkerClientBalance{
					UserID:               b.UserID,
					UserName:             name,
					AssignedMonthlyHours: b.AssignedMonthlyHours,
					LaborablesHours:      b.LaborablesMonthlyHours,
					HolidaysHours:        b.HolidaysMonthlyHours,
					TotalHours:           b.TheoreticalMonthlyHours,
					Difference:           b.Difference,
					Degraded:             b.Degraded,
				},
			}
			return nil
		})
	}
	// Goroutines never return errors; balances degrade instead.
	_ = g.Wait()

	rows := make([]WorkerClientBalance, 0, len(results))
	for _, r := range results {
		if r.ok {
			rows = append(rows, r.row)
		}
	}
	a.sortByName(rows)

	log.Debug("worker report computed", zap.Int("clients", len(clientIDs)), zap.Int("rows", len(rows)))
	return rows, nil
}

// sortByName orders rows by display name with locale-aware collation. Ties
// break on user ID so the output is stable across runs.
func (a *Aggregator) sortByName(rows []WorkerClientBalance) {
	tag, err := language.Parse(a.opts.Locale)
	if err != nil {
		tag = language.Spanish
	}
	// Collators are not safe for concurrent use; one per call.
	c := collate.New(tag, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool {
		if cmp := c.CompareString(rows[i].UserName, rows[j].UserName); cmp != 0 {
			return cmp < 0
		}
		return rows[i].UserID < rows[j].UserID
	})
}

func distinct(ids []generic.ClientID) []generic.ClientID {
	seen := make(map[generic.ClientID]struct{}, len(ids))
	out := make([]generic.ClientID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

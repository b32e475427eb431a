/*
scheduler.go - Automated monthly report scheduler

PURPOSE:
  Once a month has closed, computes every active worker's report for it
  and hands the clients whose schedule falls short of their contracted
  hours (difference < 0) to a Notifier.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Targets the previous calendar month
  - Skips workers whose month was already reported
  - Records report runs for audit and UI display
  - A report with degraded rows is recorded as failed and retried on the
    next tick instead of notifying on incomplete numbers

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active

USAGE:
  scheduler := NewReportScheduler(store, balances, notifier, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerReports endpoint (manual run)
  - balance/worker.go: WorkerClientsBalance
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/store/sqlite"
)

// =============================================================================
// NOTIFIER
// =============================================================================

// ShortfallNotice lists the clients of one worker whose theoretical hours
// were below their contracted hours for the month.
type ShortfallNotice struct {
	WorkerID generic.WorkerID
	Year     int
	Month    int
	Clients  []balance.WorkerClientBalance
}

// Notifier delivers shortfall notices. Injected so deployments can plug in
// mail or chat delivery.
type Notifier interface {
	Notify(ctx context.Context, n ShortfallNotice) error
}

// LogNotifier writes notices to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notice ShortfallNotice) error {
	for _, c := range notice.Clients {
		n.Logger.Warn("client below contracted hours",
			zap.String("worker_id", string(notice.WorkerID)),
			zap.Int("year", notice.Year),
			zap.Int("month", notice.Month),
			zap.String("user_id", string(c.UserID)),
			zap.String("user_name", c.UserName),
			zap.String("difference", c.Difference.String()),
		)
	}
	return nil
}

// =============================================================================
// SCHEDULER
// =============================================================================

// ReportScheduler handles the monthly report runs.
type ReportScheduler struct {
	Store         *sqlite.Store
	Balances      balance.Service
	Notifier      Notifier
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex

	// tick bookkeeping for NextRunTime
	stateMu  sync.Mutex
	running  bool
	lastTick time.Time
}

// RunSummary is what one pass did.
type RunSummary struct {
	Year      int `json:"year"`
	Month     int `json:"month"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// NewReportScheduler creates a new scheduler.
func NewReportScheduler(store *sqlite.Store, balances balance.Service, notifier Notifier, logger *zap.Logger) *ReportScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &ReportScheduler{
		Store:         store,
		Balances:      balances,
		Notifier:      notifier,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
	}
}

// Start begins the scheduler.
func (rs *ReportScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("report scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	// Stop closes this channel; each start gets its own.
	rs.stop = make(chan struct{})
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.setRunning(true)
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.Logger.Info("report scheduler started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (rs *ReportScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.setRunning(false)
		rs.Logger.Info("report scheduler stopped")
	}
}

func (rs *ReportScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	rs.markTick()
	rs.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			rs.markTick()
			rs.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow processes the previous month for every active worker.
func (rs *ReportScheduler) RunNow(ctx context.Context) RunSummary {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	today := generic.DateOf(rs.now())
	prev := generic.StartOfMonth(today.Year(), today.Month()).AddDays(-1)
	year, month := prev.Year(), int(prev.Month())
	period := generic.MonthPeriod(year, prev.Month())
	summary := RunSummary{Year: year, Month: month}

	log := rs.Logger.With(zap.Int("year", year), zap.Int("month", month))
	log.Debug("checking worker reports")

	workers, err := rs.Store.ListWorkerIDs(ctx, period)
	if err != nil {
		log.Error("listing workers failed", zap.Error(err))
		return summary
	}

	for _, workerID := range workers {
		if ctx.Err() != nil {
			break
		}

		done, err := rs.Store.IsReportComplete(ctx, workerID, year, month)
		if err != nil {
			log.Error("checking report status failed", zap.String("worker_id", string(workerID)), zap.Error(err))
			summary.Failed++
			continue
		}
		if done {
			summary.Skipped++
			continue
		}

		if err := rs.processWorker(ctx, workerID, year, month); err != nil {
			log.Warn("worker report failed", zap.String("worker_id", string(workerID)), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Processed++
	}

	if summary.Processed > 0 || summary.Failed > 0 {
		log.Info("worker reports completed",
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)
	}
	return summary
}

func (rs *ReportScheduler) processWorker(ctx context.Context, workerID generic.WorkerID, year, month int) error {
	startTime := rs.now()

	run := sqlite.ReportRun{
		ID:        uuid.NewString(),
		WorkerID:  workerID,
		Year:      year,
		Month:     month,
		Status:    "running",
		StartedAt: &startTime,
		CreatedAt: startTime,
	}
	if err := rs.Store.SaveReportRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	fail := func(err error) error {
		run.Status = "failed"
		run.Error = err.Error()
		if saveErr := rs.Store.SaveReportRun(ctx, run); saveErr != nil {
			rs.Logger.Error("failed to record failed run", zap.String("run_id", run.ID), zap.Error(saveErr))
		}
		return err
	}

	rows, err := rs.Balances.WorkerClientsBalance(ctx, workerID, year, month)
	if err != nil {
		return fail(err)
	}
	run.Clients = len(rows)

	var short []balance.WorkerClientBalance
	for _, row := range rows {
		if row.Degraded {
			return fail(fmt.Errorf("client %s: balance degraded", row.UserID))
		}
		if row.Difference.IsNegative() {
			short = append(short, row)
		}
	}
	run.Shortfalls = len(short)

	if len(short) > 0 {
		notice := ShortfallNotice{WorkerID: workerID, Year: year, Month: month, Clients: short}
		if err := rs.Notifier.Notify(ctx, notice); err != nil {
			return fail(fmt.Errorf("notify: %w", err))
		}
	}

	completed := rs.now()
	run.Status = "completed"
	run.CompletedAt = &completed
	if err := rs.Store.SaveReportRun(ctx, run); err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}
	return nil
}

// NextRunTime returns when the next scheduled pass will start. ok is false
// when the scheduler is not running. Manual RunNow calls don't move it.
func (rs *ReportScheduler) NextRunTime() (next time.Time, ok bool) {
	rs.stateMu.Lock()
	defer rs.stateMu.Unlock()

	if !rs.running {
		return time.Time{}, false
	}
	if rs.lastTick.IsZero() {
		return rs.now(), true
	}
	return rs.lastTick.Add(rs.CheckInterval), true
}

func (rs *ReportScheduler) markTick() {
	rs.stateMu.Lock()
	defer rs.stateMu.Unlock()
	rs.lastTick = rs.now()
}

func (rs *ReportScheduler) setRunning(running bool) {
	rs.stateMu.Lock()
	defer rs.stateMu.Unlock()
	rs.running = running
	if !running {
		rs.lastTick = time.Time{}
	}
}

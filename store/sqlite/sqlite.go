/*
Package sqlite provides a SQLite-backed implementation of the balance data source.

PURPOSE:
  Persists clients, assignments (with their raw schedule JSON) and the
  holiday calendar, and serves them to the balance aggregator through the
  balance.Source interface. Also records worker report runs so the
  scheduler does not notify twice for the same month.

INTERFACES IMPLEMENTED:
  balance.Source: ClientProfile, Holidays, ClientAssignments, WorkerClients

KEY TABLES:
  clients:     Client profile and contracted monthly hours (decimal as TEXT)
  assignments: Worker-client link, type, schedule blob, date range, status
  holidays:    Calendar records as {day, month, year}
  report_runs: One row per worker and month processed by the scheduler

SCHEDULE STORAGE:
  The schedule column holds the JSON blob exactly as it was submitted.
  It is parsed on read with schedule.Parse, so a malformed blob degrades to
  an empty schedule instead of failing the query. Rows whose dates cannot
  be read are skipped.

DATES:
  Dates are stored as "YYYY-MM-DD" so range filters compare as strings.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:
  store, err := sqlite.New("./data/care-hours.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  agg := balance.NewAggregator(store, balance.Options{}, logger)

SEE ALSO:
  - balance/types.go: Source interface
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
)

// Store implements balance.Source using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ balance.Source = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each ":memory:" connection is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection for the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Clients
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		surname TEXT NOT NULL DEFAULT '',
		monthly_assigned_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Assignments (worker x client x schedule)
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		assignment_type TEXT NOT NULL,
		schedule TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		worker_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_user
		ON assignments(user_id, status, start_date);
	CREATE INDEX IF NOT EXISTS idx_assignments_worker
		ON assignments(worker_id, status, start_date);

	-- Holiday calendar
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(year, month, day);

	-- Scheduler bookkeeping
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		clients INTEGER DEFAULT 0,
		shortfalls INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_report_runs_unique
		ON report_runs(worker_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_report_runs_status
		ON report_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENTS
// =============================================================================

// SaveClient inserts or updates a client profile.
func (s *Store) SaveClient(ctx context.Context, c balance.ClientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO clients (id, name, surname, monthly_assigned_hours, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			surname = excluded.surname,
			monthly_assigned_hours = excluded.monthly_assigned_hours
	`

	_, err := s.db.ExecContext(ctx, query,
		string(c.UserID), c.Name, c.Surname,
		c.MonthlyAssignedHours.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// ClientProfile returns nil, nil when the client does not exist.
func (s *Store) ClientProfile(ctx context.Context, id generic.ClientID) (*balance.ClientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p balance.ClientProfile
	var userID, hours string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, surname, monthly_assigned_hours FROM clients WHERE id = ?",
		string(id),
	).Scan(&userID, &p.Name, &p.Surname, &hours)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.UserID = generic.ClientID(userID)
	p.MonthlyAssignedHours = parseHours(hours)
	return &p, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]balance.ClientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, surname, monthly_assigned_hours FROM clients ORDER BY name, surname, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []balance.ClientProfile
	for rows.Next() {
		var p balance.ClientProfile
		var userID, hours string
		if err := rows.Scan(&userID, &p.Name, &p.Surname, &hours); err != nil {
			return nil, err
		}
		p.UserID = generic.ClientID(userID)
		p.MonthlyAssignedHours = parseHours(hours)
		clients = append(clients, p)
	}
	return clients, rows.Err()
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// SaveAssignment inserts or updates an assignment row. The schedule blob is
// stored verbatim.
func (s *Store) SaveAssignment(ctx context.Context, r schedule.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO assignments (id, assignment_type, schedule, start_date, end_date,
			status, worker_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			assignment_type = excluded.assignment_type,
			schedule = excluded.schedule,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status,
			worker_id = excluded.worker_id,
			user_id = excluded.user_id
	`

	var endDate sql.NullString
	if r.EndDate != nil {
		endDate = nullString(*r.EndDate)
	}
	status := strings.ToLower(strings.TrimSpace(r.Status))
	if status == "" {
		status = schedule.StatusActive
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.AssignmentType, nullString(string(r.Schedule)),
		r.StartDate, endDate, status,
		r.WorkerID, r.UserID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// GetAssignment returns generic.ErrNotFound when the row does not exist.
func (s *Store) GetAssignment(ctx context.Context, id generic.AssignmentID) (*schedule.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectAssignments+" WHERE id = ?", string(id))
	r, err := scanAssignmentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	a, err := schedule.FromRow(r)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ClientAssignments returns the client's active assignments, for any worker,
// overlapping the period.
func (s *Store) ClientAssignments(ctx context.Context, id generic.ClientID, period generic.Period) ([]schedule.Assignment, error) {
	return s.queryActive(ctx, "user_id = ?", string(id), period)
}

// WorkerClients returns the distinct clients of the worker's active
// assignments overlapping the period.
func (s *Store) WorkerClients(ctx context.Context, id generic.WorkerID, period generic.Period) ([]generic.ClientID, error) {
	assignments, err := s.queryActive(ctx, "worker_id = ?", string(id), period)
	if err != nil {
		return nil, err
	}

	seen := make(map[generic.ClientID]bool)
	var clients []generic.ClientID
	for _, a := range assignments {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			clients = append(clients, a.UserID)
		}
	}
	return clients, nil
}

// ListWorkerIDs returns every worker with an active assignment overlapping
// the period. Used by the report scheduler.
func (s *Store) ListWorkerIDs(ctx context.Context, period generic.Period) ([]generic.WorkerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT DISTINCT worker_id FROM assignments
		WHERE LOWER(TRIM(status)) = 'active'
		  AND substr(start_date, 1, 10) <= ?
		  AND (end_date IS NULL OR end_date = '' OR substr(end_date, 1, 10) >= ?)
		ORDER BY worker_id
	`

	rows, err := s.db.QueryContext(ctx, query, period.End.String(), period.Start.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []generic.WorkerID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		workers = append(workers, generic.WorkerID(id))
	}
	return workers, rows.Err()
}

const selectAssignments = `
	SELECT id, assignment_type, schedule, start_date, end_date, status, worker_id, user_id
	FROM assignments`

// queryActive runs the period-overlap query with one extra filter column.
// The SQL bounds are a prefilter; Overlaps is re-checked after parsing
// because stored dates may carry a time suffix.
func (s *Store) queryActive(ctx context.Context, filter string, arg string, period generic.Period) ([]schedule.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectAssignments + `
		WHERE ` + filter + `
		  AND LOWER(TRIM(status)) = 'active'
		  AND substr(start_date, 1, 10) <= ?
		  AND (end_date IS NULL OR end_date = '' OR substr(end_date, 1, 10) >= ?)
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, arg, period.End.String(), period.Start.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Assignment
	for rows.Next() {
		r, err := scanAssignmentRow(rows)
		if err != nil {
			return nil, err
		}
		a, err := schedule.FromRow(r)
		if err != nil {
			// Unreadable dates: the row can never be placed on the calendar.
			continue
		}
		if a.Overlaps(period) {
			out = append(out, a)
		}
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignmentRow(row scanner) (schedule.Row, error) {
	var r schedule.Row
	var blob, endDate sql.NullString
	if err := row.Scan(&r.ID, &r.AssignmentType, &blob, &r.StartDate, &endDate, &r.Status, &r.WorkerID, &r.UserID); err != nil {
		return schedule.Row{}, err
	}
	if blob.Valid {
		r.Schedule = []byte(blob.String)
	}
	if endDate.Valid {
		e := endDate.String
		r.EndDate = &e
	}
	return r, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a stored calendar entry.
type Holiday struct {
	ID string
	generic.HolidayRecord
	Name string
}

// SaveHoliday inserts a holiday, or renames the existing one for that date.
func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	if !h.Valid() {
		return fmt.Errorf("holiday %04d-%02d-%02d: %w", h.Year, h.Month, h.Day, generic.ErrInvalidDate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, day, month, year, name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(year, month, day) DO UPDATE SET
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Day, h.Month, h.Year, h.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns the calendar entries of one month, by day.
func (s *Store) ListHolidays(ctx context.Context, year int, month time.Month) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, day, month, year, name FROM holidays WHERE year = ? AND month = ? ORDER BY day",
		year, int(month),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Day, &h.Month, &h.Year, &h.Name); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// Holidays implements balance.Source.
func (s *Store) Holidays(ctx context.Context, year int, month time.Month) ([]generic.HolidayRecord, error) {
	holidays, err := s.ListHolidays(ctx, year, month)
	if err != nil {
		return nil, err
	}
	records := make([]generic.HolidayRecord, len(holidays))
	for i, h := range holidays {
		records[i] = h.HolidayRecord
	}
	return records, nil
}

// =============================================================================
// REPORT RUNS (scheduler bookkeeping)
// =============================================================================

// ReportRun is one scheduler pass over a worker's monthly report.
type ReportRun struct {
	ID          string
	WorkerID    generic.WorkerID
	Year        int
	Month       int
	Status      string // running, completed, failed
	Clients     int
	Shortfalls  int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SaveReportRun saves a report run, replacing the previous one for the same
// worker and month.
func (s *Store) SaveReportRun(ctx context.Context, r ReportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO report_runs (id, worker_id, year, month, status, clients, shortfalls,
			error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(worker_id, year, month) DO UPDATE SET
			status = excluded.status,
			clients = excluded.clients,
			shortfalls = excluded.shortfalls,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.WorkerID), r.Year, r.Month, r.Status,
		r.Clients, r.Shortfalls, nullString(r.Error),
		formatTime(r.StartedAt), formatTime(r.CompletedAt),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetReportRuns returns report runs, newest first. An empty status returns
// every run.
func (s *Store) GetReportRuns(ctx context.Context, status string) ([]ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, worker_id, year, month, status, clients, shortfalls,
			error, started_at, completed_at, created_at
		FROM report_runs`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		var r ReportRun
		var workerID string
		var runErr, startedAt, completedAt, createdAt sql.NullString
		if err := rows.Scan(
			&r.ID, &workerID, &r.Year, &r.Month, &r.Status, &r.Clients, &r.Shortfalls,
			&runErr, &startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		r.WorkerID = generic.WorkerID(workerID)
		r.Error = runErr.String
		r.StartedAt = parseTime(startedAt)
		r.CompletedAt = parseTime(completedAt)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsReportComplete checks whether the worker's month was already reported.
func (s *Store) IsReportComplete(ctx context.Context, workerID generic.WorkerID, year, month int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM report_runs
		WHERE worker_id = ? AND year = ? AND month = ? AND status = 'completed'
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, string(workerID), year, month).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for testing/demos).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"report_runs", "holidays", "assignments", "clients"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseHours reads a stored decimal. Unreadable values count as zero.
func parseHours(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

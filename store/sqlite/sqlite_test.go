package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

var february = generic.MonthPeriod(2026, time.February)

func TestStore_ClientRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveClient(ctx, balance.ClientProfile{
		UserID: "c-1", Name: "Carmen", Surname: "Ortega",
		MonthlyAssignedHours: decimal.RequireFromString("120.5"),
	}))

	p, err := s.ClientProfile(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Carmen Ortega", p.DisplayName())
	assert.True(t, p.MonthlyAssignedHours.Equal(decimal.RequireFromString("120.5")))

	// Upsert replaces the contracted hours
	require.NoError(t, s.SaveClient(ctx, balance.ClientProfile{
		UserID: "c-1", Name: "Carmen", Surname: "Ortega",
		MonthlyAssignedHours: decimal.NewFromInt(90),
	}))
	p, err = s.ClientProfile(ctx, "c-1")
	require.NoError(t, err)
	assert.True(t, p.MonthlyAssignedHours.Equal(decimal.NewFromInt(90)))

	clients, err := s.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

func TestStore_MissingClientIsNil(t *testing.T) {
	s := newTestStore(t)

	p, err := s.ClientProfile(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_AssignmentScheduleParsedOnRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAssignment(ctx, schedule.Row{
		ID:             "a-1",
		AssignmentType: "Laborables",
		Schedule:       json.RawMessage(`{"monday":{"enabled":true,"timeSlots":[{"start":"09:00","end":"13:00"}]}}`),
		StartDate:      "2026-01-01",
		Status:         "active",
		WorkerID:       "w-1",
		UserID:         "c-1",
	}))

	a, err := s.GetAssignment(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, schedule.TypeLaborables, a.Type)
	require.NotNil(t, a.Schedule.Monday)
	assert.Len(t, a.Schedule.Monday.TimeSlots, 1)
	assert.Nil(t, a.EndDate)
}

func TestStore_MalformedScheduleReadsAsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAssignment(ctx, schedule.Row{
		ID: "a-1", AssignmentType: "laborables", Schedule: json.RawMessage(`{"monday":`),
		StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-1",
	}))

	as, err := s.ClientAssignments(ctx, "c-1", february)
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.True(t, schedule.HoursProfileOf(as[0].Schedule).On(time.Monday).IsZero())
}

func TestStore_GetAssignmentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAssignment(context.Background(), "missing")

	assert.True(t, generic.IsNotFound(err))
}

func TestStore_ClientAssignmentsFiltersPeriodAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []schedule.Row{
		{ID: "a-in", AssignmentType: "laborables", StartDate: "2026-01-15", Status: "active", WorkerID: "w-1", UserID: "c-1"},
		{ID: "a-ends-inside", AssignmentType: "festivos", StartDate: "2025-06-01", EndDate: strPtr("2026-02-10"), Status: "ACTIVE", WorkerID: "w-2", UserID: "c-1"},
		{ID: "a-ended", AssignmentType: "laborables", StartDate: "2025-01-01", EndDate: strPtr("2026-01-31"), Status: "active", WorkerID: "w-1", UserID: "c-1"},
		{ID: "a-future", AssignmentType: "laborables", StartDate: "2026-03-01", Status: "active", WorkerID: "w-1", UserID: "c-1"},
		{ID: "a-inactive", AssignmentType: "laborables", StartDate: "2026-01-01", Status: "inactive", WorkerID: "w-1", UserID: "c-1"},
		{ID: "a-other", AssignmentType: "laborables", StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-2"},
		{ID: "a-timestamp", AssignmentType: "flexible", StartDate: "2026-02-28T10:00:00Z", Status: "active", WorkerID: "w-3", UserID: "c-1"},
	}
	for _, r := range rows {
		require.NoError(t, s.SaveAssignment(ctx, r))
	}

	as, err := s.ClientAssignments(ctx, "c-1", february)

	require.NoError(t, err)
	var ids []generic.AssignmentID
	for _, a := range as {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []generic.AssignmentID{"a-ends-inside", "a-in", "a-timestamp"}, ids)
}

func TestStore_WorkerClientsDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, r := range []schedule.Row{
		{ID: "a-1", AssignmentType: "laborables", StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-2"},
		{ID: "a-2", AssignmentType: "festivos", StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-2"},
		{ID: "a-3", AssignmentType: "laborables", StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-1"},
		{ID: "a-4", AssignmentType: "laborables", StartDate: "2026-01-01", Status: "active", WorkerID: "w-2", UserID: "c-3"},
	} {
		require.NoError(t, s.SaveAssignment(ctx, r))
	}

	clients, err := s.WorkerClients(ctx, "w-1", february)
	require.NoError(t, err)
	assert.ElementsMatch(t, []generic.ClientID{"c-1", "c-2"}, clients)

	workers, err := s.ListWorkerIDs(ctx, february)
	require.NoError(t, err)
	assert.Equal(t, []generic.WorkerID{"w-1", "w-2"}, workers)
}

func TestStore_PaddedStatusCountsAsActive(t *testing.T) {
	// GIVEN: a row written by another system with a padded status
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, assignment_type, start_date, status, worker_id, user_id, created_at)
		VALUES ('a-raw', 'laborables', '2026-01-01', ' Active ', 'w-1', 'c-1', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	// AND: one saved through the store with trailing space
	require.NoError(t, s.SaveAssignment(ctx, schedule.Row{
		ID: "a-saved", AssignmentType: "festivos", StartDate: "2026-01-01", Status: "Active ", WorkerID: "w-2", UserID: "c-1",
	}))

	// WHEN
	as, err := s.ClientAssignments(ctx, "c-1", february)

	// THEN: both are active
	require.NoError(t, err)
	require.Len(t, as, 2)
	for _, a := range as {
		assert.Equal(t, schedule.StatusActive, a.Status)
	}

	clients, err := s.WorkerClients(ctx, "w-1", february)
	require.NoError(t, err)
	assert.Equal(t, []generic.ClientID{"c-1"}, clients)

	workers, err := s.ListWorkerIDs(ctx, february)
	require.NoError(t, err)
	assert.Equal(t, []generic.WorkerID{"w-1", "w-2"}, workers)

	// AND: the store writes the normalized value
	var stored string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT status FROM assignments WHERE id = 'a-saved'`).Scan(&stored))
	assert.Equal(t, "active", stored)
}

func TestStore_Holidays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHoliday(ctx, Holiday{ID: "h-1", HolidayRecord: generic.HolidayRecord{Day: 4, Month: 2, Year: 2026}, Name: "Fiesta local"}))
	require.NoError(t, s.SaveHoliday(ctx, Holiday{ID: "h-2", HolidayRecord: generic.HolidayRecord{Day: 1, Month: 3, Year: 2026}}))

	// Same date again renames instead of duplicating
	require.NoError(t, s.SaveHoliday(ctx, Holiday{ID: "h-3", HolidayRecord: generic.HolidayRecord{Day: 4, Month: 2, Year: 2026}, Name: "Renamed"}))

	recs, err := s.Holidays(ctx, 2026, time.February)
	require.NoError(t, err)
	assert.Equal(t, []generic.HolidayRecord{{Day: 4, Month: 2, Year: 2026}}, recs)

	list, err := s.ListHolidays(ctx, 2026, time.February)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)
}

func TestStore_SaveHolidayRejectsImpossibleDate(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveHoliday(context.Background(), Holiday{ID: "h-1", HolidayRecord: generic.HolidayRecord{Day: 30, Month: 2, Year: 2026}})

	assert.ErrorIs(t, err, generic.ErrInvalidDate)
}

func TestStore_ReportRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	done, err := s.IsReportComplete(ctx, "w-1", 2026, 2)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.SaveReportRun(ctx, ReportRun{
		ID: "r-1", WorkerID: "w-1", Year: 2026, Month: 2, Status: "completed",
		Clients: 3, Shortfalls: 1, CompletedAt: &now, CreatedAt: now,
	}))

	done, err = s.IsReportComplete(ctx, "w-1", 2026, 2)
	require.NoError(t, err)
	assert.True(t, done)

	runs, err := s.GetReportRuns(ctx, "completed")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Clients)
	assert.NotNil(t, runs[0].CompletedAt)
	assert.Nil(t, runs[0].StartedAt)
}

func TestStore_FeedsAggregator(t *testing.T) {
	// GIVEN: the February fixture stored in SQLite
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveClient(ctx, balance.ClientProfile{UserID: "c-1", Name: "Carmen", MonthlyAssignedHours: decimal.NewFromInt(180)}))
	require.NoError(t, s.SaveAssignment(ctx, schedule.Row{
		ID: "a-1", AssignmentType: "laborables", StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-1",
		Schedule: json.RawMessage(`{"weekdayHours":{"monday":4,"tuesday":4,"wednesday":4,"thursday":4,"friday":4}}`),
	}))
	require.NoError(t, s.SaveAssignment(ctx, schedule.Row{
		ID: "a-2", AssignmentType: "festivos", StartDate: "2026-01-01", Status: "active", WorkerID: "w-2", UserID: "c-1",
		Schedule: json.RawMessage(`{"holidayHoursPerDay":6}`),
	}))

	// WHEN
	b, err := balance.NewAggregator(s, balance.Options{}, nil).MonthlyBalance(ctx, "c-1", 2026, 2)

	// THEN
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.TheoreticalMonthlyHours.Equal(decimal.NewFromInt(128)))
	assert.True(t, b.Difference.Equal(decimal.NewFromInt(-52)))
}

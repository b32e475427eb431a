/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Client balance and worker report endpoints
- Daily slot view with live status
- Strict validation on writes
- Cache purge and metrics wiring
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/schedule"
	"github.com/warp/care-hours/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	weekdayMornings = `{
		"monday":{"timeSlots":[{"start":"09:00","end":"13:00"}]},
		"tuesday":{"timeSlots":[{"start":"09:00","end":"13:00"}]},
		"wednesday":{"timeSlots":[{"start":"09:00","end":"13:00"}]},
		"thursday":{"timeSlots":[{"start":"09:00","end":"13:00"}]},
		"friday":{"timeSlots":[{"start":"09:00","end":"13:00"}]}
	}`
	sixHourHolidays = `{"holiday":{"enabled":true,"timeSlots":[{"start":"08:00","end":"14:00"}]}}`
)

type fixture struct {
	store   *sqlite.Store
	handler *Handler
	router  http.Handler
	metrics *Metrics
	purges  *countingPurger
}

type countingPurger struct{ calls int }

func (p *countingPurger) Purge(ctx context.Context) error {
	p.calls++
	return nil
}

// newFixture seeds February 2026: client c-1 contracted for 180h, served by
// w-1 on weekdays (4h) and w-2 on holidays (6h).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveClient(ctx, balance.ClientProfile{
		UserID: "c-1", Name: "Carmen", Surname: "Ortega", MonthlyAssignedHours: decimal.NewFromInt(180),
	}))
	require.NoError(t, store.SaveAssignment(ctx, schedule.Row{
		ID: "a-1", AssignmentType: "laborables", Schedule: json.RawMessage(weekdayMornings),
		StartDate: "2026-01-01", Status: "active", WorkerID: "w-1", UserID: "c-1",
	}))
	require.NoError(t, store.SaveAssignment(ctx, schedule.Row{
		ID: "a-2", AssignmentType: "festivos", Schedule: json.RawMessage(sixHourHolidays),
		StartDate: "2026-01-01", Status: "active", WorkerID: "w-2", UserID: "c-1",
	}))

	metrics := NewMetrics()
	agg := balance.NewAggregator(store, balance.Options{}, nil).WithRecorder(metrics)
	h := NewHandler(store, agg, nil)
	// Monday Feb 2 2026, 10:00 UTC
	h.now = func() time.Time { return time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC) }
	purges := &countingPurger{}
	h.Cache = purges

	return &fixture{
		store:   store,
		handler: h,
		router:  NewRouter(h, metrics, []string{"http://localhost:5173"}),
		metrics: metrics,
		purges:  purges,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// BALANCES
// =============================================================================

func TestGetClientBalance_FebruaryFixture(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/clients/c-1/balance?year=2026&month=2", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decodeBody[MonthlyBalanceDTO](t, rec)
	assert.Equal(t, "c-1", b.UserID)
	assert.Equal(t, 180.0, b.AssignedMonthlyHours)
	assert.Equal(t, 80.0, b.LaborablesMonthlyHours)
	assert.Equal(t, 48.0, b.HolidaysMonthlyHours)
	assert.Equal(t, 128.0, b.TheoreticalMonthlyHours)
	assert.Equal(t, -52.0, b.Difference)
	assert.Equal(t, 71.11, b.CoveragePercent)
	assert.False(t, b.Degraded)
}

func TestGetClientBalance_DefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/clients/c-1/balance", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeBody[MonthlyBalanceDTO](t, rec)
	assert.Equal(t, 2026, b.Year)
	assert.Equal(t, 2, b.Month)
}

func TestGetClientBalance_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown client", "/api/clients/nobody/balance?year=2026&month=2", http.StatusNotFound},
		{"month out of range", "/api/clients/c-1/balance?year=2026&month=13", http.StatusBadRequest},
		{"month not a number", "/api/clients/c-1/balance?year=2026&month=feb", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestGetWorkerBalances_CrossWorkerTotals(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/workers/w-2/balances?year=2026&month=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[WorkerReportDTO](t, rec)
	assert.Equal(t, "w-2", report.WorkerID)
	require.Len(t, report.Clients, 1)
	assert.Equal(t, "Carmen Ortega", report.Clients[0].UserName)
	assert.Equal(t, 128.0, report.Clients[0].TotalHours)
}

func TestGetWorkerBalances_UnknownWorkerIsEmpty(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/workers/w-9/balances?year=2026&month=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clients":[]`)
}

// =============================================================================
// DAILY VIEW
// =============================================================================

func TestGetAssignmentSlots_InProgressOnMonday(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/assignments/a-1/slots?date=2026-02-02", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	plan := decodeBody[DayPlanDTO](t, rec)
	assert.True(t, plan.Active)
	assert.False(t, plan.HolidayContext)
	require.Len(t, plan.Slots, 1)
	assert.Equal(t, schedule.StatusInProgress, plan.Slots[0].Status)
	assert.Equal(t, 4.0, plan.TotalHours)
}

func TestGetAssignmentSlots_LaborablesGatedOnSaturday(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/assignments/a-1/slots?date=2026-02-07", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	plan := decodeBody[DayPlanDTO](t, rec)
	assert.True(t, plan.HolidayContext)
	assert.Empty(t, plan.Slots)
	assert.Equal(t, 0.0, plan.TotalHours)
}

func TestGetAssignmentSlots_FestivosOnCalendarHoliday(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Day: 4, Month: 2, Year: 2026, Name: "Fiesta local"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/assignments/a-2/slots?date=2026-02-04", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	plan := decodeBody[DayPlanDTO](t, rec)
	assert.True(t, plan.HolidayContext)
	require.Len(t, plan.Slots, 1)
	assert.Equal(t, "08:00", plan.Slots[0].Start)
	assert.Equal(t, schedule.StatusPending, plan.Slots[0].Status)
}

func TestGetAssignmentSlots_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/assignments/missing/slots?date=2026-02-02", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/assignments/a-1/slots?date=02/02/2026", nil).Code)
}

// =============================================================================
// WRITES
// =============================================================================

func TestCreateAssignment_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"assignment_type":`},
		{"missing worker", `{"assignment_type":"laborables","schedule":{},"start_date":"2026-02-01","user_id":"c-1"}`},
		{"unknown type", `{"assignment_type":"nocturno","schedule":{},"start_date":"2026-02-01","worker_id":"w-1","user_id":"c-1"}`},
		{"schedule not an object", `{"assignment_type":"laborables","schedule":"[1,2]","start_date":"2026-02-01","worker_id":"w-1","user_id":"c-1"}`},
		{"bad slot", `{"assignment_type":"laborables","schedule":{"monday":{"timeSlots":[{"start":"9:00","end":"13:00"}]}},"start_date":"2026-02-01","worker_id":"w-1","user_id":"c-1"}`},
		{"bad start date", `{"assignment_type":"laborables","schedule":{},"start_date":"yesterday","worker_id":"w-1","user_id":"c-1"}`},
		{"end before start", `{"assignment_type":"laborables","schedule":{},"start_date":"2026-02-10","end_date":"2026-02-01","worker_id":"w-1","user_id":"c-1"}`},
		{"bad status", `{"assignment_type":"laborables","schedule":{},"start_date":"2026-02-01","status":"paused","worker_id":"w-1","user_id":"c-1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/assignments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Zero(t, f.purges.calls)
}

func TestCreateAssignment_ChangesBalanceAndPurgesCache(t *testing.T) {
	// GIVEN: a second weekday assignment for the same client, 2h on Mondays
	f := newFixture(t)
	body := `{
		"assignment_type":"Laborables",
		"schedule":{"monday":{"timeSlots":[{"start":"15:00","end":"17:00"}]}},
		"start_date":"2026-02-01",
		"worker_id":"w-3",
		"user_id":"c-1"
	}`

	// WHEN
	rec := f.do(t, http.MethodPost, "/api/assignments", body)

	// THEN: 4 mondays * 2h more
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.purges.calls)

	b := decodeBody[MonthlyBalanceDTO](t, f.do(t, http.MethodGet, "/api/clients/c-1/balance?year=2026&month=2", nil))
	assert.Equal(t, 88.0, b.LaborablesMonthlyHours)
}

func TestCreateClient(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/clients", CreateClientRequest{Name: "Ángela", Surname: "Ruiz", MonthlyAssignedHours: 40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[ClientDTO](t, rec)
	assert.NotEmpty(t, created.ID)

	rec = f.do(t, http.MethodPost, "/api/clients", CreateClientRequest{Surname: "Sin nombre"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/clients", CreateClientRequest{Name: "Neg", MonthlyAssignedHours: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := decodeBody[map[string][]ClientDTO](t, f.do(t, http.MethodGet, "/api/clients", nil))
	assert.Len(t, list["clients"], 2)
}

func TestHolidays_CreateListDelete(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Day: 30, Month: 2, Year: 2026})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "impossible date")

	rec = f.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Day: 4, Month: 2, Year: 2026, Name: "Fiesta local"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[struct {
		Holiday HolidayDTO `json:"holiday"`
	}](t, rec)
	assert.Equal(t, "2026-02-04", created.Holiday.Date)

	// The holiday moves Wednesday Feb 4 from laborables to festivos
	b := decodeBody[MonthlyBalanceDTO](t, f.do(t, http.MethodGet, "/api/clients/c-1/balance?year=2026&month=2", nil))
	assert.Equal(t, 76.0, b.LaborablesMonthlyHours)
	assert.Equal(t, 54.0, b.HolidaysMonthlyHours)

	list := decodeBody[map[string][]HolidayDTO](t, f.do(t, http.MethodGet, "/api/holidays?year=2026&month=2", nil))
	require.Len(t, list["holidays"], 1)

	rec = f.do(t, http.MethodDelete, "/api/holidays/"+created.Holiday.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list = decodeBody[map[string][]HolidayDTO](t, f.do(t, http.MethodGet, "/api/holidays?year=2026&month=2", nil))
	assert.Empty(t, list["holidays"])
	assert.Equal(t, 2, f.purges.calls)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/holidays?year=2026&month=0", nil).Code)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestMetricsAndHealth(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/clients/c-1/balance?year=2026&month=2", nil)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `path="/api/clients/{id}/balance"`), "route pattern label")
}

func TestMetrics_CountsDegradedBalances(t *testing.T) {
	f := newFixture(t)
	f.metrics.DegradedBalance("assignments")

	rec := f.do(t, http.MethodGet, "/metrics", nil)

	assert.Contains(t, rec.Body.String(), `care_hours_degraded_balances_total{reason="assignments"} 1`)
}

func TestTriggerReports_NotConfigured(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/reports/run", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

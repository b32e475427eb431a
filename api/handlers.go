/*
handlers.go - HTTP API handlers for the care hours engine

PURPOSE:
  Exposes slot resolution and monthly balances via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the schedule and
  balance packages.

ENDPOINTS:
  Balances:
    GET    /api/clients/{id}/balance?year=&month=   One client's month
    GET    /api/workers/{id}/balances?year=&month=  A worker's report

  Daily view:
    GET    /api/assignments/{id}/slots?date=        Applicable slots + status

  Data:
    GET    /api/clients                List clients
    POST   /api/clients                Create or replace a client
    POST   /api/assignments            Create or replace an assignment
    GET    /api/holidays?year=&month=  List a month's holidays
    POST   /api/holidays               Add a holiday
    DELETE /api/holidays/{id}          Remove a holiday

  Reports:
    GET    /api/reports/runs           Scheduler history
    POST   /api/reports/run            Run the scheduler now

  Demo (scenarios.go):
    GET    /api/scenarios              List scenarios
    GET    /api/scenarios/current      Loaded scenario, or null
    POST   /api/scenarios/load         Reset and load a scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (writes, daily view)
  - Balances: balance.Service, usually the Redis cache over the aggregator
  - Cache: optional purge hook called after every write

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, invalid month
  - 404: Unknown client or assignment
  - 500: Internal errors
  Balances never fail for data problems; they come back degraded.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Monthly report scheduler
  - scenarios.go: Demo data loaders
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
	"github.com/warp/care-hours/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Purger drops cached balances after a write.
type Purger interface {
	Purge(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Balances  balance.Service
	Cache     Purger           // optional
	Scheduler *ReportScheduler // optional
	Logger    *zap.Logger

	resolver schedule.Resolver
	validate *validator.Validate
	now      func() time.Time

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. balances is typically the cache decorator
// around a balance.Aggregator reading from store.
func NewHandler(store *sqlite.Store, balances balance.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Balances: balances,
		Logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// BALANCE ENDPOINTS
// =============================================================================

// GetClientBalance returns one client's monthly balance.
// GET /api/clients/{id}/balance?year=&month=
func (h *Handler) GetClientBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ClientID(chi.URLParam(r, "id"))

	year, month, err := h.monthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}

	b, err := h.Balances.MonthlyBalance(ctx, id, year, month)
	if err != nil {
		writeServiceError(w, "Failed to compute balance", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toMonthlyBalanceDTO(b))
}

// GetWorkerBalances returns a worker's monthly report.
// GET /api/workers/{id}/balances?year=&month=
func (h *Handler) GetWorkerBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.WorkerID(chi.URLParam(r, "id"))

	year, month, err := h.monthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}

	rows, err := h.Balances.WorkerClientsBalance(ctx, id, year, month)
	if err != nil {
		writeServiceError(w, "Failed to compute worker report", err)
		return
	}

	writeJSON(w, http.StatusOK, WorkerReportDTO{
		WorkerID: string(id),
		Year:     year,
		Month:    month,
		Clients:  toWorkerBalanceDTOs(rows),
	})
}

// monthParams reads ?year=&month=, defaulting either to the current month.
// Range checks are left to the balance service.
func (h *Handler) monthParams(r *http.Request) (int, int, error) {
	today := generic.DateOf(h.now())
	year, month := today.Year(), int(today.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("year %q: %w", v, err)
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("month %q: %w", v, err)
		}
		month = n
	}
	return year, month, nil
}

// =============================================================================
// DAILY VIEW
// =============================================================================

// GetAssignmentSlots resolves an assignment for one date.
// GET /api/assignments/{id}/slots?date=YYYY-MM-DD
func (h *Handler) GetAssignmentSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.AssignmentID(chi.URLParam(r, "id"))
	now := h.now()

	date := generic.DateOf(now)
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := generic.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		date = d
	}

	a, err := h.Store.GetAssignment(ctx, id)
	if err != nil {
		writeServiceError(w, "Failed to get assignment", err)
		return
	}

	// The daily view never fails on the calendar; it just loses holidays.
	records, err := h.Store.Holidays(ctx, date.Year(), date.Month())
	if err != nil {
		h.Logger.Warn("holiday fetch failed, resolving without calendar",
			zap.String("assignment_id", string(id)), zap.Error(err))
		records = nil
	}

	plan := h.resolver.PlanFor(*a, date, generic.NewHolidaySet(records))
	writeJSON(w, http.StatusOK, toDayPlanDTO(plan, now))
}

// =============================================================================
// CLIENT ENDPOINTS
// =============================================================================

// ListClients returns all clients.
// GET /api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}

	dtos := make([]ClientDTO, 0, len(clients))
	for _, c := range clients {
		dtos = append(dtos, toClientDTO(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": dtos})
}

// CreateClient creates or replaces a client profile.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateClientRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	profile := balance.ClientProfile{
		UserID:               generic.ClientID(id),
		Name:                 strings.TrimSpace(req.Name),
		Surname:              strings.TrimSpace(req.Surname),
		MonthlyAssignedHours: generic.HoursFromFloat(req.MonthlyAssignedHours),
	}

	if err := h.Store.SaveClient(ctx, profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client", err)
		return
	}
	h.purge(ctx)

	writeJSON(w, http.StatusCreated, toClientDTO(profile))
}

// =============================================================================
// ASSIGNMENT ENDPOINTS
// =============================================================================

// CreateAssignment validates and stores an assignment. Unlike the read path,
// writes are strict: a malformed schedule or slot is rejected.
// POST /api/assignments
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAssignmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	typ := schedule.ParseAssignmentType(req.AssignmentType)
	if !typ.Known() {
		writeError(w, http.StatusBadRequest, "Unknown assignment type",
			fmt.Errorf("%q: %w", req.AssignmentType, generic.ErrInvalidAssignmentType))
		return
	}

	cfg, err := schedule.ParseStrict(req.Schedule)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule", err)
		return
	}

	row := schedule.Row{
		ID:             strings.TrimSpace(req.ID),
		AssignmentType: string(typ),
		Schedule:       req.Schedule,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         req.Status,
		WorkerID:       req.WorkerID,
		UserID:         req.UserID,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Status == "" {
		row.Status = schedule.StatusActive
	}

	a, err := schedule.FromRow(row)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		writeError(w, http.StatusBadRequest, "end_date is before start_date", nil)
		return
	}

	if err := h.Store.SaveAssignment(ctx, row); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}
	h.purge(ctx)

	h.Logger.Info("assignment saved",
		zap.String("assignment_id", row.ID),
		zap.String("type", row.AssignmentType),
		zap.String("worker_id", row.WorkerID),
		zap.String("user_id", row.UserID),
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":     "created",
		"assignment": row.ID,
	})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns one month of the calendar.
// GET /api/holidays?year=&month=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, month, err := h.monthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}
	if err := generic.ValidMonth(year, month); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}

	holidays, err := h.Store.ListHolidays(ctx, year, time.Month(month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateHolidayRequest
	if !h.decode(w, r, &req) {
		return
	}

	holiday := sqlite.Holiday{
		ID:            uuid.NewString(),
		HolidayRecord: generic.HolidayRecord{Day: req.Day, Month: req.Month, Year: req.Year},
		Name:          strings.TrimSpace(req.Name),
	}

	if err := h.Store.SaveHoliday(ctx, holiday); err != nil {
		writeServiceError(w, "Failed to create holiday", err)
		return
	}
	h.purge(ctx)

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "created",
		"holiday": toHolidayDTO(holiday),
	})
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteHoliday(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	h.purge(ctx)

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// ListReportRuns returns scheduler history.
// GET /api/reports/runs?status=
func (h *Handler) ListReportRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.GetReportRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get report runs", err)
		return
	}

	dtos := make([]ReportRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toReportRunDTO(run))
	}

	resp := ReportRunsResponse{Runs: dtos}
	if h.Scheduler != nil {
		if next, ok := h.Scheduler.NextRunTime(); ok {
			resp.NextRunAt = next.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerReports runs the scheduler synchronously.
// POST /api/reports/run
func (h *Handler) TriggerReports(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Report scheduler not configured", nil)
		return
	}

	summary := h.Scheduler.RunNow(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

// Health reports whether the database answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. It writes the 400 itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// purge drops cached balances. Failures only cost freshness until the TTL.
func (h *Handler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx); err != nil {
		h.Logger.Warn("balance cache purge failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

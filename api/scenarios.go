/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates clients, assignments
	and calendar holidays that demonstrate specific balance behaviors.

AVAILABLE SCENARIOS:

	baseline:         One client, weekday and holiday workers (Feb 2026: 128h of 180h)
	holiday-calendar: Baseline plus the 2026 national holiday calendar
	mixed-schedules:  Flexible, personalizada, overnight, legacy and inactive rows

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create clients
 3. Create assignments with their schedule JSON
 4. Optionally add calendar holidays
 5. Purge the balance cache

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "baseline"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: the write endpoints these loaders bypass
  - schedule/config.go: schedule JSON shape
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
	"github.com/warp/care-hours/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "baseline",
		Name:        "Baseline",
		Description: "One client with a weekday worker (4h) and a holiday worker (6h)",
	},
	{
		ID:          "holiday-calendar",
		Name:        "Holiday Calendar",
		Description: "Baseline plus the 2026 national holidays; weekday holidays move hours to the festivos worker",
	},
	{
		ID:          "mixed-schedules",
		Name:        "Mixed Schedules",
		Description: "Always-applicable types, an overnight slot, legacy weekdayHours, inactive and ended assignments",
	},
}

// Scenario schedules.
const (
	scenarioWeekdayMornings = `{
		"monday":    {"enabled": true, "timeSlots": [{"start": "09:00", "end": "13:00"}]},
		"tuesday":   {"enabled": true, "timeSlots": [{"start": "09:00", "end": "13:00"}]},
		"wednesday": {"enabled": true, "timeSlots": [{"start": "09:00", "end": "13:00"}]},
		"thursday":  {"enabled": true, "timeSlots": [{"start": "09:00", "end": "13:00"}]},
		"friday":    {"enabled": true, "timeSlots": [{"start": "09:00", "end": "13:00"}]},
		"saturday":  {"enabled": false, "timeSlots": []},
		"sunday":    {"enabled": false, "timeSlots": []}
	}`

	scenarioHolidayShift = `{
		"holiday_config": {"has_holiday_service": true, "holiday_timeSlots": [{"start": "08:00", "end": "14:00"}]}
	}`

	scenarioFlexibleAfternoons = `{
		"tuesday":  {"timeSlots": [{"start": "16:00", "end": "18:00"}]},
		"thursday": {"timeSlots": [{"start": "16:00", "end": "18:00"}]}
	}`

	scenarioOvernightFriday = `{
		"friday": {"timeSlots": [{"start": "22:00", "end": "06:00"}]}
	}`

	scenarioLegacyTotals = `{"weekdayHours": {"monday": 3, "wednesday": 3}, "holidayHoursPerDay": 2}`
)

// nationalHolidays2026 is the national calendar used by holiday-calendar.
var nationalHolidays2026 = []sqlite.Holiday{
	{ID: "h-2026-01-01", HolidayRecord: generic.HolidayRecord{Day: 1, Month: 1, Year: 2026}, Name: "Año Nuevo"},
	{ID: "h-2026-01-06", HolidayRecord: generic.HolidayRecord{Day: 6, Month: 1, Year: 2026}, Name: "Epifanía del Señor"},
	{ID: "h-2026-04-03", HolidayRecord: generic.HolidayRecord{Day: 3, Month: 4, Year: 2026}, Name: "Viernes Santo"},
	{ID: "h-2026-05-01", HolidayRecord: generic.HolidayRecord{Day: 1, Month: 5, Year: 2026}, Name: "Fiesta del Trabajo"},
	{ID: "h-2026-08-15", HolidayRecord: generic.HolidayRecord{Day: 15, Month: 8, Year: 2026}, Name: "Asunción de la Virgen"},
	{ID: "h-2026-10-12", HolidayRecord: generic.HolidayRecord{Day: 12, Month: 10, Year: 2026}, Name: "Fiesta Nacional de España"},
	{ID: "h-2026-11-01", HolidayRecord: generic.HolidayRecord{Day: 1, Month: 11, Year: 2026}, Name: "Todos los Santos"},
	{ID: "h-2026-12-06", HolidayRecord: generic.HolidayRecord{Day: 6, Month: 12, Year: 2026}, Name: "Día de la Constitución"},
	{ID: "h-2026-12-08", HolidayRecord: generic.HolidayRecord{Day: 8, Month: 12, Year: 2026}, Name: "Inmaculada Concepción"},
	{ID: "h-2026-12-25", HolidayRecord: generic.HolidayRecord{Day: 25, Month: 12, Year: 2026}, Name: "Navidad"},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "baseline":
		load = h.loadBaselineScenario
	case "holiday-calendar":
		load = h.loadHolidayCalendarScenario
	case "mixed-schedules":
		load = h.loadMixedSchedulesScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.purge(ctx)
	h.currentScenario = req.ScenarioID

	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadBaselineScenario(ctx context.Context) error {
	if err := h.createScenarioClient(ctx, "client-carmen", "Carmen", "Ortega", 180); err != nil {
		return err
	}
	return h.createScenarioAssignments(ctx, []schedule.Row{
		{
			ID: "asg-carmen-weekdays", AssignmentType: string(schedule.TypeLaborables),
			Schedule: json.RawMessage(scenarioWeekdayMornings), StartDate: "2026-01-01",
			WorkerID: "worker-ana", UserID: "client-carmen",
		},
		{
			ID: "asg-carmen-holidays", AssignmentType: string(schedule.TypeFestivos),
			Schedule: json.RawMessage(scenarioHolidayShift), StartDate: "2026-01-01",
			WorkerID: "worker-luis", UserID: "client-carmen",
		},
	})
}

func (h *Handler) loadHolidayCalendarScenario(ctx context.Context) error {
	if err := h.loadBaselineScenario(ctx); err != nil {
		return err
	}
	for _, hol := range nationalHolidays2026 {
		if err := h.Store.SaveHoliday(ctx, hol); err != nil {
			return fmt.Errorf("holiday %s: %w", hol.Date(), err)
		}
	}
	return nil
}

func (h *Handler) loadMixedSchedulesScenario(ctx context.Context) error {
	if err := h.loadBaselineScenario(ctx); err != nil {
		return err
	}
	if err := h.createScenarioClient(ctx, "client-jose", "José", "Álvarez", 60); err != nil {
		return err
	}
	if err := h.createScenarioClient(ctx, "client-angela", "Ángela", "Ruiz", 40); err != nil {
		return err
	}

	ended := "2026-01-31"
	return h.createScenarioAssignments(ctx, []schedule.Row{
		// Counted only when always-applicable types are enabled.
		{
			ID: "asg-jose-flexible", AssignmentType: string(schedule.TypeFlexible),
			Schedule: json.RawMessage(scenarioFlexibleAfternoons), StartDate: "2026-01-01",
			WorkerID: "worker-ana", UserID: "client-jose",
		},
		{
			ID: "asg-jose-overnight", AssignmentType: string(schedule.TypePersonalizada),
			Schedule: json.RawMessage(scenarioOvernightFriday), StartDate: "2026-01-01",
			WorkerID: "worker-luis", UserID: "client-jose",
		},
		{
			ID: "asg-jose-paused", AssignmentType: string(schedule.TypeLaborables),
			Schedule: json.RawMessage(scenarioWeekdayMornings), StartDate: "2026-01-01",
			Status: "inactive", WorkerID: "worker-marta", UserID: "client-jose",
		},
		{
			ID: "asg-jose-january", AssignmentType: string(schedule.TypeLaborables),
			Schedule: json.RawMessage(scenarioWeekdayMornings), StartDate: "2026-01-01", EndDate: &ended,
			WorkerID: "worker-marta", UserID: "client-jose",
		},
		{
			ID: "asg-angela-legacy", AssignmentType: string(schedule.TypeLaborables),
			Schedule: json.RawMessage(scenarioLegacyTotals), StartDate: "2026-01-01",
			WorkerID: "worker-ana", UserID: "client-angela",
		},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createScenarioClient(ctx context.Context, id, name, surname string, hours int64) error {
	return h.Store.SaveClient(ctx, balance.ClientProfile{
		UserID:               generic.ClientID(id),
		Name:                 name,
		Surname:              surname,
		MonthlyAssignedHours: decimal.NewFromInt(hours),
	})
}

func (h *Handler) createScenarioAssignments(ctx context.Context, rows []schedule.Row) error {
	for _, row := range rows {
		if _, err := schedule.ParseStrict(row.Schedule); err != nil {
			return fmt.Errorf("assignment %s: %w", row.ID, err)
		}
		if err := h.Store.SaveAssignment(ctx, row); err != nil {
			return fmt.Errorf("assignment %s: %w", row.ID, err)
		}
	}
	return nil
}

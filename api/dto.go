/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Hours travel as
  decimal.Decimal inside the engine and leave as float64 rounded to two
  decimals here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Balances:    MonthlyBalanceDTO, WorkerBalanceDTO, WorkerReportDTO
  Slots:       SlotDTO, DayPlanDTO
  Writes:      CreateClientRequest, CreateAssignmentRequest, CreateHolidayRequest
  Bookkeeping: HolidayDTO, ReportRunDTO, ErrorResponse

VALIDATION:
  Request types carry validator tags; handlers call validate.Struct before
  touching the store.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/generic"
	"github.com/warp/care-hours/schedule"
	"github.com/warp/care-hours/store/sqlite"
)

// =============================================================================
// BALANCES
// =============================================================================

// MonthlyBalanceDTO is one client's monthly balance.
type MonthlyBalanceDTO struct {
	UserID                  string  `json:"userId"`
	Year                    int     `json:"year"`
	Month                   int     `json:"month"`
	AssignedMonthlyHours    float64 `json:"assignedMonthlyHours"`
	TheoreticalMonthlyHours float64 `json:"theoreticalMonthlyHours"`
	LaborablesMonthlyHours  float64 `json:"laborablesMonthlyHours"`
	HolidaysMonthlyHours    float64 `json:"holidaysMonthlyHours"`
	Difference              float64 `json:"difference"`

	// CoveragePercent is theoretical / assigned * 100, 0 without a contract.
	CoveragePercent float64 `json:"coveragePercent"`
	Degraded        bool    `json:"degraded,omitempty"`
}

func toMonthlyBalanceDTO(b *balance.UserMonthlyBalance) MonthlyBalanceDTO {
	return MonthlyBalanceDTO{
		UserID:                  string(b.UserID),
		Year:                    b.Year,
		Month:                   b.Month,
		AssignedMonthlyHours:    generic.HoursToFloat(b.AssignedMonthlyHours),
		TheoreticalMonthlyHours: generic.HoursToFloat(b.TheoreticalMonthlyHours),
		LaborablesMonthlyHours:  generic.HoursToFloat(b.LaborablesMonthlyHours),
		HolidaysMonthlyHours:    generic.HoursToFloat(b.HolidaysMonthlyHours),
		Difference:              generic.HoursToFloat(b.Difference),
		CoveragePercent:         generic.HoursToFloat(generic.Percent(b.TheoreticalMonthlyHours, b.AssignedMonthlyHours)),
		Degraded:                b.Degraded,
	}
}

// WorkerBalanceDTO is one row of a worker's report.
type WorkerBalanceDTO struct {
	UserID               string  `json:"userId"`
	UserName             string  `json:"userName"`
	AssignedMonthlyHours float64 `json:"assignedMonthlyHours"`
	LaborablesHours      float64 `json:"laborablesHours"`
	HolidaysHours        float64 `json:"holidaysHours"`
	TotalHours           float64 `json:"totalHours"`
	Difference           float64 `json:"difference"`
	Degraded             bool    `json:"degraded,omitempty"`
}

// WorkerReportDTO wraps the rows with the month they belong to.
type WorkerReportDTO struct {
	WorkerID string             `json:"workerId"`
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	Clients  []WorkerBalanceDTO `json:"clients"`
}

func toWorkerBalanceDTOs(rows []balance.WorkerClientBalance) []WorkerBalanceDTO {
	dtos := make([]WorkerBalanceDTO, 0, len(rows))
	for _, r := range rows {
		dtos = append(dtos, WorkerBalanceDTO{
			UserID:               string(r.UserID),
			UserName:             r.UserName,
			AssignedMonthlyHours: generic.HoursToFloat(r.AssignedMonthlyHours),
			LaborablesHours:      generic.HoursToFloat(r.LaborablesHours),
			HolidaysHours:        generic.HoursToFloat(r.HolidaysHours),
			TotalHours:           generic.HoursToFloat(r.TotalHours),
			Difference:           generic.HoursToFloat(r.Difference),
			Degraded:             r.Degraded,
		})
	}
	return dtos
}

// =============================================================================
// SLOTS
// =============================================================================

// SlotDTO is one applicable slot with its live status.
type SlotDTO struct {
	Start  string              `json:"start"`
	End    string              `json:"end"`
	Hours  float64             `json:"hours"`
	Status schedule.SlotStatus `json:"status"`
}

// DayPlanDTO is the daily view of one assignment.
type DayPlanDTO struct {
	AssignmentID   string    `json:"assignmentId"`
	AssignmentType string    `json:"assignmentType"`
	Date           string    `json:"date"`
	HolidayContext bool      `json:"holidayContext"`
	Active         bool      `json:"active"`
	Slots          []SlotDTO `json:"slots"`
	TotalHours     float64   `json:"totalHours"`
}

func toDayPlanDTO(p schedule.DayPlan, now time.Time) DayPlanDTO {
	slots := make([]SlotDTO, 0, len(p.Slots))
	for _, s := range p.Slots {
		slots = append(slots, SlotDTO{
			Start:  s.Start,
			End:    s.End,
			Hours:  generic.HoursToFloat(schedule.SlotHours(s)),
			Status: schedule.StatusAt(now, p.Date, s),
		})
	}
	return DayPlanDTO{
		AssignmentID:   string(p.Assignment.ID),
		AssignmentType: string(p.Assignment.Type),
		Date:           p.Date.String(),
		HolidayContext: p.HolidayContext,
		Active:         p.Active,
		Slots:          slots,
		TotalHours:     generic.HoursToFloat(p.Hours),
	}
}

// =============================================================================
// WRITES
// =============================================================================

// CreateClientRequest creates or replaces a client profile.
type CreateClientRequest struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name" validate:"required"`
	Surname              string  `json:"surname"`
	MonthlyAssignedHours float64 `json:"monthlyAssignedHours" validate:"gte=0"`
}

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Surname              string  `json:"surname"`
	MonthlyAssignedHours float64 `json:"monthlyAssignedHours"`
}

func toClientDTO(p balance.ClientProfile) ClientDTO {
	return ClientDTO{
		ID:                   string(p.UserID),
		Name:                 p.Name,
		Surname:              p.Surname,
		MonthlyAssignedHours: generic.HoursToFloat(p.MonthlyAssignedHours),
	}
}

// CreateAssignmentRequest creates or replaces an assignment. Schedule is
// stored verbatim once it validates.
type CreateAssignmentRequest struct {
	ID             string          `json:"id"`
	AssignmentType string          `json:"assignment_type" validate:"required"`
	Schedule       json.RawMessage `json:"schedule" validate:"required"`
	StartDate      string          `json:"start_date" validate:"required"`
	EndDate        *string         `json:"end_date"`
	Status         string          `json:"status" validate:"omitempty,oneof=active inactive"`
	WorkerID       string          `json:"worker_id" validate:"required"`
	UserID         string          `json:"user_id" validate:"required"`
}

// CreateHolidayRequest adds a calendar holiday.
type CreateHolidayRequest struct {
	Day   int    `json:"day" validate:"required,min=1,max=31"`
	Month int    `json:"month" validate:"required,min=1,max=12"`
	Year  int    `json:"year" validate:"required,min=1900,max=9999"`
	Name  string `json:"name"`
}

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID    string `json:"id"`
	Day   int    `json:"day"`
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Date  string `json:"date"`
	Name  string `json:"name"`
}

func toHolidayDTO(h sqlite.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:    h.ID,
		Day:   h.Day,
		Month: h.Month,
		Year:  h.Year,
		Date:  h.Date().String(),
		Name:  h.Name,
	}
}

// =============================================================================
// BOOKKEEPING
// =============================================================================

// ReportRunDTO is one scheduler pass.
type ReportRunDTO struct {
	ID          string `json:"id"`
	WorkerID    string `json:"worker_id"`
	Period      string `json:"period"`
	Status      string `json:"status"`
	Clients     int    `json:"clients"`
	Shortfalls  int    `json:"shortfalls"`
	Error       string `json:"error,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toReportRunDTO(run sqlite.ReportRun) ReportRunDTO {
	dto := ReportRunDTO{
		ID:         run.ID,
		WorkerID:   string(run.WorkerID),
		Period:     generic.MonthPeriod(run.Year, time.Month(run.Month)).Start.Time.Format("2006-01"),
		Status:     run.Status,
		Clients:    run.Clients,
		Shortfalls: run.Shortfalls,
		Error:      run.Error,
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// ReportRunsResponse lists scheduler history. NextRunAt is empty when the
// scheduler is not running.
type ReportRunsResponse struct {
	Runs      []ReportRunDTO `json:"runs"`
	NextRunAt string         `json:"next_run_at,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's result types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  h.validate.Struct before doing any work. Cell-level problems (an
  unreadable entry time) are not validation errors: they come back as
  anomalies next to the results.

AMOUNTS:
  Shekel and hour amounts are rendered as JSON numbers. Arithmetic never
  happens on these values.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"github.com/kollel/stipend-engine/factory"
	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// REQUESTS
// =============================================================================

// EventDTO is one sign-in/sign-out row. Times accept the same formats as
// uploaded files ("09:15", "9:15 AM", "2024-03-04 09:15").
type EventDTO struct {
	StudentID  string `json:"student_id" validate:"required"`
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	Date       string `json:"date" validate:"required"`
	Entry      string `json:"entry" validate:"required"`
	Exit       string `json:"exit"`
	Continuous bool   `json:"continuous"`
}

// ComputeRequest computes stipends for inline events. Either WorkingDays or
// Month may be given; without both the month is taken from the events.
type ComputeRequest struct {
	WorkingDays int        `json:"working_days" validate:"gte=0,lte=31"`
	Month       string     `json:"month" validate:"omitempty,datetime=2006-01"`
	Locale      string     `json:"locale"`
	Events      []EventDTO `json:"events" validate:"required,dive"`
}

// ImportRequest stores inline events for later computation.
type ImportRequest struct {
	Events []EventDTO `json:"events" validate:"required,min=1,dive"`
}

// StoredComputeRequest computes a month from the event store.
type StoredComputeRequest struct {
	Month       string `json:"month" validate:"required,datetime=2006-01"`
	WorkingDays int    `json:"working_days" validate:"gte=0,lte=31"`
	Locale      string `json:"locale"`
	Format      string `json:"format" validate:"omitempty,oneof=json csv xlsx pdf"`
}

// HolidayRequest adds a closed day to the calendar.
type HolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"max=100"`
}

// table renders events as rows under ingest.EventHeader, so inline events
// are normalized exactly like uploaded files.
func eventsTable(events []EventDTO) *ingest.Table {
	t := &ingest.Table{Header: append([]string(nil), ingest.EventHeader...)}
	for _, e := range events {
		t.Rows = append(t.Rows, []any{e.StudentID, e.LastName, e.FirstName, e.Date, e.Entry, e.Exit, e.Continuous})
	}
	return t
}

// =============================================================================
// RESPONSES
// =============================================================================

// ComputeResponse is the JSON outcome of a stipend run.
type ComputeResponse struct {
	RunID       string       `json:"run_id"`
	WorkingDays int          `json:"working_days"`
	Locale      string       `json:"locale"`
	Students    []StudentDTO `json:"students"`
	Anomalies   []AnomalyDTO `json:"anomalies,omitempty"`
	GrandTotal  float64      `json:"grand_total"`
}

type StudentDTO struct {
	StudentID              string       `json:"student_id"`
	FullName               string       `json:"full_name"`
	Morning                SessionDTO   `json:"morning"`
	Afternoon              SessionDTO   `json:"afternoon"`
	TotalBase              float64      `json:"total_base"`
	TotalBonus             float64      `json:"total_bonus"`
	Tier1Bonus             float64      `json:"tier1_bonus"`
	Tier2Bonus             float64      `json:"tier2_bonus"`
	PerfectAttendanceBonus float64      `json:"perfect_attendance_bonus"`
	EarlyAttendanceBonus   float64      `json:"early_attendance_bonus"`
	GrandTotal             float64      `json:"grand_total"`
	Warnings               []WarningDTO `json:"warnings"`
}

type SessionDTO struct {
	Base             float64             `json:"base"`
	DailyBonus       float64             `json:"daily_bonus"`
	TotalHours       float64             `json:"total_hours"`
	MissedHours      float64             `json:"missed_hours"`
	AttendedDays     int                 `json:"attended_days"`
	AbsentDays       int                 `json:"absent_days"`
	LateDays         int                 `json:"late_days"`
	VeryLateDays     int                 `json:"very_late_days"`
	PerfectDays      int                 `json:"perfect_days"`
	PartialBonusDays int                 `json:"partial_bonus_days"`
	MissingExitDays  int                 `json:"missing_exit_days"`
	BaseReduced      bool                `json:"base_reduced"`
	Days             []stipend.DayDetail `json:"days,omitempty"`
}

type WarningDTO struct {
	Code    stipend.WarningCode `json:"code"`
	Session stipend.Session     `json:"session,omitempty"`
	Message string              `json:"message"`
}

type AnomalyDTO struct {
	StudentID string `json:"student_id"`
	Row       int    `json:"row"`
	Column    string `json:"column"`
	Raw       string `json:"raw"`
	Reason    string `json:"reason"`
}

// ImportResponse reports what an import stored.
type ImportResponse struct {
	Received  int          `json:"received"`
	Stored    int          `json:"stored"`
	Anomalies []AnomalyDTO `json:"anomalies,omitempty"`
}

type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// PolicyDTO wraps the effective policy in its JSON form.
type PolicyDTO struct {
	Policy factory.PolicyJSON `json:"policy"`
}

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	WorkingDays int    `json:"working_days"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toComputeResponse(res *stipend.BatchResult, locale string, withDays bool) ComputeResponse {
	out := ComputeResponse{
		RunID:       res.RunID,
		WorkingDays: res.WorkingDays,
		Locale:      locale,
		Students:    make([]StudentDTO, 0, len(res.Results)),
	}
	total := generic.ZeroAmount(generic.UnitShekel)
	for _, r := range res.Results {
		out.Students = append(out.Students, toStudentDTO(r, withDays))
		total = total.Add(r.GrandTotal)
	}
	out.GrandTotal = total.Float64()
	out.Anomalies = toAnomalyDTOs(res.Anomalies)
	return out
}

func toStudentDTO(r stipend.StudentResult, withDays bool) StudentDTO {
	dto := StudentDTO{
		StudentID:              string(r.StudentID),
		FullName:               r.FullName,
		Morning:                toSessionDTO(r.Morning, withDays),
		Afternoon:              toSessionDTO(r.Afternoon, withDays),
		TotalBase:              r.TotalBase.Float64(),
		TotalBonus:             r.TotalBonus.Float64(),
		Tier1Bonus:             r.Tier1Bonus.Float64(),
		Tier2Bonus:             r.Tier2Bonus.Float64(),
		PerfectAttendanceBonus: r.PerfectAttendanceBonus.Float64(),
		EarlyAttendanceBonus:   r.EarlyAttendanceBonus.Float64(),
		GrandTotal:             r.GrandTotal.Float64(),
		Warnings:               make([]WarningDTO, 0, len(r.Warnings)),
	}
	for _, w := range r.Warnings {
		dto.Warnings = append(dto.Warnings, WarningDTO{Code: w.Code, Session: w.Session, Message: w.Message})
	}
	return dto
}

func toSessionDTO(s stipend.SessionStats, withDays bool) SessionDTO {
	dto := SessionDTO{
		Base:             s.Base.Float64(),
		DailyBonus:       s.DailyBonus.Float64(),
		TotalHours:       s.TotalHours.Float64(),
		MissedHours:      s.MissedHours.Float64(),
		AttendedDays:     s.AttendedDays,
		AbsentDays:       s.AbsentDays,
		LateDays:         s.LateDays,
		VeryLateDays:     s.VeryLateDays,
		PerfectDays:      s.PerfectDays,
		PartialBonusDays: s.PartialBonusDays,
		MissingExitDays:  s.MissingExitDays,
		BaseReduced:      s.BaseReduced,
	}
	if withDays {
		dto.Days = s.Days
	}
	return dto
}

func toAnomalyDTOs(as []stipend.ParseAnomaly) []AnomalyDTO {
	if len(as) == 0 {
		return nil
	}
	out := make([]AnomalyDTO, len(as))
	for i, a := range as {
		out[i] = AnomalyDTO{
			StudentID: string(a.StudentID),
			Row:       a.Row,
			Column:    a.Column,
			Raw:       a.Raw,
			Reason:    a.Reason,
		}
	}
	return out
}

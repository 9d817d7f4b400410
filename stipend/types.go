/*
Package stipend implements the Kollel stipend rules engine.

PURPOSE:
  Turns raw sign-in/sign-out events into an itemized monthly stipend per
  student. The pipeline for one student is:

    events ──► AggregateDaily ──► ClassifySession ──► EarlyAttendanceBonus
                (per session)       (per session)       (morning only)
                                          │
                                          ▼
                                    combine (tiers, perfect attendance,
                                    warnings, grand total)

SESSIONS:
  Every study day has two fixed sessions, morning and afternoon, each with
  its own window, punctuality thresholds and payout (see policies.go).

INVARIANTS:
  - AttendedDays + AbsentDays == WorkingDays for every session
  - No count exceeds WorkingDays
  - A day without an exit time is not attended: it never counts as present,
    late, perfect, or towards hours
  - Monthly tiers and the perfect-attendance bonus need attendance in both
    sessions

SEE ALSO:
  - policies.go: Default session and bonus policies
  - engine.go: Batch entry point
  - generic/time.go: Time-of-day normalization
*/
package stipend

import (
	"strings"

	"github.com/kollel/stipend-engine/generic"
)

// =============================================================================
// SESSION
// =============================================================================

type Session string

const (
	Morning   Session = "morning"
	Afternoon Session = "afternoon"
)

// Sessions lists the sessions in report order.
var Sessions = []Session{Morning, Afternoon}

// SessionForEntry derives the session from the entry time: before noon is
// morning, everything else afternoon.
func SessionForEntry(entry generic.TimeOfDay) Session {
	if entry.Hour < 12 {
		return Morning
	}
	return Afternoon
}

// =============================================================================
// INPUT
// =============================================================================

// AttendanceEvent is one swipe pair as read from the attendance export.
type AttendanceEvent struct {
	StudentID  generic.StudentID `json:"student_id"`
	LastName   string            `json:"last_name"`
	FirstName  string            `json:"first_name"`
	Date       generic.Date      `json:"date"`
	Entry      generic.TimeOfDay `json:"entry"`
	Exit       generic.TimeOfDay `json:"exit"`
	Session    Session           `json:"session"`
	Continuous bool              `json:"continuous"`
}

// ParseAnomaly records a cell that could not be normalized. It is attached to
// the student's result as a warning and never aborts the batch.
type ParseAnomaly struct {
	StudentID generic.StudentID `json:"student_id"`
	LastName  string            `json:"last_name,omitempty"`
	FirstName string            `json:"first_name,omitempty"`
	Row       int               `json:"row"`
	Column    string            `json:"column"`
	Raw       string            `json:"raw"`
	Reason    string            `json:"reason"`
}

// Batch is a fully materialized computation input.
type Batch struct {
	Events      []AttendanceEvent
	Anomalies   []ParseAnomaly
	WorkingDays int
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

// DailyRecord is one student's attendance for one session on one date.
type DailyRecord struct {
	Date       generic.Date
	Entry      generic.TimeOfDay
	Exit       generic.TimeOfDay
	Continuous bool
	Hours      generic.Amount
}

type DayStatus string

const (
	DayOnTime      DayStatus = "on_time"
	DayLate        DayStatus = "late"
	DayVeryLate    DayStatus = "very_late"
	DayMissingExit DayStatus = "missing_exit"
)

// DayDetail is the audit line for one day, used by detail reports.
type DayDetail struct {
	Date         generic.Date      `json:"date"`
	Session      Session           `json:"session"`
	Entry        generic.TimeOfDay `json:"entry"`
	Exit         generic.TimeOfDay `json:"exit"`
	Continuous   bool              `json:"continuous"`
	Hours        generic.Amount    `json:"hours"`
	Status       DayStatus         `json:"status"`
	MinutesLate  int               `json:"minutes_late"`
	BeforeCutoff bool              `json:"before_cutoff"`
	Perfect      bool              `json:"perfect"`
	Partial      bool              `json:"partial"`
	DailyBonus   generic.Amount    `json:"daily_bonus"`
	MissedHours  generic.Amount    `json:"missed_hours"`
}

// SessionStats is the month summary of one session for one student.
type SessionStats struct {
	Session              Session
	Base                 generic.Amount
	DailyBonus           generic.Amount
	TotalHours           generic.Amount
	MissedHours          generic.Amount
	AttendedDays         int
	LateDays             int
	VeryLateDays         int
	AbsentDays           int
	PerfectDays          int
	PartialBonusDays     int
	EarlyAttendanceBonus generic.Amount

	// MissingExitDays counts days dropped because no exit was recorded.
	MissingExitDays int
	// HadEvents is false when the input held no rows at all for the session.
	HadEvents bool
	// BaseReduced is set when the late/absence limit switched the base to the per-day rate.
	BaseReduced bool
	// EarlySuppressed is set when absences withheld the early-attendance bonus.
	EarlySuppressed bool

	Days []DayDetail
}

// HasAttendance reports whether at least one day was attended.
func (s SessionStats) HasAttendance() bool { return s.AttendedDays > 0 }

// =============================================================================
// RESULT
// =============================================================================

// StudentResult is the itemized stipend for one student.
type StudentResult struct {
	StudentID              generic.StudentID
	FullName               string
	Morning                SessionStats
	Afternoon              SessionStats
	TotalBase              generic.Amount
	TotalBonus             generic.Amount
	Tier1Bonus             generic.Amount
	Tier2Bonus             generic.Amount
	PerfectAttendanceBonus generic.Amount
	EarlyAttendanceBonus   generic.Amount
	GrandTotal             generic.Amount
	Warnings               []Warning
}

// Stats returns the stats of the given session.
func (r StudentResult) Stats(s Session) SessionStats {
	if s == Morning {
		return r.Morning
	}
	return r.Afternoon
}

// WarningText joins the warning messages for display in a single cell.
func (r StudentResult) WarningText(sep string) string {
	msgs := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		msgs[i] = w.Message
	}
	return strings.Join(msgs, sep)
}

// FullName builds "last first", trimmed. Missing parts are treated as empty.
func FullName(lastName, firstName string) string {
	return strings.TrimSpace(strings.TrimSpace(lastName) + " " + strings.TrimSpace(firstName))
}

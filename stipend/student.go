package stipend

import (
	"github.com/kollel/stipend-engine/generic"
)

// =============================================================================
// STUDENT AGGREGATOR
// =============================================================================

// StudentInput is everything known about one student for the period.
type StudentInput struct {
	StudentID generic.StudentID
	LastName  string
	FirstName string
	Morning   []AttendanceEvent
	Afternoon []AttendanceEvent
	// Anomalies is the number of unreadable time values for this student.
	Anomalies int
}

// ComputeStudent runs both sessions for one student and combines them into
// the itemized result.
func (e *Engine) ComputeStudent(in StudentInput, workingDays int) StudentResult {
	p := e.policy
	b := p.Bonus

	afternoonAgg := AggregateDaily(in.Afternoon, p.Afternoon)
	afternoon := ClassifySession(Afternoon, afternoonAgg, len(in.Afternoon) > 0, workingDays, p)

	morningAgg := AggregateDaily(in.Morning, p.Morning)
	morning := ClassifySession(Morning, morningAgg, len(in.Morning) > 0, workingDays, p)
	if morning.HadEvents {
		early := EarlyAttendanceBonus(morningAgg.Records, morning.AbsentDays, afternoon.HasAttendance(), b)
		morning.EarlySuppressed = early.Suppressed
		if morning.HasAttendance() {
			morning.EarlyAttendanceBonus = early.Bonus
		}
	}

	zero := generic.ZeroAmount(generic.UnitShekel)
	res := StudentResult{
		StudentID:              in.StudentID,
		FullName:               FullName(in.LastName, in.FirstName),
		Morning:                morning,
		Afternoon:              afternoon,
		TotalBase:              morning.Base.Add(afternoon.Base),
		TotalBonus:             morning.DailyBonus.Add(afternoon.DailyBonus),
		Tier1Bonus:             zero,
		Tier2Bonus:             zero,
		PerfectAttendanceBonus: zero,
		EarlyAttendanceBonus:   morning.EarlyAttendanceBonus,
	}

	if morning.HasAttendance() && afternoon.HasAttendance() {
		if morning.MissedHours.LessThanOrEqual(b.MorningTier1MaxMissing) &&
			afternoon.MissedHours.LessThanOrEqual(b.AfternoonTier1MaxMissing) {
			res.Tier1Bonus = b.Tier1Amount
		}
		if morning.MissedHours.LessThanOrEqual(b.MorningTier2MaxMissing) &&
			afternoon.MissedHours.LessThanOrEqual(b.AfternoonTier2MaxMissing) {
			res.Tier2Bonus = b.Tier2Amount
		}
		if morning.AbsentDays == 0 && morning.LateDays == 0 &&
			afternoon.AbsentDays == 0 && afternoon.LateDays == 0 {
			res.PerfectAttendanceBonus = b.PerfectAttendanceBonus
		}
	}

	res.GrandTotal = res.TotalBase.
		Add(res.TotalBonus).
		Add(res.EarlyAttendanceBonus).
		Add(res.Tier1Bonus).
		Add(res.Tier2Bonus).
		Add(res.PerfectAttendanceBonus)

	res.Warnings = buildWarnings(e.locale, morning, afternoon, in.Anomalies, b.MaxAllowedLatesOrAbsences)
	return res
}

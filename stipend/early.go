/*
early.go - Early-attendance bonus (morning only)

PURPOSE:
  Rewards students who consistently arrive before the early cutoff (09:00).

RULES:
  - More than MaxAllowedLatesOrAbsences morning absences: no bonus, and the
    student gets a warning naming the absence count.
  - At most one arrival at or after the cutoff in the month: the full cap.
  - Otherwise: 35 for each ISO week (of attended days) with at most one
    arrival at or after the cutoff, capped at the same ceiling.

  The ceiling is 200 when the student also attends the afternoon session,
  100 otherwise.
*/
package stipend

import (
	"github.com/kollel/stipend-engine/generic"
)

// EarlyAttendance is the outcome of the early-attendance rule.
type EarlyAttendance struct {
	Bonus           generic.Amount
	Suppressed      bool
	LateAfterCutoff int
	GoodWeeks       int
}

type isoWeek struct{ year, week int }

// EarlyAttendanceBonus evaluates the rule over the attended morning days.
func EarlyAttendanceBonus(records []DailyRecord, absentDays int, hasAfternoon bool, b BonusPolicy) EarlyAttendance {
	res := EarlyAttendance{Bonus: generic.ZeroAmount(generic.UnitShekel)}
	if absentDays > b.MaxAllowedLatesOrAbsences {
		res.Suppressed = true
		return res
	}

	ceiling := b.EarlyAttendanceCapWithoutAfternoon
	if hasAfternoon {
		ceiling = b.EarlyAttendanceCapWithAfternoon
	}

	lateByWeek := make(map[isoWeek]int)
	for _, rec := range records {
		y, w := rec.Date.ISOWeek()
		wk := isoWeek{y, w}
		if rec.Entry.AtOrAfter(b.EarlyAttendanceCutoff) {
			res.LateAfterCutoff++
			lateByWeek[wk]++
		} else if _, seen := lateByWeek[wk]; !seen {
			lateByWeek[wk] = 0
		}
	}

	if res.LateAfterCutoff <= b.EarlyAttendanceMaxLateDays {
		res.Bonus = ceiling
		return res
	}

	for _, n := range lateByWeek {
		if n <= b.EarlyAttendanceMaxLateDays {
			res.GoodWeeks++
		}
	}
	res.Bonus = b.EarlyAttendanceWeeklyBonus.MulInt(res.GoodWeeks).Min(ceiling)
	return res
}

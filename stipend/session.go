package stipend

import (
	"sort"

	"github.com/kollel/stipend-engine/generic"
)

// =============================================================================
// SESSION CLASSIFIER - One student, one session, whole period
// =============================================================================

// ClassifySession classifies every attended day and computes the session's
// counts, hours, base and daily bonus. hadEvents is false when the input held
// no rows for this session at all; the result is then all-absent with a zero
// base and the reduction rule is not applied.
func ClassifySession(session Session, agg DailyAggregate, hadEvents bool, workingDays int, p Policy) SessionStats {
	sp := p.ForSession(session)
	b := p.Bonus
	expectedTotal := sp.ExpectedHours.MulInt(workingDays)

	stats := SessionStats{
		Session:              session,
		Base:                 generic.ZeroAmount(generic.UnitShekel),
		DailyBonus:           generic.ZeroAmount(generic.UnitShekel),
		TotalHours:           generic.ZeroAmount(generic.UnitHours),
		MissedHours:          expectedTotal,
		AbsentDays:           workingDays,
		EarlyAttendanceBonus: generic.ZeroAmount(generic.UnitShekel),
		MissingExitDays:      len(agg.MissingExit),
		HadEvents:            hadEvents,
	}
	if !hadEvents {
		return stats
	}

	var late, veryLate, perfect, partial int
	sumHours := generic.ZeroAmount(generic.UnitHours)
	days := make([]DayDetail, 0, len(agg.Records)+len(agg.MissingExit))

	for _, rec := range agg.Records {
		d := classifyDay(session, rec, sp, b)
		switch d.Status {
		case DayLate:
			late++
		case DayVeryLate:
			veryLate++
		}
		if d.Perfect {
			perfect++
		}
		if d.Partial {
			partial++
		}
		sumHours = sumHours.Add(rec.Hours)
		days = append(days, d)
	}
	for _, rec := range agg.MissingExit {
		days = append(days, DayDetail{
			Date:        rec.Date,
			Session:     session,
			Entry:       rec.Entry,
			Exit:        rec.Exit,
			Continuous:  rec.Continuous,
			Hours:       generic.ZeroAmount(generic.UnitHours),
			Status:      DayMissingExit,
			DailyBonus:  generic.ZeroAmount(generic.UnitShekel),
			MissedHours: sp.ExpectedHours,
		})
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	stats.AttendedDays = min(len(agg.Records), workingDays)
	stats.AbsentDays = workingDays - stats.AttendedDays
	stats.LateDays = min(late, workingDays)
	stats.VeryLateDays = min(veryLate, workingDays)
	stats.PerfectDays = min(perfect, workingDays)
	stats.PartialBonusDays = min(partial, workingDays)
	stats.TotalHours = sumHours.Min(expectedTotal)
	stats.MissedHours = expectedTotal.Sub(stats.TotalHours).ClampZero()
	stats.Days = days

	limit := b.MaxAllowedLatesOrAbsences
	if stats.LateDays > limit || stats.AbsentDays > limit {
		stats.BaseReduced = true
		stats.Base = sp.LateDailyRate.MulInt(stats.AttendedDays - stats.VeryLateDays).
			Add(b.PartialDayBonus.MulInt(stats.VeryLateDays)).
			ClampZero()
	} else {
		stats.Base = sp.BaseAmount
	}

	stats.DailyBonus = b.PerfectDayBonus.MulInt(stats.PerfectDays).
		Add(b.PartialDayBonus.MulInt(stats.PartialBonusDays))
	return stats
}

// classifyDay builds the audit line of one attended day.
func classifyDay(session Session, rec DailyRecord, sp SessionPolicy, b BonusPolicy) DayDetail {
	d := DayDetail{
		Date:        rec.Date,
		Session:     session,
		Entry:       rec.Entry,
		Exit:        rec.Exit,
		Continuous:  rec.Continuous,
		Hours:       rec.Hours,
		Status:      DayOnTime,
		DailyBonus:  generic.ZeroAmount(generic.UnitShekel),
		MissedHours: sp.ExpectedHours.Sub(rec.Hours).ClampZero(),
	}

	switch {
	case rec.Entry.AtOrAfter(sp.VeryLateThreshold):
		d.Status = DayVeryLate
	case rec.Entry.AtOrAfter(sp.LateThreshold):
		d.Status = DayLate
	}
	if late := rec.Entry.Minutes() - sp.PerfectStart.Minutes(); late > 0 {
		d.MinutesLate = late
	}
	if session == Morning {
		d.BeforeCutoff = rec.Entry.Before(b.EarlyAttendanceCutoff)
	}

	d.Perfect = rec.Continuous && rec.Entry.AtOrBefore(sp.PerfectStart) && rec.Exit.AtOrAfter(sp.End)
	d.Partial = rec.Continuous && !d.Perfect
	switch {
	case d.Perfect:
		d.DailyBonus = b.PerfectDayBonus
	case d.Partial:
		d.DailyBonus = b.PartialDayBonus
	}
	return d
}

package stipend_test

import (
	"testing"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DAILY AGGREGATION
// =============================================================================

func TestAggregateDaily_MergesEventsOfOneDate(t *testing.T) {
	// GIVEN: Two swipe pairs on the same morning, only the second continuous
	// WHEN: Aggregating
	// THEN: Earliest entry, latest exit, continuous, hours clipped to the window

	d := studyDays(1)[0]
	events := []stipend.AttendanceEvent{
		event("1", d, "11:10", "13:05", true),
		event("1", d, "09:20", "11:00", false),
	}

	agg := stipend.AggregateDaily(events, stipend.DefaultMorningPolicy())

	require.Len(t, agg.Records, 1)
	rec := agg.Records[0]
	assert.Equal(t, tod("09:20"), rec.Entry)
	assert.Equal(t, tod("13:05"), rec.Exit)
	assert.True(t, rec.Continuous)
	assertAmount(t, hrs("3.5"), rec.Hours, "hours inside 09:30-13:00")
	assert.Empty(t, agg.MissingExit)
}

func TestAggregateDaily_SentinelExitDropsDay(t *testing.T) {
	dates := studyDays(2)
	events := []stipend.AttendanceEvent{
		event("1", dates[1], "09:00", "13:00", true),
		event("1", dates[0], "09:00", "00:00", true),
	}

	agg := stipend.AggregateDaily(events, stipend.DefaultMorningPolicy())

	require.Len(t, agg.Records, 1)
	assert.Equal(t, dates[1], agg.Records[0].Date)
	require.Len(t, agg.MissingExit, 1)
	assert.Equal(t, dates[0], agg.MissingExit[0].Date)
}

func TestHoursPresent_RoundsAndFloors(t *testing.T) {
	sp := stipend.DefaultAfternoonPolicy()

	assertAmount(t, hrs("0"), stipend.HoursPresent(tod("17:30"), tod("18:00"), sp), "after window")
	assertAmount(t, hrs("0.33"), stipend.HoursPresent(tod("13:00"), tod("14:20"), sp), "20 minutes")
	assertAmount(t, hrs("3"), stipend.HoursPresent(tod("13:00"), tod("19:00"), sp), "whole window")
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func classify(t *testing.T, session stipend.Session, events []stipend.AttendanceEvent, w int) stipend.SessionStats {
	t.Helper()
	p := stipend.DefaultPolicy()
	agg := stipend.AggregateDaily(events, p.ForSession(session))
	return stipend.ClassifySession(session, agg, len(events) > 0, w, p)
}

func TestClassifySession_LateThresholdBoundaries(t *testing.T) {
	// GIVEN: Entries just before, at and after the morning thresholds
	// WHEN: Classifying
	// THEN: late is [10:00, 10:30), very late is >= 10:30

	dates := studyDays(5)
	events := []stipend.AttendanceEvent{
		event("1", dates[0], "09:59", "13:00", false),
		event("1", dates[1], "10:00", "13:00", false),
		event("1", dates[2], "10:29", "13:00", false),
		event("1", dates[3], "10:30", "13:00", false),
		event("1", dates[4], "11:45", "13:00", false),
	}

	stats := classify(t, stipend.Morning, events, 5)

	assert.Equal(t, 2, stats.LateDays)
	assert.Equal(t, 2, stats.VeryLateDays)
	statuses := make([]stipend.DayStatus, 0, len(stats.Days))
	for _, d := range stats.Days {
		statuses = append(statuses, d.Status)
	}
	assert.Equal(t, []stipend.DayStatus{
		stipend.DayOnTime, stipend.DayLate, stipend.DayLate, stipend.DayVeryLate, stipend.DayVeryLate,
	}, statuses)
	assert.Equal(t, 29, stats.Days[0].MinutesLate)
}

func TestClassifySession_PerfectNeedsPunctualFullContinuousDay(t *testing.T) {
	dates := studyDays(4)
	events := []stipend.AttendanceEvent{
		event("1", dates[0], "09:30", "13:00", true),  // perfect
		event("1", dates[1], "09:31", "13:00", true),  // partial: after perfect start
		event("1", dates[2], "09:00", "12:59", true),  // partial: left early
		event("1", dates[3], "09:00", "13:00", false), // neither: not continuous
	}

	stats := classify(t, stipend.Morning, events, 4)

	assert.Equal(t, 1, stats.PerfectDays)
	assert.Equal(t, 2, stats.PartialBonusDays)
	assertAmount(t, shekels(30), stats.DailyBonus, "20 + 2×5")
}

func TestClassifySession_ReducedBaseCountsVeryLateAtPartialRate(t *testing.T) {
	// GIVEN: 20 attended afternoons, 3 late and 1 very late
	// WHEN: Classifying
	// THEN: Base = (20-1)×10 + 1×5

	dates := studyDays(20)
	var events []stipend.AttendanceEvent
	for i, d := range dates {
		entry := "14:00"
		switch {
		case i < 3:
			entry = "14:20"
		case i == 3:
			entry = "14:45"
		}
		events = append(events, event("1", d, entry, "17:00", false))
	}

	stats := classify(t, stipend.Afternoon, events, 20)

	assert.Equal(t, 3, stats.LateDays)
	assert.Equal(t, 1, stats.VeryLateDays)
	assert.True(t, stats.BaseReduced)
	assertAmount(t, shekels(195), stats.Base, "reduced afternoon base")
}

func TestClassifySession_VeryLateAloneDoesNotReduceBase(t *testing.T) {
	dates := studyDays(10)
	events := everyDay("1", dates, "10:45", "13:00", false)

	stats := classify(t, stipend.Morning, events, 10)

	assert.Equal(t, 0, stats.LateDays)
	assert.Equal(t, 10, stats.VeryLateDays)
	assert.False(t, stats.BaseReduced)
	assertAmount(t, shekels(400), stats.Base, "full base")
}

func TestClassifySession_CountsCappedAtWorkingDays(t *testing.T) {
	// GIVEN: 25 attended days but only 20 working days configured
	// WHEN: Classifying
	// THEN: No count exceeds 20 and hours are capped at 20×3.5

	events := everyDay("1", studyDays(25), "10:10", "13:00", true)

	stats := classify(t, stipend.Morning, events, 20)

	assert.Equal(t, 20, stats.AttendedDays)
	assert.Equal(t, 0, stats.AbsentDays)
	assert.Equal(t, 20, stats.LateDays)
	assert.Equal(t, 20, stats.PartialBonusDays)
	assertAmount(t, hrs("70"), stats.TotalHours, "25 × 2.83h capped at 20 × 3.5h")
	assertAmount(t, hrs("0"), stats.MissedHours, "missed hours")
}

func TestClassifySession_EmptySessionShortCircuits(t *testing.T) {
	stats := classify(t, stipend.Morning, nil, 18)

	assert.Equal(t, 18, stats.AbsentDays)
	assert.Equal(t, 0, stats.AttendedDays)
	assertAmount(t, shekels(0), stats.Base, "base")
	assertAmount(t, hrs("63"), stats.MissedHours, "18 × 3.5")
	assert.False(t, stats.BaseReduced)
	assert.Empty(t, stats.Days)
}

// =============================================================================
// EARLY-ATTENDANCE BONUS
// =============================================================================

func morningRecords(t *testing.T, events []stipend.AttendanceEvent) []stipend.DailyRecord {
	t.Helper()
	return stipend.AggregateDaily(events, stipend.DefaultMorningPolicy()).Records
}

func TestEarlyAttendanceBonus_OneLateDayKeepsFullCap(t *testing.T) {
	dates := studyDays(20)
	events := everyDay("1", dates, "08:55", "13:00", true)
	events[7] = event("1", dates[7], "09:10", "13:00", true)
	recs := morningRecords(t, events)
	b := stipend.DefaultBonusPolicy()

	withAfternoon := stipend.EarlyAttendanceBonus(recs, 0, true, b)
	withoutAfternoon := stipend.EarlyAttendanceBonus(recs, 0, false, b)

	assert.Equal(t, 1, withAfternoon.LateAfterCutoff)
	assertAmount(t, shekels(200), withAfternoon.Bonus, "cap with afternoon")
	assertAmount(t, shekels(100), withoutAfternoon.Bonus, "cap without afternoon")
}

func TestEarlyAttendanceBonus_WeeklyCountingByISOWeek(t *testing.T) {
	// GIVEN: 20 days from Sunday 2024-03-03 span ISO weeks 9..13;
	//        two late arrivals in week 10 and one in week 11
	// WHEN: Computing the bonus
	// THEN: 4 good weeks × 35 = 140, capped at 100 without afternoon

	dates := studyDays(20)
	events := everyDay("1", dates, "08:55", "13:00", true)
	for _, i := range []int{1, 2, 6} { // Mar 4, Mar 5, Mar 11
		events[i] = event("1", dates[i], "09:05", "13:00", true)
	}
	recs := morningRecords(t, events)
	b := stipend.DefaultBonusPolicy()

	withAfternoon := stipend.EarlyAttendanceBonus(recs, 0, true, b)
	withoutAfternoon := stipend.EarlyAttendanceBonus(recs, 0, false, b)

	assert.Equal(t, 3, withAfternoon.LateAfterCutoff)
	assert.Equal(t, 4, withAfternoon.GoodWeeks)
	assertAmount(t, shekels(140), withAfternoon.Bonus, "weekly bonus")
	assertAmount(t, shekels(100), withoutAfternoon.Bonus, "capped weekly bonus")
}

func TestEarlyAttendanceBonus_SuppressedByAbsences(t *testing.T) {
	recs := morningRecords(t, everyDay("1", studyDays(17), "08:30", "13:00", true))

	res := stipend.EarlyAttendanceBonus(recs, 3, true, stipend.DefaultBonusPolicy())

	assert.True(t, res.Suppressed)
	assert.True(t, res.Bonus.IsZero())
}

// =============================================================================
// PROPERTIES
// =============================================================================

// mixedBatch has several students with late, very late, missing-exit and
// split days across both sessions.
func mixedBatch() []stipend.AttendanceEvent {
	dates := studyDays(20)
	entries := []string{"08:40", "09:10", "09:45", "10:05", "10:40", "09:30"}
	exits := []string{"13:00", "12:30", "00:00", "13:10", "11:00"}
	var events []stipend.AttendanceEvent
	for s, id := range []string{"10", "11", "12", "13"} {
		for i, d := range dates {
			if (i+s)%7 == 3 {
				continue
			}
			k := i + s
			events = append(events, event(id, d, entries[k%len(entries)], exits[k%len(exits)], k%2 == 0))
			if s%2 == 0 {
				events = append(events, event(id, d, "14:05", "16:50", k%3 != 0))
				if k%5 == 0 {
					events = append(events, event(id, d, "14:20", "17:00", false))
				}
			}
		}
	}
	return events
}

func TestProperty_AttendedPlusAbsentEqualsWorkingDays(t *testing.T) {
	e := newEngine(t)
	results, err := e.Compute(mixedBatch(), 20)
	require.NoError(t, err)

	for _, r := range results {
		for _, s := range stipend.Sessions {
			stats := r.Stats(s)
			assert.Equal(t, 20, stats.AttendedDays+stats.AbsentDays, "%s %s", r.StudentID, s)
			assert.False(t, stats.MissedHours.IsNegative())
			expected := e.Policy().ForSession(s).ExpectedHours.MulInt(20)
			assert.Equal(t, stats.MissedHours.IsZero(), !stats.TotalHours.LessThan(expected))
			assert.LessOrEqual(t, stats.PerfectDays+stats.PartialBonusDays, stats.AttendedDays)
		}
	}
}

func TestProperty_PerfectImpliesContinuous(t *testing.T) {
	e := newEngine(t)
	results, err := e.Compute(mixedBatch(), 20)
	require.NoError(t, err)

	for _, r := range results {
		for _, s := range stipend.Sessions {
			continuous := 0
			for _, d := range r.Stats(s).Days {
				if d.Status == stipend.DayMissingExit {
					continue
				}
				if d.Continuous {
					continuous++
				}
				assert.False(t, d.Perfect && d.Partial)
				if d.Perfect {
					assert.True(t, d.Continuous)
				}
			}
			assert.LessOrEqual(t, r.Stats(s).PerfectDays, continuous)
		}
	}
}

func TestProperty_OrderIndependentAndIdempotent(t *testing.T) {
	// GIVEN: The same rows in file order and reversed
	// WHEN: Computing both twice
	// THEN: All numeric output is identical

	e := newEngine(t)
	events := mixedBatch()
	reversed := make([]stipend.AttendanceEvent, len(events))
	for i, ev := range events {
		reversed[len(events)-1-i] = ev
	}

	first, err := e.Compute(events, 20)
	require.NoError(t, err)
	second, err := e.Compute(events, 20)
	require.NoError(t, err)
	permuted, err := e.Compute(reversed, 20)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, permuted)
}

func TestProperty_SentinelExitNeverCounts(t *testing.T) {
	// GIVEN: A student whose every exit is missing
	// WHEN: Computing
	// THEN: Nothing is attended and no hours are credited

	e := newEngine(t)
	dates := studyDays(10)
	events := everyDay("1", dates, "09:00", "00:00", true)
	events = append(events, everyDay("1", dates, "14:00", "00:00", true)...)

	r := computeOne(t, e, events, 10)

	for _, s := range stipend.Sessions {
		stats := r.Stats(s)
		assert.Equal(t, 0, stats.AttendedDays)
		assert.Equal(t, 0, stats.LateDays)
		assert.Equal(t, 0, stats.PerfectDays)
		assert.True(t, stats.TotalHours.IsZero())
		assert.Equal(t, 10, stats.MissingExitDays)
	}
	assert.True(t, r.GrandTotal.IsZero())
}

func TestProperty_MonthlyBonusesNeedBothSessions(t *testing.T) {
	e := newEngine(t)
	events := everyDay("1", studyDays(20), "08:30", "13:00", true)

	r := computeOne(t, e, events, 20)

	assert.True(t, r.Tier1Bonus.IsZero())
	assert.True(t, r.Tier2Bonus.IsZero())
	assert.True(t, r.PerfectAttendanceBonus.IsZero())
	// Early arrival without afternoon is capped at 100, not withheld.
	assertAmount(t, shekels(100), r.EarlyAttendanceBonus, "early arrival")
	assert.Equal(t, generic.StudentID("1"), r.StudentID)
}

func TestEarlyAttendance_MissingExitOnlyMorningEarnsNothing(t *testing.T) {
	// GIVEN: Two study days with early morning entries but no recorded exits
	// WHEN: The afternoon is attended in full
	// THEN: The morning counts as unattended and earns no early-arrival bonus

	e := newEngine(t)
	dates := studyDays(2)
	events := everyDay("1", dates, "08:30", "00:00", true)
	events = append(events, everyDay("1", dates, "14:00", "17:00", true)...)

	r := computeOne(t, e, events, 2)

	require.True(t, r.Morning.HadEvents)
	assert.Equal(t, 0, r.Morning.AttendedDays)
	assert.Equal(t, 2, r.Afternoon.AttendedDays)
	assert.True(t, r.Morning.EarlyAttendanceBonus.IsZero())
	assert.True(t, r.EarlyAttendanceBonus.IsZero())
	assertAmount(t, r.TotalBase.Add(r.TotalBonus), r.GrandTotal, "grand total without early bonus")
}

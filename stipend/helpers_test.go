package stipend_test

import (
	"testing"
	"time"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// studyDays returns n consecutive Sunday-Thursday dates starting on
// Sunday 2024-03-03.
func studyDays(n int) []generic.Date {
	var out []generic.Date
	for d := generic.NewDate(2024, time.March, 3); len(out) < n; d = d.AddDays(1) {
		if wd := d.Weekday(); wd == time.Friday || wd == time.Saturday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func tod(s string) generic.TimeOfDay { return generic.MustParseTimeOfDay(s) }

func event(id string, date generic.Date, entry, exit string, continuous bool) stipend.AttendanceEvent {
	in := tod(entry)
	return stipend.AttendanceEvent{
		StudentID:  generic.StudentID(id),
		LastName:   "Cohen",
		FirstName:  "Moshe",
		Date:       date,
		Entry:      in,
		Exit:       tod(exit),
		Session:    stipend.SessionForEntry(in),
		Continuous: continuous,
	}
}

// everyDay builds one event per date with the same times.
func everyDay(id string, dates []generic.Date, entry, exit string, continuous bool) []stipend.AttendanceEvent {
	out := make([]stipend.AttendanceEvent, 0, len(dates))
	for _, d := range dates {
		out = append(out, event(id, d, entry, exit, continuous))
	}
	return out
}

func newEngine(t *testing.T, opts ...stipend.Option) *stipend.Engine {
	t.Helper()
	e, err := stipend.NewEngine(stipend.DefaultPolicy(), opts...)
	require.NoError(t, err)
	return e
}

func shekels(n int) generic.Amount { return generic.NewAmountFromInt(n, generic.UnitShekel) }

func hrs(s string) generic.Amount {
	return generic.Amount{Value: generic.MustParseDecimal(s), Unit: generic.UnitHours}
}

func computeOne(t *testing.T, e *stipend.Engine, events []stipend.AttendanceEvent, workingDays int) stipend.StudentResult {
	t.Helper()
	results, err := e.Compute(events, workingDays)
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func warningCodes(r stipend.StudentResult) []stipend.WarningCode {
	var codes []stipend.WarningCode
	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func assertAmount(t *testing.T, want, got generic.Amount, msg string) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "%s: want %s, got %s", msg, want, got)
}

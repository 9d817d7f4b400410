/*
daily.go - Per-day aggregation of raw swipe events

PURPOSE:
  Collapses all events of one student, one session and one date into a
  single DailyRecord: earliest entry, latest exit, continuous if any event
  was, and the hours spent inside the session window.

MISSING EXIT:
  A day whose aggregated exit is the sentinel (00:00) is dropped from the
  attended set. It is returned separately so that it can be counted in a
  warning and shown in the audit detail.

EXAMPLE:
  events for 2024-03-04 (morning):
    09:20-11:00 continuous=false
    11:10-13:05 continuous=true
  →  DailyRecord{Entry: 09:20, Exit: 13:05, Continuous: true, Hours: 3.50}
*/
package stipend

import (
	"sort"

	"github.com/kollel/stipend-engine/generic"
	"github.com/shopspring/decimal"
)

// DailyAggregate is the outcome of grouping one session's events by date.
type DailyAggregate struct {
	// Records are the attended days, sorted by date.
	Records []DailyRecord
	// MissingExit are the days dropped because no exit time was recorded.
	MissingExit []DailyRecord
}

// AggregateDaily groups events by date and builds one record per day.
// Events are expected to belong to one student and one session.
func AggregateDaily(events []AttendanceEvent, sp SessionPolicy) DailyAggregate {
	byDate := make(map[generic.Date]*DailyRecord)
	for _, ev := range events {
		rec, ok := byDate[ev.Date]
		if !ok {
			byDate[ev.Date] = &DailyRecord{
				Date:       ev.Date,
				Entry:      ev.Entry,
				Exit:       ev.Exit,
				Continuous: ev.Continuous,
			}
			continue
		}
		rec.Entry = rec.Entry.EarlierOf(ev.Entry)
		rec.Exit = rec.Exit.LaterOf(ev.Exit)
		rec.Continuous = rec.Continuous || ev.Continuous
	}

	dates := make([]generic.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var out DailyAggregate
	for _, d := range dates {
		rec := *byDate[d]
		if rec.Exit.IsMissing() {
			rec.Hours = generic.ZeroAmount(generic.UnitHours)
			out.MissingExit = append(out.MissingExit, rec)
			continue
		}
		rec.Hours = HoursPresent(rec.Entry, rec.Exit, sp)
		out.Records = append(out.Records, rec)
	}
	return out
}

// HoursPresent returns the overlap of [entry, exit] with the session window,
// in hours rounded to two decimals. Zero when they do not overlap.
func HoursPresent(entry, exit generic.TimeOfDay, sp SessionPolicy) generic.Amount {
	minutes := generic.OverlapMinutes(entry, exit, sp.Start, sp.End)
	h := decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
	return generic.Amount{Value: h, Unit: generic.UnitHours}
}

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// EVENT STORE - Imported attendance kept between upload and computation
// =============================================================================

// EventStore persists normalized attendance events and the Kollel's
// holiday list. Stored events are read back as a Table so they go through
// Normalize like any uploaded file.
type EventStore interface {
	// SaveEvents stores events, ignoring exact duplicates. Returns the number
	// of new rows.
	SaveEvents(ctx context.Context, events []stipend.AttendanceEvent) (int, error)

	// Source returns a table source over the events dated within period.
	Source(period generic.Period) Source

	// DeleteEvents removes the events dated within period.
	DeleteEvents(ctx context.Context, period generic.Period) (int, error)

	SaveHoliday(ctx context.Context, h generic.Holiday) error
	Holidays(ctx context.Context, period generic.Period) ([]generic.Holiday, error)
}

// EventHeader is the header of tables produced by event stores.
var EventHeader = []string{
	string(ColID), string(ColLastName), string(ColFirstName), string(ColDate),
	string(ColEntry), string(ColExit), string(ColContinuous),
}

// EventRow renders an event as a row under EventHeader.
func EventRow(ev stipend.AttendanceEvent) []any {
	return []any{
		string(ev.StudentID), ev.LastName, ev.FirstName, ev.Date.String(),
		ev.Entry.String(), ev.Exit.String(), ev.Continuous,
	}
}

// CalendarFor loads the holidays stored for period as a calendar.
func CalendarFor(ctx context.Context, s EventStore, period generic.Period) (generic.StaticHolidayCalendar, error) {
	hs, err := s.Holidays(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return generic.NewStaticHolidayCalendar(hs...), nil
}

// DominantMonth returns the month most events fall in; ties go to the
// earlier month. False when there are no events.
func DominantMonth(events []stipend.AttendanceEvent) (generic.Period, bool) {
	type ym struct {
		y int
		m time.Month
	}
	counts := make(map[ym]int)
	var best ym
	for _, e := range events {
		k := ym{e.Date.Year, e.Date.Month}
		counts[k]++
		c, b := counts[k], counts[best]
		if c > b || (c == b && (k.y < best.y || (k.y == best.y && k.m < best.m))) {
			best = k
		}
	}
	if len(counts) == 0 {
		return generic.Period{}, false
	}
	return generic.MonthPeriod(best.y, best.m), true
}

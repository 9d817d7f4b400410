package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - The reporting window a stipend is computed for
// =============================================================================

// Period is an inclusive range of calendar days, normally one month.
type Period struct {
	Start Date
	End   Date
}

// MonthPeriod returns the period covering the whole of the given month.
func MonthPeriod(year int, month time.Month) Period {
	start := NewDate(year, month, 1)
	end := DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
	return Period{Start: start, End: end}
}

// ParseMonth parses "2006-01" into a month period.
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", ErrInvalidPeriod, s)
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

// Validate checks that the period is well formed.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the day is within the period [Start, End].
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; !current.After(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// DefaultWeekend is the Kollel's weekly closure: Friday and Saturday.
var DefaultWeekend = []time.Weekday{time.Friday, time.Saturday}

// WorkingDays counts the days in the period that are neither weekend days
// nor holidays. A nil calendar means no holidays.
func (p Period) WorkingDays(weekend []time.Weekday, calendar HolidayCalendar) int {
	closed := make(map[time.Weekday]bool, len(weekend))
	for _, wd := range weekend {
		closed[wd] = true
	}
	count := 0
	for _, day := range p.Days() {
		if closed[day.Weekday()] {
			continue
		}
		if calendar != nil && calendar.IsHoliday(day) {
			continue
		}
		count++
	}
	return count
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// ParseWeekdays parses a comma separated list of English weekday names
// ("friday,saturday"). Short forms ("fri") are accepted.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		found := false
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			name := strings.ToLower(wd.String())
			if part == name || part == name[:3] {
				out = append(out, wd)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
	}
	return out, nil
}

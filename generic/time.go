package generic

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TIME OF DAY - Wall-clock time inside a study day
// =============================================================================

// TimeOfDay is a wall-clock time without a date. The zero value (00:00:00)
// is the sentinel for "no time recorded"; see IsMissing.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// MissingTime is the canonical sentinel for a missing or unparsable exit time.
var MissingTime = TimeOfDay{}

const secondsPerDay = 24 * 60 * 60

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// MustParseTimeOfDay parses "15:04" or "15:04:05" and panics on failure.
// Intended for literal policy defaults.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := parseClock(s)
	if err != nil {
		panic(fmt.Sprintf("generic: invalid time of day %q: %v", s, err))
	}
	return t
}

func timeOfDayFromSeconds(secs int64) TimeOfDay {
	secs %= secondsPerDay
	if secs < 0 {
		secs += secondsPerDay
	}
	return TimeOfDay{
		Hour:   int(secs / 3600),
		Minute: int(secs % 3600 / 60),
		Second: int(secs % 60),
	}
}

func timeOfDayFromTime(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// IsMissing reports whether t is the "no time recorded" sentinel.
func (t TimeOfDay) IsMissing() bool { return t == MissingTime }

// Minutes returns minutes since midnight. Seconds are ignored: every rule
// in the engine compares times at minute resolution.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) Before(o TimeOfDay) bool     { return t.Minutes() < o.Minutes() }
func (t TimeOfDay) After(o TimeOfDay) bool      { return t.Minutes() > o.Minutes() }
func (t TimeOfDay) AtOrAfter(o TimeOfDay) bool  { return t.Minutes() >= o.Minutes() }
func (t TimeOfDay) AtOrBefore(o TimeOfDay) bool { return t.Minutes() <= o.Minutes() }
func (t TimeOfDay) SecondsOfDay() int           { return t.Hour*3600 + t.Minute*60 + t.Second }

// LaterOf compares at second resolution; ties return t.
func (t TimeOfDay) LaterOf(o TimeOfDay) TimeOfDay {
	if t.SecondsOfDay() >= o.SecondsOfDay() {
		return t
	}
	return o
}

func (t TimeOfDay) EarlierOf(o TimeOfDay) TimeOfDay {
	if t.SecondsOfDay() <= o.SecondsOfDay() {
		return t
	}
	return o
}

func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalText renders HH:MM[:SS] so JSON payloads stay readable.
func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := parseClock(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// OverlapMinutes returns the number of minutes [entry, exit] overlaps
// [windowStart, windowEnd], or 0 when the intervals do not overlap.
func OverlapMinutes(entry, exit, windowStart, windowEnd TimeOfDay) int {
	start := max(entry.Minutes(), windowStart.Minutes())
	end := min(exit.Minutes(), windowEnd.Minutes())
	if end <= start {
		return 0
	}
	return end - start
}

// =============================================================================
// NORMALIZATION - Heterogeneous raw values to TimeOfDay
// =============================================================================

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"15:04:05.000",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05.000",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2.1.2006 15:04",
	time.DateOnly,
	"2/1/2006",
	"2.1.2006",
}

// spreadsheetEpoch is day 0 of spreadsheet serial date-times.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// NormalizeTime converts a raw cell value into a TimeOfDay.
//
// It never fails hard: on any problem it returns MissingTime together with a
// non-nil error. Blank values yield ErrMissingValue; values that are present
// but cannot be understood yield a *ParseAnomalyError.
//
// Accepted inputs: TimeOfDay, time.Time, time.Duration, fractional days
// (float or integer, as written by spreadsheets: seconds = round(v*86400)),
// and strings holding a clock time, a full timestamp or a fractional day.
func NormalizeTime(raw any) (TimeOfDay, error) {
	switch v := raw.(type) {
	case nil:
		return MissingTime, ErrMissingValue
	case TimeOfDay:
		return v, nil
	case *TimeOfDay:
		if v == nil {
			return MissingTime, ErrMissingValue
		}
		return *v, nil
	case time.Time:
		if v.IsZero() {
			return MissingTime, ErrMissingValue
		}
		return timeOfDayFromTime(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return MissingTime, ErrMissingValue
		}
		return timeOfDayFromTime(*v), nil
	case time.Duration:
		return timeOfDayFromSeconds(int64(v / time.Second)), nil
	case float64:
		return fractionToTime(raw, v)
	case float32:
		return fractionToTime(raw, float64(v))
	case int:
		return fractionToTime(raw, float64(v))
	case int64:
		return fractionToTime(raw, float64(v))
	case string:
		return normalizeTimeString(v)
	default:
		return MissingTime, &ParseAnomalyError{Raw: raw, Reason: fmt.Sprintf("unsupported type %T", raw)}
	}
}

func fractionToTime(raw any, v float64) (TimeOfDay, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingTime, &ParseAnomalyError{Raw: raw, Reason: "not a number"}
	}
	return timeOfDayFromSeconds(int64(math.Round(v * secondsPerDay))), nil
}

func normalizeTimeString(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "nan") {
		return MissingTime, ErrMissingValue
	}
	if t, err := parseClock(s); err == nil {
		return t, nil
	}
	if ts, err := parseTimestampString(s); err == nil {
		return timeOfDayFromTime(ts), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fractionToTime(s, f)
	}
	return MissingTime, &ParseAnomalyError{Raw: s, Reason: "unrecognized time format"}
}

func parseClock(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return timeOfDayFromTime(t), nil
		}
	}
	return MissingTime, fmt.Errorf("not a clock time: %q", s)
}

func parseTimestampString(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %q", s)
}

// NormalizeTimestamp converts a raw combined date-time cell into a time.Time.
// Numeric values are spreadsheet serial date-times (days since 1899-12-30).
// Failures follow the same contract as NormalizeTime.
func NormalizeTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, ErrMissingValue
	case time.Time:
		if v.IsZero() {
			return time.Time{}, ErrMissingValue
		}
		return v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, ErrMissingValue
		}
		return *v, nil
	case float64:
		return serialToTime(raw, v)
	case float32:
		return serialToTime(raw, float64(v))
	case int:
		return serialToTime(raw, float64(v))
	case int64:
		return serialToTime(raw, float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "nan") {
			return time.Time{}, ErrMissingValue
		}
		if ts, err := parseTimestampString(s); err == nil {
			return ts, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToTime(s, f)
		}
		return time.Time{}, &ParseAnomalyError{Raw: s, Reason: "unrecognized timestamp format"}
	default:
		return time.Time{}, &ParseAnomalyError{Raw: raw, Reason: fmt.Sprintf("unsupported type %T", raw)}
	}
}

func serialToTime(raw any, v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return time.Time{}, &ParseAnomalyError{Raw: raw, Reason: "not a serial date-time"}
	}
	secs := int64(math.Round(v * secondsPerDay))
	return spreadsheetEpoch.Add(time.Duration(secs) * time.Second), nil
}

// =============================================================================
// DATE - Calendar day without a clock
// =============================================================================

// Date is a calendar day. It is comparable and safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time       { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) AddDays(n int) Date    { return DateOf(d.Time().AddDate(0, 0, n)) }
func (d Date) Before(o Date) bool    { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool     { return d.Time().After(o.Time()) }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) String() string        { return d.Time().Format(time.DateOnly) }

// ISOWeek returns the ISO 8601 year and week number of d.
func (d Date) ISOWeek() (year, week int) { return d.Time().ISOWeek() }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// HOLIDAY CALENDAR - Days the Kollel is closed
// =============================================================================

// Holiday is a closed day that does not count as a working day.
type Holiday struct {
	Date Date
	Name string
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(date Date) bool
}

// DefaultHolidayCalendar is a no-op calendar for when holidays are disabled.
type DefaultHolidayCalendar struct{}

func (DefaultHolidayCalendar) IsHoliday(Date) bool { return false }

// StaticHolidayCalendar is a fixed list of holidays, usually from config.
type StaticHolidayCalendar map[Date]string

func NewStaticHolidayCalendar(holidays ...Holiday) StaticHolidayCalendar {
	cal := make(StaticHolidayCalendar, len(holidays))
	for _, h := range holidays {
		cal[h.Date] = h.Name
	}
	return cal
}

func (c StaticHolidayCalendar) IsHoliday(date Date) bool {
	_, ok := c[date]
	return ok
}

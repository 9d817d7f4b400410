/*
report.go - Presentation model for computed stipends

PURPOSE:
  Turns a stipend.BatchResult into localized, typed rows that the CSV, XLSX
  and PDF exporters render. All labels are resolved here through i18n so
  exporters never look up messages themselves.

LAYOUT:
  Summary   one row per student plus a totals row
  Details   per student: one line per day and session, a session summary
            block, and the student's warnings
  Warnings  presentation problems collected while rendering (a detail sheet
            that could not be written). Numbers are never affected.
*/
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/i18n"
	"github.com/kollel/stipend-engine/stipend"
)

// WarningSeparator joins a student's warnings inside one summary cell.
const WarningSeparator = "; "

// maxSheetName is the spreadsheet limit on sheet name length.
const maxSheetName = 31

// Report is the rendered view of one batch.
type Report struct {
	Locale      string
	RTL         bool
	Title       string
	Subtitle    string
	RunID       string
	WorkingDays int
	GeneratedAt time.Time

	Summary Summary
	Details []Detail

	// Warnings are presentation problems found while exporting.
	Warnings []string
}

// Summary is the one-row-per-student table.
type Summary struct {
	Header []string
	Rows   []SummaryRow
	Totals SummaryRow
}

type SummaryRow struct {
	StudentID      string
	Name           string
	Warnings       string
	Base           generic.Amount
	Bonus          generic.Amount
	MorningBonus   generic.Amount
	AfternoonBonus generic.Amount
	Tier1          generic.Amount
	Tier2          generic.Amount
	Perfect        generic.Amount
	Early          generic.Amount
	Total          generic.Amount
}

// Amounts returns the money columns in header order.
func (r SummaryRow) Amounts() []generic.Amount {
	return []generic.Amount{
		r.Base, r.Bonus, r.MorningBonus, r.AfternoonBonus,
		r.Tier1, r.Tier2, r.Perfect, r.Early, r.Total,
	}
}

func (r SummaryRow) add(o SummaryRow) SummaryRow {
	r.Base = r.Base.Add(o.Base)
	r.Bonus = r.Bonus.Add(o.Bonus)
	r.MorningBonus = r.MorningBonus.Add(o.MorningBonus)
	r.AfternoonBonus = r.AfternoonBonus.Add(o.AfternoonBonus)
	r.Tier1 = r.Tier1.Add(o.Tier1)
	r.Tier2 = r.Tier2.Add(o.Tier2)
	r.Perfect = r.Perfect.Add(o.Perfect)
	r.Early = r.Early.Add(o.Early)
	r.Total = r.Total.Add(o.Total)
	return r
}

// Detail is the audit section of one student.
type Detail struct {
	StudentID string
	Name      string
	SheetName string
	Header    []string
	Days      []DayRow
	Stats     StatBlock
	Warnings  []string
}

// DayRow is one attended (or exit-less) day in one session.
type DayRow struct {
	Date         string
	Weekday      string
	Session      string
	Entry        string
	Exit         string
	Continuous   string
	Hours        generic.Amount
	Status       string
	MinutesLate  int
	BeforeCutoff string
	DailyBonus   generic.Amount
	MissedHours  generic.Amount
	Notes        string
}

// StatBlock compares the two sessions line by line.
type StatBlock struct {
	Header []string // label, morning, afternoon
	Lines  []StatLine
}

type StatLine struct {
	Label     string
	Morning   string
	Afternoon string
}

// =============================================================================
// BUILD
// =============================================================================

// Build renders res in the given locale.
func Build(res *stipend.BatchResult, locale string) *Report {
	locale = i18n.Normalize(locale)
	tr := func(id string, data ...map[string]any) string { return i18n.Tr(locale, id, data...) }

	now := time.Now()
	r := &Report{
		Locale:      locale,
		RTL:         i18n.IsRTL(locale),
		Title:       tr("report.title"),
		RunID:       res.RunID,
		WorkingDays: res.WorkingDays,
		GeneratedAt: now,
	}
	r.Subtitle = tr("report.generated", map[string]any{
		"Date":        now.Format(time.DateOnly),
		"WorkingDays": res.WorkingDays,
	})

	r.Summary.Header = labels(tr, "id", "name", "warnings", "base", "bonus", "morning_bonus",
		"afternoon_bonus", "tier1", "tier2", "perfect", "early", "total")

	zero := generic.ZeroAmount(generic.UnitShekel)
	r.Summary.Totals = SummaryRow{
		Name: tr("report.col.total"), Base: zero, Bonus: zero, MorningBonus: zero, AfternoonBonus: zero,
		Tier1: zero, Tier2: zero, Perfect: zero, Early: zero, Total: zero,
	}

	used := make(map[string]bool)
	used[strings.ToLower(tr("report.summary_sheet"))] = true
	for _, sr := range res.Results {
		row := summaryRow(sr)
		r.Summary.Rows = append(r.Summary.Rows, row)
		r.Summary.Totals = r.Summary.Totals.add(row)
		r.Details = append(r.Details, buildDetail(tr, sr, used))
	}
	return r
}

func labels(tr func(string, ...map[string]any) string, cols ...string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = tr("report.col." + c)
	}
	return out
}

func summaryRow(sr stipend.StudentResult) SummaryRow {
	return SummaryRow{
		StudentID:      string(sr.StudentID),
		Name:           sr.FullName,
		Warnings:       sr.WarningText(WarningSeparator),
		Base:           sr.TotalBase,
		Bonus:          sr.TotalBonus,
		MorningBonus:   sr.Morning.DailyBonus,
		AfternoonBonus: sr.Afternoon.DailyBonus,
		Tier1:          sr.Tier1Bonus,
		Tier2:          sr.Tier2Bonus,
		Perfect:        sr.PerfectAttendanceBonus,
		Early:          sr.EarlyAttendanceBonus,
		Total:          sr.GrandTotal,
	}
}

func buildDetail(tr func(string, ...map[string]any) string, sr stipend.StudentResult, used map[string]bool) Detail {
	d := Detail{
		StudentID: string(sr.StudentID),
		Name:      sr.FullName,
		SheetName: SheetName(string(sr.StudentID), sr.FullName, used),
		Header: labels(tr, "date", "weekday", "session", "entry", "exit", "continuous", "hours",
			"status", "minutes_late", "before_cutoff", "daily_bonus", "missed_hours", "notes"),
	}

	yesNo := func(b bool) string {
		if b {
			return tr("report.yes")
		}
		return tr("report.no")
	}

	days := append(append([]stipend.DayDetail(nil), sr.Morning.Days...), sr.Afternoon.Days...)
	sort.SliceStable(days, func(i, j int) bool {
		if days[i].Date != days[j].Date {
			return days[i].Date.Before(days[j].Date)
		}
		return days[i].Session == stipend.Morning && days[j].Session == stipend.Afternoon
	})
	for _, day := range days {
		row := DayRow{
			Date:        day.Date.String(),
			Weekday:     tr(fmt.Sprintf("weekday.%d", int(day.Date.Weekday()))),
			Session:     tr("session." + string(day.Session)),
			Entry:       day.Entry.String(),
			Exit:        day.Exit.String(),
			Continuous:  yesNo(day.Continuous),
			Hours:       day.Hours,
			Status:      tr("status." + string(day.Status)),
			MinutesLate: day.MinutesLate,
			DailyBonus:  day.DailyBonus,
			MissedHours: day.MissedHours,
		}
		if day.Status == stipend.DayMissingExit {
			row.Exit = tr("report.missing")
		}
		if day.Session == stipend.Morning && day.Status != stipend.DayMissingExit {
			row.BeforeCutoff = yesNo(day.BeforeCutoff)
		}
		switch {
		case day.Perfect:
			row.Notes = tr("report.note.perfect")
		case day.Partial:
			row.Notes = tr("report.note.partial")
		}
		d.Days = append(d.Days, row)
	}

	m, a := sr.Morning, sr.Afternoon
	stat := func(id string, mv, av string) StatLine {
		return StatLine{Label: tr("report.stat." + id), Morning: mv, Afternoon: av}
	}
	d.Stats = StatBlock{
		Header: []string{"", tr("session.morning"), tr("session.afternoon")},
		Lines: []StatLine{
			stat("attended", fmt.Sprint(m.AttendedDays), fmt.Sprint(a.AttendedDays)),
			stat("absent", fmt.Sprint(m.AbsentDays), fmt.Sprint(a.AbsentDays)),
			stat("late", fmt.Sprint(m.LateDays), fmt.Sprint(a.LateDays)),
			stat("very_late", fmt.Sprint(m.VeryLateDays), fmt.Sprint(a.VeryLateDays)),
			stat("perfect", fmt.Sprint(m.PerfectDays), fmt.Sprint(a.PerfectDays)),
			stat("partial", fmt.Sprint(m.PartialBonusDays), fmt.Sprint(a.PartialBonusDays)),
			stat("total_hours", Number(m.TotalHours), Number(a.TotalHours)),
			stat("missed_hours", Number(m.MissedHours), Number(a.MissedHours)),
			stat("base", Number(m.Base), Number(a.Base)),
			stat("daily_bonus", Number(m.DailyBonus), Number(a.DailyBonus)),
			stat("early", Number(sr.EarlyAttendanceBonus), ""),
		},
	}
	for _, w := range sr.Warnings {
		d.Warnings = append(d.Warnings, w.Message)
	}
	return d
}

// Number renders an amount without its unit and without trailing zeros.
func Number(a generic.Amount) string {
	return a.Value.String()
}

// =============================================================================
// SHEET NAMES
// =============================================================================

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")", "'", "",
)

// SheetName derives a unique spreadsheet sheet name for a student, at most
// 31 characters. used tracks names already taken (lowercased) and is updated.
func SheetName(id, name string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(strings.TrimSpace(id + " " + name)))
	if base == "" {
		base = "student"
	}
	base = truncateRunes(base, maxSheetName)

	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = strings.TrimSpace(truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix))) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

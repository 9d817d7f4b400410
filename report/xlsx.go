package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/i18n"
)

// XLSXExporter renders a workbook: the summary sheet first, then one
// detail sheet per student. Sheets are right-to-left for Hebrew.
//
// A detail sheet that cannot be written is dropped and reported in
// Report.Warnings; the workbook is still produced.
type XLSXExporter struct {
	SkipDetails bool
	Logger      *zap.Logger
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (e *XLSXExporter) Extension() string { return "xlsx" }

func (e *XLSXExporter) Render(r *Report) ([]byte, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	summary := i18n.Tr(r.Locale, "report.summary_sheet")
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, fmt.Errorf("xlsx summary sheet: %w", err)
	}
	if err := e.writeSummary(f, summary, r, bold); err != nil {
		return nil, fmt.Errorf("xlsx summary sheet: %w", err)
	}

	if !e.SkipDetails {
		for _, d := range r.Details {
			if err := e.writeDetail(f, d, r.RTL, bold); err != nil {
				_ = f.DeleteSheet(d.SheetName)
				msg := i18n.Tr(r.Locale, "report.detail_failed", map[string]any{
					"Student": d.StudentID,
					"Error":   err.Error(),
				})
				r.Warnings = append(r.Warnings, msg)
				log.Warn("detail sheet skipped",
					zap.String("student_id", d.StudentID),
					zap.String("sheet", d.SheetName),
					zap.Error(err))
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *XLSXExporter) writeSummary(f *excelize.File, sheet string, r *Report, bold int) error {
	if err := setRTL(f, sheet, r.RTL); err != nil {
		return err
	}
	if err := writeRow(f, sheet, 1, stringsToCells(r.Summary.Header)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(r.Summary.Header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	row := 2
	for _, sr := range r.Summary.Rows {
		if err := writeRow(f, sheet, row, summaryCells(sr)); err != nil {
			return err
		}
		row++
	}
	if err := writeRow(f, sheet, row, summaryCells(r.Summary.Totals)); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ = excelize.CoordinatesToCellName(len(r.Summary.Header), row)
	if err := f.SetCellStyle(sheet, first, last, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "B", "B", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "C", 60); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

func (e *XLSXExporter) writeDetail(f *excelize.File, d Detail, rtl bool, bold int) error {
	if _, err := f.NewSheet(d.SheetName); err != nil {
		return err
	}
	sheet := d.SheetName
	if err := setRTL(f, sheet, rtl); err != nil {
		return err
	}

	row := 1
	if err := writeRow(f, sheet, row, []any{d.StudentID, d.Name}); err != nil {
		return err
	}
	row += 2

	if err := writeRow(f, sheet, row, stringsToCells(d.Header)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(d.Header), row)
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), last, bold); err != nil {
		return err
	}
	row++
	for _, day := range d.Days {
		cells := []any{
			day.Date, day.Weekday, day.Session, day.Entry, day.Exit, day.Continuous,
			day.Hours.Float64(), day.Status, day.MinutesLate, day.BeforeCutoff,
			day.DailyBonus.Float64(), day.MissedHours.Float64(), day.Notes,
		}
		if err := writeRow(f, sheet, row, cells); err != nil {
			return err
		}
		row++
	}

	row++
	if err := writeRow(f, sheet, row, stringsToCells(d.Stats.Header)); err != nil {
		return err
	}
	row++
	for _, l := range d.Stats.Lines {
		if err := writeRow(f, sheet, row, []any{l.Label, l.Morning, l.Afternoon}); err != nil {
			return err
		}
		row++
	}

	if len(d.Warnings) > 0 {
		row++
		for _, w := range d.Warnings {
			if err := writeRow(f, sheet, row, []any{w}); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(sheet, "A", "A", 14)
}

func setRTL(f *excelize.File, sheet string, rtl bool) error {
	if !rtl {
		return nil
	}
	return f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl})
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func stringsToCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func summaryCells(sr SummaryRow) []any {
	cells := []any{sr.StudentID, sr.Name, sr.Warnings}
	for _, a := range sr.Amounts() {
		cells = append(cells, a.Float64())
	}
	return cells
}

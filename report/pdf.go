package report

import (
	"bytes"
	"fmt"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"github.com/kollel/stipend-engine/i18n"
)

// PDFExporter renders the summary table on landscape A4 pages.
//
// Hebrew needs a UTF-8 TrueType font (FontPath). Without one the document
// falls back to the core Arial font with English labels, and characters
// outside Latin-1 are lost.
type PDFExporter struct {
	FontPath string
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }
func (e *PDFExporter) Extension() string   { return "pdf" }

var pdfColumns = []string{"id", "name", "base", "bonus", "morning_bonus", "afternoon_bonus",
	"tier1", "tier2", "perfect", "early", "total"}

const (
	pdfIDWidth     = 24.0
	pdfNameWidth   = 46.0
	pdfAmountWidth = 23.0
	pdfRowHeight   = 7.0
)

// Render creates a PDF document with a title, the summary table and the
// warnings of every student below it.
func (e *PDFExporter) Render(r *Report) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family, locale := "Arial", i18n.English
	text := pdf.UnicodeTranslatorFromDescriptor("")
	if e.FontPath != "" {
		pdf.AddUTF8Font("body", "", e.FontPath)
		pdf.AddUTF8Font("body", "B", e.FontPath)
		family, locale = "body", r.Locale
		text = func(s string) string { return s }
	}
	rtl := e.FontPath != "" && r.RTL
	tr := func(id string, data ...map[string]any) string { return text(i18n.Tr(locale, id, data...)) }

	// cell writes one table cell; Hebrew text is laid out right to left,
	// numbers and Latin text left to right.
	cell := func(w float64, s, border, align string, ln int, fill bool) {
		if rtl && hasHebrew(s) {
			pdf.RTL()
			defer pdf.LTR()
		}
		pdf.CellFormat(w, pdfRowHeight, s, border, ln, align, fill, 0, "")
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	cell(0, tr("report.title"), "", "C", 1, false)
	pdf.SetFont(family, "", 9)
	cell(0, tr("report.generated", map[string]any{
		"Date":        r.GeneratedAt.Format("2006-01-02"),
		"WorkingDays": r.WorkingDays,
	}), "", "C", 1, false)
	pdf.Ln(4)

	header := make([]string, len(pdfColumns))
	for i, c := range pdfColumns {
		header[i] = tr("report.col." + c)
	}
	widths := make([]float64, len(pdfColumns))
	for i := range widths {
		switch i {
		case 0:
			widths[i] = pdfIDWidth
		case 1:
			widths[i] = pdfNameWidth
		default:
			widths[i] = pdfAmountWidth
		}
	}

	writeRow := func(cells []string, bold, fill bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont(family, style, 8)
		order := make([]int, len(cells))
		for i := range order {
			order[i] = i
			if rtl {
				order[i] = len(cells) - 1 - i
			}
		}
		for n, i := range order {
			align := "R"
			if i < 2 {
				align = "L"
				if rtl {
					align = "R"
				}
			}
			ln := 0
			if n == len(order)-1 {
				ln = 1
			}
			cell(widths[i], cells[i], "1", align, ln, fill)
		}
	}

	pdf.SetFillColor(230, 230, 230)
	writeRow(header, true, true)
	for _, row := range r.Summary.Rows {
		writeRow(pdfCells(row, text), false, false)
	}
	writeRow(pdfCells(r.Summary.Totals, text), true, true)

	var warned []SummaryRow
	for _, row := range r.Summary.Rows {
		if row.Warnings != "" {
			warned = append(warned, row)
		}
	}
	if len(warned) > 0 {
		pdf.Ln(6)
		pdf.SetFont(family, "B", 10)
		cell(0, tr("report.col.warnings"), "", "", 1, false)
		pdf.SetFont(family, "", 8)
		for _, row := range warned {
			line := text(row.StudentID + " " + row.Name + ": " + row.Warnings)
			if rtl && hasHebrew(line) {
				pdf.RTL()
			}
			pdf.MultiCell(0, 5, line, "", "", false)
			pdf.LTR()
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfCells(row SummaryRow, text func(string) string) []string {
	cells := []string{text(row.StudentID), text(row.Name)}
	for _, a := range row.Amounts() {
		cells = append(cells, Number(a))
	}
	return cells
}

func hasHebrew(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) {
			return true
		}
	}
	return false
}

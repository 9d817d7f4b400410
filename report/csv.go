package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM lets spreadsheet programs detect UTF-8, which Hebrew names need.
const utf8BOM = "\ufeff"

// CSVExporter renders the summary table as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }
func (e *CSVExporter) Extension() string   { return "csv" }

// Render produces CSV encoded bytes for the summary, totals row last.
func (e *CSVExporter) Render(r *Report) ([]byte, error) {
	if len(r.Summary.Header) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	buf.WriteString(utf8BOM)
	writer := csv.NewWriter(buf)
	if err := writer.Write(r.Summary.Header); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	rows := append(append([]SummaryRow(nil), r.Summary.Rows...), r.Summary.Totals)
	for _, row := range rows {
		if err := writer.Write(csvRecord(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRecord(row SummaryRow) []string {
	record := []string{row.StudentID, row.Name, row.Warnings}
	for _, a := range row.Amounts() {
		record = append(record, Number(a))
	}
	return record
}

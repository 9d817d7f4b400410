package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// COLUMNS
// =============================================================================

// Column is a logical input column.
type Column string

const (
	ColID         Column = "id"
	ColLastName   Column = "last_name"
	ColFirstName  Column = "first_name"
	ColDate       Column = "date"
	ColEntry      Column = "entry"
	ColExit       Column = "exit"
	ColContinuous Column = "continuous"
)

// columnAliases lists the headers accepted for each column. Matching ignores
// case and surrounding spaces.
var columnAliases = map[Column][]string{
	ColID:         {"זהות", "ת.ז.", "ת\"ז", "id", "student_id", "student id"},
	ColLastName:   {"שם משפחה", "last_name", "last name", "surname"},
	ColFirstName:  {"שם פרטי", "first_name", "first name"},
	ColDate:       {"תאריך", "date"},
	ColEntry:      {"כניסה", "entry", "entry_time", "in"},
	ColExit:       {"יציאה", "exit", "exit_time", "out"},
	ColContinuous: {"רצופות", "continuous"},
}

var requiredColumns = []Column{ColID, ColEntry, ColExit}

// continuousValues are the cell values that mark a day as continuous.
var continuousValues = map[string]bool{
	"כן": true, "yes": true, "y": true, "true": true, "1": true, "v": true, "✓": true,
}

// Accepted returns the headers accepted for a column.
func Accepted(c Column) []string {
	return append([]string(nil), columnAliases[c]...)
}

func resolveColumns(header []string) (map[Column]int, error) {
	idx := make(map[Column]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for col, aliases := range columnAliases {
			if _, seen := idx[col]; seen {
				continue
			}
			for _, a := range aliases {
				if h == a {
					idx[col] = i
				}
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &generic.MissingColumnError{Column: string(col), Accepted: Accepted(col)}
		}
	}
	return idx, nil
}

// =============================================================================
// NORMALIZE
// =============================================================================

// Normalize interprets every row of t as an attendance event.
//
// A missing required column fails the whole table. Problems in single cells
// never do:
//   - blank rows and rows without a student ID are skipped
//   - a blank entry skips the row; an unreadable entry skips it and records
//     an anomaly
//   - a blank exit becomes the "no exit" sentinel; an unreadable exit does
//     too and records an anomaly
//
// The returned batch has WorkingDays unset.
func Normalize(t *Table) (stipend.Batch, error) {
	var batch stipend.Batch
	if t == nil || len(t.Header) == 0 {
		return batch, &generic.MissingColumnError{Column: string(ColID), Accepted: Accepted(ColID)}
	}
	cols, err := resolveColumns(t.Header)
	if err != nil {
		return batch, err
	}
	_, hasDate := cols[ColDate]

	cell := func(row []any, c Column) any {
		i, ok := cols[c]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	for n, row := range t.Rows {
		rowNum := n + 2 // 1-based, after the header
		if isBlankRow(row) {
			continue
		}
		id := CellString(cell(row, ColID))
		if id == "" {
			continue
		}
		ev := stipend.AttendanceEvent{
			StudentID:  generic.StudentID(id),
			LastName:   CellString(cell(row, ColLastName)),
			FirstName:  CellString(cell(row, ColFirstName)),
			Continuous: IsContinuous(cell(row, ColContinuous)),
		}
		anomaly := func(col Column, raw any, err error) stipend.ParseAnomaly {
			return stipend.ParseAnomaly{
				StudentID: ev.StudentID,
				LastName:  ev.LastName,
				FirstName: ev.FirstName,
				Row:       rowNum,
				Column:    string(col),
				Raw:       CellString(raw),
				Reason:    err.Error(),
			}
		}

		// Date and entry time: either a separate date column, or a combined
		// entry timestamp.
		if hasDate {
			rawDate := cell(row, ColDate)
			ts, err := generic.NormalizeTimestamp(rawDate)
			if err != nil {
				if generic.IsAnomaly(err) {
					batch.Anomalies = append(batch.Anomalies, anomaly(ColDate, rawDate, err))
				}
				continue
			}
			ev.Date = generic.DateOf(ts)
			rawEntry := cell(row, ColEntry)
			entry, err := generic.NormalizeTime(rawEntry)
			if err != nil {
				if generic.IsAnomaly(err) {
					batch.Anomalies = append(batch.Anomalies, anomaly(ColEntry, rawEntry, err))
				}
				continue
			}
			ev.Entry = entry
		} else {
			rawEntry := cell(row, ColEntry)
			ts, err := generic.NormalizeTimestamp(rawEntry)
			if err != nil {
				if generic.IsAnomaly(err) {
					batch.Anomalies = append(batch.Anomalies, anomaly(ColEntry, rawEntry, err))
				}
				continue
			}
			ev.Date = generic.DateOf(ts)
			ev.Entry = generic.TimeOfDay{Hour: ts.Hour(), Minute: ts.Minute(), Second: ts.Second()}
		}

		rawExit := cell(row, ColExit)
		exit, err := generic.NormalizeTime(rawExit)
		if err != nil && !errors.Is(err, generic.ErrMissingValue) {
			batch.Anomalies = append(batch.Anomalies, anomaly(ColExit, rawExit, err))
		}
		ev.Exit = exit

		ev.Session = stipend.SessionForEntry(ev.Entry)
		batch.Events = append(batch.Events, ev)
	}
	return batch, nil
}

// =============================================================================
// CELL HELPERS
// =============================================================================

// CellString renders a raw cell as trimmed text. Whole floats lose their
// fraction, so an ID stored as a number (123456789.0) reads as 123456789.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.DateTime)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// IsContinuous reports whether a continuous-flag cell is set.
func IsContinuous(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return continuousValues[strings.ToLower(CellString(v))]
}

func isBlankRow(row []any) bool {
	for _, v := range row {
		if CellString(v) != "" {
			return false
		}
	}
	return true
}

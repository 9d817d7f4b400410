package ingest_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/stipend"
)

// =============================================================================
// CSV
// =============================================================================

const hebrewExport = "\ufeffזהות,שם משפחה,שם פרטי,כניסה,יציאה,רצופות\n" +
	"123,כהן,משה,2024-03-04 09:15,2024-03-04 13:00,כן\n" +
	"123,כהן,משה,2024-03-04 14:05,2024-03-04 17:00,\n" +
	",,,,,\n" +
	"456,לוי,דוד,2024-03-04 10:10,,כן\n"

func TestNormalize_HebrewHeadersAndCombinedTimestamps(t *testing.T) {
	// GIVEN: A CSV export with Hebrew headers and a byte order mark
	// WHEN: Reading and normalizing
	// THEN: Sessions, dates and flags are derived; the blank row is skipped

	table, err := ingest.ReadCSV(strings.NewReader(hebrewExport))
	require.NoError(t, err)

	batch, err := ingest.Normalize(table)
	require.NoError(t, err)

	require.Len(t, batch.Events, 3)
	assert.Empty(t, batch.Anomalies)

	first := batch.Events[0]
	assert.Equal(t, generic.StudentID("123"), first.StudentID)
	assert.Equal(t, "כהן", first.LastName)
	assert.Equal(t, generic.NewDate(2024, time.March, 4), first.Date)
	assert.Equal(t, generic.NewTimeOfDay(9, 15), first.Entry)
	assert.Equal(t, generic.NewTimeOfDay(13, 0), first.Exit)
	assert.Equal(t, stipend.Morning, first.Session)
	assert.True(t, first.Continuous)

	assert.Equal(t, stipend.Afternoon, batch.Events[1].Session)
	assert.False(t, batch.Events[1].Continuous)

	// Blank exit: sentinel, not an anomaly.
	assert.True(t, batch.Events[2].Exit.IsMissing())
}

func TestNormalize_EnglishHeadersWithDateColumn(t *testing.T) {
	csv := "ID,Last Name,First Name,Date,Entry,Exit,Continuous\n" +
		"7,Katz,Avi,2024-03-05,08:55,13:00,yes\n"

	table, err := ingest.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	batch, err := ingest.Normalize(table)
	require.NoError(t, err)

	require.Len(t, batch.Events, 1)
	ev := batch.Events[0]
	assert.Equal(t, generic.NewDate(2024, time.March, 5), ev.Date)
	assert.Equal(t, generic.NewTimeOfDay(8, 55), ev.Entry)
	assert.True(t, ev.Continuous)
}

func TestNormalize_UnreadableValuesBecomeAnomalies(t *testing.T) {
	// GIVEN: One row with an unreadable entry and one with an unreadable exit
	// WHEN: Normalizing
	// THEN: The entry row is skipped, the exit row keeps the sentinel, and
	//       both are reported with their row numbers

	csv := "id,entry,exit\n" +
		"1,yesterday morning,2024-03-04 13:00\n" +
		"2,2024-03-04 09:00,lunch time\n"

	table, err := ingest.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	batch, err := ingest.Normalize(table)
	require.NoError(t, err)

	require.Len(t, batch.Events, 1)
	assert.Equal(t, generic.StudentID("2"), batch.Events[0].StudentID)
	assert.True(t, batch.Events[0].Exit.IsMissing())

	require.Len(t, batch.Anomalies, 2)
	assert.Equal(t, "entry", batch.Anomalies[0].Column)
	assert.Equal(t, 2, batch.Anomalies[0].Row)
	assert.Equal(t, "yesterday morning", batch.Anomalies[0].Raw)
	assert.Equal(t, "exit", batch.Anomalies[1].Column)
	assert.Equal(t, 3, batch.Anomalies[1].Row)
}

func TestNormalize_MissingRequiredColumnIsFatal(t *testing.T) {
	table, err := ingest.ReadCSV(strings.NewReader("id,entry\n1,2024-03-04 09:00\n"))
	require.NoError(t, err)

	_, err = ingest.Normalize(table)

	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrMissingColumn)
	var mc *generic.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "exit", mc.Column)
	assert.Contains(t, mc.Accepted, "יציאה")
}

func TestFormatFromName(t *testing.T) {
	f, err := ingest.FormatFromName("march.XLSX")
	require.NoError(t, err)
	assert.Equal(t, ingest.FormatXLSX, f)

	_, err = ingest.FormatFromName("march.ods")
	assert.ErrorIs(t, err, generic.ErrUnsupportedFormat)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "123456789", ingest.CellString(123456789.0))
	assert.Equal(t, "012", ingest.CellString(" 012 "))
	assert.Equal(t, "", ingest.CellString(nil))
	assert.True(t, ingest.IsContinuous("כן"))
	assert.True(t, ingest.IsContinuous(true))
	assert.False(t, ingest.IsContinuous("לא"))
}

// =============================================================================
// XLSX
// =============================================================================

func TestReadXLSX_SerialDateTimes(t *testing.T) {
	// GIVEN: A workbook whose time cells hold spreadsheet serial numbers
	// WHEN: Reading and normalizing
	// THEN: Serial date-times resolve to the right date and time of day

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"זהות", "שם משפחה", "שם פרטי", "כניסה", "יציאה", "רצופות"}))
	// 45355 is 2024-03-04; .375 is 09:00, .5625 is 13:30.
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"321", "Friedman", "Eli", 45355.375, 45355.5625, "כן"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	table, err := ingest.ReadXLSX(&buf, "")
	require.NoError(t, err)
	batch, err := ingest.Normalize(table)
	require.NoError(t, err)

	require.Len(t, batch.Events, 1)
	ev := batch.Events[0]
	assert.Equal(t, generic.StudentID("321"), ev.StudentID)
	assert.Equal(t, generic.NewDate(2024, time.March, 4), ev.Date)
	assert.Equal(t, generic.NewTimeOfDay(9, 0), ev.Entry)
	assert.Equal(t, generic.NewTimeOfDay(13, 30), ev.Exit)
	assert.True(t, ev.Continuous)
}

// =============================================================================
// STORE HELPERS
// =============================================================================

func TestDominantMonth(t *testing.T) {
	ev := func(y int, m time.Month, d int) stipend.AttendanceEvent {
		return stipend.AttendanceEvent{Date: generic.NewDate(y, m, d)}
	}

	p, ok := ingest.DominantMonth([]stipend.AttendanceEvent{
		ev(2024, time.March, 31), ev(2024, time.April, 1), ev(2024, time.April, 2),
	})
	require.True(t, ok)
	assert.Equal(t, generic.MonthPeriod(2024, time.April), p)

	// A tie goes to the earlier month whatever the order.
	p, _ = ingest.DominantMonth([]stipend.AttendanceEvent{ev(2024, time.April, 1), ev(2024, time.March, 31)})
	assert.Equal(t, generic.MonthPeriod(2024, time.March), p)

	_, ok = ingest.DominantMonth(nil)
	assert.False(t, ok)
}

func TestEventRow_RoundTripsThroughNormalize(t *testing.T) {
	ev := stipend.AttendanceEvent{
		StudentID: "7", LastName: "Levi", FirstName: "Dan",
		Date:  generic.NewDate(2024, time.April, 1),
		Entry: generic.NewTimeOfDay(9, 5), Exit: generic.MissingTime,
		Continuous: true,
	}
	table := &ingest.Table{Header: ingest.EventHeader, Rows: [][]any{ingest.EventRow(ev)}}

	batch, err := ingest.Normalize(table)

	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Empty(t, batch.Anomalies)
	got := batch.Events[0]
	assert.Equal(t, ev.Date, got.Date)
	assert.Equal(t, ev.Entry, got.Entry)
	assert.True(t, got.Exit.IsMissing())
	assert.True(t, got.Continuous)
	assert.Equal(t, stipend.Morning, got.Session)
}

/*
Package ingest reads attendance exports and turns them into a stipend.Batch.

PURPOSE:
  The attendance clock exports one row per swipe pair. Exports come as CSV
  or XLSX, with Hebrew or English headers; rows can also be stored in the
  sqlite event store. Every source is first read into a Table (header plus
  raw cells), and Normalize is the single place that interprets cells.

FLOW:
  ReadCSV / ReadXLSX / store.ReadTable ──► Table ──► Normalize ──► stipend.Batch

SEE ALSO:
  - normalize.go: Column resolution and cell interpretation
  - generic/time.go: Time-of-day and timestamp normalization
*/
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kollel/stipend-engine/generic"
)

// Table is a header plus raw cell values. Cells may be strings, numbers,
// booleans, time.Time or nil depending on the source.
type Table struct {
	Header []string
	Rows   [][]any
}

// Source is anything that can produce a table of attendance rows.
type Source interface {
	ReadTable(ctx context.Context) (*Table, error)
}

// Format is an input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName guesses the format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", generic.ErrUnsupportedFormat, filepath.Ext(name))
}

// Read reads a table in the given format.
func Read(r io.Reader, format Format) (*Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r, "")
	}
	return nil, fmt.Errorf("%w: %q", generic.ErrUnsupportedFormat, format)
}

// ReadFile opens path and reads it according to its extension.
func ReadFile(path string) (*Table, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}

// FileSource reads a CSV or XLSX file on every call.
type FileSource struct {
	Path string
}

func (s FileSource) ReadTable(context.Context) (*Table, error) {
	return ReadFile(s.Path)
}

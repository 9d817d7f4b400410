package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/generic"
)

// Exporter renders a report into a file format.
type Exporter interface {
	Render(r *Report) ([]byte, error)
	ContentType() string
	Extension() string
}

// Format names an output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Options tune the exporters created by New.
type Options struct {
	// PDFFont is a UTF-8 TrueType font file used by the PDF exporter. Without
	// it the PDF uses a core font and English labels.
	PDFFont string
	// SkipDetails limits spreadsheet output to the summary sheet.
	SkipDetails bool
	// Logger receives presentation failures. Nil means no logging.
	Logger *zap.Logger
}

// New returns the exporter for format.
func New(format Format, opts Options) (Exporter, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatXLSX:
		return &XLSXExporter{SkipDetails: opts.SkipDetails, Logger: opts.Logger}, nil
	case FormatPDF:
		return &PDFExporter{FontPath: opts.PDFFont}, nil
	default:
		return nil, fmt.Errorf("%w: output %q", generic.ErrUnsupportedFormat, format)
	}
}

// FormatFromName picks the output format from a file name or a bare format
// name ("xlsx").
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimSpace(name))
	}
	switch Format(ext) {
	case FormatCSV, FormatXLSX, FormatPDF:
		return Format(ext), nil
	}
	return "", fmt.Errorf("%w: output %q", generic.ErrUnsupportedFormat, name)
}

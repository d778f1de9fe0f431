// =============================================================================
// Line Item Pivot - Output Writers
// =============================================================================
//
// This package renders a laid-out pivot report into its output formats:
//
//   Format | Output
//   -------|-------------------------------------------------------------
//   xlsx   | Workbook with merged header cells and highlighted totals
//   html   | Standalone page with a rowspan/colspan table
//   pdf    | Landscape A4 table
//   xml    | <report> document with the header trees and data rows
//   json   | {title, mode, unit, columns, rows, data}
//   text   | Indented outline
//
// Every writer renders from the same Document. The presentation formats show
// amounts scaled to the report unit; xml and json carry the raw sums plus the
// unit divisor.
//
// =============================================================================

package writer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/grid"
	"github.com/ginjaninja78/line-item-pivot/internal/layout"
)

// Document is a rendered report ready to be written.
type Document struct {
	// Title is the report name, e.g. "주석 10_01".
	Title string

	// Code is the report code.
	Code string

	// Source is the input file the report was rendered from.
	Source string

	// Generated is the render time printed in document footers.
	Generated time.Time

	Result    *grid.Result
	Table     *layout.Table
	Formatter *format.Formatter
}

// NewDocument lays out res and wraps it for writing.
func NewDocument(title, code string, res *grid.Result, f *format.Formatter) *Document {
	return &Document{
		Title:     title,
		Code:      code,
		Generated: time.Now(),
		Result:    res,
		Table:     layout.Build(res, f),
		Formatter: f,
	}
}

// UnitCaption returns the caption that states the amount unit.
func (d *Document) UnitCaption() string {
	return "(단위: " + d.Table.Unit + ")"
}

// Writer renders a Document in one format.
type Writer interface {
	// Extension is the file extension, without the dot.
	Extension() string

	// Write renders doc to w.
	Write(w io.Writer, doc *Document) error
}

// Options configure the writers that need external resources.
type Options struct {
	// PDFFont is a TrueType font used by the PDF writer. Hangul text needs
	// a font that covers it; the built-in fonts do not.
	PDFFont string
}

// For returns the writer of a format.
func For(name string, opts Options) (Writer, error) {
	switch strings.ToLower(name) {
	case "xlsx":
		return xlsxWriter{}, nil
	case "html":
		return newHTMLWriter()
	case "pdf":
		return pdfWriter{font: opts.PDFFont}, nil
	case "xml":
		return xmlWriter{indent: "  "}, nil
	case "json":
		return jsonWriter{}, nil
	case "text", "txt":
		return textWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", name)
	}
}

// Render renders doc in the named format.
func Render(name string, doc *Document, opts Options) ([]byte, error) {
	w, err := For(name, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

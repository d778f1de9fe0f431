package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/line-item-pivot/internal/layout"
)

// tableTopRow is the 1-indexed sheet row the table starts on. The rows above
// hold the title and the unit caption.
const tableTopRow = 4

type xlsxWriter struct{}

func (xlsxWriter) Extension() string { return "xlsx" }

// xlsxStyles holds the style ids used by the workbook.
type xlsxStyles struct {
	title, caption          int
	header, headerHighlight int
	text, textHighlight     int
	number, numberHighlight int
}

func (xlsxWriter) Write(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(doc.Title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}

	styles, err := newXLSXStyles(f, doc.Formatter.FractionDigits())
	if err != nil {
		return err
	}

	// ── Title and unit ──────────────────────────────────────────────────
	if err := f.SetCellStr(sheet, "A1", doc.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", styles.title); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, "A2", doc.UnitCaption()); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", "A2", styles.caption); err != nil {
		return err
	}

	t := doc.Table
	if t.Empty() {
		return f.Write(w)
	}

	// ── Column widths ───────────────────────────────────────────────────
	for c := 1; c <= t.Cols; c++ {
		name, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return err
		}
		width := 14.0
		if c <= t.HeaderCols {
			width = 20
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("set col width %s: %w", name, err)
		}
	}

	// ── Cells ───────────────────────────────────────────────────────────
	for _, c := range t.Cells {
		if err := writeXLSXCell(f, sheet, c, styles); err != nil {
			return err
		}
	}

	if t.HeaderRows > 0 {
		topLeft, _ := excelize.CoordinatesToCellName(t.HeaderCols+1, tableTopRow+t.HeaderRows)
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      t.HeaderCols,
			YSplit:      tableTopRow - 1 + t.HeaderRows,
			TopLeftCell: topLeft,
			ActivePane:  "bottomRight",
		}); err != nil {
			return fmt.Errorf("freeze panes: %w", err)
		}
	}

	return f.Write(w)
}

func writeXLSXCell(f *excelize.File, sheet string, c layout.Cell, s *xlsxStyles) error {
	topLeft, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+tableTopRow)
	if err != nil {
		return err
	}
	bottomRight, err := excelize.CoordinatesToCellName(c.Col+c.ColSpan, c.Row+c.RowSpan+tableTopRow-1)
	if err != nil {
		return err
	}

	if c.Numeric {
		v, _ := c.Amount.Float64()
		if err := f.SetCellValue(sheet, topLeft, v); err != nil {
			return err
		}
	} else if err := f.SetCellStr(sheet, topLeft, c.Text); err != nil {
		return err
	}

	if c.RowSpan > 1 || c.ColSpan > 1 {
		if err := f.MergeCell(sheet, topLeft, bottomRight); err != nil {
			return fmt.Errorf("merge %s:%s: %w", topLeft, bottomRight, err)
		}
	}

	style := s.text
	switch {
	case c.Header && c.Highlight:
		style = s.headerHighlight
	case c.Header:
		style = s.header
	case c.Numeric && c.Highlight:
		style = s.numberHighlight
	case c.Numeric:
		style = s.number
	case c.Highlight:
		style = s.textHighlight
	}
	return f.SetCellStyle(sheet, topLeft, bottomRight, style)
}

// newXLSXStyles registers the workbook styles. The number format shows up to
// fractionDigits decimals.
func newXLSXStyles(f *excelize.File, fractionDigits int) (*xlsxStyles, error) {
	numFmt := "#,##0"
	if fractionDigits > 0 {
		numFmt += "." + strings.Repeat("#", fractionDigits)
	}

	highlight := excelize.Fill{Type: "pattern", Color: []string{layout.HighlightColor}, Pattern: 1}
	headerFill := excelize.Fill{Type: "pattern", Color: []string{"#E9EAEE"}, Pattern: 1}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	right := &excelize.Alignment{Horizontal: "right", Vertical: "center"}

	s := &xlsxStyles{}
	defs := []struct {
		id    *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&s.caption, &excelize.Style{Font: &excelize.Font{Size: 9, Color: "#555555"}}},
		{&s.header, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: headerFill, Alignment: center, Border: thinBorders()}},
		{&s.headerHighlight, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: highlight, Alignment: center, Border: thinBorders()}},
		{&s.text, &excelize.Style{Border: thinBorders()}},
		{&s.textHighlight, &excelize.Style{Fill: highlight, Border: thinBorders()}},
		{&s.number, &excelize.Style{Alignment: right, Border: thinBorders(), CustomNumFmt: &numFmt}},
		{&s.numberHighlight, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: highlight, Alignment: right, Border: thinBorders(), CustomNumFmt: &numFmt}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("create style: %w", err)
		}
		*d.id = id
	}
	return s, nil
}

// thinBorders returns a thin black border on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}

// sheetName makes a valid sheet name from a report title.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))

	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		name = "Report"
	}
	return name
}

// =============================================================================
// Line Item Pivot - XLSX Line Item Parser
// =============================================================================
//
// This module reads line items from XLSX workbooks. The expected sheet layout
// is a header row followed by one line item per row:
//
//   | Column A | Column B   | Column C | Column D   | Column E   |
//   |----------|------------|----------|------------|------------|
//   | 계정코드 | 계정명      | 기준     | 금액       | 목적       |
//   | 2051707  | 통화선도_매매| 당기     | 1,200,000  | 매매목적   |
//
// Header rows and the data start row follow the report's source settings,
// so the same settings describe CSV and XLSX inputs alike.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SHEET STRUCTURE
// =============================================================================

// Sheet represents the parsed line item sheet.
type Sheet struct {
	// Name is the sheet that was read.
	Name string

	// Headers are the column headers. Multi-row headers are joined with a
	// space; empty headers are named Column_N.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// RowNumbers holds the 1-indexed sheet row of each entry in Rows.
	RowNumbers []int

	// SourceFile is the path to the workbook.
	SourceFile string
}

// Layout describes where headers and data sit on the sheet.
type Layout struct {
	// Sheet is the sheet name. Empty reads the first sheet.
	Sheet string

	// HeaderRows is the number of header rows. Default: 1
	HeaderRows int

	// DataStartRow is the 1-indexed first data row. Default: HeaderRows + 1
	DataStartRow int
}

func (l Layout) normalized() Layout {
	if l.HeaderRows <= 0 {
		l.HeaderRows = 1
	}
	if l.DataStartRow <= l.HeaderRows {
		l.DataStartRow = l.HeaderRows + 1
	}
	return l
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the line item sheet of an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the workbook.
//   - layout: The sheet name and header layout.
//
// RETURNS:
//   - A pointer to the parsed Sheet.
//   - An error if the workbook or sheet cannot be read.
func Parse(filePath string, layout Layout) (*Sheet, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := parseFile(f, layout)
	if err != nil {
		return nil, err
	}
	sheet.SourceFile = filePath
	return sheet, nil
}

// ParseReader reads the line item sheet of a workbook streamed from r.
func ParseReader(r io.Reader, layout Layout) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseFile(f, layout)
}

func parseFile(f *excelize.File, layout Layout) (*Sheet, error) {
	layout = layout.normalized()

	sheetName := layout.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < layout.HeaderRows {
		return nil, fmt.Errorf("sheet %q has fewer rows than header_rows setting", sheetName)
	}

	sheet := &Sheet{
		Name:    sheetName,
		Headers: mergeHeaders(rows[:layout.HeaderRows]),
	}

	for i := layout.DataStartRow - 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}
		sheet.Rows = append(sheet.Rows, parseRow(row, sheet.Headers))
		sheet.RowNumbers = append(sheet.RowNumbers, i+1)
	}

	return sheet, nil
}

// parseRow maps the cells of row to headers. Missing trailing cells are
// empty.
func parseRow(row []string, headers []string) map[string]string {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	values := make(map[string]string, len(headers))
	for i, h := range headers {
		values[h] = getCell(i)
	}
	return values
}

func mergeHeaders(headerRows [][]string) []string {
	width := 0
	for _, r := range headerRows {
		if len(r) > width {
			width = len(r)
		}
	}

	headers := make([]string, width)
	for col := 0; col < width; col++ {
		var parts []string
		for _, r := range headerRows {
			if col < len(r) {
				if v := strings.TrimSpace(r[col]); v != "" {
					parts = append(parts, v)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
		if headers[col] == "" {
			headers[col] = fmt.Sprintf("Column_%d", col+1)
		}
	}
	return headers
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// SheetNames lists the sheets of a workbook in order.
func SheetNames(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

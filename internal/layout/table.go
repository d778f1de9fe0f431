// =============================================================================
// Line Item Pivot - Table Layout
// =============================================================================
//
// This package flattens a pivot result into positioned cells with row and
// column spans, the form every writer renders from.
//
// LAYOUT:
//
//   ┌──────────────┬─────────────────────────┬───────┐
//   │              │ 매매목적                 │       │
//   │   구분       ├────────────┬────────────┤ 총계  │
//   │              │ 부채       │ 자산       │       │
//   ├──────┬───────┼────────────┼────────────┼───────┤
//   │ p1   │       │   2        │   1        │   3   │
//   └──────┴───────┴────────────┴────────────┴───────┘
//
//   - The division cell spans every row-header column and header row.
//   - Column headers span their leaf count; leaves span down to the data.
//   - Row headers span the data rows beneath them; leaves span right to
//     the data.
//
// =============================================================================

package layout

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/grid"
)

// HighlightColor is the background of subtotal and total rows.
const HighlightColor = "#C1C4CF"

// Cell is one positioned cell of a table.
type Cell struct {
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	Text    string
	Header  bool
	Kind    grid.Kind

	// Numeric cells carry their raw amount alongside the formatted text.
	Numeric bool
	Amount  decimal.Decimal

	// Highlight marks cells of subtotal and total rows.
	Highlight bool
}

// Table is a laid-out pivot result.
type Table struct {
	Mode grid.Mode

	// HeaderRows is the number of column-header rows.
	HeaderRows int

	// HeaderCols is the number of row-header columns.
	HeaderCols int

	Rows  int
	Cols  int
	Cells []Cell

	// Unit is the label of the amount unit, e.g. "천원".
	Unit string
}

// Empty reports whether the table has no cells.
func (t *Table) Empty() bool {
	return len(t.Cells) == 0
}

// Build lays out a pivot result, formatting amounts with f.
func Build(res *grid.Result, f *format.Formatter) *Table {
	t := &Table{Mode: res.Mode, Unit: format.UnitLabel(res.AmountUnit)}
	if res.Mode == grid.ModeEmpty || res.Empty() {
		return t
	}

	var division *grid.Group
	headers := res.Columns
	if len(headers) > 0 && headers[0].Kind == grid.KindDivision {
		division, headers = headers[0], headers[1:]
	}

	t.HeaderRows = max(1, grid.MaxDepth(headers))
	if res.Mode != grid.ModeBasic {
		t.HeaderCols = max(1, grid.MaxDepth(res.Rows))
	}
	leaves := grid.Leaves(headers)
	t.Cols = t.HeaderCols + len(leaves)
	t.Rows = t.HeaderRows + len(res.Data)

	if division != nil && t.HeaderCols > 0 {
		t.Cells = append(t.Cells, Cell{
			RowSpan: t.HeaderRows,
			ColSpan: t.HeaderCols,
			Text:    division.Title,
			Header:  true,
			Kind:    grid.KindDivision,
		})
	}

	col := t.HeaderCols
	for _, g := range headers {
		col = t.placeColumn(g, 0, col)
	}

	row := t.HeaderRows
	for _, g := range res.Rows {
		row = t.placeRow(g, 0, row, false)
	}

	for i, d := range res.Data {
		highlight := d.Kind == grid.KindSubtotal || d.Kind == grid.KindGrandTotal || t.rowHighlighted(t.HeaderRows+i)
		for j, leaf := range leaves {
			c := Cell{
				Row:       t.HeaderRows + i,
				Col:       t.HeaderCols + j,
				RowSpan:   1,
				ColSpan:   1,
				Kind:      d.Kind,
				Highlight: highlight,
			}
			if cell, ok := d.Cell(leaf.Key); ok {
				if cell.IsAmount() {
					c.Numeric = true
					c.Amount = f.Scaled(cell.Amount)
					c.Text = f.Amount(cell.Amount)
				} else {
					c.Text = cell.Value.Text()
				}
			}
			t.Cells = append(t.Cells, c)
		}
	}

	return t
}

// placeColumn positions g and its descendants starting at col and returns
// the next free column.
func (t *Table) placeColumn(g *grid.Group, depth, col int) int {
	c := Cell{
		Row:     depth,
		Col:     col,
		RowSpan: 1,
		ColSpan: 1,
		Text:    g.Title,
		Header:  true,
		Kind:    g.Kind,
	}

	if g.IsLeaf() {
		c.RowSpan = t.HeaderRows - depth
		t.Cells = append(t.Cells, c)
		return col + 1
	}

	c.ColSpan = len(grid.Leaves([]*grid.Group{g}))
	t.Cells = append(t.Cells, c)

	next := col
	for _, child := range g.Children {
		next = t.placeColumn(child, depth+1, next)
	}
	return next
}

// placeRow positions g and its descendants starting at row and returns the
// next free row.
func (t *Table) placeRow(g *grid.Group, depth, row int, synthetic bool) int {
	synthetic = synthetic || g.Synthetic()
	c := Cell{
		Row:       row,
		Col:       depth,
		RowSpan:   1,
		ColSpan:   1,
		Text:      g.Title,
		Header:    true,
		Kind:      g.Kind,
		Highlight: synthetic,
	}

	if g.IsLeaf() {
		c.ColSpan = t.HeaderCols - depth
		t.Cells = append(t.Cells, c)
		return row + 1
	}

	c.RowSpan = len(grid.Leaves([]*grid.Group{g}))
	t.Cells = append(t.Cells, c)

	next := row
	for _, child := range g.Children {
		next = t.placeRow(child, depth+1, next, synthetic)
	}
	return next
}

// rowHighlighted reports whether the leaf header of row is highlighted.
func (t *Table) rowHighlighted(row int) bool {
	for _, c := range t.Cells {
		if c.Header && c.Row <= row && row < c.Row+c.RowSpan && c.Col+c.ColSpan == t.HeaderCols && c.Highlight {
			return true
		}
	}
	return false
}

// Grid returns the table as a matrix in which every position refers to
// the cell covering it. Positions no cell covers are nil.
func (t *Table) Grid() [][]*Cell {
	m := make([][]*Cell, t.Rows)
	for r := range m {
		m[r] = make([]*Cell, t.Cols)
	}
	for i := range t.Cells {
		c := &t.Cells[i]
		for r := c.Row; r < c.Row+c.RowSpan && r < t.Rows; r++ {
			for col := c.Col; col < c.Col+c.ColSpan && col < t.Cols; col++ {
				m[r][col] = c
			}
		}
	}
	return m
}

// Origin reports whether (row, col) is the top-left position of c.
func (c *Cell) Origin(row, col int) bool {
	return c != nil && c.Row == row && c.Col == col
}

// HeaderCells returns the column-header cells, including the division.
func (t *Table) HeaderCells() []Cell {
	var out []Cell
	for _, c := range t.Cells {
		if c.Header && c.Row < t.HeaderRows {
			out = append(out, c)
		}
	}
	return out
}

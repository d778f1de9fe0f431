// Package tui shows a laid-out report in an interactive terminal table.
package tui

import (
	"fmt"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ginjaninja78/line-item-pivot/internal/layout"
	"github.com/ginjaninja78/line-item-pivot/internal/writer"
)

var (
	headerBg    = tcell.NewRGBColor(233, 234, 238)
	highlightBg = tcell.NewRGBColor(193, 196, 207)
	cellText    = tcell.ColorBlack
)

// NewTable fills a tview table from the document layout. Header rows and
// row-header columns stay fixed while scrolling. A spanning cell prints its
// text at its top-left position and leaves the covered positions blank.
func NewTable(doc *writer.Document) *tview.Table {
	table := tview.NewTable().
		SetBorders(true).
		SetSelectable(true, true)
	table.SetBorder(true).SetTitle(" " + doc.Title + " ")

	t := doc.Table
	if t.Empty() {
		table.SetCell(0, 0, tview.NewTableCell("데이터가 없습니다.").
			SetAlign(tview.AlignCenter).
			SetSelectable(false))
		return table
	}

	m := t.Grid()
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			table.SetCell(r, c, tableCell(m[r][c], r, c))
		}
	}
	table.SetFixed(t.HeaderRows, t.HeaderCols)
	table.Select(t.HeaderRows, t.HeaderCols)
	return table
}

func tableCell(cell *layout.Cell, row, col int) *tview.TableCell {
	if cell == nil {
		return tview.NewTableCell("").SetSelectable(false)
	}

	text := ""
	if cell.Origin(row, col) {
		text = tview.Escape(cell.Text)
	}

	tc := tview.NewTableCell(text).SetAlign(tview.AlignLeft)
	switch {
	case cell.Header:
		tc.SetAlign(tview.AlignCenter).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold).
			SetTextColor(cellText).
			SetBackgroundColor(headerBg)
	case cell.Numeric:
		tc.SetAlign(tview.AlignRight)
	}

	if cell.Highlight {
		tc.SetTextColor(cellText).SetBackgroundColor(highlightBg)
	}
	return tc
}

// Run opens the preview and blocks until the user quits with q or Esc.
func Run(doc *writer.Document) error {
	app := tview.NewApplication()

	header := tview.NewTextView().
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[::b]%s[::-]  %s  (%s)",
			tview.Escape(doc.Title), tview.Escape(doc.UnitCaption()), doc.Result.Mode))

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[gray]%s  ·  arrows/hjkl move  ·  q quit[-]", tview.Escape(filepath.Base(doc.Source))))

	table := NewTable(doc)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(table, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(root, true).EnableMouse(true).Run()
}

package writer

import (
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"github.com/ginjaninja78/line-item-pivot/internal/layout"
)

// pdfFontFamily is the family name a configured TrueType font is loaded as.
const pdfFontFamily = "report"

var (
	pdfHeaderBg    = &props.Color{Red: 233, Green: 234, Blue: 238}
	pdfHighlightBg = &props.Color{Red: 193, Green: 196, Blue: 207}
	pdfBorder      = &props.Color{Red: 0, Green: 0, Blue: 0}
	pdfMuted       = &props.Color{Red: 100, Green: 100, Blue: 100}
)

type pdfWriter struct {
	font string
}

func (pdfWriter) Extension() string { return "pdf" }

// Write renders the table as a landscape A4 document. Maroto has no row
// spans, so a spanning cell prints its text in its first row and leaves the
// covered rows blank with the same background.
func (p pdfWriter) Write(w io.Writer, doc *Document) error {
	t := doc.Table

	builder := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithMaxGridSize(max(t.Cols, 1)).
		WithPageNumber(props.PageNumber{
			Pattern: "{current} / {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   pdfMuted,
		})

	if p.font != "" {
		fonts, err := repository.New().
			AddUTF8Font(pdfFontFamily, fontstyle.Normal, p.font).
			AddUTF8Font(pdfFontFamily, fontstyle.Bold, p.font).
			Load()
		if err != nil {
			return fmt.Errorf("failed to load pdf font: %w", err)
		}
		builder = builder.WithCustomFonts(fonts).WithDefaultFont(&props.Font{Family: pdfFontFamily})
	}

	m := maroto.New(builder.Build())
	grid := max(t.Cols, 1)

	// --- Title ---
	m.AddRows(
		row.New(10).Add(col.New(grid).Add(text.New(doc.Title, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Left,
		}))),
		row.New(6).Add(col.New(grid).Add(text.New(doc.UnitCaption(), props.Text{
			Size:  8,
			Align: align.Right,
			Color: pdfMuted,
		}))),
	)

	// --- Table ---
	if !t.Empty() {
		m.AddRows(pdfTableRows(t)...)
	}

	document, err := m.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	_, err = w.Write(document.GetBytes())
	return err
}

func pdfTableRows(t *layout.Table) []core.Row {
	m := t.Grid()
	rows := make([]core.Row, 0, t.Rows)

	for r := 0; r < t.Rows; r++ {
		var cols []core.Col
		for c := 0; c < t.Cols; {
			cell := m[r][c]
			if cell == nil {
				cols = append(cols, col.New(1).WithStyle(&props.Cell{BorderType: border.Full, BorderColor: pdfBorder}))
				c++
				continue
			}

			span := cell.Col + cell.ColSpan - c
			cc := col.New(span)
			if cell.Row == r {
				cc.Add(text.New(cell.Text, pdfTextProps(cell)))
			}
			cc.WithStyle(pdfCellStyle(cell))
			cols = append(cols, cc)
			c += span
		}
		rows = append(rows, row.New(6).Add(cols...))
	}
	return rows
}

func pdfTextProps(c *layout.Cell) props.Text {
	p := props.Text{Size: 7, Top: 1.5, Left: 1, Right: 1, Align: align.Left}
	switch {
	case c.Header:
		p.Style = fontstyle.Bold
		p.Align = align.Center
	case c.Numeric:
		p.Align = align.Right
	}
	if c.Highlight {
		p.Style = fontstyle.Bold
	}
	return p
}

func pdfCellStyle(c *layout.Cell) *props.Cell {
	style := &props.Cell{BorderType: border.Full, BorderColor: pdfBorder}
	switch {
	case c.Highlight:
		style.BackgroundColor = pdfHighlightBg
	case c.Header:
		style.BackgroundColor = pdfHeaderBg
	}
	return style
}

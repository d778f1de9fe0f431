package writer

import (
	"embed"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/safehtml/template"

	"github.com/ginjaninja78/line-item-pivot/internal/layout"
)

//go:embed templates/*
var templateFS embed.FS

// htmlWriter renders the table through an embedded safehtml template.
type htmlWriter struct {
	tmpl *template.Template
}

func newHTMLWriter() (*htmlWriter, error) {
	trustedFS := template.TrustedFSFromEmbed(templateFS)

	tmpl, err := template.New("grid.html").ParseFS(trustedFS, "templates/grid.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	return &htmlWriter{tmpl: tmpl}, nil
}

func (*htmlWriter) Extension() string { return "html" }

// htmlPage is the view model of grid.html.
type htmlPage struct {
	Title     string
	Caption   string
	Source    string
	Generated string
	Rows      [][]htmlCell
}

type htmlCell struct {
	Text    string
	Header  bool
	RowSpan int
	ColSpan int
	Class   string
}

func (h *htmlWriter) Write(w io.Writer, doc *Document) error {
	page := htmlPage{
		Title:     doc.Title,
		Caption:   doc.UnitCaption(),
		Source:    filepath.Base(doc.Source),
		Generated: doc.Generated.Format("2006-01-02 15:04"),
		Rows:      htmlRows(doc.Table),
	}
	return h.tmpl.Execute(w, page)
}

// htmlRows emits every cell once, at its top-left position. Positions that
// no cell covers become empty data cells.
func htmlRows(t *layout.Table) [][]htmlCell {
	if t.Empty() {
		return nil
	}

	m := t.Grid()
	rows := make([][]htmlCell, t.Rows)
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			cell := m[r][c]
			if cell == nil {
				rows[r] = append(rows[r], htmlCell{RowSpan: 1, ColSpan: 1})
				continue
			}
			if !cell.Origin(r, c) {
				continue
			}
			rows[r] = append(rows[r], htmlCell{
				Text:    cell.Text,
				Header:  cell.Header,
				RowSpan: cell.RowSpan,
				ColSpan: cell.ColSpan,
				Class:   cellClass(cell),
			})
		}
	}
	return rows
}

func cellClass(c *layout.Cell) string {
	var classes []string
	if c.Numeric {
		classes = append(classes, "num")
	}
	if c.Highlight {
		classes = append(classes, "highlight")
	}
	return strings.Join(classes, " ")
}

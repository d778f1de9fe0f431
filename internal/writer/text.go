package writer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/line-item-pivot/internal/layout"
)

// textWriter prints a plain-text report. Grouped layouts print as an
// indented outline; the basic layout prints its table row by row.
type textWriter struct{}

func (textWriter) Extension() string { return "txt" }

func (textWriter) Write(w io.Writer, doc *Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\t\n", doc.Title)
	fmt.Fprintf(tw, "%s\t\n\n", doc.UnitCaption())

	switch {
	case doc.Table.Empty():
		fmt.Fprintln(tw, "데이터가 없습니다.\t")
	case len(doc.Result.Rows) == 0:
		writeTextTable(tw, doc.Table)
	default:
		titles, rows := layout.Outline(doc.Result, doc.Formatter)
		fmt.Fprintf(tw, "%s\t%s\t\n", "", strings.Join(titles, "\t"))
		for _, r := range rows {
			label := r.Indented()
			if r.Highlight {
				label = "* " + label
			}
			fmt.Fprintf(tw, "%s\t%s\t\n", label, strings.Join(r.Values, "\t"))
		}
	}

	return tw.Flush()
}

// writeTextTable prints each table row with spanned positions left blank.
func writeTextTable(w io.Writer, t *layout.Table) {
	m := t.Grid()
	for r := 0; r < t.Rows; r++ {
		cols := make([]string, t.Cols)
		for c := 0; c < t.Cols; c++ {
			if cell := m[r][c]; cell != nil && cell.Origin(r, c) {
				cols[c] = cell.Text
			}
		}
		fmt.Fprintf(w, "%s\t\n", strings.Join(cols, "\t"))
	}
}

package layout

import (
	"strings"

	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/grid"
)

// indentUnit is prepended once per nesting level of an outline row.
const indentUnit = "      "

// OutlineRow is one line of an indented outline: every row-tree node,
// parents before their children, with amounts only on data rows.
type OutlineRow struct {
	Level     int
	Label     string
	Values    []string
	Highlight bool
}

// Indented returns the label prefixed with one indent per level.
func (r OutlineRow) Indented() string {
	return strings.Repeat(indentUnit, r.Level) + r.Label
}

// Outline renders a pivot result as indented rows instead of spanning
// row headers. It returns the data column titles and the rows.
func Outline(res *grid.Result, f *format.Formatter) ([]string, []OutlineRow) {
	headers := res.Columns
	if len(headers) > 0 && headers[0].Kind == grid.KindDivision {
		headers = headers[1:]
	}
	leaves := grid.Leaves(headers)

	titles := make([]string, len(leaves))
	for i, l := range leaves {
		titles[i] = leafTitle(headers, l)
	}

	data := make(map[string]*grid.GridData, len(res.Data))
	for _, d := range res.Data {
		data[d.RowKey] = d
	}

	var rows []OutlineRow
	var walk func([]*grid.Group, int, bool)
	walk = func(gs []*grid.Group, level int, synthetic bool) {
		for _, g := range gs {
			syn := synthetic || g.Synthetic()
			row := OutlineRow{Level: level, Label: g.Title, Highlight: syn}
			if d, ok := data[g.Key]; ok && g.IsLeaf() {
				row.Values = make([]string, len(leaves))
				for i, l := range leaves {
					if c, ok := d.Cell(l.Key); ok {
						if c.IsAmount() {
							row.Values[i] = f.Amount(c.Amount)
						} else {
							row.Values[i] = c.Value.Text()
						}
					}
				}
			}
			rows = append(rows, row)
			walk(g.Children, level+1, syn)
		}
	}
	walk(res.Rows, 0, false)

	return titles, rows
}

// leafTitle joins the titles on the path to leaf, e.g. "매매목적 / 부채".
func leafTitle(groups []*grid.Group, leaf *grid.Group) string {
	var path []string
	var find func([]*grid.Group) bool
	find = func(gs []*grid.Group) bool {
		for _, g := range gs {
			path = append(path, g.Title)
			if g == leaf || find(g.Children) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	find(groups)
	return strings.Join(path, " / ")
}

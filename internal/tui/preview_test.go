package tui

import (
	"testing"

	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/grid"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
	"github.com/ginjaninja78/line-item-pivot/internal/writer"
)

func document(items []types.LineItem) *writer.Document {
	res := grid.Compute(grid.Request{
		Items:         items,
		RowGroups:     []types.GroupSpec{{ID: "type"}},
		ColumnGroups:  []types.GroupSpec{{ID: "purpose"}},
		ShowRowsTotal: true,
		AmountUnit:    format.UnitWon,
	})
	return writer.NewDocument("주석", "note", res, format.NewFormatter("ko", 0, format.UnitWon))
}

func TestNewTable(t *testing.T) {
	var items []types.LineItem
	for i, r := range [][2]string{{"매매목적", "부채"}, {"위험회피목적", "자산"}} {
		item := types.LineItem{Seq: i, Code: r[1], Value: types.Number(float64(1000 * (i + 1)))}
		item.Set("purpose", types.String(r[0]))
		item.Set("type", types.String(r[1]))
		items = append(items, item)
	}

	doc := document(items)
	table := NewTable(doc)

	if table.GetRowCount() != doc.Table.Rows || table.GetColumnCount() != doc.Table.Cols {
		t.Fatalf("table size = %dx%d, want %dx%d", table.GetRowCount(), table.GetColumnCount(), doc.Table.Rows, doc.Table.Cols)
	}

	if got := table.GetCell(0, 1).Text; got != "매매목적" {
		t.Errorf("header (0,1) = %q, want 매매목적", got)
	}
	if got := table.GetCell(1, 0).Text; got != "부채" {
		t.Errorf("row header (1,0) = %q, want 부채", got)
	}
	if got := table.GetCell(1, 1).Text; got != "1,000" {
		t.Errorf("cell (1,1) = %q, want 1,000", got)
	}

	last := doc.Table.Rows - 1
	if got := table.GetCell(last, 0).Text; got != grid.TitleGrandTotal {
		t.Errorf("last row header = %q, want %s", got, grid.TitleGrandTotal)
	}
	if table.GetCell(last, 1).BackgroundColor != highlightBg {
		t.Error("total row is not highlighted")
	}
}

func TestNewTableEmpty(t *testing.T) {
	table := NewTable(document(nil))
	if got := table.GetCell(0, 0).Text; got != "데이터가 없습니다." {
		t.Errorf("empty table cell = %q", got)
	}
}

package grid

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// =============================================================================
// GRID DATA
// =============================================================================

// Cell is one value of a grid data row. Aggregated cells hold an Amount;
// cells copied straight from an item hold its Value.
type Cell struct {
	Key    string
	Amount decimal.Decimal
	Value  types.Value
	amount bool
}

// IsAmount reports whether the cell holds an aggregated amount.
func (c Cell) IsAmount() bool {
	return c.amount
}

// AmountCell returns an aggregated cell.
func AmountCell(key string, amount decimal.Decimal) Cell {
	return Cell{Key: key, Amount: amount, amount: true}
}

// ValueCell returns a cell holding a raw item value. Numeric values are
// stored as amounts so they scale like aggregated cells.
func ValueCell(key string, v types.Value) Cell {
	if v.IsNumber() {
		f, _ := v.Float()
		return AmountCell(key, decimal.NewFromFloat(f))
	}
	return Cell{Key: key, Value: v}
}

// GridData is one display row: a division label plus one cell per column.
type GridData struct {
	Division string
	RowKey   string
	Kind     Kind
	Depth    int

	cells []Cell
	index map[string]int
}

// NewGridData creates an empty row.
func NewGridData(division, rowKey string, kind Kind, depth int) *GridData {
	return &GridData{
		Division: division,
		RowKey:   rowKey,
		Kind:     kind,
		Depth:    depth,
		index:    make(map[string]int),
	}
}

// Set stores a cell, replacing any cell with the same key.
func (d *GridData) Set(c Cell) {
	if i, ok := d.index[c.Key]; ok {
		d.cells[i] = c
		return
	}
	d.index[c.Key] = len(d.cells)
	d.cells = append(d.cells, c)
}

// Cell returns the cell stored under key.
func (d *GridData) Cell(key string) (Cell, bool) {
	i, ok := d.index[key]
	if !ok {
		return Cell{}, false
	}
	return d.cells[i], true
}

// Amount returns the amount stored under key, or zero.
func (d *GridData) Amount(key string) decimal.Decimal {
	c, ok := d.Cell(key)
	if !ok || !c.amount {
		return decimal.Zero
	}
	return c.Amount
}

// Cells returns the cells in insertion order.
func (d *GridData) Cells() []Cell {
	return d.cells
}

// MarshalJSON encodes the row as a flat object: the division first, then
// every cell in insertion order. Amounts are written as JSON numbers.
func (d *GridData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, raw []byte) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}

	if d.Division != "" || d.RowKey != "" {
		raw, err := json.Marshal(d.Division)
		if err != nil {
			return nil, err
		}
		if err := write(KeyDivision, raw); err != nil {
			return nil, err
		}
	}

	for _, c := range d.cells {
		var raw []byte
		if c.amount {
			raw = []byte(c.Amount.String())
		} else {
			var err error
			if raw, err = json.Marshal(c.Value); err != nil {
				return nil, err
			}
		}
		if err := write(c.Key, raw); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Column is one data column of the grid: the items it spans and the field
// summed into it.
type Column struct {
	Key   string
	Title string
	Field string
	Items []types.LineItem

	// Structural columns come from key values rather than totals.
	Structural bool

	// Running columns hold the sum of the structural columns before them
	// that share their field.
	Running bool
}

// Columns derives the data columns from the leaves of a column tree.
// Leaves under 소계, 합계 or 총계 nodes are not structural, and the 총계
// leaves run over the structural columns.
func Columns(groups []*Group) []Column {
	var out []Column
	var walk func(gs []*Group, synthetic bool, total bool)
	walk = func(gs []*Group, synthetic bool, total bool) {
		for _, g := range gs {
			syn := synthetic || g.Synthetic()
			tot := total || g.Kind == KindGrandTotal
			if g.Kind == KindDivision {
				continue
			}
			if !g.IsLeaf() {
				walk(g.Children, syn, tot)
				continue
			}
			out = append(out, Column{
				Key:        g.Key,
				Title:      g.Title,
				Field:      g.Field,
				Items:      g.Items,
				Structural: !syn,
				Running:    tot,
			})
		}
	}
	walk(groups, false, false)
	return out
}

// Aggregate computes one data row per leaf of the row tree.
//
// PARAMETERS:
//   - rows: The row grid groups. Nodes with children are descended into;
//     every childless node yields a row.
//   - columns: The data columns. When empty each row gets one cell per
//     value field, summed over the row's own items.
//   - valueFields: The fields to sum. Defaults to "value".
//   - valueIsColumn: When set, a column without a Field whose key names a
//     value field sums that field.
//
// RETURNS:
//   - The rows in display order with raw, unscaled sums.
//
// A column that carries a Field always sums it; any other column sums the
// first value field. Row and column items are matched by Seq. Values that
// do not coerce to a number contribute zero.
func Aggregate(rows []*Group, columns []Column, valueFields []string, valueIsColumn bool) []*GridData {
	if len(valueFields) == 0 {
		valueFields = []string{types.FieldValue}
	}

	var out []*GridData
	var walk func([]*Group)
	walk = func(gs []*Group) {
		for _, g := range gs {
			if !g.IsLeaf() {
				walk(g.Children)
				continue
			}
			out = append(out, aggregateRow(g, columns, valueFields, valueIsColumn))
		}
	}
	walk(rows)
	return out
}

func aggregateRow(row *Group, columns []Column, valueFields []string, valueIsColumn bool) *GridData {
	data := NewGridData(row.Title, row.Key, row.Kind, row.Depth)

	if len(columns) == 0 {
		for _, f := range valueFields {
			data.Set(AmountCell(f, sumField(row.Items, f)))
		}
		return data
	}

	seqs := make(map[int]struct{}, len(row.Items))
	for _, item := range row.Items {
		seqs[item.Seq] = struct{}{}
	}

	running := make(map[string]decimal.Decimal)
	for _, col := range columns {
		field := columnField(col, valueFields, valueIsColumn)

		if col.Running {
			data.Set(AmountCell(col.Key, running[field]))
			continue
		}

		sum := decimal.Zero
		for _, item := range col.Items {
			if _, ok := seqs[item.Seq]; ok {
				sum = sum.Add(decimal.NewFromFloat(item.Get(field).NumberOrZero()))
			}
		}
		data.Set(AmountCell(col.Key, sum))

		if col.Structural {
			running[field] = running[field].Add(sum)
		}
	}
	return data
}

// columnField returns the field a column sums.
func columnField(col Column, valueFields []string, valueIsColumn bool) string {
	if col.Field != "" {
		return col.Field
	}
	if valueIsColumn {
		for _, f := range valueFields {
			if f == col.Key {
				return f
			}
		}
	}
	return valueFields[0]
}

func sumField(items []types.LineItem, field string) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Get(field).NumberOrZero()))
	}
	return sum
}

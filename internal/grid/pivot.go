package grid

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/grouping"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// =============================================================================
// PIVOT MODES
// =============================================================================

// Mode identifies which layout a report resolves to.
type Mode string

const (
	// ModeEmpty is returned for no items or a zero amount unit.
	ModeEmpty Mode = "empty"

	// ModeBasic lists the items one per row without grouping.
	ModeBasic Mode = "basic"

	// ModeRowOnly groups rows and shows one column per value field.
	ModeRowOnly Mode = "row"

	// ModeColumnOnly groups columns under a single 총계 row.
	ModeColumnOnly Mode = "column"

	// ModePivot groups both axes.
	ModePivot Mode = "pivot"
)

// Request is the input of a pivot computation.
type Request struct {
	Items        []types.LineItem
	RowGroups    []types.GroupSpec
	ColumnGroups []types.GroupSpec
	ValueFields  []string

	// FieldHeaders and GroupHeaders name the columns of the basic layout.
	FieldHeaders []string
	GroupHeaders []types.GroupSpec

	ShowRowsTotal bool
	ShowColsTotal bool

	// AmountUnit is the divisor applied when the grid is presented.
	AmountUnit int64
}

// Result is the output of a pivot computation. Columns and Rows are the
// header trees and Data holds one row per row-tree leaf.
type Result struct {
	Mode       Mode
	Columns    []*Group
	Rows       []*Group
	Data       []*GridData
	Subtotals  grouping.Subtotals
	AmountUnit int64
}

// Empty reports whether the result has nothing to render.
func (r *Result) Empty() bool {
	return len(r.Columns) == 0 && len(r.Data) == 0
}

// Compute resolves the layout for req and builds its header trees and data.
//
// The layout follows from which axes carry groups:
//   - neither: basic item listing
//   - rows only: grouped rows, one column per value field
//   - columns only: grouped columns over a single 총계 row
//   - both: full pivot
//
// Compute never fails. Inputs that cannot produce a grid yield an empty
// result.
func Compute(req Request) *Result {
	if len(req.Items) == 0 || req.AmountUnit == 0 {
		return &Result{Mode: ModeEmpty, AmountUnit: req.AmountUnit}
	}

	req.Items = uniqueSeq(req.Items)

	var res *Result
	switch {
	case len(req.RowGroups) == 0 && len(req.ColumnGroups) == 0:
		res = basic(req)
	case len(req.ColumnGroups) == 0:
		res = rowOnly(req)
	case len(req.RowGroups) == 0:
		res = columnOnly(req)
	default:
		res = pivot(req)
	}
	res.AmountUnit = req.AmountUnit
	return res
}

// basic lists every item with the requested field and group columns.
func basic(req Request) *Result {
	res := &Result{Mode: ModeBasic}
	if len(req.FieldHeaders) == 0 {
		return res
	}

	for _, f := range req.FieldHeaders {
		res.Columns = append(res.Columns, &Group{Key: f, Title: FieldTitle(f), Kind: KindField, Field: f})
	}
	for _, g := range req.GroupHeaders {
		if g.ID == "id" {
			continue
		}
		res.Columns = append(res.Columns, &Group{Key: g.ID, Title: titleOf(g), Kind: KindField, Field: g.ID})
	}

	for _, item := range req.Items {
		row := NewGridData("", item.ID(), KindLeaf, 0)
		for _, col := range res.Columns {
			v := item.Get(col.Key)
			if v.IsUndefined() {
				continue
			}
			row.Set(ValueCell(col.Key, v))
		}
		res.Data = append(res.Data, row)
	}
	return res
}

func rowOnly(req Request) *Result {
	res := &Result{Mode: ModeRowOnly}

	res.Columns = append(res.Columns, divisionColumn(req.RowGroups[0]))
	for _, f := range valueFields(req) {
		res.Columns = append(res.Columns, &Group{Key: f, Title: f, Kind: KindField, Field: f})
	}

	res.Rows = buildRows(req)
	res.Data = Aggregate(res.Rows, nil, valueFields(req), false)
	return res
}

func columnOnly(req Request) *Result {
	res := &Result{Mode: ModeColumnOnly}

	columns, subtotals := buildColumns(req)
	res.Subtotals = subtotals
	res.Columns = append([]*Group{divisionColumn(types.GroupSpec{})}, columns...)

	res.Rows = []*Group{{
		Key:   KeyGrandTotal,
		Title: TitleGrandTotal,
		Kind:  KindGrandTotal,
		Items: req.Items,
	}}
	res.Data = Aggregate(res.Rows, Columns(columns), valueFields(req), valueIsColumn(req))
	return res
}

func pivot(req Request) *Result {
	res := &Result{Mode: ModePivot}

	columns, subtotals := buildColumns(req)
	res.Subtotals = subtotals
	res.Columns = append([]*Group{divisionColumn(req.RowGroups[0])}, columns...)

	res.Rows = buildRows(req)
	res.Data = Aggregate(res.Rows, Columns(columns), valueFields(req), valueIsColumn(req))
	return res
}

// =============================================================================
// AXIS CONSTRUCTION
// =============================================================================

func buildRows(req Request) []*Group {
	tree := grouping.By(req.Items, types.IDs(req.RowGroups))
	return Build(tree, req.Items, BuildOptions{
		Axis:           types.AxisRow,
		Specs:          req.RowGroups,
		ShowGrandTotal: req.ShowRowsTotal || req.RowGroups[0].ShowTotal,
	})
}

// buildColumns builds the column tree. When the column groups repeat key
// names across branches and the outermost totalled group's values match
// those names, per-branch 소계 columns would double count; they are
// replaced by one 합계 block that totals each name across branches.
func buildColumns(req Request) ([]*Group, grouping.Subtotals) {
	tree := grouping.By(req.Items, types.IDs(req.ColumnGroups))

	opts := BuildOptions{
		Axis:           types.AxisColumn,
		Specs:          req.ColumnGroups,
		ShowGrandTotal: req.ShowColsTotal || req.ColumnGroups[0].ShowTotal,
	}
	if len(req.ValueFields) > 1 {
		opts.ValueFields = req.ValueFields
	}

	var subtotals grouping.Subtotals
	crossBranch := false
	if minGroup, ok := minTotalledGroup(req.ColumnGroups); ok && grouping.HasDuplicateKeysAcrossSubtrees(tree) {
		values, _ := grouping.Values(req.Items, minGroup.ID)
		subtotals = grouping.CalculateSubtotals(tree)
		crossBranch = format.StringSetsEqual(subtotals.Keys(), values)
	}
	opts.SuppressSubtotals = crossBranch

	columns := Build(tree, req.Items, opts)

	if crossBranch && !hasKind(columns, KindAggregate) {
		b := &builder{opts: opts}
		if agg := b.aggregate(req.Items, KeySubtotal); agg != nil {
			columns = insertBeforeTotal(columns, agg)
		}
	}

	return columns, subtotals
}

// minTotalledGroup returns the outermost group with a total requested.
// Specs without a level are ranked by position.
func minTotalledGroup(specs []types.GroupSpec) (types.GroupSpec, bool) {
	best, bestLevel := -1, 0
	for i, s := range specs {
		if !s.ShowTotal {
			continue
		}
		level := s.Level
		if level == 0 {
			level = i + 1
		}
		if best < 0 || level < bestLevel {
			best, bestLevel = i, level
		}
	}
	if best < 0 {
		return types.GroupSpec{}, false
	}
	return specs[best], true
}

func hasKind(groups []*Group, kind Kind) bool {
	for _, g := range groups {
		if g.Kind == kind {
			return true
		}
	}
	return false
}

func insertBeforeTotal(groups []*Group, g *Group) []*Group {
	for i, existing := range groups {
		if existing.Kind == KindGrandTotal {
			out := make([]*Group, 0, len(groups)+1)
			out = append(out, groups[:i]...)
			out = append(out, g)
			return append(out, groups[i:]...)
		}
	}
	return append(groups, g)
}

func valueFields(req Request) []string {
	if len(req.ValueFields) == 0 {
		return []string{types.FieldValue}
	}
	return req.ValueFields
}

// uniqueSeq returns items unchanged when every Seq is distinct. Otherwise
// it returns a copy numbered by position, since rows and columns match
// items by Seq.
func uniqueSeq(items []types.LineItem) []types.LineItem {
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Seq]; dup {
			out := make([]types.LineItem, len(items))
			copy(out, items)
			for i := range out {
				out[i].Seq = i
			}
			return out
		}
		seen[item.Seq] = struct{}{}
	}
	return items
}

// valueIsColumn reports whether value fields become columns of their own:
// a single column group with several value fields.
func valueIsColumn(req Request) bool {
	return len(req.ColumnGroups) == 1 && len(req.ValueFields) > 1
}

// divisionColumn returns the leading column holding the row labels.
// Unnamed and default-named groups are titled 구분.
func divisionColumn(spec types.GroupSpec) *Group {
	return &Group{Key: KeyDivision, Title: DivisionTitle(spec.Name), Kind: KindDivision}
}

// DivisionTitle returns the header title of the division column.
func DivisionTitle(name string) string {
	if name == "" || strings.HasPrefix(name, "Group") {
		return TitleDivision
	}
	return name
}

// FieldTitle capitalizes the first letter of a field name.
func FieldTitle(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	if size == 0 {
		return field
	}
	return string(unicode.ToUpper(r)) + field[size:]
}

func titleOf(g types.GroupSpec) string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

package grid

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/line-item-pivot/internal/grouping"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// scenarioItems builds 16 items: two purposes, two types per purpose and
// four positions (p1..p4) per type.
func scenarioItems(typeNames [4]string) []types.LineItem {
	purposes := [4]string{"매매목적", "매매목적", "위험회피목적", "위험회피목적"}
	values := [4][4]float64{
		{2, 5, 78, 3},
		{1, 4, 7, 23},
		{43, 6, 1, 213},
		{3, 6, 1, 21},
	}
	positions := [4]string{"p1", "p2", "p3", "p4"}

	var items []types.LineItem
	seq := 0
	for g := 0; g < 4; g++ {
		for i := 0; i < 4; i++ {
			item := types.LineItem{
				Seq:   seq,
				Code:  "C" + string(rune('A'+seq)),
				Name:  typeNames[g],
				Value: types.Number(values[g][i]),
			}
			item.Set("purpose", types.String(purposes[g]))
			item.Set("type", types.String(typeNames[g]))
			item.Set("pos", types.String(positions[i]))
			items = append(items, item)
			seq++
		}
	}
	return items
}

var sharedTypes = [4]string{"부채", "자산", "부채", "자산"}

func keysOf(groups []*Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

func mustAmount(t *testing.T, d *GridData, key string, want int64) {
	t.Helper()
	got := d.Amount(key)
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("row %q cell %q = %s, want %d", d.RowKey, key, got, want)
	}
}

// =============================================================================
// BUILDER
// =============================================================================

func TestBuildKeysAndSubtotals(t *testing.T) {
	items := scenarioItems([4]string{"부채1", "자산2", "부채3", "자산4"})
	specs := []types.GroupSpec{
		{ID: "purpose", Level: 1},
		{ID: "type", Level: 2, ShowTotal: true},
	}

	groups := Build(grouping.By(items, types.IDs(specs)), items, BuildOptions{Axis: types.AxisRow, Specs: specs})

	if got, want := keysOf(groups), []string{"매매목적", "위험회피목적"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("top keys = %v, want %v", got, want)
	}

	first := groups[0]
	if got, want := keysOf(first.Children), []string{"매매목적_부채1", "매매목적_자산2", "매매목적_subtotal"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("child keys = %v, want %v", got, want)
	}

	sub := first.Children[2]
	if sub.Title != TitleSubtotal || sub.Kind != KindSubtotal {
		t.Errorf("subtotal node = %q/%s, want %q/%s", sub.Title, sub.Kind, TitleSubtotal, KindSubtotal)
	}
	if len(sub.Items) != 8 {
		t.Errorf("subtotal items = %d, want 8", len(sub.Items))
	}
	if sub.Depth != 1 {
		t.Errorf("subtotal depth = %d, want 1", sub.Depth)
	}
}

func TestBuildSingleSpecGrandTotalOnly(t *testing.T) {
	items := scenarioItems(sharedTypes)
	specs := []types.GroupSpec{{ID: "purpose", Level: 1, ShowTotal: true}}

	groups := Build(grouping.By(items, types.IDs(specs)), items, BuildOptions{
		Axis:           types.AxisRow,
		Specs:          specs,
		ShowGrandTotal: true,
	})

	if got, want := keysOf(groups), []string{"매매목적", "위험회피목적", "total"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if hasKind(groups, KindAggregate) {
		t.Error("single spec produced an aggregate node")
	}
	if total := groups[2]; total.Title != TitleGrandTotal || len(total.Items) != len(items) {
		t.Errorf("grand total = %q with %d items", total.Title, len(total.Items))
	}
}

func TestBuildAggregateBeforeGrandTotal(t *testing.T) {
	items := scenarioItems(sharedTypes)
	specs := []types.GroupSpec{{ID: "purpose", Level: 1}, {ID: "type", Level: 2}}

	groups := Build(grouping.By(items, types.IDs(specs)), items, BuildOptions{
		Axis:           types.AxisRow,
		Specs:          specs,
		ShowGrandTotal: true,
	})

	if got, want := keysOf(groups), []string{"매매목적", "위험회피목적", "aggregate", "total"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	agg := groups[2]
	if agg.Title != TitleAggregate {
		t.Errorf("aggregate title = %q, want %q", agg.Title, TitleAggregate)
	}
	if got, want := keysOf(agg.Children), []string{"aggregate_부채", "aggregate_자산"}; !reflect.DeepEqual(got, want) {
		t.Errorf("aggregate children = %v, want %v", got, want)
	}
	for _, c := range agg.Children {
		if len(c.Items) != 8 {
			t.Errorf("%s items = %d, want 8", c.Key, len(c.Items))
		}
	}
}

func TestBuildAggregateSkippedForSingleBucket(t *testing.T) {
	items := scenarioItems([4]string{"자산", "자산", "자산", "자산"})
	specs := []types.GroupSpec{{ID: "purpose"}, {ID: "type"}}

	groups := Build(grouping.By(items, types.IDs(specs)), items, BuildOptions{
		Axis:           types.AxisRow,
		Specs:          specs,
		ShowGrandTotal: true,
	})
	if hasKind(groups, KindAggregate) {
		t.Error("aggregate emitted for a single remaining bucket")
	}
}

func TestBuildOrdersSiblingsBySeq(t *testing.T) {
	late := types.LineItem{Seq: 9, Code: "L"}
	late.Set("k", types.String("late"))
	early := types.LineItem{Seq: 1, Code: "E"}
	early.Set("k", types.String("early"))
	items := []types.LineItem{late, early}
	specs := []types.GroupSpec{{ID: "k"}}

	groups := Build(grouping.By(items, []string{"k"}), items, BuildOptions{Axis: types.AxisRow, Specs: specs})

	if got, want := keysOf(groups), []string{"early", "late"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestBuildColumnFanOut(t *testing.T) {
	items := scenarioItems(sharedTypes)
	specs := []types.GroupSpec{{ID: "purpose"}}

	groups := Build(grouping.By(items, []string{"purpose"}), items, BuildOptions{
		Axis:           types.AxisColumn,
		Specs:          specs,
		ValueFields:    []string{"value", "prior"},
		ShowGrandTotal: true,
	})

	leaf := groups[0]
	if leaf.Items != nil {
		t.Error("fanned-out leaf kept its items")
	}
	if got, want := keysOf(leaf.Children), []string{"매매목적_value", "매매목적_prior"}; !reflect.DeepEqual(got, want) {
		t.Errorf("field keys = %v, want %v", got, want)
	}
	if leaf.ColSpan != 2 {
		t.Errorf("ColSpan = %d, want 2", leaf.ColSpan)
	}

	total := groups[len(groups)-1]
	if got, want := keysOf(total.Children), []string{"total_value", "total_prior"}; !reflect.DeepEqual(got, want) {
		t.Errorf("total field keys = %v, want %v", got, want)
	}
}

func TestLeavesAndMaxDepth(t *testing.T) {
	items := scenarioItems(sharedTypes)
	specs := []types.GroupSpec{{ID: "purpose"}, {ID: "type"}}
	groups := Build(grouping.By(items, types.IDs(specs)), items, BuildOptions{Axis: types.AxisColumn, Specs: specs})

	if got := len(Leaves(groups)); got != 4 {
		t.Errorf("Leaves() = %d, want 4", got)
	}
	if got := MaxDepth(groups); got != 2 {
		t.Errorf("MaxDepth() = %d, want 2", got)
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

func TestAggregateWithoutColumns(t *testing.T) {
	items := scenarioItems(sharedTypes)
	items[0].Set("prior", types.String("oops"))
	items[1].Set("prior", types.Number(10))

	rows := []*Group{{Key: "all", Title: "all", Kind: KindLeaf, Items: items}}
	data := Aggregate(rows, nil, []string{"value", "prior"}, false)

	if len(data) != 1 {
		t.Fatalf("Aggregate() rows = %d, want 1", len(data))
	}
	mustAmount(t, data[0], "value", 417)
	mustAmount(t, data[0], "prior", 10)
}

func TestAggregateRunningTotal(t *testing.T) {
	items := scenarioItems(sharedTypes)
	rows := []*Group{
		{Key: "a", Title: "a", Kind: KindLeaf, Items: items[:4]},
		{Key: "b", Title: "b", Kind: KindLeaf, Items: items[4:8]},
	}
	columns := []Column{
		{Key: "x", Items: items[:4], Structural: true},
		{Key: "y", Items: items[4:8], Structural: true},
		{Key: "total", Running: true},
	}

	data := Aggregate(rows, columns, nil, false)

	mustAmount(t, data[0], "x", 88)
	mustAmount(t, data[0], "y", 0)
	mustAmount(t, data[0], "total", 88)
	mustAmount(t, data[1], "total", 35)
}

// =============================================================================
// PIVOT
// =============================================================================

func TestComputeEmpty(t *testing.T) {
	if res := Compute(Request{AmountUnit: 1}); res.Mode != ModeEmpty || !res.Empty() {
		t.Errorf("no items: mode = %s, empty = %v", res.Mode, res.Empty())
	}

	res := Compute(Request{Items: scenarioItems(sharedTypes), RowGroups: []types.GroupSpec{{ID: "purpose"}}})
	if res.Mode != ModeEmpty || !res.Empty() {
		t.Errorf("zero unit: mode = %s, empty = %v", res.Mode, res.Empty())
	}
}

func TestComputeBasic(t *testing.T) {
	items := scenarioItems(sharedTypes)
	res := Compute(Request{
		Items:        items,
		FieldHeaders: []string{"code", "name", "value"},
		GroupHeaders: []types.GroupSpec{{ID: "id", Name: "ID"}, {ID: "purpose", Name: "목적"}},
		AmountUnit:   1,
	})

	if res.Mode != ModeBasic {
		t.Fatalf("Mode = %s, want %s", res.Mode, ModeBasic)
	}
	if got, want := keysOf(res.Columns), []string{"code", "name", "value", "purpose"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if res.Columns[1].Title != "Name" || res.Columns[3].Title != "목적" {
		t.Errorf("titles = %q, %q", res.Columns[1].Title, res.Columns[3].Title)
	}
	if len(res.Data) != len(items) {
		t.Fatalf("rows = %d, want %d", len(res.Data), len(items))
	}
	c, ok := res.Data[0].Cell("purpose")
	if !ok || c.Value.Text() != "매매목적" {
		t.Errorf("purpose cell = %v, %v", c.Value, ok)
	}
	mustAmount(t, res.Data[0], "value", 2)

	if res := Compute(Request{Items: items, AmountUnit: 1}); res.Mode != ModeBasic || !res.Empty() {
		t.Errorf("no field headers: mode = %s, empty = %v", res.Mode, res.Empty())
	}
}

func TestComputeRowOnly(t *testing.T) {
	res := Compute(Request{
		Items:         scenarioItems(sharedTypes),
		RowGroups:     []types.GroupSpec{{ID: "purpose", Name: "Group 1"}, {ID: "type", Name: "유형"}},
		ShowRowsTotal: true,
		AmountUnit:    1000,
	})

	if res.Mode != ModeRowOnly {
		t.Fatalf("Mode = %s, want %s", res.Mode, ModeRowOnly)
	}
	if res.Columns[0].Title != TitleDivision {
		t.Errorf("division title = %q, want %q", res.Columns[0].Title, TitleDivision)
	}

	byKey := make(map[string]*GridData)
	for _, d := range res.Data {
		byKey[d.RowKey] = d
	}
	mustAmount(t, byKey["매매목적_부채"], "value", 88)
	mustAmount(t, byKey["aggregate_부채"], "value", 351)
	mustAmount(t, byKey["total"], "value", 417)
	if res.AmountUnit != 1000 {
		t.Errorf("AmountUnit = %d, want 1000", res.AmountUnit)
	}
}

func TestComputeColumnOnly(t *testing.T) {
	res := Compute(Request{
		Items:         scenarioItems(sharedTypes),
		ColumnGroups:  []types.GroupSpec{{ID: "type"}},
		ShowColsTotal: true,
		AmountUnit:    1,
	})

	if res.Mode != ModeColumnOnly {
		t.Fatalf("Mode = %s, want %s", res.Mode, ModeColumnOnly)
	}
	if len(res.Data) != 1 || res.Data[0].Division != TitleGrandTotal {
		t.Fatalf("data = %d rows, want a single 총계 row", len(res.Data))
	}
	mustAmount(t, res.Data[0], "부채", 351)
	mustAmount(t, res.Data[0], "자산", 66)
	mustAmount(t, res.Data[0], "total", 417)
}

func TestComputePivotGrandTotal(t *testing.T) {
	res := Compute(Request{
		Items:         scenarioItems(sharedTypes),
		RowGroups:     []types.GroupSpec{{ID: "purpose", Name: "목적"}},
		ColumnGroups:  []types.GroupSpec{{ID: "type"}},
		ShowRowsTotal: true,
		ShowColsTotal: true,
		AmountUnit:    1,
	})

	if res.Mode != ModePivot {
		t.Fatalf("Mode = %s, want %s", res.Mode, ModePivot)
	}
	if got, want := keysOf(res.Columns), []string{"division", "부채", "자산", "total"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	if res.Columns[0].Title != "목적" {
		t.Errorf("division title = %q, want 목적", res.Columns[0].Title)
	}
	if len(res.Data) != 3 {
		t.Fatalf("rows = %d, want 3", len(res.Data))
	}

	mustAmount(t, res.Data[0], "부채", 88)
	mustAmount(t, res.Data[0], "자산", 35)
	mustAmount(t, res.Data[0], "total", 123)
	mustAmount(t, res.Data[1], "total", 294)

	total := res.Data[2]
	if total.Kind != KindGrandTotal {
		t.Errorf("last row kind = %s, want %s", total.Kind, KindGrandTotal)
	}
	mustAmount(t, total, "부채", 351)
	mustAmount(t, total, "자산", 66)
	mustAmount(t, total, "total", 417)
}

func TestComputePivotCrossBranchSubtotals(t *testing.T) {
	res := Compute(Request{
		Items:     scenarioItems(sharedTypes),
		RowGroups: []types.GroupSpec{{ID: "pos", Name: "Group 1"}},
		ColumnGroups: []types.GroupSpec{
			{ID: "purpose", Level: 1},
			{ID: "type", Level: 2, ShowTotal: true},
		},
		AmountUnit: 1,
	})

	last := res.Columns[len(res.Columns)-1]
	if last.Title != TitleAggregate {
		t.Fatalf("last column = %q, want %q", last.Title, TitleAggregate)
	}
	if got, want := keysOf(last.Children), []string{"subtotal_부채", "subtotal_자산"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("합계 children = %v, want %v", got, want)
	}
	for _, c := range res.Columns {
		for _, child := range c.Children {
			if child.Kind == KindSubtotal {
				t.Errorf("structural subtotal %s kept alongside cross-branch totals", child.Key)
			}
		}
	}

	wantDebt := []int64{45, 11, 79, 216}
	wantAsset := []int64{4, 10, 8, 44}
	for i, d := range res.Data {
		mustAmount(t, d, "subtotal_부채", wantDebt[i])
		mustAmount(t, d, "subtotal_자산", wantAsset[i])
		if got := res.Subtotals.Get("부채")[i].Subtotal; !got.Equal(decimal.NewFromInt(wantDebt[i])) {
			t.Errorf("Subtotals[부채][%d] = %s, want %d", i, got, wantDebt[i])
		}
	}
	mustAmount(t, res.Data[0], "매매목적_부채", 2)
	mustAmount(t, res.Data[0], "위험회피목적_부채", 43)
}

func TestComputePivotStructuralSubtotals(t *testing.T) {
	res := Compute(Request{
		Items:     scenarioItems([4]string{"부채1", "자산2", "부채3", "자산4"}),
		RowGroups: []types.GroupSpec{{ID: "pos"}},
		ColumnGroups: []types.GroupSpec{
			{ID: "purpose", Level: 1},
			{ID: "type", Level: 2, ShowTotal: true},
		},
		AmountUnit: 1,
	})

	if hasKind(res.Columns, KindAggregate) {
		t.Error("aggregate emitted without duplicate keys")
	}
	mustAmount(t, res.Data[0], "매매목적_subtotal", 3)
	mustAmount(t, res.Data[3], "위험회피목적_subtotal", 234)
}

func TestComputeValueIsColumn(t *testing.T) {
	items := scenarioItems(sharedTypes)
	for i := range items {
		items[i].Set("prior", types.Number(1))
	}

	res := Compute(Request{
		Items:        items,
		RowGroups:    []types.GroupSpec{{ID: "purpose"}},
		ColumnGroups: []types.GroupSpec{{ID: "type"}},
		ValueFields:  []string{"value", "prior"},
		AmountUnit:   1,
	})

	mustAmount(t, res.Data[0], "부채_value", 88)
	mustAmount(t, res.Data[0], "부채_prior", 4)
}

func TestComputeValueFieldsAcrossColumnGroups(t *testing.T) {
	items := scenarioItems([4]string{"부채1", "자산2", "부채3", "자산4"})
	for i := range items {
		items[i].Set("qty", types.Number(1000))
	}

	res := Compute(Request{
		Items:         items,
		RowGroups:     []types.GroupSpec{{ID: "pos"}},
		ColumnGroups:  []types.GroupSpec{{ID: "purpose", Level: 1}, {ID: "type", Level: 2, ShowTotal: true}},
		ValueFields:   []string{"value", "qty"},
		ShowColsTotal: true,
		AmountUnit:    1,
	})

	for _, col := range Columns(res.Columns) {
		if col.Field == "" {
			t.Errorf("column %q has no field", col.Key)
		}
	}

	p1 := res.Data[0]
	if p1.RowKey != "p1" {
		t.Fatalf("first row = %q, want p1", p1.RowKey)
	}
	mustAmount(t, p1, "매매목적_부채1_value", 2)
	mustAmount(t, p1, "매매목적_부채1_qty", 1000)
	mustAmount(t, p1, "매매목적_subtotal_value", 3)
	mustAmount(t, p1, "매매목적_subtotal_qty", 2000)
	mustAmount(t, p1, "위험회피목적_자산4_qty", 1000)
	mustAmount(t, p1, "total_value", 49)
	mustAmount(t, p1, "total_qty", 4000)
}

// sharedCodeItems returns three items where the first two share a code.
func sharedCodeItems() []types.LineItem {
	rows := []struct {
		code, a, b string
		value      float64
	}{
		{"X", "A", "b1", 10},
		{"X", "A", "b2", 5},
		{"Y", "B", "b1", 1},
	}
	items := make([]types.LineItem, len(rows))
	for i, r := range rows {
		items[i] = types.LineItem{Seq: i, Code: r.code, Value: types.Number(r.value)}
		items[i].Set("a", types.String(r.a))
		items[i].Set("b", types.String(r.b))
	}
	return items
}

func rowByKey(t *testing.T, data []*GridData, key string) *GridData {
	t.Helper()
	for _, d := range data {
		if d.RowKey == key {
			return d
		}
	}
	t.Fatalf("no row %q", key)
	return nil
}

func TestComputeRowOnlySharedCodes(t *testing.T) {
	res := Compute(Request{
		Items:         sharedCodeItems(),
		RowGroups:     []types.GroupSpec{{ID: "a", Level: 1}, {ID: "b", Level: 2, ShowTotal: true}},
		ShowRowsTotal: true,
		AmountUnit:    1,
	})

	mustAmount(t, rowByKey(t, res.Data, "A_b1"), "value", 10)
	mustAmount(t, rowByKey(t, res.Data, "A_b2"), "value", 5)
	mustAmount(t, rowByKey(t, res.Data, "A_subtotal"), "value", 15)
	mustAmount(t, rowByKey(t, res.Data, "B_subtotal"), "value", 1)
	mustAmount(t, rowByKey(t, res.Data, "total"), "value", 16)
}

func TestComputePivotSharedCodes(t *testing.T) {
	res := Compute(Request{
		Items:         sharedCodeItems(),
		RowGroups:     []types.GroupSpec{{ID: "b"}},
		ColumnGroups:  []types.GroupSpec{{ID: "a"}},
		ShowRowsTotal: true,
		ShowColsTotal: true,
		AmountUnit:    1,
	})

	b1 := rowByKey(t, res.Data, "b1")
	mustAmount(t, b1, "A", 10)
	mustAmount(t, b1, "B", 1)
	mustAmount(t, b1, "total", 11)

	b2 := rowByKey(t, res.Data, "b2")
	mustAmount(t, b2, "A", 5)
	mustAmount(t, b2, "B", 0)
	mustAmount(t, b2, "total", 5)

	total := rowByKey(t, res.Data, "total")
	mustAmount(t, total, "total", 16)

	sum := b1.Amount("total").Add(b2.Amount("total"))
	if !sum.Equal(total.Amount("total")) {
		t.Errorf("rows sum to %s, 총계 = %s", sum, total.Amount("total"))
	}
}

func TestComputeRenumbersRepeatedSeq(t *testing.T) {
	items := sharedCodeItems()
	for i := range items {
		items[i].Seq = 0
	}

	res := Compute(Request{
		Items:         items,
		RowGroups:     []types.GroupSpec{{ID: "b"}},
		ColumnGroups:  []types.GroupSpec{{ID: "a"}},
		ShowColsTotal: true,
		AmountUnit:    1,
	})

	mustAmount(t, rowByKey(t, res.Data, "b1"), "total", 11)
	mustAmount(t, rowByKey(t, res.Data, "b2"), "total", 5)
	if items[2].Seq != 0 {
		t.Error("Compute() modified the caller's items")
	}
}

func TestAggregateValueIsColumnByKey(t *testing.T) {
	items := scenarioItems(sharedTypes)
	for i := range items {
		items[i].Set("prior", types.Number(1))
	}
	rows := []*Group{{Key: "all", Title: "all", Kind: KindLeaf, Items: items}}
	columns := []Column{
		{Key: "value", Items: items},
		{Key: "prior", Items: items},
	}

	data := Aggregate(rows, columns, []string{"value", "prior"}, true)
	mustAmount(t, data[0], "value", 417)
	mustAmount(t, data[0], "prior", 16)

	data = Aggregate(rows, columns, []string{"value", "prior"}, false)
	mustAmount(t, data[0], "prior", 417)
}

func TestComputeIsDeterministic(t *testing.T) {
	req := Request{
		Items:         scenarioItems(sharedTypes),
		RowGroups:     []types.GroupSpec{{ID: "pos"}},
		ColumnGroups:  []types.GroupSpec{{ID: "purpose", Level: 1}, {ID: "type", Level: 2, ShowTotal: true}},
		ShowRowsTotal: true,
		ShowColsTotal: true,
		AmountUnit:    1,
	}

	encode := func(r *Result) string {
		b, err := json.Marshal(struct {
			Columns []*Group
			Rows    []*Group
			Data    []*GridData
		}{r.Columns, r.Rows, r.Data})
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		return string(b)
	}

	if a, b := encode(Compute(req)), encode(Compute(req)); a != b {
		t.Errorf("Compute() is not deterministic:\n%s\n%s", a, b)
	}
}

func TestGridDataMarshalJSON(t *testing.T) {
	d := NewGridData("매매목적", "매매목적", KindLeaf, 0)
	d.Set(AmountCell("b", decimal.NewFromInt(12)))
	d.Set(AmountCell("a", decimal.RequireFromString("1.5")))
	d.Set(ValueCell("c", types.String("x")))

	got, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"division":"매매목적","b":12,"a":1.5,"c":"x"}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}

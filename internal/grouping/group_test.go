package grouping

import (
	"reflect"
	"testing"

	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// purposeItems builds the 16 line items used by the subtotal scenarios:
// two purposes, two types per purpose and four items per type.
func purposeItems(typeNames [4]string) []types.LineItem {
	purposes := [4]string{"매매목적", "매매목적", "위험회피목적", "위험회피목적"}
	values := [4][4]float64{
		{2, 5, 78, 3},
		{1, 4, 7, 23},
		{43, 6, 1, 213},
		{3, 6, 1, 21},
	}

	var items []types.LineItem
	seq := 0
	for g := 0; g < 4; g++ {
		for i := 0; i < 4; i++ {
			item := types.LineItem{
				Seq:   seq,
				Code:  codeFor(seq),
				Name:  typeNames[g],
				Value: types.Number(values[g][i]),
			}
			item.Set("purpose", types.String(purposes[g]))
			item.Set("type", types.String(typeNames[g]))
			items = append(items, item)
			seq++
		}
	}
	return items
}

func codeFor(seq int) string {
	return "2051707" + string(rune('0'+seq/10)) + string(rune('0'+seq%10))
}

func TestByEmptyKeysReturnsLeaf(t *testing.T) {
	items := purposeItems([4]string{"부채", "자산", "부채", "자산"})

	node := By(items, nil)
	leaf, ok := node.(Leaf)
	if !ok {
		t.Fatalf("By() returned %T, want Leaf", node)
	}
	if len(leaf) != len(items) {
		t.Fatalf("By() leaf length = %d, want %d", len(leaf), len(items))
	}
}

func TestByPreservesFirstSeenOrder(t *testing.T) {
	items := purposeItems([4]string{"부채", "자산", "부채", "자산"})

	root, ok := By(items, []string{"purpose", "type"}).(*Group)
	if !ok {
		t.Fatal("By() did not return a *Group")
	}

	if got, want := root.Keys(), []string{"매매목적", "위험회피목적"}; !reflect.DeepEqual(got, want) {
		t.Errorf("root keys = %v, want %v", got, want)
	}

	branch, ok := root.Child("위험회피목적").(*Group)
	if !ok {
		t.Fatal("second level is not a *Group")
	}
	if got, want := branch.Keys(), []string{"부채", "자산"}; !reflect.DeepEqual(got, want) {
		t.Errorf("branch keys = %v, want %v", got, want)
	}

	leaf, ok := branch.Child("자산").(Leaf)
	if !ok {
		t.Fatal("third level is not a Leaf")
	}
	if len(leaf) != 4 {
		t.Errorf("leaf length = %d, want 4", len(leaf))
	}
}

func TestByIsPermutationOfInput(t *testing.T) {
	items := purposeItems([4]string{"부채", "자산", "부채", "자산"})

	node := By(items, []string{"purpose", "type"})
	if depth := MaxDepth(node); depth != 2 {
		t.Errorf("MaxDepth() = %d, want 2", depth)
	}

	flat := Items(node)
	if len(flat) != len(items) {
		t.Fatalf("Items() length = %d, want %d", len(flat), len(items))
	}
	seen := make(map[string]int)
	for _, item := range flat {
		seen[item.ID()]++
	}
	for _, item := range items {
		if seen[item.ID()] != 1 {
			t.Errorf("item %s seen %d times, want 1", item.ID(), seen[item.ID()])
		}
	}
}

func TestByMissingFieldBucketsUnderUndefined(t *testing.T) {
	a := types.LineItem{Seq: 0, Code: "A"}
	a.Set("kind", types.String("x"))
	b := types.LineItem{Seq: 1, Code: "B"}
	c := types.LineItem{Seq: 2, Code: "C"}
	c.Set("kind", types.Null())

	root := By([]types.LineItem{a, b, c}, []string{"kind"}).(*Group)
	if got, want := root.Keys(), []string{"x", "undefined", "null"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestByDoesNotMutateInput(t *testing.T) {
	items := purposeItems([4]string{"부채", "자산", "부채", "자산"})
	before := make([]string, len(items))
	for i, item := range items {
		before[i] = item.ID()
	}

	By(items, []string{"type", "purpose"})

	for i, item := range items {
		if item.ID() != before[i] {
			t.Fatalf("input reordered at %d: %s, want %s", i, item.ID(), before[i])
		}
	}
}

func TestValues(t *testing.T) {
	items := purposeItems([4]string{"부채", "자산", "부채", "자산"})

	values, ids := Values(items, "type")
	if want := []string{"부채", "자산"}; !reflect.DeepEqual(values, want) {
		t.Errorf("Values() = %v, want %v", values, want)
	}
	if len(ids["부채"]) != 8 {
		t.Errorf("ids[부채] length = %d, want 8", len(ids["부채"]))
	}
}

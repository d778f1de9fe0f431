package grouping

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// TREE ANALYSIS
// =============================================================================

// MaxDepth returns the depth of the deepest leaf, counting the root's
// immediate children as depth 1. A bare Leaf has depth 0.
func MaxDepth(n Node) int {
	g, ok := n.(*Group)
	if !ok || g == nil {
		return 0
	}
	deepest := 0
	for _, k := range g.keys {
		if d := MaxDepth(g.children[k]); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// HasDuplicateKeysAcrossSubtrees reports whether any key name occurs more
// than once anywhere in the tree, for example the same asset type under
// two different purposes.
//
// When this holds, summing a level structurally would combine unrelated
// branches, and totals for that level have to be computed per key value
// across branches instead.
func HasDuplicateKeysAcrossSubtrees(n Node) bool {
	seen := make(map[string]struct{})
	var walk func(Node) bool
	walk = func(n Node) bool {
		g, ok := n.(*Group)
		if !ok {
			return false
		}
		for _, k := range g.keys {
			if _, dup := seen[k]; dup {
				return true
			}
			seen[k] = struct{}{}
			if walk(g.children[k]) {
				return true
			}
		}
		return false
	}
	return walk(n)
}

// =============================================================================
// PER-POSITION SUBTOTALS
// =============================================================================

// Subtotal is the sum of the values at one item position.
type Subtotal struct {
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Subtotals maps a second-level key to one subtotal per item position.
// Keys keep first-seen order.
type Subtotals struct {
	keys   []string
	values map[string][]Subtotal
}

// Keys returns the subtotal labels in first-seen order.
func (s Subtotals) Keys() []string {
	return s.keys
}

// Get returns the positional subtotals for key.
func (s Subtotals) Get(key string) []Subtotal {
	return s.values[key]
}

// Len returns the number of labels.
func (s Subtotals) Len() int {
	return len(s.keys)
}

// CalculateSubtotals sums values position by position across top-level
// branches, keyed by the second-level key they sit under.
//
// EXAMPLE:
//   매매목적/자산 = [1, 4, 7, 23]
//   위험회피목적/자산 = [3, 6, 1, 21]
//   -> 자산 = [4, 10, 8, 44]
//
// Branches deeper than two levels contribute their items in traversal
// order. Values that do not coerce to a number count as zero.
func CalculateSubtotals(n Node) Subtotals {
	result := Subtotals{values: make(map[string][]Subtotal)}

	root, ok := n.(*Group)
	if !ok {
		return result
	}

	for _, top := range root.keys {
		branch, ok := root.children[top].(*Group)
		if !ok {
			continue
		}
		for _, key := range branch.keys {
			if _, seen := result.values[key]; !seen {
				result.keys = append(result.keys, key)
				result.values[key] = nil
			}
			sums := result.values[key]
			for i, item := range Items(branch.children[key]) {
				if i >= len(sums) {
					sums = append(sums, Subtotal{Subtotal: decimal.Zero})
				}
				sums[i].Subtotal = sums[i].Subtotal.Add(decimal.NewFromFloat(item.Value.NumberOrZero()))
			}
			result.values[key] = sums
		}
	}

	return result
}

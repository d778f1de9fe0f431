// =============================================================================
// Line Item Pivot - Hierarchical Grouping
// =============================================================================
//
// This package partitions a flat list of line items into a nested tree keyed
// by successive grouping-key values, and inspects such trees for the
// structural properties the grid builder depends on.
//
// TREE SHAPE:
//   Grouping by [purpose, type] produces:
//
//   Group
//   ├── "매매목적" -> Group
//   │   ├── "부채" -> Leaf [items...]
//   │   └── "자산" -> Leaf [items...]
//   └── "위험회피목적" -> Group
//       ├── "부채" -> Leaf [items...]
//       └── "자산" -> Leaf [items...]
//
//   Keys keep the order in which their values were first seen. The depth of
//   the tree equals the number of grouping keys applied.
//
// =============================================================================

package grouping

import (
	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// =============================================================================
// NODE TYPES
// =============================================================================

// Node is either a *Group (an inner level) or a Leaf (the items that share
// a complete key chain).
type Node interface {
	node()
}

// Group is an inner node of a grouped tree. Children are addressed by the
// key value they were grouped under.
type Group struct {
	keys     []string
	children map[string]Node
}

// Leaf holds the items at the end of a key chain.
type Leaf []types.LineItem

func (*Group) node() {}
func (Leaf) node()   {}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{children: make(map[string]Node)}
}

// Add appends a child under key. Adding an existing key replaces the child
// but keeps its original position.
func (g *Group) Add(key string, child Node) {
	if _, exists := g.children[key]; !exists {
		g.keys = append(g.keys, key)
	}
	g.children[key] = child
}

// Keys returns the child keys in first-seen order.
func (g *Group) Keys() []string {
	return g.keys
}

// Child returns the child stored under key, or nil.
func (g *Group) Child(key string) Node {
	return g.children[key]
}

// Len returns the number of children.
func (g *Group) Len() int {
	return len(g.keys)
}

// =============================================================================
// GROUPING
// =============================================================================

// By partitions items by the values of keys, outermost first.
//
// PARAMETERS:
//   - items: The line items to partition. They are not modified.
//   - keys: The field names to group by.
//
// RETURNS:
//   - A Leaf holding items unchanged when keys is empty.
//   - Otherwise a *Group with one child per distinct value of keys[0],
//     each recursively grouped by keys[1:].
//
// Values are bucketed by their GroupKey, so absent fields collect under
// "undefined" and nulls under "null". Equal key values always merge.
func By(items []types.LineItem, keys []string) Node {
	if len(keys) == 0 {
		return Leaf(items)
	}

	current, rest := keys[0], keys[1:]

	// Partition preserving the order in which key values first appear.
	buckets := make(map[string][]types.LineItem)
	var order []string
	for _, item := range items {
		k := item.Get(current).GroupKey()
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], item)
	}

	group := NewGroup()
	for _, k := range order {
		group.Add(k, By(buckets[k], rest))
	}
	return group
}

// Items returns every item under n in traversal order.
func Items(n Node) []types.LineItem {
	var out []types.LineItem
	walkLeaves(n, func(leaf Leaf) {
		out = append(out, leaf...)
	})
	return out
}

func walkLeaves(n Node, fn func(Leaf)) {
	switch v := n.(type) {
	case Leaf:
		fn(v)
	case *Group:
		for _, k := range v.keys {
			walkLeaves(v.children[k], fn)
		}
	}
}

// =============================================================================
// GROUP VALUES
// =============================================================================

// Values returns the distinct values of field in first-seen order, and the
// identities of the items carrying each value.
func Values(items []types.LineItem, field string) ([]string, map[string][]string) {
	var values []string
	ids := make(map[string][]string)
	for _, item := range items {
		k := item.Get(field).GroupKey()
		if _, seen := ids[k]; !seen {
			values = append(values, k)
		}
		ids[k] = append(ids[k], item.ID())
	}
	return values, ids
}

// =============================================================================
// Line Item Pivot - Grid Group Builder
// =============================================================================
//
// This package turns grouped line-item trees into display trees of grid
// groups, fills the cell matrix that sits under them, and ties both together
// into the pivot modes a report can be rendered in.
//
// DISPLAY TREE:
//   Each grid group carries a path-qualified key built by joining its
//   ancestors' keys with "_". Synthetic nodes are inserted according to the
//   group specs:
//
//   소계 (subtotal)   - closes the children of one parent at a level whose
//                       spec requests a total
//   합계 (aggregate)  - regroups all items without the outermost key when
//                       that leaves more than one bucket
//   총계 (grand total) - spans every item
//
// ORDERING:
//   Siblings are sequenced by the smallest source position (Seq) of the
//   items beneath them, so both axes follow the natural item order rather
//   than alphabetical order.
//
// =============================================================================

package grid

import (
	"sort"

	"github.com/ginjaninja78/line-item-pivot/internal/grouping"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// Kind classifies a grid group node.
type Kind string

const (
	KindGroup      Kind = "group"
	KindLeaf       Kind = "leaf"
	KindField      Kind = "field"
	KindSubtotal   Kind = "subtotal"
	KindAggregate  Kind = "aggregate"
	KindGrandTotal Kind = "total"
	KindDivision   Kind = "division"
)

// Synthetic node titles and key suffixes.
const (
	TitleSubtotal   = "소계"
	TitleAggregate  = "합계"
	TitleGrandTotal = "총계"
	TitleDivision   = "구분"

	KeySubtotal   = "subtotal"
	KeyAggregate  = "aggregate"
	KeyGrandTotal = "total"
	KeyDivision   = "division"

	keySeparator = "_"
)

// Group is a node of a display tree.
type Group struct {
	Key      string           `json:"key"`
	Title    string           `json:"title"`
	Kind     Kind             `json:"kind"`
	Field    string           `json:"field,omitempty"`
	Depth    int              `json:"depth"`
	Order    int              `json:"-"`
	ColSpan  int              `json:"colSpan,omitempty"`
	Children []*Group         `json:"children,omitempty"`
	Items    []types.LineItem `json:"-"`
}

// IsLeaf reports whether the node has no children.
func (g *Group) IsLeaf() bool {
	return len(g.Children) == 0
}

// Synthetic reports whether the node was inserted by the builder rather
// than derived from a key value.
func (g *Group) Synthetic() bool {
	switch g.Kind {
	case KindSubtotal, KindAggregate, KindGrandTotal:
		return true
	}
	return false
}

// ItemIDs returns the identities of the items attached to the node.
func (g *Group) ItemIDs() []string {
	ids := make([]string, len(g.Items))
	for i, item := range g.Items {
		ids[i] = item.ID()
	}
	return ids
}

// BuildOptions controls how a grouped tree is turned into grid groups.
type BuildOptions struct {
	// Axis is the axis the tree is laid out on.
	Axis types.Axis

	// Specs are the group specs used to build the tree, outermost first.
	Specs []types.GroupSpec

	// ShowGrandTotal appends the 합계 and 총계 nodes.
	ShowGrandTotal bool

	// ValueFields fans every column leaf out into one child per field.
	// Ignored on the row axis.
	ValueFields []string

	// SuppressSubtotals disables 소계 nodes regardless of the specs.
	SuppressSubtotals bool
}

type builder struct {
	opts BuildOptions
}

// Build converts a grouped tree into grid groups.
//
// PARAMETERS:
//   - tree: The result of grouping.By over items with the spec ids as keys.
//   - items: The items the tree was built from, used for the totals.
//   - opts: Axis, specs and total flags.
//
// RETURNS:
//   - The top-level grid groups followed by any 합계 and 총계 nodes.
//
// The specs must match the depth of the tree. A bare leaf produces no
// structural groups.
func Build(tree grouping.Node, items []types.LineItem, opts BuildOptions) []*Group {
	b := &builder{opts: opts}

	groups := b.walk(tree, "", 0)

	if opts.ShowGrandTotal {
		if agg := b.aggregate(items, KeyAggregate); agg != nil {
			groups = append(groups, agg)
		}
		groups = append(groups, b.grandTotal(items))
	}

	return groups
}

// walk builds the grid groups for the children of n.
func (b *builder) walk(n grouping.Node, parentKey string, depth int) []*Group {
	g, ok := n.(*grouping.Group)
	if !ok {
		return nil
	}

	children := make([]*Group, 0, g.Len()+1)
	for _, k := range g.Keys() {
		key := joinKey(parentKey, k)

		switch child := g.Child(k).(type) {
		case grouping.Leaf:
			node := &Group{
				Key:   key,
				Title: k,
				Kind:  KindLeaf,
				Depth: depth,
				Order: minSeq(child),
				Items: []types.LineItem(child),
			}
			if fields := b.fanOut(); len(fields) > 0 {
				node.Children = fieldChildren(key, depth+1, node.Items, fields)
				node.ColSpan = len(fields)
				node.Items = nil
			}
			children = append(children, node)

		case *grouping.Group:
			sub := b.walk(child, key, depth+1)
			node := &Group{
				Key:      key,
				Title:    k,
				Kind:     KindGroup,
				Depth:    depth,
				Order:    orderOf(sub),
				Children: sub,
			}
			if b.opts.Axis == types.AxisColumn {
				node.ColSpan = leafCount(sub)
			}
			children = append(children, node)
		}
	}

	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Order < children[j].Order
	})

	if b.subtotalAt(depth) && len(children) > 0 {
		children = append(children, b.subtotal(parentKey, depth, children))
	}

	return children
}

// subtotalAt reports whether a 소계 closes the siblings at depth. The
// outermost level never gets one; its total is the grand total.
func (b *builder) subtotalAt(depth int) bool {
	if b.opts.SuppressSubtotals || depth < 1 || depth >= len(b.opts.Specs) {
		return false
	}
	return b.opts.Specs[depth].ShowTotal
}

func (b *builder) subtotal(parentKey string, depth int, siblings []*Group) *Group {
	key := joinKey(parentKey, KeySubtotal)
	items := unionItems(siblings)

	node := &Group{
		Key:   key,
		Title: TitleSubtotal,
		Kind:  KindSubtotal,
		Depth: depth,
		Order: orderOf(siblings),
		Items: items,
	}

	if b.opts.Axis == types.AxisColumn {
		node.ColSpan = 1
		if fields := b.fanOut(); len(fields) > 0 {
			node.Children = fieldChildren(key, depth+1, items, fields)
			node.ColSpan = len(fields)
		}
	}
	return node
}

// aggregate regroups items by every key except the outermost. It returns
// nil when that leaves a single bucket, since the aggregate would repeat
// the grand total.
func (b *builder) aggregate(items []types.LineItem, key string) *Group {
	if len(b.opts.Specs) < 2 {
		return nil
	}

	rest := b.opts.Specs[1:]
	regrouped := grouping.By(items, types.IDs(rest))
	if g, ok := regrouped.(*grouping.Group); !ok || g.Len() <= 1 {
		return nil
	}

	inner := &builder{opts: BuildOptions{
		Axis:              b.opts.Axis,
		Specs:             rest,
		ValueFields:       b.opts.ValueFields,
		SuppressSubtotals: true,
	}}

	children := inner.walk(regrouped, key, 1)

	node := &Group{
		Key:      key,
		Title:    TitleAggregate,
		Kind:     KindAggregate,
		Order:    orderOf(children),
		Children: children,
		Items:    items,
	}
	if b.opts.Axis == types.AxisColumn {
		node.ColSpan = leafCount(children)
	}
	return node
}

func (b *builder) grandTotal(items []types.LineItem) *Group {
	node := &Group{
		Key:   KeyGrandTotal,
		Title: TitleGrandTotal,
		Kind:  KindGrandTotal,
		Order: minSeq(items),
		Items: items,
	}
	if b.opts.Axis == types.AxisColumn {
		node.ColSpan = 1
		if fields := b.fanOut(); len(fields) > 0 {
			node.Children = fieldChildren(KeyGrandTotal, 1, items, fields)
			node.ColSpan = len(fields)
		}
	}
	return node
}

func (b *builder) fanOut() []string {
	if b.opts.Axis != types.AxisColumn {
		return nil
	}
	return b.opts.ValueFields
}

// =============================================================================
// HELPERS
// =============================================================================

func fieldChildren(parentKey string, depth int, items []types.LineItem, fields []string) []*Group {
	children := make([]*Group, len(fields))
	for i, f := range fields {
		children[i] = &Group{
			Key:   joinKey(parentKey, f),
			Title: f,
			Kind:  KindField,
			Field: f,
			Depth: depth,
			Order: i,
			Items: items,
		}
	}
	return children
}

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + keySeparator + key
}

func minSeq(items []types.LineItem) int {
	if len(items) == 0 {
		return 0
	}
	m := items[0].Seq
	for _, item := range items[1:] {
		if item.Seq < m {
			m = item.Seq
		}
	}
	return m
}

func orderOf(groups []*Group) int {
	if len(groups) == 0 {
		return 0
	}
	m := groups[0].Order
	for _, g := range groups[1:] {
		if g.Order < m {
			m = g.Order
		}
	}
	return m
}

// unionItems collects the items under groups without repeating any item
// that appears under more than one of them.
func unionItems(groups []*Group) []types.LineItem {
	var out []types.LineItem
	seen := make(map[int]struct{})
	var collect func([]*Group)
	collect = func(gs []*Group) {
		for _, g := range gs {
			if g.Synthetic() {
				continue
			}
			if len(g.Children) > 0 && g.Kind != KindLeaf {
				collect(g.Children)
				continue
			}
			items := g.Items
			if g.Kind == KindLeaf && len(items) == 0 && len(g.Children) > 0 {
				items = g.Children[0].Items
			}
			for _, item := range items {
				if _, dup := seen[item.Seq]; dup {
					continue
				}
				seen[item.Seq] = struct{}{}
				out = append(out, item)
			}
		}
	}
	collect(groups)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func leafCount(groups []*Group) int {
	n := 0
	for _, g := range groups {
		if g.IsLeaf() {
			n++
			continue
		}
		n += leafCount(g.Children)
	}
	return n
}

// Leaves returns the childless nodes of groups in display order.
func Leaves(groups []*Group) []*Group {
	var out []*Group
	for _, g := range groups {
		if g.IsLeaf() {
			out = append(out, g)
			continue
		}
		out = append(out, Leaves(g.Children)...)
	}
	return out
}

// MaxDepth returns the number of header levels groups occupy.
func MaxDepth(groups []*Group) int {
	depth := 0
	for _, g := range groups {
		d := 1
		if !g.IsLeaf() {
			d += MaxDepth(g.Children)
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

package taxotree

import (
	"fmt"
	"math"
)

// HierarchyNode is one node of a derived tree. Trees are rebuilt, never
// mutated: every change of rank filter or root scope produces a fresh tree,
// and each view owns the tree it built. The wrapped FlatNode stays shared
// and read-only.
type HierarchyNode struct {
	Flat     *FlatNode
	Depth    int
	Children []*HierarchyNode

	// AggregateValue is the value-accessor sum over this subtree, used by
	// circle packing.
	AggregateValue float64
}

// ValueFunc extracts the packing value of a single flat node.
type ValueFunc func(*FlatNode) float64

// AnnotationsValue is the default circle-packing accessor.
func AnnotationsValue(n *FlatNode) float64 {
	return math.Max(float64(n.AnnotationsCount), 1)
}

// Walk visits the subtree in depth-first pre-order.
func (h *HierarchyNode) Walk(fn func(*HierarchyNode)) {
	fn(h)
	for _, c := range h.Children {
		c.Walk(fn)
	}
}

// Leaves returns the subtree's leaves in depth-first order.
func (h *HierarchyNode) Leaves() []*HierarchyNode {
	var out []*HierarchyNode
	h.Walk(func(n *HierarchyNode) {
		if len(n.Children) == 0 {
			out = append(out, n)
		}
	})
	return out
}

// Count returns the number of nodes in the subtree.
func (h *HierarchyNode) Count() int {
	c := 0
	h.Walk(func(*HierarchyNode) { c++ })
	return c
}

// MaxDepth returns the maximum depth found in the subtree.
func (h *HierarchyNode) MaxDepth() int {
	max := h.Depth
	h.Walk(func(n *HierarchyNode) {
		if n.Depth > max {
			max = n.Depth
		}
	})
	return max
}

// BuildTree stratifies the full flat set into a tree. The flat slice is the
// post-synthesis dataset, so exactly one record is parentless. Unreachable
// records (cycles from upstream data defects) fail the build.
func BuildTree(nodes []FlatNode, value ValueFunc) (*HierarchyNode, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no nodes to stratify")
	}
	keep := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		keep[nodes[i].ID] = struct{}{}
	}
	return stratify(nodes, keep, "", value)
}

// BuildByRank rebuilds the tree keeping nodes whose rank position in the
// fixed ordering is at or above maxRank; unranked nodes are structural and
// always kept. Ancestor closure is applied afterwards so the result stays
// one connected tree. An empty result or a broken stratification returns
// prev unchanged.
func BuildByRank(nodes []FlatNode, prev *HierarchyNode, maxRank string, value ValueFunc) *HierarchyNode {
	limit := RankDepth(maxRank)
	if limit < 0 {
		limit = len(Ranks) - 1
	}
	keep := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		d := RankDepth(nodes[i].Rank)
		if d < 0 || d <= limit {
			keep[nodes[i].ID] = struct{}{}
		}
	}
	if len(keep) == 0 {
		return prev
	}
	closeAncestors(nodes, keep)
	tree, err := stratify(nodes, keep, "", value)
	if err != nil {
		return prev
	}
	return tree
}

// BuildByRootScope rebuilds the tree as exactly the subtree of rootID,
// re-rooted there. An unknown id returns prev unchanged.
func BuildByRootScope(nodes []FlatNode, prev *HierarchyNode, rootID string, value ValueFunc) *HierarchyNode {
	found := false
	for i := range nodes {
		if nodes[i].ID == rootID {
			found = true
			break
		}
	}
	if !found {
		return prev
	}
	children := childIndex(nodes)
	keep := make(map[string]struct{})
	var mark func(id string)
	mark = func(id string) {
		if _, ok := keep[id]; ok {
			// Already visited; cyclic parent links must not recurse forever.
			return
		}
		keep[id] = struct{}{}
		for _, c := range children[id] {
			mark(c.ID)
		}
	}
	mark(rootID)
	tree, err := stratify(nodes, keep, rootID, value)
	if err != nil {
		return prev
	}
	return tree
}

// closeAncestors grows keep until every kept node's parent chain is kept,
// even where an ancestor was excluded by the rank filter.
func closeAncestors(nodes []FlatNode, keep map[string]struct{}) {
	byID := make(map[string]*FlatNode, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}
	for id := range keep {
		n := byID[id]
		for n != nil && n.ParentID != "" {
			parent, ok := byID[n.ParentID]
			if !ok {
				break
			}
			if _, kept := keep[parent.ID]; kept {
				break
			}
			keep[parent.ID] = struct{}{}
			n = parent
		}
	}
}

func childIndex(nodes []FlatNode) map[string][]*FlatNode {
	children := make(map[string][]*FlatNode, len(nodes))
	for i := range nodes {
		if nodes[i].ParentID != "" {
			children[nodes[i].ParentID] = append(children[nodes[i].ParentID], &nodes[i])
		}
	}
	return children
}

// stratify builds a fresh tree over the kept ids. rootID selects an explicit
// root (re-scoped subtree); when empty, the single kept node with no kept
// parent is the root. Insertion order of children follows source order.
func stratify(nodes []FlatNode, keep map[string]struct{}, rootID string, value ValueFunc) (*HierarchyNode, error) {
	if value == nil {
		value = AnnotationsValue
	}
	byID := make(map[string]*FlatNode, len(keep))
	for i := range nodes {
		if _, ok := keep[nodes[i].ID]; ok {
			byID[nodes[i].ID] = &nodes[i]
		}
	}

	var root *FlatNode
	if rootID != "" {
		root = byID[rootID]
		if root == nil {
			return nil, fmt.Errorf("scope root %q not in kept set", rootID)
		}
	} else {
		for i := range nodes {
			n := &nodes[i]
			if _, ok := keep[n.ID]; !ok {
				continue
			}
			if _, parentKept := byID[n.ParentID]; n.ParentID == "" || !parentKept {
				if root != nil {
					return nil, fmt.Errorf("kept set has multiple roots (%q, %q)", root.ID, n.ID)
				}
				root = n
			}
		}
		if root == nil {
			return nil, fmt.Errorf("kept set has no root")
		}
	}

	h := &HierarchyNode{Flat: root, Depth: 0}

	// Attach children in source order, breadth-first from the root so depths
	// are known when a child is attached.
	children := make(map[string][]*FlatNode, len(byID))
	for i := range nodes {
		n := &nodes[i]
		if n.ID == root.ID {
			continue
		}
		if _, ok := byID[n.ID]; !ok {
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	queue := []*HierarchyNode{h}
	attached := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, cf := range children[cur.Flat.ID] {
			child := &HierarchyNode{Flat: cf, Depth: cur.Depth + 1}
			cur.Children = append(cur.Children, child)
			queue = append(queue, child)
			attached++
		}
	}
	if attached != len(byID) {
		return nil, fmt.Errorf("stratification left %d unreachable nodes", len(byID)-attached)
	}

	aggregate(h, value)
	return h, nil
}

func aggregate(h *HierarchyNode, value ValueFunc) float64 {
	sum := value(h.Flat)
	for _, c := range h.Children {
		sum += aggregate(c, value)
	}
	h.AggregateValue = sum
	return sum
}

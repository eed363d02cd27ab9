package vizengine

import (
	"math"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// IDSet is a copy-on-write id set: Toggle returns a fresh set so identity
// comparison is enough to detect state changes.
type IDSet map[string]struct{}

// Has reports membership; a nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle returns a new set with id added or removed. The receiver is left
// untouched.
func (s IDSet) Toggle(id string) IDSet {
	out := make(IDSet, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	if _, ok := out[id]; ok {
		delete(out, id)
	} else {
		out[id] = struct{}{}
	}
	return out
}

// Linear layout metrics. X positions are in content space; the vertical
// scroll offset is applied by the caller.
const (
	LinearRowHeight  = 24.0
	LinearIndent     = 18.0
	LinearBaseX      = 8.0
	LinearExpandW    = 18.0 // clickable expand/collapse zone left of the label
	LinearBarW       = 140.0
	LinearBarRightPx = 16.0 // bar inset from the right edge
)

// LinearRow is one visible row of the indented tree.
type LinearRow struct {
	Node *taxotree.HierarchyNode
	Row  int
	X    float64 // label x: base offset plus depth*indent
	Seg  [3]float64
	Sum  float64
}

// LinearGeometry is the snapshot of one linear layout pass. Rows covers the
// whole visible (non-collapsed) tree; drawing and hit testing stay bounded
// by the scroll viewport.
type LinearGeometry struct {
	Rows   []LinearRow
	MaxSum float64 // global maximum over all visible rows
	Genes  taxotree.GeneMask
}

// LayoutLinear flattens the tree into rows, skipping the descendants of
// collapsed nodes. Bars are scaled against the maximum gene sum over the
// visible rows.
func LayoutLinear(root *taxotree.HierarchyNode, collapsed IDSet, genes taxotree.GeneMask) *LinearGeometry {
	if root == nil {
		return nil
	}
	g := &LinearGeometry{Genes: genes}
	var walk func(n *taxotree.HierarchyNode)
	walk = func(n *taxotree.HierarchyNode) {
		row := LinearRow{
			Node: n,
			Row:  len(g.Rows),
			X:    LinearBaseX + float64(n.Depth)*LinearIndent,
			Seg:  geneSegments(n.Flat, genes),
			Sum:  n.Flat.GeneSum(genes),
		}
		if row.Sum > g.MaxSum {
			g.MaxSum = row.Sum
		}
		g.Rows = append(g.Rows, row)
		if collapsed.Has(n.Flat.ID) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return g
}

// VisibleWindow returns the half-open row range intersecting the scroll
// viewport. Only these rows are drawn or hit-tested per frame; the full
// rank-0 tree can have tens of thousands of rows.
func (g *LinearGeometry) VisibleWindow(scrollY, viewH float64) (int, int) {
	if g == nil || len(g.Rows) == 0 || viewH <= 0 {
		return 0, 0
	}
	first := int(math.Floor(scrollY / LinearRowHeight))
	last := int(math.Ceil((scrollY+viewH)/LinearRowHeight)) + 1
	if first < 0 {
		first = 0
	}
	if last > len(g.Rows) {
		last = len(g.Rows)
	}
	if first > last {
		first = last
	}
	return first, last
}

// ContentHeight is the scrollable extent.
func (g *LinearGeometry) ContentHeight() float64 {
	return float64(len(g.Rows)) * LinearRowHeight
}

// LinearZone identifies what part of a row a pointer landed on.
type LinearZone int

const (
	ZoneNone LinearZone = iota
	ZoneExpand
	ZoneBar
	ZoneRow
)

// HitLinear resolves a pointer in content coordinates (scroll already
// applied to y) to a row and zone. The expand zone only exists on rows with
// children.
func (g *LinearGeometry) HitLinear(x, y, viewW float64) (*LinearRow, LinearZone) {
	if g == nil || len(g.Rows) == 0 || y < 0 {
		return nil, ZoneNone
	}
	i := int(math.Floor(y / LinearRowHeight))
	if i < 0 || i >= len(g.Rows) {
		return nil, ZoneNone
	}
	row := &g.Rows[i]
	barX := viewW - LinearBarRightPx - LinearBarW
	switch {
	case len(row.Node.Children) > 0 && x >= row.X && x < row.X+LinearExpandW:
		return row, ZoneExpand
	case x >= barX && x < barX+LinearBarW:
		return row, ZoneBar
	case x >= 0:
		return row, ZoneRow
	}
	return nil, ZoneNone
}

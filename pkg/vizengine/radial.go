package vizengine

import (
	"math"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// RadialOptions tunes the constant-branch radial layout. Content space is
// centered on the origin; the camera decides where the circle lands on
// screen.
type RadialOptions struct {
	BranchLen float64 // radius added per depth level
	BarGap    float64 // gap between a leaf's branch endpoint and its bar
	BarMaxLen float64 // bar length of the leaf with the maximum gene sum
	BarFill   float64 // fraction of the leaf's angular step covered by its bar
	Genes     taxotree.GeneMask
}

// DefaultRadialOptions mirrors the on-screen proportions of the cluster
// view.
func DefaultRadialOptions() RadialOptions {
	return RadialOptions{
		BranchLen: 60,
		BarGap:    6,
		BarMaxLen: 120,
		BarFill:   0.8,
		Genes:     taxotree.GeneAll,
	}
}

// RadialNode is one placed node. Angle is in [0, 2pi), radius grows with
// depth only (constant branch length; no data value is encoded in branch
// length).
type RadialNode struct {
	Node          *taxotree.HierarchyNode
	Angle, Radius float64
	X, Y          float64
	ColorIdx      int // index into the domain palette; -1 for the root
}

// RadialLink joins a parent to a child.
type RadialLink struct {
	Parent, Child int // indexes into Nodes
}

// RadialBar is the stacked gene bar beyond a leaf's branch endpoint. Seg
// holds the raw per-type counts (zero when the type is disabled); lengths
// are derived at draw time so animation can blend them.
type RadialBar struct {
	NodeIdx  int
	Angle    float64
	HalfW    float64 // angular half-width
	Inner    float64
	Seg      [3]float64
	Sum      float64
	ColorIdx int
}

// RadialGeometry is the immutable snapshot of one radial layout pass.
type RadialGeometry struct {
	Nodes  []RadialNode
	Links  []RadialLink
	Bars   []RadialBar
	MaxSum float64
	Opts   RadialOptions
}

// LayoutRadial places every leaf at a distinct angle with uniform angular
// separation over the full circle, positions internal nodes at the angular
// mean of their descendants, and assigns each top-level subtree a palette
// color inherited by all of its nodes.
func LayoutRadial(root *taxotree.HierarchyNode, opts RadialOptions) *RadialGeometry {
	if root == nil {
		return nil
	}
	leaves := root.Leaves()
	if len(leaves) == 0 {
		return nil
	}
	g := &RadialGeometry{Opts: opts}
	step := 2 * math.Pi / float64(len(leaves))

	leafAngle := make(map[*taxotree.HierarchyNode]float64, len(leaves))
	for i, l := range leaves {
		leafAngle[l] = float64(i) * step
	}

	// Post-order angle assignment: a node's angle is the mean of its
	// children's angles, which recursively averages its leaf span.
	angle := make(map[*taxotree.HierarchyNode]float64)
	var assign func(n *taxotree.HierarchyNode) float64
	assign = func(n *taxotree.HierarchyNode) float64 {
		if len(n.Children) == 0 {
			a := leafAngle[n]
			angle[n] = a
			return a
		}
		var sum float64
		for _, c := range n.Children {
			sum += assign(c)
		}
		a := sum / float64(len(n.Children))
		angle[n] = a
		return a
	}
	assign(root)

	colorOf := make(map[*taxotree.HierarchyNode]int)
	colorOf[root] = -1
	for i, c := range root.Children {
		ci := i % len(DomainPalette)
		c.Walk(func(n *taxotree.HierarchyNode) { colorOf[n] = ci })
	}

	nodeIdx := make(map[*taxotree.HierarchyNode]int)
	root.Walk(func(n *taxotree.HierarchyNode) {
		a := angle[n]
		r := float64(n.Depth) * opts.BranchLen
		nodeIdx[n] = len(g.Nodes)
		g.Nodes = append(g.Nodes, RadialNode{
			Node:     n,
			Angle:    a,
			Radius:   r,
			X:        r * math.Cos(a),
			Y:        r * math.Sin(a),
			ColorIdx: colorOf[n],
		})
	})
	root.Walk(func(n *taxotree.HierarchyNode) {
		pi := nodeIdx[n]
		for _, c := range n.Children {
			g.Links = append(g.Links, RadialLink{Parent: pi, Child: nodeIdx[c]})
		}
	})

	for _, l := range leaves {
		sum := l.Flat.GeneSum(opts.Genes)
		if sum > g.MaxSum {
			g.MaxSum = sum
		}
	}
	for _, l := range leaves {
		i := nodeIdx[l]
		g.Bars = append(g.Bars, RadialBar{
			NodeIdx:  i,
			Angle:    g.Nodes[i].Angle,
			HalfW:    step * opts.BarFill / 2,
			Inner:    g.Nodes[i].Radius + opts.BarGap,
			Seg:      geneSegments(l.Flat, opts.Genes),
			Sum:      l.Flat.GeneSum(opts.Genes),
			ColorIdx: g.Nodes[i].ColorIdx,
		})
	}
	return g
}

// geneSegments returns the raw counts in fixed stacking order (coding,
// non-coding, pseudogene), zeroing disabled types.
func geneSegments(n *taxotree.FlatNode, enabled taxotree.GeneMask) [3]float64 {
	var seg [3]float64
	if enabled&taxotree.GeneCoding != 0 {
		seg[0] = n.CodingCount
	}
	if enabled&taxotree.GeneNonCoding != 0 {
		seg[1] = n.NonCodingCount
	}
	if enabled&taxotree.GenePseudogene != 0 {
		seg[2] = n.PseudogeneCount
	}
	return seg
}

// MaxRadius returns the outer extent of the layout including bars, used to
// fit the camera.
func (g *RadialGeometry) MaxRadius() float64 {
	var max float64
	for _, b := range g.Bars {
		if r := b.Inner + g.Opts.BarMaxLen; r > max {
			max = r
		}
	}
	for _, n := range g.Nodes {
		if n.Radius > max {
			max = n.Radius
		}
	}
	return max
}

// normalizeAngle maps any angle into [0, 2pi).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// flipLabel reports whether a radially oriented label at angle a falls in
// the left half of the circle and must be mirrored to stay readable.
func flipLabel(a float64) bool {
	a = normalizeAngle(a)
	return a > math.Pi/2 && a < 3*math.Pi/2
}

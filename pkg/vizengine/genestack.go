package vizengine

import (
	"math"
	"sort"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// GeneStackOptions tunes the radial stacked-bar ("gene stack") layout.
type GeneStackOptions struct {
	Limit      int     // maximum number of slices (50/100/150)
	Ascending  bool    // "least genes" ordering; drops zero sums entirely
	InnerR     float64 // inner hole radius
	OuterR     float64 // radius of the slice with the maximum gene sum
	PadAngle   float64 // angular gap between adjacent slices
	LabelLimit int     // draw labels only below this slice count
	Genes      taxotree.GeneMask
}

func DefaultGeneStackOptions() GeneStackOptions {
	return GeneStackOptions{
		Limit:      100,
		InnerR:     80,
		OuterR:     300,
		PadAngle:   0.004,
		LabelLimit: 24,
		Genes:      taxotree.GeneAll,
	}
}

// Slice is one angular slice of the gene stack. A0/A1 are its angular band
// in [0, 2pi); Seg holds raw counts in fixed stacking order for the
// animation controller to blend.
type Slice struct {
	Node  *taxotree.FlatNode
	Index int
	A0    float64
	A1    float64
	Seg   [3]float64
	Sum   float64
}

// GeneStackGeometry is the snapshot of one gene-stack layout pass.
type GeneStackGeometry struct {
	Slices []Slice
	MaxSum float64
	Opts   GeneStackOptions
}

// LayoutGeneStack selects up to Limit of the candidate nodes by their
// enabled gene sum (descending by default; ascending excludes zero sums)
// and assigns each an equal angular slice of the full circle.
func LayoutGeneStack(candidates []*taxotree.FlatNode, opts GeneStackOptions) *GeneStackGeometry {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	picked := make([]*taxotree.FlatNode, 0, len(candidates))
	for _, n := range candidates {
		if opts.Ascending && n.GeneSum(opts.Genes) <= 0 {
			continue
		}
		picked = append(picked, n)
	}
	sort.SliceStable(picked, func(i, j int) bool {
		si, sj := picked[i].GeneSum(opts.Genes), picked[j].GeneSum(opts.Genes)
		if opts.Ascending {
			return si < sj
		}
		return si > sj
	})
	if len(picked) > opts.Limit {
		picked = picked[:opts.Limit]
	}
	if len(picked) == 0 {
		return nil
	}

	g := &GeneStackGeometry{Opts: opts}
	step := 2 * math.Pi / float64(len(picked))
	for i, n := range picked {
		sum := n.GeneSum(opts.Genes)
		if sum > g.MaxSum {
			g.MaxSum = sum
		}
		a0 := float64(i)*step + opts.PadAngle/2
		a1 := float64(i+1)*step - opts.PadAngle/2
		g.Slices = append(g.Slices, Slice{
			Node:  n,
			Index: i,
			A0:    a0,
			A1:    a1,
			Seg:   geneSegments(n, opts.Genes),
			Sum:   sum,
		})
	}
	return g
}

// ShowLabels reports whether per-slice labels fit; above the limit they
// overlap into noise and are suppressed entirely.
func (g *GeneStackGeometry) ShowLabels() bool {
	return g != nil && len(g.Slices) < g.Opts.LabelLimit
}

// Outer returns the slice's outer radius scaled against the set maximum.
func (g *GeneStackGeometry) Outer(s *Slice) float64 {
	if g.MaxSum <= 0 {
		return g.Opts.InnerR
	}
	return g.Opts.InnerR + s.Sum/g.MaxSum*(g.Opts.OuterR-g.Opts.InnerR)
}

// CollectAtRank returns the flat nodes with the given rank, in source
// order. An empty rank matches nothing (structural nodes carry no counts of
// their own rank level).
func CollectAtRank(nodes []taxotree.FlatNode, rank string) []*taxotree.FlatNode {
	if rank == "" {
		return nil
	}
	var out []*taxotree.FlatNode
	for i := range nodes {
		if nodes[i].Rank == rank {
			out = append(out, &nodes[i])
		}
	}
	return out
}

// CollectUnderRoot returns the flat nodes of the subtree as candidates for
// the gene stack when a root scope is active.
func CollectUnderRoot(root *taxotree.HierarchyNode) []*taxotree.FlatNode {
	if root == nil {
		return nil
	}
	var out []*taxotree.FlatNode
	root.Walk(func(n *taxotree.HierarchyNode) {
		out = append(out, n.Flat)
	})
	return out
}

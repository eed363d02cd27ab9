package vizengine

import (
	"math"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// CircleGeom is one packed circle in content space. The slice produced by
// PackCircles is an immutable snapshot; a new layout pass produces a new
// slice.
type CircleGeom struct {
	Node *taxotree.HierarchyNode
	X, Y float64
	R    float64
}

// PackCircles computes a nested circle packing of the tree: every node's
// circle contains its children's circles with padPx of clearance between
// siblings and against the parent boundary, and leaf area tracks the
// aggregate value. Area proportionality is approximate; that is a property
// of circle packing, not a defect. The root fills the smaller of
// width/height minus the margin.
func PackCircles(root *taxotree.HierarchyNode, width, height, padPx, margin float64) []CircleGeom {
	if root == nil || width <= 0 || height <= 0 {
		return nil
	}
	target := math.Min(width, height)/2 - margin
	if target <= 0 {
		return nil
	}

	// First pass without padding fixes the value-space scale, the second
	// applies the padding converted into value space so on-screen clearance
	// lands near padPx.
	p := buildPack(root, 0)
	if p.r <= 0 {
		return nil
	}
	k := target / p.r
	if padPx > 0 {
		p = buildPack(root, padPx/k)
		k = target / p.r
	}

	out := make([]CircleGeom, 0, root.Count())
	var walk func(n *packNode, cx, cy float64)
	walk = func(n *packNode, cx, cy float64) {
		x := cx + n.x*k
		y := cy + n.y*k
		out = append(out, CircleGeom{Node: n.h, X: x, Y: y, R: n.r * k})
		for _, c := range n.children {
			walk(c, x, y)
		}
	}
	p.x, p.y = 0, 0
	walk(p, width/2, height/2)
	return out
}

// packNode carries value-space packing state. x/y are relative to the
// parent's center until the final walk.
type packNode struct {
	h        *taxotree.HierarchyNode
	x, y, r  float64
	children []*packNode
}

func buildPack(h *taxotree.HierarchyNode, pad float64) *packNode {
	n := &packNode{h: h}
	if len(h.Children) == 0 {
		n.r = math.Sqrt(math.Max(h.AggregateValue, 0))
		return n
	}
	n.children = make([]*packNode, len(h.Children))
	for i, c := range h.Children {
		n.children[i] = buildPack(c, pad)
	}
	enclosing := packSiblings(n.children, pad)
	n.r = enclosing + pad/2
	return n
}

// packSiblings positions the circles (relative coordinates) using a
// front-chain packing: each circle is placed tangent to two circles of the
// current chain, backing off when it intersects a neighbor. Radii are
// inflated by pad/2 during packing so siblings end up pad apart. Returns
// the enclosing radius of the inflated set, centered at the origin.
func packSiblings(circles []*packNode, pad float64) float64 {
	type fc struct {
		c          *packNode
		pr         float64
		prev, next *fc
	}
	n := len(circles)
	prs := make([]float64, n)
	for i, c := range circles {
		prs[i] = c.r + pad/2
	}

	intersects := func(ai, bi int) bool {
		a, b := circles[ai], circles[bi]
		dr := prs[ai] + prs[bi] - 1e-6
		dx := b.x - a.x
		dy := b.y - a.y
		return dr > 0 && dr*dr > dx*dx+dy*dy
	}
	// place positions c tangent to a and b, on the outside of the chain.
	place := func(bi, ai, ci int) {
		a, b, c := circles[ai], circles[bi], circles[ci]
		dx := b.x - a.x
		dy := b.y - a.y
		d2 := dx*dx + dy*dy
		if d2 == 0 {
			c.x = a.x + prs[ai] + prs[ci]
			c.y = a.y
			return
		}
		a2 := (prs[ai] + prs[ci]) * (prs[ai] + prs[ci])
		b2 := (prs[bi] + prs[ci]) * (prs[bi] + prs[ci])
		if a2 > b2 {
			x := (d2 + b2 - a2) / (2 * d2)
			y := math.Sqrt(math.Max(0, b2/d2-x*x))
			c.x = b.x - x*dx - y*dy
			c.y = b.y - x*dy + y*dx
		} else {
			x := (d2 + a2 - b2) / (2 * d2)
			y := math.Sqrt(math.Max(0, a2/d2-x*x))
			c.x = a.x + x*dx - y*dy
			c.y = a.y + x*dy + y*dx
		}
	}

	switch n {
	case 0:
		return 0
	case 1:
		circles[0].x, circles[0].y = 0, 0
		return prs[0]
	}
	circles[0].x, circles[0].y = -prs[1], 0
	circles[1].x, circles[1].y = prs[0], 0
	if n == 2 {
		return encloseCircles(circles, prs)
	}
	place(1, 0, 2)

	idx := make(map[*packNode]int, n)
	for i, c := range circles {
		idx[c] = i
	}
	a := &fc{c: circles[0], pr: prs[0]}
	b := &fc{c: circles[1], pr: prs[1]}
	c := &fc{c: circles[2], pr: prs[2]}
	a.next, c.prev = b, b
	b.next, a.prev = c, c
	c.next, b.prev = a, a

pack:
	for i := 3; i < n; i++ {
		place(idx[a.c], idx[c.c], i)
		nb := &fc{c: circles[i], pr: prs[i]}
		// Scan the chain outward in both directions from the insertion
		// point for the nearest intersecting circle.
		j, k := c.next, a.prev
		sj, sk := c.pr, a.pr
		for {
			if sj <= sk {
				if intersects(idx[j.c], i) {
					c = j
					a.next, c.prev = c, a
					i--
					continue pack
				}
				sj += j.pr
				j = j.next
			} else {
				if intersects(idx[k.c], i) {
					a = k
					a.next, c.prev = c, a
					i--
					continue pack
				}
				sk += k.pr
				k = k.prev
			}
			if j == k.next {
				break
			}
		}
		// Insert between a and c, then rotate the chain so the pair closest
		// to the origin receives the next circle.
		nb.prev, nb.next = a, c
		a.next, c.prev = nb, nb
		c = nb
		score := func(t *fc) float64 {
			sx := t.c.x + t.next.c.x
			sy := t.c.y + t.next.c.y
			return sx*sx + sy*sy
		}
		best, bestScore := a, score(a)
		for t := a.next; t != a; t = t.next {
			if s := score(t); s < bestScore {
				best, bestScore = t, s
			}
		}
		a = best
		c = a.next
	}

	return encloseCircles(circles, prs)
}

// encloseCircles recenters the circles around the origin and returns the
// radius of a circle containing all of them. The center is refined with a
// move-toward-farthest iteration, which converges close enough to the
// minimal enclosing circle for layout purposes.
func encloseCircles(circles []*packNode, prs []float64) float64 {
	var cx, cy float64
	for _, c := range circles {
		cx += c.x
		cy += c.y
	}
	cx /= float64(len(circles))
	cy /= float64(len(circles))

	farthest := func(x, y float64) (int, float64) {
		bi, bd := 0, -1.0
		for i, c := range circles {
			d := math.Hypot(c.x-x, c.y-y) + prs[i]
			if d > bd {
				bi, bd = i, d
			}
		}
		return bi, bd
	}
	for it := 1; it <= 128; it++ {
		i, _ := farthest(cx, cy)
		c := circles[i]
		step := 1.0 / float64(it+1)
		cx += (c.x - cx) * step
		cy += (c.y - cy) * step
	}
	_, r := farthest(cx, cy)
	for _, c := range circles {
		c.x -= cx
		c.y -= cy
	}
	return r
}

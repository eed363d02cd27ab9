package vizengine

import "math"

// Camera scale clamp. Zoom is continuous; there is no discrete zoom-level
// state.
const (
	MinZoom = 0.1
	MaxZoom = 50.0
)

// Camera is the single affine pan/zoom transform: screen = content*Scale +
// offset.
type Camera struct {
	X, Y  float64
	Scale float64
}

func NewCamera() Camera {
	return Camera{Scale: 1}
}

// Apply maps content coordinates to screen coordinates.
func (c Camera) Apply(x, y float64) (float64, float64) {
	return x*c.Scale + c.X, y*c.Scale + c.Y
}

// Invert maps screen coordinates back to content coordinates.
func (c Camera) Invert(sx, sy float64) (float64, float64) {
	return (sx - c.X) / c.Scale, (sy - c.Y) / c.Scale
}

// Pan shifts the view by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx
	c.Y += dy
}

// ZoomAt scales around the given screen point so the content under the
// cursor stays put. The resulting scale is clamped to [MinZoom, MaxZoom].
func (c *Camera) ZoomAt(sx, sy, factor float64) {
	next := c.Scale * factor
	if next < MinZoom {
		next = MinZoom
	}
	if next > MaxZoom {
		next = MaxZoom
	}
	factor = next / c.Scale
	c.X = sx + (c.X-sx)*factor
	c.Y = sy + (c.Y-sy)*factor
	c.Scale = next
}

// HitCircle returns the smallest circle containing the content-space point,
// so a child circle always wins over its enclosing ancestor. Nil when
// nothing is hit.
func HitCircle(circles []CircleGeom, x, y float64) *CircleGeom {
	var best *CircleGeom
	for i := range circles {
		c := &circles[i]
		dx := x - c.X
		dy := y - c.Y
		if dx*dx+dy*dy <= c.R*c.R {
			if best == nil || c.R < best.R {
				best = c
			}
		}
	}
	return best
}

// angleInBand reports whether the normalized angle a falls inside [a0, a1],
// handling bands that straddle the 0/2pi boundary.
func angleInBand(a, a0, a1 float64) bool {
	a = normalizeAngle(a)
	a0 = normalizeAngle(a0)
	a1 = normalizeAngle(a1)
	if a0 <= a1 {
		return a >= a0 && a <= a1
	}
	return a >= a0 || a <= a1
}

// HitRadialBar resolves a content-space point (relative to the layout
// center at the origin) against the leaf bars: the hit bar is the one whose
// radius band and angular band both contain the polar point.
func (g *RadialGeometry) HitRadialBar(x, y float64, anim *GeneAnim, now float64) *RadialBar {
	if g == nil {
		return nil
	}
	dist := math.Hypot(x, y)
	a := math.Atan2(y, x)
	for i := range g.Bars {
		b := &g.Bars[i]
		outer := b.Inner + g.BarLen(b, anim, now)
		if dist < b.Inner || dist > outer {
			continue
		}
		if angleInBand(a, b.Angle-b.HalfW, b.Angle+b.HalfW) {
			return b
		}
	}
	return nil
}

// BarLen returns the current total bar length, animation-blended when a
// gene-toggle transition is in flight.
func (g *RadialGeometry) BarLen(b *RadialBar, anim *GeneAnim, t float64) float64 {
	sum := b.Sum
	max := g.MaxSum
	if anim != nil {
		seg := anim.SegValues(g.Nodes[b.NodeIdx].Node.Flat, t)
		sum = seg[0] + seg[1] + seg[2]
		max = anim.Max(t)
	}
	if max <= 0 {
		return 0
	}
	return sum / max * g.Opts.BarMaxLen
}

// HitSlice resolves a content-space point (layout center at the origin)
// against the gene-stack slices.
func (g *GeneStackGeometry) HitSlice(x, y float64) *Slice {
	if g == nil {
		return nil
	}
	dist := math.Hypot(x, y)
	a := math.Atan2(y, x)
	for i := range g.Slices {
		s := &g.Slices[i]
		if dist < g.Opts.InnerR || dist > g.Outer(s) {
			continue
		}
		if angleInBand(a, s.A0, s.A1) {
			return s
		}
	}
	return nil
}

package vizengine

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Per-frame draw budgets.
const (
	CullMargin = 40.0 // viewport slack before a primitive is skipped
	MaxLabels  = 100  // hard cap on labels placed per frame
)

// whiteSub is the 1x1 white texture used as the source for DrawTriangles
// fills.
var whiteSub = func() *ebiten.Image {
	img := ebiten.NewImage(3, 3)
	img.Fill(color.White)
	return img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
}()

// culled reports whether a screen-space bounding box falls entirely outside
// the viewport plus the cull margin.
func culled(minX, minY, maxX, maxY, viewW, viewH float64) bool {
	return maxX < -CullMargin || maxY < -CullMargin ||
		minX > viewW+CullMargin || minY > viewH+CullMargin
}

// circleCulled culls by the circle's screen-space bounding square.
func circleCulled(sx, sy, sr, viewW, viewH float64) bool {
	return culled(sx-sr, sy-sr, sx+sr, sy+sr, viewW, viewH)
}

// labelRect is a placed label's screen-space bounding box.
type labelRect struct {
	x0, y0, x1, y1 float64
}

// labelPlacer places labels greedily: callers offer candidates largest
// first, and a candidate is rejected when its box (grown by a small buffer)
// collides with any label already placed, or once the per-frame cap is
// reached.
type labelPlacer struct {
	placed []labelRect
	buffer float64
}

func newLabelPlacer() *labelPlacer {
	return &labelPlacer{buffer: 2}
}

// TryPlace reserves the box and reports whether the label may be drawn.
func (p *labelPlacer) TryPlace(x0, y0, x1, y1 float64) bool {
	if len(p.placed) >= MaxLabels {
		return false
	}
	c := labelRect{x0 - p.buffer, y0 - p.buffer, x1 + p.buffer, y1 + p.buffer}
	for _, r := range p.placed {
		if c.x0 < r.x1 && c.x1 > r.x0 && c.y0 < r.y1 && c.y1 > r.y0 {
			return false
		}
	}
	p.placed = append(p.placed, c)
	return true
}

// drawWedge fills an annular wedge (radius band r0..r1 over the angular
// band a0..a1 around cx,cy) with a triangle fan. Step size keeps the outer
// arc within about two pixels of a true circle.
func drawWedge(dst *ebiten.Image, cx, cy, r0, r1, a0, a1 float64, clr color.RGBA) {
	if r1 <= r0 || a1 <= a0 {
		return
	}
	steps := int(math.Ceil((a1 - a0) / (2 / math.Max(r1, 8))))
	if steps < 1 {
		steps = 1
	}
	if steps > 256 {
		steps = 256
	}
	cr := float32(clr.R) / 255
	cg := float32(clr.G) / 255
	cb := float32(clr.B) / 255
	ca := float32(clr.A) / 255

	vs := make([]ebiten.Vertex, 0, (steps+1)*2)
	is := make([]uint16, 0, steps*6)
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(steps)
		sin, cos := math.Sincos(a)
		for _, r := range [2]float64{r0, r1} {
			vs = append(vs, ebiten.Vertex{
				DstX:   float32(cx + r*cos),
				DstY:   float32(cy + r*sin),
				SrcX:   1,
				SrcY:   1,
				ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca,
			})
		}
	}
	for i := 0; i < steps; i++ {
		b := uint16(i * 2)
		is = append(is, b, b+1, b+2, b+1, b+3, b+2)
	}
	dst.DrawTriangles(vs, is, whiteSub, &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

// drawStackedWedge draws the three gene segments of a radial band in fixed
// stacking order, inner to outer.
func drawStackedWedge(dst *ebiten.Image, cx, cy, inner float64, lengths [3]float64, a0, a1 float64) {
	r := inner
	for i, l := range lengths {
		if l <= 0 {
			continue
		}
		drawWedge(dst, cx, cy, r, r+l, a0, a1, GeneColors[i])
		r += l
	}
}

// drawStackedBar draws the horizontal equivalent for the linear view.
func drawStackedBar(dst *ebiten.Image, x, y, h float64, lengths [3]float64) {
	for i, l := range lengths {
		if l <= 0 {
			continue
		}
		vector.DrawFilledRect(dst, float32(x), float32(y), float32(l), float32(h), GeneColors[i], false)
		x += l
	}
}

// segLengths converts raw segment values into drawn lengths against the
// scaling maximum: the enabled total maps to totalLen at the maximum, and
// each segment takes its share.
func segLengths(seg [3]float64, max, totalLen float64) [3]float64 {
	if max <= 0 {
		return [3]float64{}
	}
	var out [3]float64
	for i, v := range seg {
		out[i] = v / max * totalLen
	}
	return out
}

// drawLabel draws s at the given screen position if the placer accepts its
// measured box.
func drawLabel(dst *ebiten.Image, s string, face *text.GoTextFace, x, y float64, clr color.RGBA, placer *labelPlacer) {
	w, h := text.Measure(s, face, 0)
	if !placer.TryPlace(x, y, x+w, y+h) {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, face, op)
}

// drawRotatedLabel draws s rotated by angle around the anchor. When flip is
// set the text is turned 180 degrees and right-aligned on the anchor so it
// never renders upside-down.
func drawRotatedLabel(dst *ebiten.Image, s string, face *text.GoTextFace, cx, cy, angle float64, flip bool, clr color.RGBA, placer *labelPlacer) {
	w, h := text.Measure(s, face, 0)
	// Reserves the unrotated box at the anchor; rotation is ignored for
	// collision purposes.
	if !placer.TryPlace(cx-w/2, cy-h/2, cx+w/2, cy+h/2) {
		return
	}
	op := &text.DrawOptions{}
	if flip {
		op.GeoM.Translate(-w, -h/2)
		op.GeoM.Rotate(angle + math.Pi)
	} else {
		op.GeoM.Translate(0, -h/2)
		op.GeoM.Rotate(angle)
	}
	op.GeoM.Translate(cx, cy)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, face, op)
}

func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

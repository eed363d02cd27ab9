package vizengine

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// Draw renders the active view plus chrome. Failures never escape here;
// load errors and empty layouts render as explicit states.
func (e *Engine) Draw(screen *ebiten.Image) {
	screen.Fill(ColorBackground)

	switch {
	case e.repo.Err() != nil:
		e.drawCenteredState(screen, "failed to load taxonomy: "+e.repo.Err().Error(), "press R to retry", ColorError)
	case e.repo.Nodes() == nil:
		e.drawCenteredState(screen, "loading flattened tree...", "", ColorDimText)
	default:
		e.drawView(screen)
	}

	e.drawHUD(screen)
	e.drawLegend(screen)
	e.drawTooltip(screen)

	if e.captureRequest {
		e.captureRequest = false
		e.captureFrame(screen, e.view.String(), time.Now())
	}
}

func (e *Engine) drawView(screen *ebiten.Image) {
	empty := false
	switch e.view {
	case ViewPack:
		empty = len(e.packed) == 0
		if !empty {
			e.drawPack(screen)
		}
	case ViewRadial:
		empty = e.radial == nil || len(e.radial.Nodes) == 0
		if !empty {
			e.drawRadial(screen)
		}
	case ViewLinear:
		empty = e.linear == nil || len(e.linear.Rows) == 0
		if !empty {
			e.drawLinear(screen)
		}
	case ViewGeneStack:
		empty = e.stack == nil || len(e.stack.Slices) == 0
		if !empty {
			e.drawGeneStack(screen)
		}
	}
	if empty {
		e.drawCenteredState(screen, "no nodes at this rank/scope", "adjust the rank filter or press Esc", ColorDimText)
	}
}

func (e *Engine) drawCenteredState(screen *ebiten.Image, msg, hint string, clr color.RGBA) {
	face := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize() * 1.2}
	w, h := text.Measure(msg, face, 0)
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(e.Width)/2-w/2, float64(e.Height)/2-h)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, face, op)

	if hint != "" {
		hf := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}
		hw, _ := text.Measure(hint, hf, 0)
		hop := &text.DrawOptions{}
		hop.GeoM.Translate(float64(e.Width)/2-hw/2, float64(e.Height)/2+6)
		hop.ColorScale.ScaleWithColor(ColorDimText)
		text.Draw(screen, hint, hf, hop)
	}
}

func (e *Engine) fontSize() float64 {
	if e.Width > 2000 {
		return 28
	}
	return 14
}

// drawPack renders the nested circle packing: circles sorted by descending
// radius so parents never occlude children, then labels placed greedily,
// largest circle first.
func (e *Engine) drawPack(screen *ebiten.Image) {
	order := make([]int, len(e.packed))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return e.packed[order[a]].R > e.packed[order[b]].R })

	vw, vh := float64(e.Width), float64(e.Height)
	for _, i := range order {
		c := &e.packed[i]
		sx, sy := e.cam.Apply(c.X, c.Y)
		sr := c.R * e.cam.Scale
		if circleCulled(sx, sy, sr, vw, vh) || sr < 0.5 {
			continue
		}
		fill := ColorCircle
		if len(c.Node.Children) == 0 {
			fill = withAlpha(ColorCircle, 140)
		}
		vector.DrawFilledCircle(screen, float32(sx), float32(sy), float32(sr), fill, true)
		outline := ColorOutline
		width := float32(1)
		if c.Node.Flat.ID == e.hoverID {
			outline = ColorHover
			width = 2
		} else if e.selection.Has(c.Node.Flat.ID) {
			outline = ColorSelect
			width = 2
		}
		vector.StrokeCircle(screen, float32(sx), float32(sy), float32(sr), width, outline, true)
	}

	placer := newLabelPlacer()
	face := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}
	for _, i := range order {
		c := &e.packed[i]
		sx, sy := e.cam.Apply(c.X, c.Y)
		sr := c.R * e.cam.Scale
		if sr < 18 || circleCulled(sx, sy, sr, vw, vh) {
			continue
		}
		name := truncateLabel(c.Node.Flat.ScientificName, 24)
		w, h := text.Measure(name, face, 0)
		if w > sr*1.9 {
			continue
		}
		drawLabel(screen, name, face, sx-w/2, sy-h/2, ColorText, placer)
	}
}

// drawRadial renders the constant-branch radial tree with the per-leaf
// stacked gene bars and mirrored radial labels.
func (e *Engine) drawRadial(screen *ebiten.Image) {
	g := e.radial
	vw, vh := float64(e.Width), float64(e.Height)
	t := 1.0
	if e.anim != nil {
		t = e.anim.Progress(time.Now())
	}

	for _, l := range g.Links {
		p, c := &g.Nodes[l.Parent], &g.Nodes[l.Child]
		x1, y1 := e.cam.Apply(p.X, p.Y)
		x2, y2 := e.cam.Apply(c.X, c.Y)
		if culled(math.Min(x1, x2), math.Min(y1, y2), math.Max(x1, x2), math.Max(y1, y2), vw, vh) {
			continue
		}
		vector.StrokeLine(screen, float32(x1), float32(y1), float32(x2), float32(y2), 1, withAlpha(domainColor(c.ColorIdx), 160), true)
	}

	cx, cy := e.cam.Apply(0, 0)
	scale := e.cam.Scale
	for i := range g.Bars {
		b := &g.Bars[i]
		seg := b.Seg
		max := g.MaxSum
		if e.anim != nil {
			seg = e.anim.SegValues(g.Nodes[b.NodeIdx].Node.Flat, t)
			max = e.anim.Max(t)
		}
		lengths := segLengths(seg, max, g.Opts.BarMaxLen*scale)
		total := lengths[0] + lengths[1] + lengths[2]
		if total <= 0 {
			continue
		}
		inner := b.Inner * scale
		if barCulled(cx, cy, inner+total, b.Angle, b.HalfW, vw, vh) {
			continue
		}
		drawStackedWedge(screen, cx, cy, inner, lengths, b.Angle-b.HalfW, b.Angle+b.HalfW)
		if g.Nodes[b.NodeIdx].Node.Flat.ID == e.hoverID {
			drawWedge(screen, cx, cy, inner, inner+total, b.Angle-b.HalfW, b.Angle+b.HalfW, withAlpha(ColorHover, 80))
		}
	}

	// Leaf labels beyond the bars, radially oriented, mirrored on the left
	// half so text never renders upside-down.
	if scale*g.Opts.BranchLen > 24 {
		placer := newLabelPlacer()
		face := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}
		for i := range g.Bars {
			b := &g.Bars[i]
			n := g.Nodes[b.NodeIdx]
			r := (b.Inner+g.Opts.BarMaxLen)*scale + 6
			lx := cx + r*math.Cos(b.Angle)
			ly := cy + r*math.Sin(b.Angle)
			if culled(lx-80, ly-10, lx+80, ly+10, vw, vh) {
				continue
			}
			name := truncateLabel(n.Node.Flat.ScientificName, 20)
			drawRotatedLabel(screen, name, face, lx, ly, b.Angle, flipLabel(b.Angle), ColorDimText, placer)
		}
	}
}

// barCulled approximates the wedge's bounds by its four corners.
func barCulled(cx, cy, outer, angle, halfW, vw, vh float64) bool {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, a := range [2]float64{angle - halfW, angle + halfW} {
		sin, cos := math.Sincos(a)
		for _, r := range [2]float64{0, outer} {
			x, y := cx+r*cos, cy+r*sin
			minX, minY = math.Min(minX, x), math.Min(minY, y)
			maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
		}
	}
	return culled(minX, minY, maxX, maxY, vw, vh)
}

// drawLinear renders only the rows intersecting the scroll viewport; the
// full rank-0 tree can be tens of thousands of rows, so a full-tree pass
// per frame is not viable.
func (e *Engine) drawLinear(screen *ebiten.Image) {
	g := e.linear
	first, last := g.VisibleWindow(e.scrollY, float64(e.Height))
	face := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}
	t := 1.0
	if e.anim != nil {
		t = e.anim.Progress(time.Now())
	}
	barX := float64(e.Width) - LinearBarRightPx - LinearBarW

	for i := first; i < last; i++ {
		row := &g.Rows[i]
		y := float64(row.Row)*LinearRowHeight - e.scrollY
		id := row.Node.Flat.ID

		if id == e.hoverID {
			vector.DrawFilledRect(screen, 0, float32(y), float32(e.Width), LinearRowHeight, withAlpha(ColorHover, 26), false)
		} else if e.selection.Has(id) {
			vector.DrawFilledRect(screen, 0, float32(y), float32(e.Width), LinearRowHeight, withAlpha(ColorSelect, 20), false)
		}

		if len(row.Node.Children) > 0 {
			drawExpandIndicator(screen, row.X, y+LinearRowHeight/2, e.collapsed.Has(id))
		}
		name := row.Node.Flat.ScientificName
		if row.Node.Flat.Rank != "" {
			name += "  [" + row.Node.Flat.Rank + "]"
		}
		op := &text.DrawOptions{}
		op.GeoM.Translate(row.X+LinearExpandW+4, y+4)
		op.ColorScale.ScaleWithColor(ColorText)
		text.Draw(screen, truncateLabel(name, 60), face, op)

		seg := row.Seg
		max := g.MaxSum
		if e.anim != nil {
			seg = e.anim.SegValues(row.Node.Flat, t)
			max = e.anim.Max(t)
		}
		lengths := segLengths(seg, max, LinearBarW)
		drawStackedBar(screen, barX, y+5, LinearRowHeight-10, lengths)
	}

	// Scroll thumb.
	if content := g.ContentHeight(); content > float64(e.Height) {
		frac := float64(e.Height) / content
		thumbH := math.Max(frac*float64(e.Height), 24)
		thumbY := e.scrollY / content * float64(e.Height)
		vector.DrawFilledRect(screen, float32(e.Width)-4, float32(thumbY), 3, float32(thumbH), ColorOutline, false)
	}
}

// drawExpandIndicator draws the collapse triangle: pointing right when
// collapsed, down when expanded.
func drawExpandIndicator(dst *ebiten.Image, x, cy float64, collapsed bool) {
	const s = 5.0
	var vs []ebiten.Vertex
	pt := func(px, py float64) ebiten.Vertex {
		return ebiten.Vertex{
			DstX: float32(px), DstY: float32(py),
			SrcX: 1, SrcY: 1,
			ColorR: 0.7, ColorG: 0.75, ColorB: 0.8, ColorA: 1,
		}
	}
	if collapsed {
		vs = []ebiten.Vertex{pt(x+3, cy-s), pt(x+3+s*1.5, cy), pt(x+3, cy+s)}
	} else {
		vs = []ebiten.Vertex{pt(x+1, cy-s/2), pt(x+1+2*s, cy-s/2), pt(x+1+s, cy+s)}
	}
	dst.DrawTriangles(vs, []uint16{0, 1, 2}, whiteSub, &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

// drawGeneStack renders the radial stacked-bar chart. The hovered slice is
// drawn last with its radial thickness expanded.
func (e *Engine) drawGeneStack(screen *ebiten.Image) {
	g := e.stack
	cx, cy := e.cam.Apply(0, 0)
	scale := e.cam.Scale
	t := 1.0
	if e.anim != nil {
		t = e.anim.Progress(time.Now())
	}

	var hovered *Slice
	for i := range g.Slices {
		s := &g.Slices[i]
		if s.Node.ID == e.hoverID {
			hovered = s
			continue
		}
		e.drawSlice(screen, s, cx, cy, scale, t, 1)
	}
	if hovered != nil {
		e.drawSlice(screen, hovered, cx, cy, scale, t, e.cfg.HoverExpand)
	}

	if g.ShowLabels() {
		placer := newLabelPlacer()
		face := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}
		for i := range g.Slices {
			s := &g.Slices[i]
			a := (s.A0 + s.A1) / 2
			r := (g.Opts.InnerR + g.Opts.OuterR) / 2 * scale
			lx := cx + r*math.Cos(a)
			ly := cy + r*math.Sin(a)
			name := truncateLabel(s.Node.ScientificName, 14)
			drawTangentLabel(screen, name, face, lx, ly, a, ColorText, placer)
		}
	}
}

// drawSlice draws one slice's stacked segments; expand > 1 thickens its
// radial extent for the hover effect.
func (e *Engine) drawSlice(screen *ebiten.Image, s *Slice, cx, cy, scale, t, expand float64) {
	g := e.stack
	seg := s.Seg
	max := g.MaxSum
	if e.anim != nil {
		seg = e.anim.SegValues(s.Node, t)
		max = e.anim.Max(t)
	}
	span := (g.Opts.OuterR - g.Opts.InnerR) * scale * expand
	lengths := segLengths(seg, max, span)
	drawStackedWedge(screen, cx, cy, g.Opts.InnerR*scale, lengths, s.A0, s.A1)
	if expand > 1 {
		total := lengths[0] + lengths[1] + lengths[2]
		drawWedge(screen, cx, cy, g.Opts.InnerR*scale, g.Opts.InnerR*scale+total, s.A0, s.A1, withAlpha(ColorHover, 40))
	}
}

// drawTangentLabel draws s rotated along the tangent at the anchor,
// flipping labels in the lower half of the circle so they stay upright.
func drawTangentLabel(dst *ebiten.Image, s string, face *text.GoTextFace, cx, cy, angle float64, clr color.RGBA, placer *labelPlacer) {
	w, h := text.Measure(s, face, 0)
	if !placer.TryPlace(cx-w/2, cy-h/2, cx+w/2, cy+h/2) {
		return
	}
	rot := angle + math.Pi/2
	if normalizeAngle(angle) < math.Pi {
		rot += math.Pi
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(-w/2, -h/2)
	op.GeoM.Rotate(rot)
	op.GeoM.Translate(cx, cy)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, face, op)
}

func (e *Engine) drawHUD(screen *ebiten.Image) {
	face := &text.GoTextFace{Source: e.monoSource, Size: e.fontSize()}
	line1 := fmt.Sprintf("[%d] %s   rank <= %s", int(e.view)+1, e.view.String(), taxotree.Ranks[e.rankIdx])
	if e.scopeID != "" {
		scopeName := e.scopeID
		if n, ok := e.repo.Get(e.scopeID); ok {
			scopeName = n.ScientificName
		}
		line1 = fmt.Sprintf("[%d] %s   scope: %s", int(e.view)+1, e.view.String(), scopeName)
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(12, 10)
	op.ColorScale.ScaleWithColor(ColorDimText)
	text.Draw(screen, line1, face, op)

	hint := "1-4 views  C/N/P genes  up/down rank  wheel zoom/scroll  esc unscope"
	if e.view == ViewGeneStack {
		hint = fmt.Sprintf("L limit (%d)  A order (%s)  ", e.cfg.SliceLimit, sortName(e.ascending)) + hint
	}
	hop := &text.DrawOptions{}
	hop.GeoM.Translate(12, float64(e.Height)-e.fontSize()-10)
	hop.ColorScale.ScaleWithColor(withAlpha(ColorDimText, 140))
	text.Draw(screen, hint, face, hop)
}

func sortName(asc bool) string {
	if asc {
		return "least genes"
	}
	return "most genes"
}

// drawLegend shows the gene segment colors and their enabled state.
func (e *Engine) drawLegend(screen *ebiten.Image) {
	face := &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}
	swatch := e.fontSize()
	x := 12.0
	y := 14.0 + e.fontSize()*2

	masks := [3]taxotree.GeneMask{taxotree.GeneCoding, taxotree.GeneNonCoding, taxotree.GenePseudogene}
	for i, name := range GeneNames {
		clr := GeneColors[i]
		alpha := float32(1.0)
		if e.genes&masks[i] == 0 {
			alpha = 0.25
		}
		vector.DrawFilledRect(screen, float32(x), float32(y), float32(swatch), float32(swatch), clr, false)
		op := &text.DrawOptions{}
		op.GeoM.Translate(x+swatch+8, y)
		op.ColorScale.Scale(1, 1, 1, alpha)
		text.Draw(screen, name, face, op)
		if e.genes&masks[i] == 0 {
			vector.StrokeLine(screen, float32(x), float32(y+swatch/2), float32(x+swatch), float32(y+swatch/2), 1, ColorBackground, false)
		}
		y += swatch + 8
	}
}

// drawTooltip shows the hovered node's counts near the pointer.
func (e *Engine) drawTooltip(screen *ebiten.Image) {
	if e.hoverID == "" {
		return
	}
	n, ok := e.repo.Get(e.hoverID)
	if !ok {
		return
	}
	face := &text.GoTextFace{Source: e.monoSource, Size: e.fontSize()}
	rank := n.Rank
	if rank == "" {
		rank = "unranked"
	}
	lines := []string{
		truncateLabel(n.ScientificName, e.cfg.TooltipMaxName) + " (" + rank + ")",
		fmt.Sprintf("organisms   %d", n.OrganismsCount),
		fmt.Sprintf("assemblies  %d", n.AssembliesCount),
		fmt.Sprintf("annotations %d", n.AnnotationsCount),
		fmt.Sprintf("coding      %.1f", n.CodingCount),
		fmt.Sprintf("non-coding  %.1f", n.NonCodingCount),
		fmt.Sprintf("pseudogene  %.1f", n.PseudogeneCount),
	}

	var maxW float64
	for _, l := range lines {
		if w, _ := text.Measure(l, face, 0); w > maxW {
			maxW = w
		}
	}
	lineH := e.fontSize() + 4
	boxW := maxW + 16
	boxH := lineH*float64(len(lines)) + 12

	x := float64(e.lastCursorX) + 16
	y := float64(e.lastCursorY) + 16
	if x+boxW > float64(e.Width) {
		x = float64(e.lastCursorX) - boxW - 8
	}
	if y+boxH > float64(e.Height) {
		y = float64(e.lastCursorY) - boxH - 8
	}

	vector.DrawFilledRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), ColorPanel, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), 1, ColorOutline, false)
	for i, l := range lines {
		clr := ColorText
		if i > 0 {
			clr = ColorDimText
		}
		op := &text.DrawOptions{}
		op.GeoM.Translate(x+8, y+6+float64(i)*lineH)
		op.ColorScale.ScaleWithColor(clr)
		text.Draw(screen, l, face, op)
	}
}

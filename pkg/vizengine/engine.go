// Package vizengine renders the taxonomy hierarchy as four interactive
// layouts (circle packing, constant-branch radial, virtualized linear tree
// and the radial gene stack) on an ebiten drawing surface.
package vizengine

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// View selects the active layout engine.
type View int

const (
	ViewPack View = iota
	ViewRadial
	ViewLinear
	ViewGeneStack
)

func (v View) String() string {
	switch v {
	case ViewPack:
		return "circle packing"
	case ViewRadial:
		return "radial tree"
	case ViewLinear:
		return "linear tree"
	case ViewGeneStack:
		return "gene stack"
	}
	return "unknown"
}

// Config carries the visual tuning knobs a deployment may override from a
// TOML file.
type Config struct {
	AnimationMs    int     `toml:"animation_ms"`
	PackPaddingPx  float64 `toml:"pack_padding_px"`
	PackMarginPx   float64 `toml:"pack_margin_px"`
	SliceLimit     int     `toml:"slice_limit"`
	SliceRank      string  `toml:"slice_rank"`
	HoverExpand    float64 `toml:"hover_expand"`
	CaptureDir     string  `toml:"capture_dir"`
	InitialRank    string  `toml:"initial_rank"`
	SearchLimit    int     `toml:"search_limit"`
	TooltipMaxName int     `toml:"tooltip_max_name"`
}

func DefaultConfig() Config {
	return Config{
		AnimationMs:    500,
		PackPaddingPx:  3,
		PackMarginPx:   24,
		SliceLimit:     100,
		SliceRank:      "phylum",
		HoverExpand:    1.15,
		InitialRank:    "species",
		SearchLimit:    20,
		TooltipMaxName: 40,
	}
}

// sliceLimits are the cycleable gene-stack sizes.
var sliceLimits = []int{50, 100, 150}

// Engine is the interactive viewer: it implements ebiten.Game and owns all
// per-session visualization state. Everything runs on the game loop; the
// only other goroutine is the repository load, observed via generation
// polling.
type Engine struct {
	Width, Height int

	cfg    Config
	logger *log.Logger
	repo   *taxotree.Repository

	// OnSelect fires when a leaf-equivalent target is clicked in any
	// layout.
	OnSelect func(taxonID string, node taxotree.FlatNode)

	fontSource *text.GoTextFaceSource
	monoSource *text.GoTextFaceSource

	loadStarted bool
	loadCancel  context.CancelFunc
	seenGen     uint64

	view      View
	genes     taxotree.GeneMask
	rankIdx   int    // index into taxotree.Ranks bounding tree depth
	scopeID   string // root-rescope; empty means the full tree
	ascending bool
	collapsed IDSet
	selection IDSet

	tree  *taxotree.HierarchyNode
	dirty bool // geometry must be rebuilt before the next draw

	// Geometry snapshots, rebuilt per layout pass and handed to hit
	// testing as immutable state. geomGen lets async consumers detect
	// staleness.
	geomGen uint64
	packed  []CircleGeom
	radial  *RadialGeometry
	linear  *LinearGeometry
	stack   *GeneStackGeometry

	cam     Camera
	scrollY float64
	anim    *GeneAnim

	hoverID     string
	lastHitTest time.Time
	lastCursorX int
	lastCursorY int

	dragging       bool
	dragX, dragY   int
	lastClickTime  time.Time
	lastClickID    string
	captureRequest bool
}

// NewEngine creates the viewer over a repository. Width/height are the
// initial logical size; Layout keeps them in device pixels afterwards.
func NewEngine(width, height int, repo *taxotree.Repository, cfg Config, logger *log.Logger) *Engine {
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	m, _ := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if logger == nil {
		logger = log.Default()
	}
	if cfg.AnimationMs <= 0 {
		cfg.AnimationMs = DefaultConfig().AnimationMs
	}
	e := &Engine{
		Width:      width,
		Height:     height,
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		fontSource: s,
		monoSource: m,
		genes:      taxotree.GeneAll,
		rankIdx:    len(taxotree.Ranks) - 1,
		cam:        NewCamera(),
		dirty:      true,
	}
	if i := taxotree.RankDepth(cfg.InitialRank); i >= 0 {
		e.rankIdx = i
	}
	return e
}

// Close cancels an in-flight load so an engine torn down mid-fetch discards
// the result instead of updating stale state.
func (e *Engine) Close() {
	if e.loadCancel != nil {
		e.loadCancel()
	}
}

// Layout scales the drawing surface by the device pixel ratio so strokes
// and text stay sharp on high-density displays.
func (e *Engine) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := ebiten.Monitor().DeviceScaleFactor()
	e.resize(int(float64(outsideWidth)*s), int(float64(outsideHeight)*s))
	return e.Width, e.Height
}

// resize records the device-pixel surface size. A change schedules a
// relayout; the pack viewport and the fitted radial/stack cameras all
// depend on it.
func (e *Engine) resize(w, h int) {
	if w == e.Width && h == e.Height {
		return
	}
	e.Width, e.Height = w, h
	e.invalidate()
}

// Update advances one tick: polls the repository, handles input, advances
// the gene animation and rebuilds geometry when state changed. It never
// returns an error; all failures are rendered as states.
func (e *Engine) Update() error {
	if !e.loadStarted {
		e.loadStarted = true
		ctx, cancel := context.WithCancel(context.Background())
		e.loadCancel = cancel
		go func() {
			// Error state is observed via repo.Err; nothing to do here.
			_ = e.repo.Load(ctx)
		}()
	}
	if gen := e.repo.Generation(); gen != e.seenGen {
		e.seenGen = gen
		e.tree = nil // force a rebuild from the fresh dataset
		e.invalidate()
	}

	e.handleKeys()
	e.handleMouse()

	if e.anim != nil && e.anim.Done(time.Now()) {
		e.anim = nil
	}
	if e.dirty {
		e.rebuild()
	}
	return nil
}

// invalidate marks geometry stale. Multiple state changes within one tick
// coalesce into a single rebuild.
func (e *Engine) invalidate() {
	e.dirty = true
}

// rebuild reconstructs the hierarchy (when needed) and the active layout's
// geometry snapshot.
func (e *Engine) rebuild() {
	e.dirty = false
	nodes := e.repo.Nodes()
	if nodes == nil {
		return
	}
	if e.tree == nil {
		full, err := taxotree.BuildTree(nodes, taxotree.AnnotationsValue)
		if err != nil {
			e.logger.Error("stratify failed, keeping previous tree", "err", err)
			return
		}
		e.tree = full
	}
	prev := e.tree
	if e.scopeID != "" {
		e.tree = taxotree.BuildByRootScope(nodes, prev, e.scopeID, taxotree.AnnotationsValue)
	} else {
		e.tree = taxotree.BuildByRank(nodes, prev, taxotree.Ranks[e.rankIdx], taxotree.AnnotationsValue)
	}
	if e.tree == nil {
		return
	}

	w, h := float64(e.Width), float64(e.Height)
	switch e.view {
	case ViewPack:
		e.packed = PackCircles(e.tree, w, h, e.cfg.PackPaddingPx, e.cfg.PackMarginPx)
	case ViewRadial:
		opts := DefaultRadialOptions()
		opts.Genes = e.genes
		e.radial = LayoutRadial(e.tree, opts)
		if e.radial != nil {
			e.fitTo(e.radial.MaxRadius())
		}
	case ViewLinear:
		e.linear = LayoutLinear(e.tree, e.collapsed, e.genes)
		e.clampScroll()
	case ViewGeneStack:
		opts := DefaultGeneStackOptions()
		opts.Limit = e.cfg.SliceLimit
		opts.Ascending = e.ascending
		opts.Genes = e.genes
		var candidates []*taxotree.FlatNode
		if e.scopeID != "" {
			candidates = CollectUnderRoot(e.tree)
		} else {
			candidates = CollectAtRank(nodes, e.cfg.SliceRank)
		}
		e.stack = LayoutGeneStack(candidates, opts)
		if e.stack != nil {
			e.fitTo(e.stack.Opts.OuterR)
		}
	}
	e.geomGen++
}

// fitTo centers an origin-centered layout of outer radius r in the
// viewport. Only applies while the camera is untouched so user pan/zoom
// survives relayouts.
func (e *Engine) fitTo(r float64) {
	if r <= 0 || e.cam != NewCamera() {
		return
	}
	fit := (min(float64(e.Width), float64(e.Height))/2 - 30) / r
	e.cam = Camera{X: float64(e.Width) / 2, Y: float64(e.Height) / 2, Scale: fit}
}

func (e *Engine) resetCamera() {
	e.cam = NewCamera()
	e.scrollY = 0
}

func (e *Engine) clampScroll() {
	if e.linear == nil {
		e.scrollY = 0
		return
	}
	max := e.linear.ContentHeight() - float64(e.Height)
	if max < 0 {
		max = 0
	}
	if e.scrollY < 0 {
		e.scrollY = 0
	}
	if e.scrollY > max {
		e.scrollY = max
	}
}

func (e *Engine) handleKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.Key1):
		e.switchView(ViewPack)
	case inpututil.IsKeyJustPressed(ebiten.Key2):
		e.switchView(ViewRadial)
	case inpututil.IsKeyJustPressed(ebiten.Key3):
		e.switchView(ViewLinear)
	case inpututil.IsKeyJustPressed(ebiten.Key4):
		e.switchView(ViewGeneStack)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		e.toggleGene(taxotree.GeneCoding)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		e.toggleGene(taxotree.GeneNonCoding)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		e.toggleGene(taxotree.GenePseudogene)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && e.rankIdx > 0 {
		e.rankIdx--
		e.tree = nil
		e.invalidate()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && e.rankIdx < len(taxotree.Ranks)-1 {
		e.rankIdx++
		e.tree = nil
		e.invalidate()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		for i, l := range sliceLimits {
			if l == e.cfg.SliceLimit {
				e.cfg.SliceLimit = sliceLimits[(i+1)%len(sliceLimits)]
				break
			}
		}
		e.invalidate()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		e.ascending = !e.ascending
		e.invalidate()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && e.scopeID != "" {
		e.scopeID = ""
		e.tree = nil
		e.resetCamera()
		e.invalidate()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) && e.repo.Err() != nil {
		e.logger.Info("retrying dataset load")
		e.repo.Reset()
		e.loadStarted = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) && e.cfg.CaptureDir != "" {
		e.captureRequest = true
	}
}

func (e *Engine) switchView(v View) {
	if e.view == v {
		return
	}
	e.view = v
	e.anim = nil
	e.hoverID = ""
	e.resetCamera()
	e.invalidate()
	e.logger.Info("view switched", "view", v.String())
}

// toggleGene flips one gene type and starts the blend from the previous
// enabled set to the new one, capturing both scaling maxima.
func (e *Engine) toggleGene(bit taxotree.GeneMask) {
	from := e.genes
	to := from ^ bit
	fromMax := e.currentMaxSum(from)
	toMax := e.currentMaxSum(to)
	e.genes = to
	e.anim = NewGeneAnim(from, to, fromMax, toMax, time.Now(), time.Duration(e.cfg.AnimationMs)*time.Millisecond)
	e.invalidate()
}

// currentMaxSum computes the scaling denominator the active view would use
// for a given mask.
func (e *Engine) currentMaxSum(mask taxotree.GeneMask) float64 {
	var max float64
	consider := func(n *taxotree.FlatNode) {
		if s := n.GeneSum(mask); s > max {
			max = s
		}
	}
	switch e.view {
	case ViewRadial:
		if e.tree != nil {
			for _, l := range e.tree.Leaves() {
				consider(l.Flat)
			}
		}
	case ViewLinear:
		if e.linear != nil {
			for i := range e.linear.Rows {
				consider(e.linear.Rows[i].Node.Flat)
			}
		}
	case ViewGeneStack:
		if e.stack != nil {
			for i := range e.stack.Slices {
				consider(e.stack.Slices[i].Node)
			}
		}
	}
	return max
}

func (e *Engine) handleMouse() {
	mx, my := ebiten.CursorPosition()

	// Wheel: scroll in the linear view, zoom everywhere else.
	_, wy := ebiten.Wheel()
	if wy != 0 {
		if e.view == ViewLinear {
			e.scrollY -= wy * LinearRowHeight * 3
			e.clampScroll()
		} else {
			factor := 1.0
			if wy > 0 {
				factor = 1.1
			} else {
				factor = 1 / 1.1
			}
			e.cam.ZoomAt(float64(mx), float64(my), factor)
		}
	}

	// Drag pan.
	if e.view != ViewLinear {
		if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			e.dragging = true
			e.dragX, e.dragY = mx, my
		}
		if e.dragging && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			if mx != e.dragX || my != e.dragY {
				e.cam.Pan(float64(mx-e.dragX), float64(my-e.dragY))
				e.dragX, e.dragY = mx, my
			}
		}
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		wasDrag := e.dragging && (abs(mx-e.dragX)+abs(my-e.dragY) > 3)
		e.dragging = false
		if !wasDrag {
			e.handleClick(mx, my)
		}
	}

	// Hover hit testing, throttled to roughly 60 Hz; a redraw matters only
	// when the hovered identity changes.
	moved := mx != e.lastCursorX || my != e.lastCursorY
	if moved && time.Since(e.lastHitTest) >= 16*time.Millisecond {
		e.lastHitTest = time.Now()
		e.lastCursorX, e.lastCursorY = mx, my
		id := e.hitTest(mx, my)
		if id != e.hoverID {
			e.hoverID = id
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// hitTest resolves the pointer against the active view's geometry snapshot
// and returns the hovered taxon id, or "" for a miss (a normal outcome).
func (e *Engine) hitTest(mx, my int) string {
	switch e.view {
	case ViewPack:
		x, y := e.cam.Invert(float64(mx), float64(my))
		if c := HitCircle(e.packed, x, y); c != nil {
			return c.Node.Flat.ID
		}
	case ViewRadial:
		if e.radial != nil {
			x, y := e.cam.Invert(float64(mx), float64(my))
			t := 1.0
			if e.anim != nil {
				t = e.anim.Progress(time.Now())
			}
			if b := e.radial.HitRadialBar(x, y, e.anim, t); b != nil {
				return e.radial.Nodes[b.NodeIdx].Node.Flat.ID
			}
		}
	case ViewLinear:
		if e.linear != nil {
			row, zone := e.linear.HitLinear(float64(mx), float64(my)+e.scrollY, float64(e.Width))
			if zone != ZoneNone {
				return row.Node.Flat.ID
			}
		}
	case ViewGeneStack:
		if e.stack != nil {
			x, y := e.cam.Invert(float64(mx), float64(my))
			if s := e.stack.HitSlice(x, y); s != nil {
				return s.Node.ID
			}
		}
	}
	return ""
}

func (e *Engine) handleClick(mx, my int) {
	now := time.Now()
	id := e.hitTest(mx, my)
	doubleClick := id != "" && id == e.lastClickID && now.Sub(e.lastClickTime) < 350*time.Millisecond
	e.lastClickTime = now
	e.lastClickID = id
	if id == "" {
		return
	}

	switch e.view {
	case ViewPack:
		if doubleClick && id != e.scopeID {
			e.scopeID = id
			e.tree = nil
			e.resetCamera()
			e.invalidate()
			return
		}
		n, ok := e.repo.Get(id)
		if ok {
			e.selectNode(n)
		}
	case ViewRadial, ViewGeneStack:
		if n, ok := e.repo.Get(id); ok {
			e.selectNode(n)
		}
	case ViewLinear:
		if e.linear == nil {
			return
		}
		row, zone := e.linear.HitLinear(float64(mx), float64(my)+e.scrollY, float64(e.Width))
		if zone == ZoneNone {
			return
		}
		hasChildren := len(row.Node.Children) > 0
		switch {
		case zone == ZoneExpand, hasChildren:
			// Copy-on-write toggle; identity change drives the relayout.
			e.collapsed = e.collapsed.Toggle(row.Node.Flat.ID)
			e.invalidate()
		default:
			e.selectNode(row.Node.Flat)
		}
	}
}

func (e *Engine) selectNode(n *taxotree.FlatNode) {
	e.selection = e.selection.Toggle(n.ID)
	e.logger.Debug("node selected", "taxon", n.ID, "name", n.ScientificName)
	if e.OnSelect != nil {
		e.OnSelect(n.ID, *n)
	}
}

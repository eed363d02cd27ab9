package vizengine

import (
	"math"
	"testing"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

func TestCameraApplyInvertRoundtrip(t *testing.T) {
	cam := Camera{X: 120, Y: -45, Scale: 2.5}
	points := [][2]float64{{0, 0}, {100, 200}, {-33.5, 7.25}}
	for _, p := range points {
		sx, sy := cam.Apply(p[0], p[1])
		x, y := cam.Invert(sx, sy)
		if math.Abs(x-p[0]) > 1e-9 || math.Abs(y-p[1]) > 1e-9 {
			t.Errorf("roundtrip of (%.2f, %.2f) gave (%.4f, %.4f)", p[0], p[1], x, y)
		}
	}
}

func TestCameraZoomAtAnchorsCursor(t *testing.T) {
	cam := Camera{X: 50, Y: 80, Scale: 1}
	const sx, sy = 320.0, 240.0
	wantX, wantY := cam.Invert(sx, sy)

	cam.ZoomAt(sx, sy, 1.5)
	gotX, gotY := cam.Invert(sx, sy)
	if math.Abs(gotX-wantX) > 1e-9 || math.Abs(gotY-wantY) > 1e-9 {
		t.Errorf("content under cursor moved: (%.4f, %.4f) -> (%.4f, %.4f)", wantX, wantY, gotX, gotY)
	}
	if cam.Scale != 1.5 {
		t.Errorf("scale %.2f, want 1.5", cam.Scale)
	}
}

func TestCameraZoomClamp(t *testing.T) {
	cam := NewCamera()
	for i := 0; i < 40; i++ {
		cam.ZoomAt(0, 0, 2)
	}
	if cam.Scale != MaxZoom {
		t.Errorf("scale %.2f after zooming in, want clamp at %.1f", cam.Scale, MaxZoom)
	}
	for i := 0; i < 80; i++ {
		cam.ZoomAt(0, 0, 0.5)
	}
	if cam.Scale != MinZoom {
		t.Errorf("scale %.4f after zooming out, want clamp at %.1f", cam.Scale, MinZoom)
	}
}

func TestCameraPan(t *testing.T) {
	cam := NewCamera()
	cam.Pan(10, -20)
	cam.Pan(5, 5)
	if cam.X != 15 || cam.Y != -15 {
		t.Errorf("offset (%.1f, %.1f), want (15, -15)", cam.X, cam.Y)
	}
}

func TestAngleInBand(t *testing.T) {
	cases := []struct {
		name      string
		a, a0, a1 float64
		want      bool
	}{
		{"inside plain band", 1.0, 0.5, 1.5, true},
		{"below plain band", 0.2, 0.5, 1.5, false},
		{"above plain band", 1.8, 0.5, 1.5, false},
		{"wrapped band low side", 0.05, 2*math.Pi - 0.1, 0.1, true},
		{"wrapped band high side", 2*math.Pi - 0.05, 2*math.Pi - 0.1, 0.1, true},
		{"outside wrapped band", math.Pi, 2*math.Pi - 0.1, 0.1, false},
		{"negative angle normalized", -0.05, 2*math.Pi - 0.1, 0.1, true},
	}
	for _, tc := range cases {
		if got := angleInBand(tc.a, tc.a0, tc.a1); got != tc.want {
			t.Errorf("%s: angleInBand(%.3f, %.3f, %.3f) = %v, want %v",
				tc.name, tc.a, tc.a0, tc.a1, got, tc.want)
		}
	}
}

func TestHitRadialBar(t *testing.T) {
	leaf := &taxotree.FlatNode{ID: "x", CodingCount: 10}
	g := &RadialGeometry{
		Nodes: []RadialNode{{Node: &taxotree.HierarchyNode{Flat: leaf}}},
		Bars: []RadialBar{{
			NodeIdx: 0,
			Angle:   0,
			HalfW:   0.2,
			Inner:   60,
			Sum:     10,
		}},
		MaxSum: 10,
		Opts:   RadialOptions{BarMaxLen: 120},
	}

	// Full-length bar covers [60, 180] at angle 0.
	if hit := g.HitRadialBar(120, 0, nil, 0); hit == nil {
		t.Error("point mid-bar missed")
	}
	if hit := g.HitRadialBar(40, 0, nil, 0); hit != nil {
		t.Error("point inside the branch radius should miss the bar")
	}
	if hit := g.HitRadialBar(200, 0, nil, 0); hit != nil {
		t.Error("point beyond the bar tip should miss")
	}
	// Just past the angular half-width.
	x := 120 * math.Cos(0.25)
	y := 120 * math.Sin(0.25)
	if hit := g.HitRadialBar(x, y, nil, 0); hit != nil {
		t.Error("point outside the angular band should miss")
	}
	// Wrap side of a bar straddling angle zero.
	x = 120 * math.Cos(-0.1)
	y = 120 * math.Sin(-0.1)
	if hit := g.HitRadialBar(x, y, nil, 0); hit == nil {
		t.Error("point on the wrapped side of the band missed")
	}
}

func TestHitSlice(t *testing.T) {
	g := &GeneStackGeometry{
		Slices: []Slice{
			{Node: &taxotree.FlatNode{ID: "a"}, A0: 0, A1: math.Pi / 2, Sum: 100},
			{Node: &taxotree.FlatNode{ID: "b"}, A0: math.Pi / 2, A1: math.Pi, Sum: 50},
		},
		MaxSum: 100,
		Opts:   GeneStackOptions{InnerR: 80, OuterR: 300},
	}

	a := math.Pi / 4
	hit := g.HitSlice(150*math.Cos(a), 150*math.Sin(a))
	if hit == nil || hit.Node.ID != "a" {
		t.Fatalf("expected slice a, got %+v", hit)
	}
	// Slice b tops out at Inner + 0.5*(Outer-Inner) = 190.
	a = 3 * math.Pi / 4
	if hit := g.HitSlice(250*math.Cos(a), 250*math.Sin(a)); hit != nil {
		t.Errorf("point beyond slice b's outer radius hit %s", hit.Node.ID)
	}
	if hit := g.HitSlice(150*math.Cos(a), 150*math.Sin(a)); hit == nil || hit.Node.ID != "b" {
		t.Fatalf("expected slice b, got %+v", hit)
	}
	if hit := g.HitSlice(10, 10); hit != nil {
		t.Error("point inside the inner hole should miss")
	}
}

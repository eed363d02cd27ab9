package vizengine

import (
	"testing"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

func linearRowIDs(g *LinearGeometry) []string {
	out := make([]string, len(g.Rows))
	for i, r := range g.Rows {
		out[i] = r.Node.Flat.ID
	}
	return out
}

func TestLayoutLinearPreorder(t *testing.T) {
	root := buildTestTree(t, radialTestNodes())
	g := LayoutLinear(root, nil, taxotree.GeneAll)
	if g == nil {
		t.Fatal("nil geometry")
	}

	want := []string{"1", "2", "4", "5", "3"}
	got := linearRowIDs(g)
	if len(got) != len(want) {
		t.Fatalf("got rows %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got rows %v, want %v", got, want)
		}
	}
	for _, r := range g.Rows {
		wantX := LinearBaseX + float64(r.Node.Depth)*LinearIndent
		if r.X != wantX {
			t.Errorf("row %s at x %.1f, want %.1f", r.Node.Flat.ID, r.X, wantX)
		}
	}
	if g.MaxSum != 3200 {
		t.Errorf("MaxSum %.0f, want 3200 (node 2)", g.MaxSum)
	}
}

func TestLayoutLinearCollapse(t *testing.T) {
	root := buildTestTree(t, radialTestNodes())
	var collapsed IDSet
	collapsed = collapsed.Toggle("2")
	g := LayoutLinear(root, collapsed, taxotree.GeneAll)

	want := []string{"1", "2", "3"}
	got := linearRowIDs(g)
	if len(got) != len(want) {
		t.Fatalf("collapsed rows %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collapsed rows %v, want %v", got, want)
		}
	}
}

func TestIDSetCopyOnWrite(t *testing.T) {
	var s IDSet
	s2 := s.Toggle("a")
	if s.Has("a") {
		t.Error("Toggle mutated the original set")
	}
	if !s2.Has("a") {
		t.Error("new set lacks the toggled id")
	}
	s3 := s2.Toggle("a")
	if s3.Has("a") {
		t.Error("second toggle should remove the id")
	}
	if !s2.Has("a") {
		t.Error("intermediate set was mutated")
	}
}

func TestVisibleWindow(t *testing.T) {
	root := buildTestTree(t, radialTestNodes())
	// 5 rows, 120px of content.
	g := LayoutLinear(root, nil, taxotree.GeneAll)

	if h := g.ContentHeight(); h != 5*LinearRowHeight {
		t.Errorf("content height %.0f, want %.0f", h, 5*LinearRowHeight)
	}

	first, last := g.VisibleWindow(0, 48)
	if first != 0 || last < 2 || last > 4 {
		t.Errorf("window at top: [%d, %d)", first, last)
	}
	first, last = g.VisibleWindow(50, 48)
	if first != 2 {
		t.Errorf("window after scrolling 50px starts at %d, want 2", first)
	}
	if last > len(g.Rows) {
		t.Errorf("window end %d exceeds row count %d", last, len(g.Rows))
	}
	// Scrolled past the end.
	first, last = g.VisibleWindow(10000, 48)
	if first != last {
		t.Errorf("window past the end should be empty, got [%d, %d)", first, last)
	}
	first, last = g.VisibleWindow(0, 0)
	if first != 0 || last != 0 {
		t.Errorf("zero-height viewport should yield an empty window, got [%d, %d)", first, last)
	}
}

func TestHitLinearZones(t *testing.T) {
	root := buildTestTree(t, radialTestNodes())
	g := LayoutLinear(root, nil, taxotree.GeneAll)
	const viewW = 800.0
	barX := viewW - LinearBarRightPx - LinearBarW

	// Row 1 is node 2, which has children.
	y := 1*LinearRowHeight + LinearRowHeight/2
	row := &g.Rows[1]

	hit, zone := g.HitLinear(row.X+2, y, viewW)
	if hit != row || zone != ZoneExpand {
		t.Errorf("expand zone: got row %v zone %d", hit, zone)
	}
	hit, zone = g.HitLinear(barX+10, y, viewW)
	if hit != row || zone != ZoneBar {
		t.Errorf("bar zone: got row %v zone %d", hit, zone)
	}
	hit, zone = g.HitLinear(row.X+LinearExpandW+40, y, viewW)
	if hit != row || zone != ZoneRow {
		t.Errorf("row zone: got row %v zone %d", hit, zone)
	}

	// Row 2 is the leaf node 4; its indent area is not an expand zone.
	y = 2*LinearRowHeight + LinearRowHeight/2
	leafRow := &g.Rows[2]
	hit, zone = g.HitLinear(leafRow.X+2, y, viewW)
	if hit != leafRow || zone != ZoneRow {
		t.Errorf("leaf indent area: got row %v zone %d, want plain row", hit, zone)
	}

	if hit, zone := g.HitLinear(20, -5, viewW); hit != nil || zone != ZoneNone {
		t.Error("negative y should miss")
	}
	if hit, zone := g.HitLinear(20, g.ContentHeight()+100, viewW); hit != nil || zone != ZoneNone {
		t.Error("y past the last row should miss")
	}
}

package taxotree

import "testing"

// scenarioNodes is the three-node tree used throughout: an unranked root,
// a kingdom and a phylum.
func scenarioNodes() []FlatNode {
	return []FlatNode{
		{ID: "1", ScientificName: "Eukaryota", AnnotationsCount: 120},
		{ID: "2", ParentID: "1", ScientificName: "Metazoa", Rank: "kingdom", AnnotationsCount: 100},
		{ID: "3", ParentID: "2", ScientificName: "Chordata", Rank: "phylum", AnnotationsCount: 80},
	}
}

func ids(h *HierarchyNode) map[string]int {
	out := make(map[string]int)
	h.Walk(func(n *HierarchyNode) { out[n.Flat.ID] = n.Depth })
	return out
}

func TestBuildTree(t *testing.T) {
	tree, err := BuildTree(scenarioNodes(), nil)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if tree.Flat.ID != "1" || tree.Depth != 0 {
		t.Errorf("root = %s depth %d, want 1 depth 0", tree.Flat.ID, tree.Depth)
	}
	got := ids(tree)
	if len(got) != 3 || got["2"] != 1 || got["3"] != 2 {
		t.Errorf("depths = %v", got)
	}
	// Aggregate: max(annotations,1) summed over the subtree.
	if tree.AggregateValue != 120+100+80 {
		t.Errorf("root aggregate = %v, want 300", tree.AggregateValue)
	}
}

func TestBuildTreeRejectsCycles(t *testing.T) {
	nodes := scenarioNodes()
	nodes = append(nodes, FlatNode{ID: "4", ParentID: "5"}, FlatNode{ID: "5", ParentID: "4"})
	if _, err := BuildTree(nodes, nil); err == nil {
		t.Error("expected stratification error for cyclic records")
	}
}

func TestBuildByRootScopeCyclicParents(t *testing.T) {
	// A scope root sitting on a parent cycle must terminate, not recurse
	// until the stack blows.
	nodes := []FlatNode{
		{ID: "a", ParentID: "b", AnnotationsCount: 10},
		{ID: "b", ParentID: "a", AnnotationsCount: 5},
	}
	prev, err := BuildTree(scenarioNodes(), nil)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	got := BuildByRootScope(nodes, prev, "a", nil)
	if got == nil {
		t.Fatal("nil tree for a cyclic scope")
	}
	// Re-rooting at "a" breaks the cycle: "b" becomes its only child.
	if got.Flat.ID != "a" || got.Count() != 2 {
		t.Errorf("scoped tree rooted at %s with %d nodes, want a with 2", got.Flat.ID, got.Count())
	}
}

func TestBuildByRankScenario(t *testing.T) {
	nodes := scenarioNodes()
	full, err := BuildTree(nodes, nil)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}

	tree := BuildByRank(nodes, full, "kingdom", nil)
	got := ids(tree)
	if _, ok := got["1"]; !ok {
		t.Error("unranked structural node 1 must be kept")
	}
	if _, ok := got["2"]; !ok {
		t.Error("kingdom node 2 must be kept")
	}
	if _, ok := got["3"]; ok {
		t.Error("phylum node 3 must be excluded at rank kingdom")
	}
}

func TestBuildByRankAncestorClosure(t *testing.T) {
	// An unknown-rank ancestor between two kept nodes must be pulled back
	// in so the tree stays connected.
	nodes := []FlatNode{
		{ID: "r"},
		{ID: "a", ParentID: "r", Rank: "kingdom"},
		{ID: "b", ParentID: "a", Rank: "species"}, // excluded by rank
		{ID: "c", ParentID: "b", Rank: "kingdom"}, // kept, forces b back in
	}
	full, err := BuildTree(nodes, nil)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	tree := BuildByRank(nodes, full, "kingdom", nil)

	got := ids(tree)
	if _, ok := got["b"]; !ok {
		t.Fatal("ancestor closure must keep excluded ancestor b")
	}
	// Every node's parent chain must resolve inside the result.
	tree.Walk(func(n *HierarchyNode) {
		for _, c := range n.Children {
			if c.Depth != n.Depth+1 {
				t.Errorf("child %s depth %d under parent depth %d", c.Flat.ID, c.Depth, n.Depth)
			}
		}
	})
}

func TestBuildByRankIdempotent(t *testing.T) {
	nodes := scenarioNodes()
	full, _ := BuildTree(nodes, nil)
	a := BuildByRank(nodes, full, "kingdom", nil)
	b := BuildByRank(nodes, full, "kingdom", nil)
	if len(ids(a)) != len(ids(b)) {
		t.Fatal("rebuilds with the same rank differ in size")
	}
	am, bm := ids(a), ids(b)
	for id, d := range am {
		if bm[id] != d {
			t.Errorf("node %s depth %d vs %d across rebuilds", id, d, bm[id])
		}
	}
}

func TestBuildByRankEmptyFallback(t *testing.T) {
	// All nodes ranked below the cutoff and none structural: previous tree
	// comes back unchanged.
	nodes := []FlatNode{
		{ID: "x", Rank: "species"},
		{ID: "y", ParentID: "x", Rank: "species"},
	}
	full, err := BuildTree(nodes, nil)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	prev := full
	if got := BuildByRank(nodes, prev, "domain", nil); got != prev {
		t.Error("empty rank filter result must return the previous tree")
	}
}

func TestBuildByRootScopeScenario(t *testing.T) {
	nodes := scenarioNodes()
	full, _ := BuildTree(nodes, nil)

	tree := BuildByRootScope(nodes, full, "2", nil)
	if tree.Flat.ID != "2" || tree.Depth != 0 {
		t.Fatalf("scope root = %s depth %d, want 2 depth 0", tree.Flat.ID, tree.Depth)
	}
	got := ids(tree)
	if len(got) != 2 {
		t.Errorf("scoped tree has %d nodes, want 2", len(got))
	}
	if got["3"] != 1 {
		t.Errorf("node 3 depth = %d, want 1", got["3"])
	}
	if _, ok := got["1"]; ok {
		t.Error("scoped tree must not contain the old root")
	}
	// The flat set itself is never mutated by a rebuild.
	if nodes[1].ParentID != "1" {
		t.Errorf("flat record mutated: parent = %q", nodes[1].ParentID)
	}
}

func TestBuildByRootScopeUnknownID(t *testing.T) {
	nodes := scenarioNodes()
	full, _ := BuildTree(nodes, nil)
	if got := BuildByRootScope(nodes, full, "nope", nil); got != full {
		t.Error("unknown scope id must return the previous tree")
	}
}

func TestLeavesAndCount(t *testing.T) {
	full, _ := BuildTree(scenarioNodes(), nil)
	leaves := full.Leaves()
	if len(leaves) != 1 || leaves[0].Flat.ID != "3" {
		t.Errorf("leaves = %v", leaves)
	}
	if full.Count() != 3 {
		t.Errorf("count = %d, want 3", full.Count())
	}
	if full.MaxDepth() != 2 {
		t.Errorf("max depth = %d, want 2", full.MaxDepth())
	}
}

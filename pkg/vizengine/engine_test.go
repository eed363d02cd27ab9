package vizengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

const engineTestTSV = "taxon_id\tparent_taxon_id\tscientific_name\tannotations_count\tassemblies_count\torganisms_count\trank\tcoding_count\tnon_coding_count\tpseudogene_count\n" +
	"1\t\tcellular organisms\t300\t0\t0\t\t0\t0\t0\n" +
	"2\t1\tBacteria\t200\t0\t0\tdomain\t3000\t200\t50\n" +
	"3\t1\tArchaea\t100\t0\t0\tdomain\t1500\t80\t10\n"

func loadedRepo(t *testing.T) *taxotree.Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.tsv")
	if err := os.WriteFile(path, []byte(engineTestTSV), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	repo := taxotree.NewRepository(path, nil, nil)
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return repo
}

func TestResizeSchedulesRelayout(t *testing.T) {
	repo := loadedRepo(t)
	e := NewEngine(800, 600, repo, DefaultConfig(), nil)
	e.seenGen = repo.Generation()
	e.rebuild()

	rootCircle := func() *CircleGeom {
		var best *CircleGeom
		for i := range e.packed {
			if best == nil || e.packed[i].R > best.R {
				best = &e.packed[i]
			}
		}
		return best
	}
	c := rootCircle()
	if c == nil {
		t.Fatal("no packed circles after rebuild")
	}
	if c.X != 400 || c.Y != 300 {
		t.Fatalf("root centered at (%.1f, %.1f), want (400, 300)", c.X, c.Y)
	}

	e.resize(1000, 400)
	if !e.dirty {
		t.Fatal("surface size change did not schedule a relayout")
	}
	e.rebuild()
	c = rootCircle()
	if c.X != 500 || c.Y != 200 {
		t.Errorf("root centered at (%.1f, %.1f) after resize, want (500, 200)", c.X, c.Y)
	}

	// An unchanged size is a no-op.
	e.resize(1000, 400)
	if e.dirty {
		t.Error("unchanged size scheduled a relayout")
	}
}

package taxotree

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// PayloadCache stores raw fetched payloads keyed by their source so a
// restart can render without re-downloading. Implemented by utils.DataCache.
type PayloadCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, payload []byte) error
}

// Repository owns the flat dataset for the session. Load fetches it exactly
// once; the node slice is read-only afterwards and may be shared freely
// between layout engines.
type Repository struct {
	source string
	cache  PayloadCache
	logger *log.Logger
	client *http.Client

	mu         sync.Mutex
	loading    bool
	nodes      []FlatNode
	byID       map[string]int
	generation uint64
	loadErr    error
}

// NewRepository creates a repository reading from source, which is either an
// HTTP(S) URL or a local file path. cache may be nil.
func NewRepository(source string, cache PayloadCache, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{
		source: source,
		cache:  cache,
		logger: logger,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Load fetches and parses the flattened tree. It is a no-op while a
// successfully loaded dataset exists or another load is in flight. On
// failure no partial dataset is exposed; the error is kept for Err and a
// retry is allowed.
func (r *Repository) Load(ctx context.Context) error {
	r.mu.Lock()
	if r.nodes != nil || r.loading {
		r.mu.Unlock()
		return nil
	}
	r.loading = true
	r.loadErr = nil
	r.mu.Unlock()

	nodes, err := r.fetchAndParse(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if err != nil {
		r.loadErr = err
		r.logger.Error("flattened tree load failed", "source", r.source, "err", err)
		return err
	}
	root := synthesizeRoot(nodes)
	r.nodes = root
	r.byID = make(map[string]int, len(root))
	for i := range root {
		r.byID[root[i].ID] = i
	}
	r.generation++
	r.logger.Info("flattened tree loaded", "nodes", len(root), "generation", r.generation)
	return nil
}

func (r *Repository) fetchAndParse(ctx context.Context) ([]FlatNode, error) {
	payload, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	nodes, err := ParsePayload(payload)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("flattened tree is empty")
	}
	if err := validate(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *Repository) fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(r.source, "http://") && !strings.HasPrefix(r.source, "https://") {
		return os.ReadFile(r.source)
	}
	if r.cache != nil {
		if payload, ok := r.cache.Get(r.source); ok {
			r.logger.Info("using cached flattened tree", "source", r.source, "bytes", len(payload))
			return payload, nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			r.logger.Warn("closing response body", "err", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Put(r.source, payload); err != nil {
			r.logger.Warn("caching flattened tree", "err", err)
		}
	}
	return payload, nil
}

// validate checks id uniqueness and leaves dangling parents for
// synthesizeRoot to adopt.
func validate(nodes []FlatNode) error {
	seen := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		if _, dup := seen[nodes[i].ID]; dup {
			return fmt.Errorf("duplicate taxon id %q", nodes[i].ID)
		}
		seen[nodes[i].ID] = struct{}{}
	}
	return nil
}

// synthesizeRoot guarantees a single tree. Records whose parent does not
// resolve count as orphans; when there is more than one, a synthetic root is
// inserted whose count fields are the sums over the orphans, and every
// orphan is re-parented under it.
func synthesizeRoot(nodes []FlatNode) []FlatNode {
	ids := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		ids[nodes[i].ID] = struct{}{}
	}
	var orphans []int
	for i := range nodes {
		if nodes[i].ParentID == "" {
			orphans = append(orphans, i)
			continue
		}
		if _, ok := ids[nodes[i].ParentID]; !ok {
			orphans = append(orphans, i)
		}
	}
	if len(orphans) <= 1 {
		return nodes
	}
	root := FlatNode{ID: SyntheticRootID, ScientificName: "Root"}
	for _, i := range orphans {
		root.OrganismsCount += nodes[i].OrganismsCount
		root.AssembliesCount += nodes[i].AssembliesCount
		root.AnnotationsCount += nodes[i].AnnotationsCount
		root.CodingCount += nodes[i].CodingCount
		root.NonCodingCount += nodes[i].NonCodingCount
		root.PseudogeneCount += nodes[i].PseudogeneCount
		nodes[i].ParentID = SyntheticRootID
	}
	return append([]FlatNode{root}, nodes...)
}

// Nodes returns the loaded flat dataset, or nil while unloaded. The slice is
// shared and must not be modified.
func (r *Repository) Nodes() []FlatNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes
}

// Generation increments on every successful load.
func (r *Repository) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Err returns the last load failure, or nil.
func (r *Repository) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadErr
}

// Loading reports whether a load is in flight.
func (r *Repository) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Reset drops the loaded dataset so the next Load re-fetches it.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nil
	r.byID = nil
	r.loadErr = nil
}

// Get returns the flat node with the given id.
func (r *Repository) Get(id string) (*FlatNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.nodes[i], true
}

// Search returns up to limit nodes whose scientific name or id contains
// query, case-insensitively. Relevance is by truncation only.
func (r *Repository) Search(query string, limit int) []*FlatNode {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*FlatNode
	for i := range r.nodes {
		n := &r.nodes[i]
		if strings.Contains(strings.ToLower(n.ScientificName), query) || strings.Contains(strings.ToLower(n.ID), query) {
			out = append(out, n)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

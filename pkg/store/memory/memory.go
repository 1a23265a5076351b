// Package memory is an in-process GraphStore used by tests, the CLI's dry
// runs and small local datasets.
package memory

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

type Store struct {
	mu         sync.RWMutex
	nodes      map[string]common.Node
	edges      map[string]common.Edge
	flags      []store.StoredFlag
	runs       []store.PipelineRun
	embeddings map[string][]float32
}

var (
	_ store.GraphStore  = (*Store)(nil)
	_ store.VectorStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		nodes:      make(map[string]common.Node),
		edges:      make(map[string]common.Edge),
		embeddings: make(map[string][]float32),
	}
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) UpsertNodes(ctx context.Context, nodes []common.Node) error {
	if err := ctx.Err(); err != nil {
		return common.StoreError("upsert nodes", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		existing, ok := s.nodes[n.ID]
		if !ok {
			n.Properties = n.Properties.Clone()
			n.RiskScore, n.RedFlags = nil, nil
			s.nodes[n.ID] = n
			continue
		}
		for k, v := range n.Properties {
			existing.Properties[k] = v
		}
		s.nodes[n.ID] = existing
	}
	return nil
}

func (s *Store) UpsertEdges(ctx context.Context, edges []common.Edge) error {
	if err := ctx.Err(); err != nil {
		return common.StoreError("upsert edges", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		if e.ID == "" {
			e.ID = common.EdgeID(e.Type, e.Source, e.Target)
		}
		existing, ok := s.edges[e.ID]
		if !ok {
			e.Properties = e.Properties.Clone()
			s.edges[e.ID] = e
			continue
		}
		for k, v := range e.Properties {
			existing.Properties[k] = v
		}
		s.edges[e.ID] = existing
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (common.Node, error) {
	if err := ctx.Err(); err != nil {
		return common.Node{}, common.StoreError("get node", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return common.Node{}, common.NotFoundf("node %s", id)
	}
	return copyNode(n), nil
}

func (s *Store) GetNodes(ctx context.Context, ids []string) ([]common.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("get nodes", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Node
	for _, id := range store.DedupeStrings(ids) {
		if n, ok := s.nodes[id]; ok {
			out = append(out, copyNode(n))
		}
	}
	sortNodes(out)
	return out, nil
}

func (s *Store) NodesByType(ctx context.Context, nodeType common.NodeType) ([]common.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("nodes by type", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Node
	for _, n := range s.nodes {
		if n.Type == nodeType {
			out = append(out, copyNode(n))
		}
	}
	sortNodes(out)
	return out, nil
}

func (s *Store) EdgesByType(ctx context.Context, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("edges by type", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Edge
	for _, e := range s.edges {
		if len(edgeTypes) == 0 || slices.Contains(edgeTypes, e.Type) {
			out = append(out, copyEdge(e))
		}
	}
	sortEdges(out)
	return out, nil
}

func (s *Store) Neighbors(ctx context.Context, ids []string, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("neighbors", err)
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Edge
	for _, e := range s.edges {
		if !want[e.Source] && !want[e.Target] {
			continue
		}
		if len(edgeTypes) > 0 && !slices.Contains(edgeTypes, e.Type) {
			continue
		}
		out = append(out, copyEdge(e))
	}
	sortEdges(out)
	return out, nil
}

// Search scores exact matches over prefix matches over substring matches.
func (s *Store) Search(ctx context.Context, query string, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("search", err)
	}
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []common.SearchHit
	for _, n := range s.nodes {
		if nodeType != "" && n.Type != nodeType {
			continue
		}
		label := strings.ToUpper(n.Label())
		var score float64
		switch {
		case label == q:
			score = 1
		case strings.HasPrefix(label, q):
			score = 0.8
		case strings.Contains(label, " "+q):
			score = 0.6
		case strings.Contains(label, q):
			score = 0.4
		default:
			continue
		}
		hits = append(hits, common.SearchHit{
			ID:      n.ID,
			Name:    n.Label(),
			Type:    n.Type,
			Score:   score,
			Context: n.Properties.First("province", "classification", "position", "region"),
		})
	}
	slices.SortFunc(hits, func(a, b common.SearchHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	if err := ctx.Err(); err != nil {
		return store.Counts{}, common.StoreError("counts", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := store.Counts{
		Nodes: make(map[common.NodeType]int),
		Edges: make(map[common.EdgeType]int),
	}
	for _, n := range s.nodes {
		c.Nodes[n.Type]++
	}
	for _, e := range s.edges {
		c.Edges[e.Type]++
	}
	return c, nil
}

func (s *Store) ReplaceFlags(ctx context.Context, flags []store.StoredFlag) error {
	if err := ctx.Err(); err != nil {
		return common.StoreError("replace flags", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = slices.Clone(flags)
	return nil
}

func (s *Store) ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("list flags", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.GroupFlags(s.flags, severity, limit), nil
}

func (s *Store) RecordRun(ctx context.Context, run store.PipelineRun) error {
	if err := ctx.Err(); err != nil {
		return common.StoreError("record run", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.PipelineRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("list runs", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.runs)
	slices.SortStableFunc(out, func(a, b store.PipelineRun) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SaveEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return common.StoreError("save embeddings", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		if i < len(vectors) {
			s.embeddings[id] = slices.Clone(vectors[i])
		}
	}
	return nil
}

func (s *Store) SearchSimilar(ctx context.Context, vector []float32, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.StoreError("search similar", err)
	}
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []common.SearchHit
	for id, emb := range s.embeddings {
		n, ok := s.nodes[id]
		if !ok || (nodeType != "" && n.Type != nodeType) {
			continue
		}
		hits = append(hits, common.SearchHit{ID: id, Name: n.Label(), Type: n.Type, Score: cosine(vector, emb)})
	}
	slices.SortFunc(hits, func(a, b common.SearchHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func copyNode(n common.Node) common.Node {
	n.Properties = n.Properties.Clone()
	return n
}

func copyEdge(e common.Edge) common.Edge {
	e.Properties = e.Properties.Clone()
	return e
}

func sortNodes(nodes []common.Node) {
	slices.SortFunc(nodes, func(a, b common.Node) int { return cmp.Compare(a.ID, b.ID) })
}

func sortEdges(edges []common.Edge) {
	slices.SortFunc(edges, func(a, b common.Edge) int { return cmp.Compare(a.ID, b.ID) })
}

package analytics

import (
	"cmp"
	"context"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const (
	DefaultMaxHops     = 6
	MaxHopsLimit       = 10
	DefaultDepth       = 2
	MaxDepth           = 3
	DefaultSubgraphCap = 200
)

// ShortestPath finds a shortest undirected path from one node to another
// within maxHops edges. It returns common.ErrNotFound when either node is
// missing or no path exists within the bound; the path is never truncated.
func ShortestPath(ctx context.Context, r store.GraphReader, from, to string, maxHops int) (common.Path, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	maxHops = min(maxHops, MaxHopsLimit)

	start, err := r.GetNode(ctx, from)
	if err != nil {
		return common.Path{}, err
	}
	if _, err := r.GetNode(ctx, to); err != nil {
		return common.Path{}, err
	}
	if from == to {
		return common.Path{Nodes: []common.Node{start}, Edges: []common.Edge{}}, nil
	}

	// parent maps a reached node to the edge it was first reached through.
	parent := map[string]common.Edge{}
	visited := map[string]bool{from: true}
	frontier := []string{from}
	found := false
	for hop := 0; hop < maxHops && len(frontier) > 0 && !found; hop++ {
		edges, err := r.Neighbors(ctx, frontier)
		if err != nil {
			return common.Path{}, err
		}
		inFrontier := make(map[string]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}
		var next []string
		for _, e := range edges {
			for _, end := range [2]string{e.Source, e.Target} {
				if !inFrontier[end] {
					continue
				}
				other := e.Other(end)
				if visited[other] {
					continue
				}
				visited[other] = true
				parent[other] = e
				next = append(next, other)
				if other == to {
					found = true
				}
			}
		}
		slices.Sort(next)
		frontier = next
	}
	if !found {
		return common.Path{}, common.NotFoundf("no path between %s and %s within %d hops", from, to, maxHops)
	}

	ids := []string{to}
	var edges []common.Edge
	for cur := to; cur != from; {
		e := parent[cur]
		edges = append(edges, e)
		cur = e.Other(cur)
		ids = append(ids, cur)
	}
	slices.Reverse(ids)
	slices.Reverse(edges)

	nodes, err := r.GetNodes(ctx, ids)
	if err != nil {
		return common.Path{}, err
	}
	byID := make(map[string]common.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	path := common.Path{Edges: edges, Length: len(edges)}
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			n = common.Node{ID: id}
		}
		path.Nodes = append(path.Nodes, n)
	}
	return path, nil
}

// Subgraph expands breadth first around center up to depth hops and returns
// the reached nodes (at most limit) with every edge between them.
func Subgraph(ctx context.Context, r store.GraphReader, center string, depth, limit int) (common.Graph, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	depth = min(depth, MaxDepth)
	if limit <= 0 {
		limit = DefaultSubgraphCap
	}

	c, err := r.GetNode(ctx, center)
	if err != nil {
		return common.Graph{}, err
	}
	ids, edges, err := expandUndirected(ctx, r, center, depth, limit)
	if err != nil {
		return common.Graph{}, err
	}
	nodes, err := r.GetNodes(ctx, ids)
	if err != nil {
		return common.Graph{}, err
	}

	g := common.Graph{Nodes: []common.Node{c}, Edges: []common.Edge{}}
	keep := map[string]bool{center: true}
	for _, n := range nodes {
		if n.ID == center {
			continue
		}
		keep[n.ID] = true
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range edges {
		if keep[e.Source] && keep[e.Target] {
			g.Edges = append(g.Edges, e)
		}
	}
	return g, nil
}

// expandUndirected walks up to depth hops from center, stopping once limit
// nodes are reached. It returns the reached ids in discovery order and the
// edges seen.
func expandUndirected(ctx context.Context, r store.GraphReader, center string, depth, limit int) ([]string, []common.Edge, error) {
	ids := []string{center}
	seen := map[string]bool{center: true}
	seenEdge := map[string]bool{}
	var edges []common.Edge
	frontier := []string{center}
	for hop := 0; hop < depth && len(frontier) > 0 && len(ids) < limit; hop++ {
		hopEdges, err := r.Neighbors(ctx, frontier)
		if err != nil {
			return nil, nil, err
		}
		var next []string
		for _, e := range hopEdges {
			if seenEdge[e.ID] {
				continue
			}
			seenEdge[e.ID] = true
			edges = append(edges, e)
			for _, id := range [2]string{e.Source, e.Target} {
				if seen[id] || len(ids) >= limit {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
				next = append(next, id)
			}
		}
		frontier = next
	}
	return ids, edges, nil
}

// HopPath is one multi-hop path through the graph, listed node by node.
type HopPath struct {
	NodeIDs           []string          `json:"node_ids"`
	NodeLabels        []string          `json:"node_labels"`
	NodeTypes         []common.NodeType `json:"node_types"`
	RelationshipTypes []common.EdgeType `json:"relationship_types"`
	Length            int               `json:"path_length"`
	DistinctTypes     int               `json:"distinct_types"`
}

const (
	multiHopNodeCap  = 500
	multiHopStepCap  = 200_000
	multiHopMinTypes = 3
)

// MultiHopPaths enumerates simple paths of minHops to maxHops edges starting
// at id that touch at least three node types. Paths crossing more types come
// first, then shorter ones. The search is bounded to the first few hundred
// nodes around id.
func MultiHopPaths(ctx context.Context, r store.GraphReader, id string, minHops, maxHops, limit int) ([]HopPath, error) {
	if minHops <= 0 {
		minHops = 3
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	maxHops = min(maxHops, DefaultMaxHops)
	minHops = min(minHops, maxHops)
	if limit <= 0 {
		limit = 20
	}

	if _, err := r.GetNode(ctx, id); err != nil {
		return nil, err
	}
	ids, edges, err := expandUndirected(ctx, r, id, maxHops, multiHopNodeCap)
	if err != nil {
		return nil, err
	}
	nodes, err := r.GetNodes(ctx, ids)
	if err != nil {
		return nil, err
	}
	v := store.NewView(nodes, edges)

	adj := make(map[string][]common.Edge)
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e)
		adj[e.Target] = append(adj[e.Target], e)
	}

	var (
		out    []HopPath
		path   = []string{id}
		rels   []common.EdgeType
		onPath = map[string]bool{id: true}
		steps  int
		walk   func(cur string)
	)
	walk = func(cur string) {
		if steps >= multiHopStepCap {
			return
		}
		steps++
		if len(rels) >= minHops {
			if hp := hopPath(v, path, rels); hp.DistinctTypes >= multiHopMinTypes {
				out = append(out, hp)
			}
		}
		if len(rels) == maxHops {
			return
		}
		for _, e := range adj[cur] {
			next := e.Other(cur)
			if onPath[next] {
				continue
			}
			onPath[next] = true
			path = append(path, next)
			rels = append(rels, e.Type)
			walk(next)
			path = path[:len(path)-1]
			rels = rels[:len(rels)-1]
			onPath[next] = false
		}
	}
	walk(id)

	slices.SortStableFunc(out, func(a, b HopPath) int {
		if c := cmp.Compare(b.DistinctTypes, a.DistinctTypes); c != 0 {
			return c
		}
		return cmp.Compare(a.Length, b.Length)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []HopPath{}
	}
	return out, nil
}

func hopPath(v *store.View, ids []string, rels []common.EdgeType) HopPath {
	hp := HopPath{
		NodeIDs:           slices.Clone(ids),
		RelationshipTypes: slices.Clone(rels),
		Length:            len(rels),
	}
	types := make(map[common.NodeType]bool)
	for _, id := range ids {
		n, ok := v.Node(id)
		if !ok {
			n.Type, _, _ = common.ParseNodeID(id)
		}
		hp.NodeLabels = append(hp.NodeLabels, v.Name(id))
		hp.NodeTypes = append(hp.NodeTypes, n.Type)
		if n.Type != "" {
			types[n.Type] = true
		}
	}
	hp.DistinctTypes = len(types)
	return hp
}

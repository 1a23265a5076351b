package store

import (
	"context"
	"slices"
	"sync"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"

	"golang.org/x/sync/errgroup"
)

// View is an in-memory index over the part of the graph one operation needs.
// It is built per call and dropped when the call returns.
type View struct {
	nodes map[string]common.Node
	types map[common.NodeType][]string
	edges map[common.EdgeType][]common.Edge
	out   map[common.EdgeType]map[string][]common.Edge
	in    map[common.EdgeType]map[string][]common.Edge
}

// LoadView fetches the given node and edge types concurrently and indexes them.
func LoadView(ctx context.Context, r GraphReader, nodeTypes []common.NodeType, edgeTypes []common.EdgeType) (*View, error) {
	v := &View{
		nodes: make(map[string]common.Node),
		types: make(map[common.NodeType][]string),
		edges: make(map[common.EdgeType][]common.Edge),
		out:   make(map[common.EdgeType]map[string][]common.Edge),
		in:    make(map[common.EdgeType]map[string][]common.Edge),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, nt := range nodeTypes {
		g.Go(func() error {
			nodes, err := r.NodesByType(gctx, nt)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			v.addNodes(nodes)
			return nil
		})
	}
	for _, et := range edgeTypes {
		g.Go(func() error {
			edges, err := r.EdgesByType(gctx, et)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			v.addEdges(et, edges)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return v, nil
}

// NewView indexes already fetched nodes and edges.
func NewView(nodes []common.Node, edges []common.Edge) *View {
	v := &View{
		nodes: make(map[string]common.Node),
		types: make(map[common.NodeType][]string),
		edges: make(map[common.EdgeType][]common.Edge),
		out:   make(map[common.EdgeType]map[string][]common.Edge),
		in:    make(map[common.EdgeType]map[string][]common.Edge),
	}
	v.addNodes(nodes)
	byType := make(map[common.EdgeType][]common.Edge)
	for _, e := range edges {
		byType[e.Type] = append(byType[e.Type], e)
	}
	for t, es := range byType {
		v.addEdges(t, es)
	}
	return v
}

func (v *View) addNodes(nodes []common.Node) {
	for _, n := range nodes {
		if _, ok := v.nodes[n.ID]; !ok {
			v.types[n.Type] = append(v.types[n.Type], n.ID)
		}
		v.nodes[n.ID] = n
	}
	for t := range v.types {
		slices.Sort(v.types[t])
	}
}

func (v *View) addEdges(t common.EdgeType, edges []common.Edge) {
	if v.out[t] == nil {
		v.out[t] = make(map[string][]common.Edge)
		v.in[t] = make(map[string][]common.Edge)
	}
	for _, e := range edges {
		v.edges[t] = append(v.edges[t], e)
		v.out[t][e.Source] = append(v.out[t][e.Source], e)
		v.in[t][e.Target] = append(v.in[t][e.Target], e)
	}
}

func (v *View) Node(id string) (common.Node, bool) {
	n, ok := v.nodes[id]
	return n, ok
}

// Name returns the node label, or the id when the node is not loaded.
func (v *View) Name(id string) string {
	if n, ok := v.nodes[id]; ok {
		return n.Label()
	}
	return id
}

// Props returns the node properties, nil when the node is not loaded.
func (v *View) Props(id string) common.Properties {
	return v.nodes[id].Properties
}

// NodesOf returns the loaded nodes of type t ordered by id.
func (v *View) NodesOf(t common.NodeType) []common.Node {
	ids := v.types[t]
	out := make([]common.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, v.nodes[id])
	}
	return out
}

func (v *View) EdgesOf(t common.EdgeType) []common.Edge {
	return v.edges[t]
}

func (v *View) Out(t common.EdgeType, id string) []common.Edge {
	return v.out[t][id]
}

func (v *View) In(t common.EdgeType, id string) []common.Edge {
	return v.in[t][id]
}

// Both returns edges of type t touching id in either direction.
func (v *View) Both(t common.EdgeType, id string) []common.Edge {
	out := v.out[t][id]
	in := v.in[t][id]
	all := make([]common.Edge, 0, len(out)+len(in))
	all = append(all, out...)
	return append(all, in...)
}

// Connected reports whether an edge of type t joins a and b in either direction.
func (v *View) Connected(t common.EdgeType, a, b string) bool {
	for _, e := range v.out[t][a] {
		if e.Target == b {
			return true
		}
	}
	for _, e := range v.out[t][b] {
		if e.Target == a {
			return true
		}
	}
	return false
}

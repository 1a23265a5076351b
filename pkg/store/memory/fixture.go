package memory

import (
	"context"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// Fixture collects nodes and edges for a small hand-built graph, mainly in
// tests of the detectors, analytics and HTTP handlers.
type Fixture struct {
	Nodes []common.Node
	Edges []common.Edge
}

// Node adds a node and returns its id. A "name" property defaults to key.
func (f *Fixture) Node(t common.NodeType, key string, props common.Properties) string {
	p := props.Clone()
	if _, ok := p["name"]; !ok && t != common.NodeContract {
		p["name"] = key
	}
	id := common.NodeID(t, key)
	f.Nodes = append(f.Nodes, common.Node{ID: id, Type: t, Properties: p})
	return id
}

func (f *Fixture) Edge(t common.EdgeType, source, target string, props common.Properties) {
	f.Edges = append(f.Edges, common.Edge{
		ID:         common.EdgeID(t, source, target),
		Type:       t,
		Source:     source,
		Target:     target,
		Properties: props.Clone(),
	})
}

// Contract adds a contract procured by agency and awarded to contractor.
// Either side may be empty.
func (f *Fixture) Contract(agency, contractor, ref string, amount float64, date string, extra common.Properties) string {
	p := extra.Clone()
	p["reference_number"] = ref
	p["amount"] = amount
	if date != "" {
		p["award_date"] = date
	}
	id := f.Node(common.NodeContract, ref, p)
	if agency != "" {
		f.Edge(common.EdgeProcured, agency, id, nil)
	}
	if contractor != "" {
		f.Edge(common.EdgeAwardedTo, id, contractor, nil)
	}
	return id
}

// Store loads the fixture into a new in-memory store.
func (f *Fixture) Store() *Store {
	s := New()
	ctx := context.Background()
	_ = s.UpsertNodes(ctx, f.Nodes)
	_ = s.UpsertEdges(ctx, f.Edges)
	return s
}

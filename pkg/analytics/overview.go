package analytics

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

type DateRange struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

type GraphStats struct {
	TotalNodes         int                     `json:"total_nodes"`
	TotalEdges         int                     `json:"total_edges"`
	NodeCounts         map[common.NodeType]int `json:"node_counts"`
	EdgeCounts         map[common.EdgeType]int `json:"edge_counts"`
	TotalContractValue float64                 `json:"total_contract_value"`
	DateRange          DateRange               `json:"date_range"`
}

// Stats reports node and edge counts per type, the total contract value and
// the span of award dates.
func Stats(ctx context.Context, r store.GraphReader) (GraphStats, error) {
	counts, err := r.Counts(ctx)
	if err != nil {
		return GraphStats{}, err
	}
	contracts, err := r.NodesByType(ctx, common.NodeContract)
	if err != nil {
		return GraphStats{}, err
	}

	s := GraphStats{
		NodeCounts: make(map[common.NodeType]int, len(common.NodeTypes)),
		EdgeCounts: make(map[common.EdgeType]int, len(common.EdgeTypes)),
	}
	for _, t := range common.NodeTypes {
		s.NodeCounts[t] = counts.Nodes[t]
		s.TotalNodes += counts.Nodes[t]
	}
	for _, t := range common.EdgeTypes {
		s.EdgeCounts[t] = counts.Edges[t]
		s.TotalEdges += counts.Edges[t]
	}

	var first, last time.Time
	for _, c := range contracts {
		s.TotalContractValue += c.Properties.FloatOr("amount", 0)
		d, ok := c.Properties.Time("award_date")
		if !ok {
			continue
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	if !first.IsZero() {
		lo, hi := first.Format(time.DateOnly), last.Format(time.DateOnly)
		s.DateRange = DateRange{Min: &lo, Max: &hi}
	}
	return s, nil
}

const neighborLimit = 50

type NodeDetailResult struct {
	Node          common.Node             `json:"node"`
	Neighbors     []common.Node           `json:"neighbors"`
	Edges         []common.Edge           `json:"edges"`
	NeighborTypes map[common.NodeType]int `json:"neighbor_types"`
	Stats         map[string]any          `json:"stats"`
}

// NodeDetail returns a node with up to 50 neighbors and a few type-specific
// totals. A missing node yields common.ErrNotFound.
func NodeDetail(ctx context.Context, r store.GraphReader, id string) (NodeDetailResult, error) {
	n, err := r.GetNode(ctx, id)
	if err != nil {
		return NodeDetailResult{}, err
	}
	edges, err := r.Neighbors(ctx, []string{id})
	if err != nil {
		return NodeDetailResult{}, err
	}

	var others []string
	for _, e := range edges {
		others = append(others, e.Other(id))
	}
	others = store.DedupeStrings(others)
	if len(others) > neighborLimit {
		others = others[:neighborLimit]
	}
	neighbors, err := r.GetNodes(ctx, others)
	if err != nil {
		return NodeDetailResult{}, err
	}
	slices.SortFunc(neighbors, func(a, b common.Node) int { return cmp.Compare(a.ID, b.ID) })

	res := NodeDetailResult{
		Node:          n,
		Neighbors:     neighbors,
		Edges:         []common.Edge{},
		NeighborTypes: make(map[common.NodeType]int),
		Stats:         make(map[string]any),
	}
	keep := make(map[string]bool, len(neighbors))
	for _, nb := range neighbors {
		keep[nb.ID] = true
		res.NeighborTypes[nb.Type]++
	}
	for _, e := range edges {
		if keep[e.Other(id)] {
			res.Edges = append(res.Edges, e)
		}
	}

	// related holds the awarded or procured contracts, or the governed
	// municipalities of a politician.
	var related []string
	for _, e := range edges {
		switch {
		case n.Type == common.NodeContractor && e.Type == common.EdgeAwardedTo && e.Target == id:
			related = append(related, e.Source)
		case n.Type == common.NodeAgency && e.Type == common.EdgeProcured && e.Source == id:
			related = append(related, e.Target)
		case n.Type == common.NodePolitician && e.Type == common.EdgeGoverns && e.Source == id:
			related = append(related, e.Target)
		}
	}
	related = store.DedupeStrings(related)
	switch n.Type {
	case common.NodeContractor, common.NodeAgency:
		nodes, err := r.GetNodes(ctx, related)
		if err != nil {
			return NodeDetailResult{}, err
		}
		var value float64
		for _, c := range nodes {
			value += c.Properties.FloatOr("amount", 0)
		}
		res.Stats["total_contracts"] = len(related)
		res.Stats["total_value"] = value
	case common.NodePolitician:
		res.Stats["municipalities_governed"] = len(related)
	}
	return res, nil
}

// Package analytics holds read-only rollups over the accountability graph:
// concentration indices, contractor profiles, co-bidding communities, path
// and subgraph retrieval and the procurement scans behind the dashboard.
//
// Every function takes its store.GraphReader explicitly and keeps no state
// between calls.
package analytics

import (
	"cmp"
	"context"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const topContractorLimit = 10

// HHI returns the Herfindahl-Hirschman index of values on a [0,1] share
// scale. A zero or negative total yields 0.
func HHI(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return 0
	}
	var hhi float64
	for _, v := range values {
		share := v / total
		hhi += share * share
	}
	return hhi
}

type ContractorShare struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Share     float64 `json:"share"`
	Contracts int     `json:"contracts"`
}

type MethodBreakdown struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Value  float64 `json:"value"`
}

type ConcentrationReport struct {
	AgencyID        string            `json:"agency_id"`
	AgencyName      string            `json:"agency_name"`
	HHI             float64           `json:"hhi"`
	TotalValue      float64           `json:"total_value"`
	ContractCount   int               `json:"contract_count"`
	ContractorCount int               `json:"contractor_count"`
	TopContractors  []ContractorShare `json:"top_contractors"`
	ByMethod        []MethodBreakdown `json:"by_method"`
}

// AgencyConcentration computes the HHI report for one agency. It returns
// common.ErrNotFound when the agency does not exist.
func AgencyConcentration(ctx context.Context, r store.GraphReader, agencyID string) (ConcentrationReport, error) {
	agency, err := r.GetNode(ctx, agencyID)
	if err != nil {
		return ConcentrationReport{}, err
	}
	if agency.Type != common.NodeAgency {
		return ConcentrationReport{}, common.NotFoundf("agency %s", agencyID)
	}
	v, err := expand(ctx, r, []common.Node{agency}, common.EdgeProcured, common.EdgeAwardedTo)
	if err != nil {
		return ConcentrationReport{}, err
	}
	return ConcentrationOf(v, agencyID), nil
}

// ConcentrationOf computes the report from a view holding the agency's
// PROCURED and AWARDED_TO edges and the contract nodes.
func ConcentrationOf(v *store.View, agencyID string) ConcentrationReport {
	rep := ConcentrationReport{AgencyID: agencyID, AgencyName: v.Name(agencyID)}

	byContractor := make(map[string]*ContractorShare)
	byMethod := make(map[string]*MethodBreakdown)
	for _, p := range v.Out(common.EdgeProcured, agencyID) {
		props := v.Props(p.Target)
		amount := props.FloatOr("amount", 0)
		rep.ContractCount++

		method := props.Text("procurement_method")
		if method == "" {
			method = "Unknown"
		}
		m, ok := byMethod[method]
		if !ok {
			m = &MethodBreakdown{Method: method}
			byMethod[method] = m
		}
		m.Count++
		m.Value += amount

		for _, a := range v.Out(common.EdgeAwardedTo, p.Target) {
			c, ok := byContractor[a.Target]
			if !ok {
				c = &ContractorShare{ID: a.Target, Name: v.Name(a.Target)}
				byContractor[a.Target] = c
			}
			c.Value += amount
			c.Contracts++
		}
	}

	shares := make([]ContractorShare, 0, len(byContractor))
	values := make([]float64, 0, len(byContractor))
	for _, c := range byContractor {
		rep.TotalValue += c.Value
		values = append(values, c.Value)
		shares = append(shares, *c)
	}
	rep.HHI = HHI(values)
	rep.ContractorCount = len(shares)
	for i := range shares {
		if rep.TotalValue > 0 {
			shares[i].Share = shares[i].Value / rep.TotalValue
		}
	}
	slices.SortFunc(shares, func(a, b ContractorShare) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(shares) > topContractorLimit {
		shares = shares[:topContractorLimit]
	}
	rep.TopContractors = shares

	rep.ByMethod = make([]MethodBreakdown, 0, len(byMethod))
	for _, m := range byMethod {
		rep.ByMethod = append(rep.ByMethod, *m)
	}
	slices.SortFunc(rep.ByMethod, func(a, b MethodBreakdown) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	return rep
}

// expand loads the nodes reachable from seeds by following edgeTypes in
// order, one hop per type, and indexes everything touched.
func expand(ctx context.Context, r store.GraphReader, seeds []common.Node, edgeTypes ...common.EdgeType) (*store.View, error) {
	nodes := append([]common.Node(nil), seeds...)
	var edges []common.Edge
	frontier := make([]string, 0, len(seeds))
	for _, n := range seeds {
		frontier = append(frontier, n.ID)
	}
	for _, et := range edgeTypes {
		if len(frontier) == 0 {
			break
		}
		hop, err := r.Neighbors(ctx, frontier, et)
		if err != nil {
			return nil, err
		}
		in := make(map[string]bool, len(frontier))
		for _, id := range frontier {
			in[id] = true
		}
		var next []string
		for _, e := range hop {
			if !in[e.Source] {
				continue
			}
			edges = append(edges, e)
			next = append(next, e.Target)
		}
		next = store.DedupeStrings(next)
		loaded, err := r.GetNodes(ctx, next)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, loaded...)
		frontier = next
	}
	return store.NewView(nodes, edges), nil
}

package detect

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// RotatingWinners flags co-bidding pairs with at least RotationMinCoBids
// shared contracts where each side won a contract the other bid on and did
// not also win, so a rotation always spans two distinct contracts.
func RotatingWinners(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor},
		[]common.EdgeType{common.EdgeCoBidWith, common.EdgeAwardedTo, common.EdgeBidOn})
	if err != nil {
		return nil, err
	}

	winsOver := func(winner, other string) []string {
		var out []string
		for _, cid := range awardsOf(v, winner) {
			if v.Connected(common.EdgeBidOn, other, cid) && !v.Connected(common.EdgeAwardedTo, cid, other) {
				out = append(out, cid)
			}
		}
		return out
	}

	seen := make(map[[2]string]bool)
	var found []RotatingWinnersEvidence
	for _, e := range v.EdgesOf(common.EdgeCoBidWith) {
		a, b := e.Source, e.Target
		if a == b {
			continue
		}
		if b < a {
			a, b = b, a
		}
		if seen[[2]string{a, b}] {
			continue
		}
		seen[[2]string{a, b}] = true

		count, _ := e.Properties.Int("contract_count")
		if count < p.RotationMinCoBids {
			continue
		}
		wins1, wins2 := winsOver(a, b), winsOver(b, a)
		if len(wins1) == 0 || len(wins2) == 0 {
			continue
		}
		found = append(found, RotatingWinnersEvidence{
			Contractor1ID: a,
			Contractor1:   v.Name(a),
			Contractor2ID: b,
			Contractor2:   v.Name(b),
			CoBidCount:    count,
			Wins1:         wins1,
			Wins2:         wins2,
		})
	}
	slices.SortStableFunc(found, func(x, y RotatingWinnersEvidence) int {
		if c := cmp.Compare(y.CoBidCount, x.CoBidCount); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Contractor1ID, y.Contractor1ID); c != 0 {
			return c
		}
		return cmp.Compare(x.Contractor2ID, y.Contractor2ID)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "rotating_winners", common.SeverityHigh,
			fmt.Sprintf("%s and %s co-bid on %d contracts, alternating wins (%d vs %d)",
				ev.Contractor1, ev.Contractor2, ev.CoBidCount, len(ev.Wins1), len(ev.Wins2)), ev))
	}
	return flags, nil
}

// CircularFlow flags every elementary SUBCONTRACTED_TO cycle of length 2 to
// MaxCycleLength.
func CircularFlow(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	edges, err := r.EdgesByType(ctx, common.EdgeSubcontractedTo)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}

	adj := make(map[string][]string)
	amount := make(map[[2]string]float64)
	var ids []string
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		amount[[2]string{e.Source, e.Target}] += e.Properties.FloatOr("amount", 0)
		ids = append(ids, e.Source, e.Target)
	}
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return nil, err
	}
	v := store.NewView(nodes, edges)

	cycles := analytics.FindCycles(adj, p.MaxCycleLength, p.MaxCycles)
	flags := make([]common.RedFlag, 0, len(cycles))
	for _, cycle := range cycles {
		ev := CircularFlowEvidence{}
		names := make([]string, 0, len(cycle)+1)
		for i, id := range cycle {
			next := cycle[(i+1)%len(cycle)]
			ev.Cycle = append(ev.Cycle, contractor(id, v.Name(id)))
			ev.Amounts = append(ev.Amounts, amount[[2]string{id, next}])
			names = append(names, v.Name(id))
		}
		names = append(names, v.Name(cycle[0]))
		flags = append(flags, newFlag(p, "circular_flow", common.SeverityCritical,
			"Circular subcontracting detected: "+strings.Join(names, " → "), ev))
	}
	return flags, nil
}

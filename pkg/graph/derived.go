package graph

import (
	"context"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/derive"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// maxSharedGroup skips address or director groups larger than this. Such
// groups are registry placeholders ("N/A", a law firm) rather than links.
const maxSharedGroup = 50

// coBidEdges derives CO_BID_WITH from the bid rows of this batch.
func (b *builder) coBidEdges(records []common.Record) {
	rows := make([]common.Record, 0, len(records))
	for _, r := range records {
		name := r.Text("contractor_name")
		if c, ok := b.canonical[name]; ok {
			name = c
		}
		rows = append(rows, common.Record{
			"reference_number": r.Text("reference_number"),
			"contractor_name":  contractorKey(name),
		})
	}

	pairs, _ := derive.CoBidding(rows, derive.DefaultCoBidOptions())
	for _, p := range pairs {
		b.undirected(common.EdgeCoBidWith,
			common.NodeID(common.NodeContractor, p.A),
			common.NodeID(common.NodeContractor, p.B),
			common.Properties{"contract_count": p.ContractCount, "win_pattern": p.Pattern},
		)
	}
}

// sharedAttributeEdges derives SAME_ADDRESS_AS and SHARES_DIRECTOR_WITH over
// every known contractor, so links to contractors of earlier runs are found.
func (b *builder) sharedAttributeEdges(ctx context.Context, r store.GraphReader) error {
	stored, err := r.NodesByType(ctx, common.NodeContractor)
	if err != nil {
		return err
	}
	owned, err := r.EdgesByType(ctx, common.EdgeOwnedBy)
	if err != nil {
		return err
	}

	var batchContractors []common.Node
	for _, n := range b.nodes {
		if n.Type == common.NodeContractor {
			batchContractors = append(batchContractors, n)
		}
	}
	contractors := store.MergeNodes(append(stored, batchContractors...))

	byAddress := make(map[string][]string)
	for _, c := range contractors {
		addr := c.Properties.Text("normalized_address")
		if addr == "" {
			addr = normalize.Address(c.Properties.Text("address"))
		}
		if addr != "" {
			byAddress[addr] = append(byAddress[addr], c.ID)
		}
	}
	for addr, ids := range byAddress {
		b.pairs(common.EdgeSameAddressAs, ids, func(x, y string) common.Properties {
			return common.Properties{"address": addr}
		})
	}

	directorsOf := make(map[string][]string)
	byDirector := make(map[string][]string)
	for _, e := range append(owned, b.edgesOf(common.EdgeOwnedBy)...) {
		if slices.Contains(directorsOf[e.Source], e.Target) {
			continue
		}
		directorsOf[e.Source] = append(directorsOf[e.Source], e.Target)
		byDirector[e.Target] = append(byDirector[e.Target], e.Source)
	}

	shared := make(map[[2]string][]string)
	for person, ids := range byDirector {
		ids = store.DedupeStrings(ids)
		if len(ids) < 2 || len(ids) > maxSharedGroup {
			continue
		}
		slices.Sort(ids)
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				k := [2]string{ids[i], ids[j]}
				shared[k] = append(shared[k], person)
			}
		}
	}
	for pair, people := range shared {
		slices.Sort(people)
		names := make([]string, len(people))
		for i, p := range people {
			_, names[i], _ = common.ParseNodeID(p)
		}
		b.undirected(common.EdgeSharesDirectorWith, pair[0], pair[1], common.Properties{
			"shared_directors": names,
			"director_count":   len(names),
		})
	}

	logger.Debug("[Graph] Derived shared attribute links",
		"same_address", b.derived[common.EdgeSameAddressAs],
		"shared_director", b.derived[common.EdgeSharesDirectorWith],
	)
	return nil
}

// pairs links every unordered pair of a group.
func (b *builder) pairs(t common.EdgeType, ids []string, props func(x, y string) common.Properties) {
	ids = store.DedupeStrings(ids)
	if len(ids) < 2 || len(ids) > maxSharedGroup {
		return
	}
	slices.Sort(ids)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			b.undirected(t, ids[i], ids[j], props(ids[i], ids[j]))
		}
	}
}

func (b *builder) edgesOf(t common.EdgeType) []common.Edge {
	var out []common.Edge
	for _, e := range b.edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

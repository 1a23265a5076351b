package store

import (
	"cmp"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// DefaultBatchSize bounds the rows sent per upsert statement.
const DefaultBatchSize = 1000

// ChunkRange calls fn for consecutive [start, end) windows of at most chunkSize.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MergeNodes folds repeated nodes of one batch into a single node per id,
// later properties winning. Output keeps first-seen order.
func MergeNodes(nodes []common.Node) []common.Node {
	index := make(map[string]int, len(nodes))
	out := make([]common.Node, 0, len(nodes))
	for _, n := range nodes {
		if i, ok := index[n.ID]; ok {
			for k, v := range n.Properties {
				out[i].Properties[k] = v
			}
			continue
		}
		n.Properties = n.Properties.Clone()
		index[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}

// MergeEdges folds repeated edges of one batch into one edge per id.
func MergeEdges(edges []common.Edge) []common.Edge {
	index := make(map[string]int, len(edges))
	out := make([]common.Edge, 0, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			e.ID = common.EdgeID(e.Type, e.Source, e.Target)
		}
		if i, ok := index[e.ID]; ok {
			for k, v := range e.Properties {
				out[i].Properties[k] = v
			}
			continue
		}
		e.Properties = e.Properties.Clone()
		index[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

// GroupFlags rolls stored flags up per entity, filtering by severity and
// ordering by risk score (then id). limit <= 0 keeps everything.
func GroupFlags(flags []StoredFlag, severity common.Severity, limit int) []common.FlaggedEntity {
	index := make(map[string]int)
	var out []common.FlaggedEntity
	for _, f := range flags {
		if severity != "" && f.Flag.Severity != severity {
			continue
		}
		i, ok := index[f.Entity.ID]
		if !ok {
			i = len(out)
			index[f.Entity.ID] = i
			out = append(out, common.FlaggedEntity{
				EntityID:   f.Entity.ID,
				EntityName: f.Entity.Name,
				EntityType: f.Entity.Type,
			})
		}
		out[i].Flags = append(out[i].Flags, f.Flag)
		out[i].RiskScore += f.Flag.Severity.Weight()
	}
	slices.SortStableFunc(out, func(a, b common.FlaggedEntity) int {
		if c := cmp.Compare(b.RiskScore, a.RiskScore); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

package resolve

import (
	"cmp"
	"context"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"

	"golang.org/x/sync/errgroup"
)

// BuildMergeMap maps every absorbed raw name of the auto-merged decisions to
// its canonical name. Decisions are unioned transitively, so chains
// (a~b, b~c) collapse onto a single canonical: the longest raw name of the
// component, ties going to the lexically smaller.
func BuildMergeMap(decisions []MergeDecision) map[string]string {
	mergeMap := make(map[string]string)
	var auto [][2]string
	for _, d := range decisions {
		if d.Classification == AutoMerge {
			auto = append(auto, [2]string{d.Name1, d.Name2})
		}
	}

	for _, group := range connectedComponents(auto) {
		canonical := group[0]
		for _, name := range group[1:] {
			canonical = Canonical(canonical, name)
		}
		for _, name := range group {
			if name != canonical {
				mergeMap[name] = canonical
			}
		}
	}
	return mergeMap
}

// connectedComponents groups names that are transitively paired, using
// union-find. Groups and their members are sorted for stable output.
func connectedComponents(pairs [][2]string) [][]string {
	parent := make(map[string]string)

	var find func(x string) string
	find = func(x string) string {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	union := func(x, y string) {
		px, py := find(x), find(y)
		if px != py {
			parent[px] = py
		}
	}

	for _, p := range pairs {
		union(p[0], p[1])
	}

	components := make(map[string][]string)
	for name := range parent {
		root := find(name)
		components[root] = append(components[root], name)
	}

	result := make([][]string, 0, len(components))
	for _, group := range components {
		if len(group) > 1 {
			slices.Sort(group)
			result = append(result, group)
		}
	}
	slices.SortFunc(result, func(a, b []string) int {
		return cmp.Compare(a[0], b[0])
	})
	return result
}

// ApplyMergeMap returns records with the name field rewritten to its
// canonical value. Rewritten records are copies carrying the raw name in
// original_name; untouched records are returned as is.
func ApplyMergeMap(records []common.Record, mergeMap map[string]string, nameField string) []common.Record {
	out := make([]common.Record, len(records))
	for i, r := range records {
		name := r.Text(nameField)
		canonical, ok := mergeMap[name]
		if !ok || canonical == name {
			out[i] = r
			continue
		}
		c := r.Clone()
		c["original_name"] = name
		c[nameField] = canonical
		out[i] = c
	}
	return out
}

type DedupeStats struct {
	Duplicates int `json:"duplicates"`
	MissingKey int `json:"missing_key"`
}

// Deduplicate keeps the first record for every non-empty value of keyField.
// Records without the key cannot be deduplicated and are dropped.
func Deduplicate(records []common.Record, keyField string) ([]common.Record, DedupeStats) {
	var stats DedupeStats
	seen := make(map[string]bool, len(records))
	unique := make([]common.Record, 0, len(records))
	for _, r := range records {
		key := r.Text(keyField)
		if key == "" {
			stats.MissingKey++
			continue
		}
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique, stats
}

// ResolveBatches resolves independent batches concurrently, at most limit at
// a time. Each batch is resolved on its own; names are never compared across
// batches.
func ResolveBatches(ctx context.Context, batches [][]common.Record, opts Options, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 1
	}
	results := make([]Result, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Resolve(batch, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

package analytics

import (
	"slices"
)

// FindCycles enumerates elementary directed cycles of length 2..maxLen in
// adj. Each cycle is reported once, rotated to start at its smallest id.
// Enumeration stops after limit cycles when limit > 0.
func FindCycles(adj map[string][]string, maxLen, limit int) [][]string {
	if maxLen < 2 {
		return nil
	}
	starts := make([]string, 0, len(adj))
	for id := range adj {
		starts = append(starts, id)
	}
	slices.Sort(starts)

	var (
		out    [][]string
		path   []string
		onPath = make(map[string]bool)
		visit  func(start, id string) bool
	)
	visit = func(start, id string) bool {
		next := slices.Clone(adj[id])
		slices.Sort(next)
		for _, n := range slices.Compact(next) {
			if n == start && len(path) >= 2 {
				out = append(out, slices.Clone(path))
				if limit > 0 && len(out) >= limit {
					return false
				}
				continue
			}
			// Only nodes ordered after start, so each cycle is found from
			// its smallest member exactly once.
			if n <= start || onPath[n] || len(path) >= maxLen {
				continue
			}
			path = append(path, n)
			onPath[n] = true
			ok := visit(start, n)
			onPath[n] = false
			path = path[:len(path)-1]
			if !ok {
				return false
			}
		}
		return true
	}

	for _, s := range starts {
		path = append(path[:0], s)
		onPath[s] = true
		ok := visit(s, s)
		onPath[s] = false
		if !ok {
			break
		}
	}
	return out
}

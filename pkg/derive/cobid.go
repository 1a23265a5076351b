// Package derive infers edges that emerge only from comparing many
// transactional records: co-bidding pairs and contract-splitting clusters.
package derive

import (
	"cmp"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

const (
	PatternFrequent   = "frequent"
	PatternOccasional = "occasional"
)

type CoBidOptions struct {
	// GroupKey identifies the contract a bid row belongs to.
	GroupKey string
	// PartyKey identifies the bidder.
	PartyKey   string
	MinCount   int
	FrequentAt int
}

func DefaultCoBidOptions() CoBidOptions {
	return CoBidOptions{
		GroupKey:   "reference_number",
		PartyKey:   "contractor_name",
		MinCount:   2,
		FrequentAt: 5,
	}
}

// CoBidEdge is an unordered bidder pair; A sorts before B.
type CoBidEdge struct {
	A             string `json:"contractor_a"`
	B             string `json:"contractor_b"`
	ContractCount int    `json:"contract_count"`
	Pattern       string `json:"pattern"`
}

// Stats counts records rejected as malformed.
type Stats struct {
	Records int `json:"records"`
	Skipped int `json:"skipped"`
}

// CoBidding counts, for every unordered bidder pair, the number of contracts
// both bid on. Each contract contributes its pairs once; counts are summed
// across contracts. Pairs below MinCount are dropped.
func CoBidding(records []common.Record, opts CoBidOptions) ([]CoBidEdge, Stats) {
	d := DefaultCoBidOptions()
	if opts.GroupKey == "" {
		opts.GroupKey = d.GroupKey
	}
	if opts.PartyKey == "" {
		opts.PartyKey = d.PartyKey
	}
	if opts.MinCount < 2 {
		opts.MinCount = d.MinCount
	}
	if opts.FrequentAt <= 0 {
		opts.FrequentAt = d.FrequentAt
	}

	stats := Stats{Records: len(records)}
	bidders := make(map[string]map[string]bool)
	var groups []string
	for _, r := range records {
		ref, party := r.Text(opts.GroupKey), r.Text(opts.PartyKey)
		if ref == "" || party == "" {
			stats.Skipped++
			continue
		}
		if bidders[ref] == nil {
			bidders[ref] = make(map[string]bool)
			groups = append(groups, ref)
		}
		bidders[ref][party] = true
	}

	counts := make(map[[2]string]int)
	for _, ref := range groups {
		parties := make([]string, 0, len(bidders[ref]))
		for p := range bidders[ref] {
			parties = append(parties, p)
		}
		if len(parties) < 2 {
			continue
		}
		slices.Sort(parties)
		for i := 0; i < len(parties); i++ {
			for j := i + 1; j < len(parties); j++ {
				counts[[2]string{parties[i], parties[j]}]++
			}
		}
	}

	edges := make([]CoBidEdge, 0, len(counts))
	for pair, n := range counts {
		if n < opts.MinCount {
			continue
		}
		pattern := PatternOccasional
		if n >= opts.FrequentAt {
			pattern = PatternFrequent
		}
		edges = append(edges, CoBidEdge{A: pair[0], B: pair[1], ContractCount: n, Pattern: pattern})
	}
	slices.SortFunc(edges, func(x, y CoBidEdge) int {
		if c := cmp.Compare(y.ContractCount, x.ContractCount); c != 0 {
			return c
		}
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})

	if stats.Skipped > 0 {
		logger.Warn("[Derive] Skipped bid rows missing contract or bidder", "skipped", stats.Skipped)
	}
	return edges, stats
}

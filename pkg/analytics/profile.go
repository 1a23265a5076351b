package analytics

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// FlagLookup returns the red flags attributed to one entity. detect.EntityFlags
// implements it.
type FlagLookup interface {
	FlagsFor(ctx context.Context, entityID string) ([]common.RedFlag, error)
}

var errNoFlagSource = errors.New("no red flag source configured")

type AgencyStat struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ContractCount int     `json:"contract_count"`
	TotalValue    float64 `json:"total_value"`
}

type CoBidder struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CoBidCount int    `json:"co_bid_count"`
	WinPattern string `json:"win_pattern"`
}

type Profile struct {
	ContractorID       string                           `json:"contractor_id"`
	Name               string                           `json:"name"`
	RegistrationNumber string                           `json:"registration_number,omitempty"`
	Classification     string                           `json:"classification,omitempty"`
	TotalContracts     int                              `json:"total_contracts"`
	TotalValue         float64                          `json:"total_value"`
	TotalBids          int                              `json:"total_bids"`
	WinRate            float64                          `json:"win_rate"`
	Agencies           []AgencyStat                     `json:"agencies"`
	CoBidders          []CoBidder                       `json:"co_bidders"`
	RedFlags           common.Partial[[]common.RedFlag] `json:"red_flags"`
	RiskScore          common.Partial[float64]          `json:"risk_score"`
}

// ContractorProfile summarizes a contractor's awards, bids, agencies and
// co-bidders. Red flags come from flags and are best effort: a failed lookup
// leaves RedFlags unavailable and the rest of the profile intact.
//
// win_rate is wins / (wins + bids that did not win). A contractor with no
// recorded bids has a win rate of 0.
func ContractorProfile(ctx context.Context, r store.GraphReader, contractorID string, flags FlagLookup) (Profile, error) {
	con, err := r.GetNode(ctx, contractorID)
	if err != nil {
		return Profile{}, err
	}
	if con.Type != common.NodeContractor {
		return Profile{}, common.NotFoundf("contractor %s", contractorID)
	}

	edges, err := r.Neighbors(ctx, []string{contractorID}, common.EdgeAwardedTo, common.EdgeBidOn, common.EdgeCoBidWith)
	if err != nil {
		return Profile{}, err
	}
	var won, bid, peers []string
	for _, e := range edges {
		switch {
		case e.Type == common.EdgeAwardedTo && e.Target == contractorID:
			won = append(won, e.Source)
		case e.Type == common.EdgeBidOn && e.Source == contractorID:
			bid = append(bid, e.Target)
		case e.Type == common.EdgeCoBidWith:
			peers = append(peers, e.Other(contractorID))
		}
	}
	won, bid = store.DedupeStrings(won), store.DedupeStrings(bid)

	procured, err := r.Neighbors(ctx, won, common.EdgeProcured)
	if err != nil {
		return Profile{}, err
	}
	ids := append(append(append([]string{}, won...), peers...), sourcesOf(procured)...)
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return Profile{}, err
	}
	v := store.NewView(append(nodes, con), append(edges, procured...))

	p := Profile{
		ContractorID:       con.ID,
		Name:               con.Label(),
		RegistrationNumber: con.Properties.Text("registration_number"),
		Classification:     con.Properties.Text("classification"),
		TotalContracts:     len(won),
		TotalBids:          len(bid),
		Agencies:           []AgencyStat{},
		CoBidders:          []CoBidder{},
	}

	wonSet := make(map[string]bool, len(won))
	byAgency := make(map[string]*AgencyStat)
	for _, cid := range won {
		wonSet[cid] = true
		amount := v.Props(cid).FloatOr("amount", 0)
		p.TotalValue += amount
		for _, pe := range v.In(common.EdgeProcured, cid) {
			a, ok := byAgency[pe.Source]
			if !ok {
				a = &AgencyStat{ID: pe.Source, Name: v.Name(pe.Source)}
				byAgency[pe.Source] = a
			}
			a.ContractCount++
			a.TotalValue += amount
		}
	}
	for _, a := range byAgency {
		p.Agencies = append(p.Agencies, *a)
	}
	slices.SortFunc(p.Agencies, func(a, b AgencyStat) int {
		if c := cmp.Compare(b.TotalValue, a.TotalValue); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(bid) > 0 {
		var lost int
		for _, cid := range bid {
			if !wonSet[cid] {
				lost++
			}
		}
		if p.TotalContracts+lost > 0 {
			p.WinRate = float64(p.TotalContracts) / float64(p.TotalContracts+lost)
		}
	}

	for _, e := range v.Both(common.EdgeCoBidWith, contractorID) {
		other := e.Other(contractorID)
		if other == contractorID {
			continue
		}
		count, _ := e.Properties.Int("contract_count")
		pattern := e.Properties.Text("win_pattern")
		if pattern == "" {
			pattern = "unknown"
		}
		p.CoBidders = append(p.CoBidders, CoBidder{ID: other, Name: v.Name(other), CoBidCount: count, WinPattern: pattern})
	}
	slices.SortFunc(p.CoBidders, func(a, b CoBidder) int {
		if c := cmp.Compare(b.CoBidCount, a.CoBidCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	p.RedFlags, p.RiskScore = flagsOf(ctx, flags, contractorID)
	return p, nil
}

func flagsOf(ctx context.Context, flags FlagLookup, id string) (common.Partial[[]common.RedFlag], common.Partial[float64]) {
	if flags == nil {
		return common.Unavailable[[]common.RedFlag](errNoFlagSource), common.Unavailable[float64](errNoFlagSource)
	}
	found, err := flags.FlagsFor(ctx, id)
	if err != nil {
		logger.Warn("[Analytics] Red flags unavailable", "entity", id, "err", err)
		return common.Unavailable[[]common.RedFlag](err), common.Unavailable[float64](err)
	}
	if found == nil {
		found = []common.RedFlag{}
	}
	return common.Available(found), common.Available(common.RiskScore(found))
}

func sourcesOf(edges []common.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Source)
	}
	return out
}

func targetsOf(edges []common.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Target)
	}
	return out
}

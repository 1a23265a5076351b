package analytics

import (
	"cmp"
	"context"
	"slices"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const (
	DefaultMinConnections = 3
	maxCommunities        = 50
	maxCommunityPeers     = 20
)

type ConnectedEntity struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Relationship common.EdgeType `json:"relationship"`
}

// Community is a contractor at the center of a dense co-bidding or
// shared-director cluster, with its direct peers.
type Community struct {
	CenterID        string            `json:"center_contractor_id"`
	CenterName      string            `json:"center_contractor"`
	ConnectionCount int               `json:"connection_count"`
	Connected       []ConnectedEntity `json:"connected_entities"`
}

// Communities surfaces cluster centers. A contractor qualifies when it has a
// peer whose co-bid count plus shared-director link (counted as 1) reaches
// minConnections, and when it is directly linked to at least minConnections
// distinct contractors by CO_BID_WITH or SHARES_DIRECTOR_WITH.
func Communities(ctx context.Context, r store.GraphReader, minConnections int) ([]Community, error) {
	if minConnections <= 0 {
		minConnections = DefaultMinConnections
	}
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor},
		[]common.EdgeType{common.EdgeCoBidWith, common.EdgeSharesDirectorWith})
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]bool)
	for _, e := range v.EdgesOf(common.EdgeCoBidWith) {
		if e.Source == e.Target {
			continue
		}
		weight, _ := e.Properties.Int("contract_count")
		if weight < minConnections {
			continue
		}
		if v.Connected(common.EdgeSharesDirectorWith, e.Source, e.Target) {
			weight++
		}
		if weight >= minConnections {
			candidates[e.Source] = true
			candidates[e.Target] = true
		}
	}

	out := []Community{}
	for id := range candidates {
		var peers []ConnectedEntity
		seen := make(map[string]bool)
		for _, t := range []common.EdgeType{common.EdgeCoBidWith, common.EdgeSharesDirectorWith} {
			for _, e := range v.Both(t, id) {
				other := e.Other(id)
				if other == id {
					continue
				}
				if n, ok := v.Node(other); ok && n.Type != common.NodeContractor {
					continue
				}
				seen[other] = true
				peers = append(peers, ConnectedEntity{ID: other, Name: v.Name(other), Relationship: t})
			}
		}
		if len(seen) < minConnections {
			continue
		}
		slices.SortFunc(peers, func(a, b ConnectedEntity) int {
			if c := cmp.Compare(a.ID, b.ID); c != 0 {
				return c
			}
			return cmp.Compare(a.Relationship, b.Relationship)
		})
		if len(peers) > maxCommunityPeers {
			peers = peers[:maxCommunityPeers]
		}
		out = append(out, Community{
			CenterID:        id,
			CenterName:      v.Name(id),
			ConnectionCount: len(seen),
			Connected:       peers,
		})
	}
	slices.SortFunc(out, func(a, b Community) int {
		if c := cmp.Compare(b.ConnectionCount, a.ConnectionCount); c != 0 {
			return c
		}
		return cmp.Compare(a.CenterID, b.CenterID)
	})
	if len(out) > maxCommunities {
		out = out[:maxCommunities]
	}
	return out, nil
}

package detect

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// SingleBidder flags contractors holding at least SingleBidderMin awarded
// contracts that drew a single bid.
func SingleBidder(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeAwardedTo})
	if err != nil {
		return nil, err
	}

	var found []SingleBidderEvidence
	for _, con := range v.NodesOf(common.NodeContractor) {
		var contracts []ContractRef
		for _, id := range awardsOf(v, con.ID) {
			if n, ok := bidCount(v.Props(id)); ok && n == 1 {
				contracts = append(contracts, contractRef(v, id))
			}
		}
		if len(contracts) < p.SingleBidderMin {
			continue
		}
		found = append(found, SingleBidderEvidence{
			ContractorID:   con.ID,
			ContractorName: con.Label(),
			SingleBidCount: len(contracts),
			Contracts:      contracts,
		})
	}
	slices.SortStableFunc(found, func(a, b SingleBidderEvidence) int {
		return cmp.Compare(b.SingleBidCount, a.SingleBidCount)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "single_bidder", common.SeverityMedium,
			fmt.Sprintf("%s has %d single-bidder contracts", ev.ContractorName, ev.SingleBidCount), ev))
	}
	return flags, nil
}

// IdenticalBids flags pairs of distinct bidders on one contract whose bids
// differ by less than BidTolerance relative to the smaller bid.
func IdenticalBids(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeBidOn})
	if err != nil {
		return nil, err
	}

	type bid struct {
		bidder string
		amount float64
	}
	var found []IdenticalBidsEvidence
	for _, c := range v.NodesOf(common.NodeContract) {
		var bids []bid
		for _, e := range v.In(common.EdgeBidOn, c.ID) {
			amount, ok := e.Properties.Float("bid_amount")
			if !ok || amount <= 0 {
				continue
			}
			bids = append(bids, bid{e.Source, amount})
		}
		slices.SortFunc(bids, func(a, b bid) int { return cmp.Compare(a.bidder, b.bidder) })

		for i := range bids {
			for j := i + 1; j < len(bids); j++ {
				b1, b2 := bids[i], bids[j]
				if b1.bidder == b2.bidder {
					continue
				}
				deviation := math.Abs(b1.amount-b2.amount) / math.Min(b1.amount, b2.amount)
				if deviation >= p.BidTolerance {
					continue
				}
				ref := contractRef(v, c.ID)
				found = append(found, IdenticalBidsEvidence{
					ContractID:     c.ID,
					ContractRef:    ref.Ref,
					ContractTitle:  c.Properties.Text("title"),
					ContractAmount: ref.Amount,
					Bidder1ID:      b1.bidder,
					Bidder1:        v.Name(b1.bidder),
					Bidder2ID:      b2.bidder,
					Bidder2:        v.Name(b2.bidder),
					Bid1:           b1.amount,
					Bid2:           b2.amount,
					Deviation:      deviation,
				})
			}
		}
	}
	slices.SortStableFunc(found, func(a, b IdenticalBidsEvidence) int {
		return cmp.Compare(a.Deviation, b.Deviation)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "identical_bid_amounts", common.SeverityHigh,
			fmt.Sprintf("Near-identical bids on contract %s: %s (%s) vs %s (%s)",
				ev.ContractRef, ev.Bidder1, common.Peso(ev.Bid1), ev.Bidder2, common.Peso(ev.Bid2)), ev))
	}
	return flags, nil
}

// SplitContracts flags agency and contractor pairs with at least
// SplitMinContracts awards in [SplitBandLow*SplitThreshold, SplitThreshold].
func SplitContracts(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeAgency, common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeProcured, common.EdgeAwardedTo})
	if err != nil {
		return nil, err
	}

	low := p.SplitThreshold * p.SplitBandLow
	var found []SplitContractsEvidence
	for _, agency := range v.NodesOf(common.NodeAgency) {
		byContractor := make(map[string][]ContractRef)
		var order []string
		for _, pe := range v.Out(common.EdgeProcured, agency.ID) {
			amount, ok := v.Props(pe.Target).Float("amount")
			if !ok || amount < low || amount > p.SplitThreshold {
				continue
			}
			for _, a := range v.Out(common.EdgeAwardedTo, pe.Target) {
				if _, seen := byContractor[a.Target]; !seen {
					order = append(order, a.Target)
				}
				byContractor[a.Target] = append(byContractor[a.Target], contractRef(v, pe.Target))
			}
		}
		slices.Sort(order)
		for _, conID := range order {
			contracts := byContractor[conID]
			if len(contracts) < p.SplitMinContracts {
				continue
			}
			var total float64
			for _, c := range contracts {
				total += c.Amount
			}
			found = append(found, SplitContractsEvidence{
				AgencyID:       agency.ID,
				AgencyName:     agency.Label(),
				ContractorID:   conID,
				ContractorName: v.Name(conID),
				NumContracts:   len(contracts),
				TotalValue:     total,
				Threshold:      p.SplitThreshold,
				Contracts:      contracts,
			})
		}
	}
	slices.SortStableFunc(found, func(a, b SplitContractsEvidence) int {
		return cmp.Compare(b.NumContracts, a.NumContracts)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "split_contracts", common.SeverityHigh,
			fmt.Sprintf("%s awarded %d contracts just below the %s threshold to %s (total: %s)",
				ev.AgencyName, ev.NumContracts, common.Peso(ev.Threshold), ev.ContractorName, common.Peso(ev.TotalValue)), ev))
	}
	return flags, nil
}

// Concentration flags agencies whose HHI over awarded value exceeds
// HHIThreshold.
func Concentration(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeAgency, common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeProcured, common.EdgeAwardedTo})
	if err != nil {
		return nil, err
	}

	var found []ConcentrationEvidence
	for _, agency := range v.NodesOf(common.NodeAgency) {
		rep := analytics.ConcentrationOf(v, agency.ID)
		if rep.TotalValue <= 0 || rep.HHI <= p.HHIThreshold {
			continue
		}
		ev := ConcentrationEvidence{
			AgencyID:   agency.ID,
			AgencyName: rep.AgencyName,
			HHI:        rep.HHI,
			TotalValue: rep.TotalValue,
		}
		for _, c := range rep.TopContractors[:min(5, len(rep.TopContractors))] {
			ev.TopContractors = append(ev.TopContractors, ShareEntry{ID: c.ID, Name: c.Name, Value: c.Value, Share: c.Share})
		}
		found = append(found, ev)
	}
	slices.SortStableFunc(found, func(a, b ConcentrationEvidence) int {
		return cmp.Compare(b.HHI, a.HHI)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		top := ev.TopContractors[0]
		flags = append(flags, newFlag(p, "concentration", common.SeverityHigh,
			fmt.Sprintf("%s has HHI of %.3f (threshold: %g). Top contractor: %s (%s share)",
				ev.AgencyName, ev.HHI, p.HHIThreshold, top.Name, common.Percent(top.Share)), ev))
	}
	return flags, nil
}

// TimingCluster flags runs of at least TimingMinContracts awards from one
// agency to one contractor that fall within TimingDays of the first award
// in the run. Runs do not overlap.
func TimingCluster(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeAgency, common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeProcured, common.EdgeAwardedTo})
	if err != nil {
		return nil, err
	}

	type dated struct {
		ref  ContractRef
		date time.Time
	}
	window := time.Duration(p.TimingDays) * 24 * time.Hour
	var found []TimingClusterEvidence
	for _, agency := range v.NodesOf(common.NodeAgency) {
		byContractor := make(map[string][]dated)
		for _, pe := range v.Out(common.EdgeProcured, agency.ID) {
			date, ok := v.Props(pe.Target).Time("award_date")
			if !ok {
				continue
			}
			for _, a := range v.Out(common.EdgeAwardedTo, pe.Target) {
				byContractor[a.Target] = append(byContractor[a.Target], dated{contractRef(v, pe.Target), date})
			}
		}
		ids := make([]string, 0, len(byContractor))
		for id := range byContractor {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, conID := range ids {
			contracts := byContractor[conID]
			slices.SortStableFunc(contracts, func(a, b dated) int {
				if c := a.date.Compare(b.date); c != 0 {
					return c
				}
				return cmp.Compare(a.ref.ID, b.ref.ID)
			})
			for i := 0; i < len(contracts); {
				j := i + 1
				for j < len(contracts) && contracts[j].date.Sub(contracts[i].date) <= window {
					j++
				}
				if j-i < p.TimingMinContracts {
					i++
					continue
				}
				ev := TimingClusterEvidence{
					AgencyID:       agency.ID,
					AgencyName:     agency.Label(),
					ContractorID:   conID,
					ContractorName: v.Name(conID),
					WindowDays:     p.TimingDays,
					FirstDate:      contracts[i].date.Format(time.DateOnly),
					LastDate:       contracts[j-1].date.Format(time.DateOnly),
				}
				for _, c := range contracts[i:j] {
					ev.Contracts = append(ev.Contracts, c.ref)
				}
				found = append(found, ev)
				i = j
			}
		}
	}

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "timing_cluster", common.SeverityHigh,
			fmt.Sprintf("%s awarded %d contracts to %s within %d days",
				ev.AgencyName, len(ev.Contracts), ev.ContractorName, ev.WindowDays), ev))
	}
	return flags, nil
}

// GeographicAnomaly flags contractors that won at least GeoMinContracts
// contracts from agencies located in a region other than their own.
func GeographicAnomaly(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContract, common.NodeContractor, common.NodeMunicipality},
		[]common.EdgeType{common.EdgeLocatedIn, common.EdgeAwardedTo, common.EdgeProcured, common.EdgeHasAgency})
	if err != nil {
		return nil, err
	}

	agencyRegion := func(agencyID string) string {
		for _, e := range v.In(common.EdgeHasAgency, agencyID) {
			if region := v.Props(e.Source).Text("region"); region != "" {
				return region
			}
		}
		return ""
	}

	var found []GeographicAnomalyEvidence
	for _, con := range v.NodesOf(common.NodeContractor) {
		var home string
		for _, e := range v.Out(common.EdgeLocatedIn, con.ID) {
			if n, ok := v.Node(e.Target); ok && n.Type == common.NodeMunicipality {
				home = e.Target
				break
			}
		}
		homeRegion := v.Props(home).Text("region")
		if home == "" || homeRegion == "" {
			continue
		}

		ev := GeographicAnomalyEvidence{
			ContractorID:     con.ID,
			ContractorName:   con.Label(),
			HomeMunicipality: v.Name(home),
			HomeRegion:       homeRegion,
		}
		regions := make(map[string]bool)
		for _, cid := range awardsOf(v, con.ID) {
			agency := agencyOf(v, cid)
			region := agencyRegion(agency)
			if region == "" || strings.EqualFold(region, homeRegion) {
				continue
			}
			ref := contractRef(v, cid)
			ev.Contracts = append(ev.Contracts, ref)
			ev.ContractsOutsideRegion++
			ev.ValueOutsideRegion += ref.Amount
			if !regions[region] {
				regions[region] = true
				ev.AwardRegions = append(ev.AwardRegions, region)
			}
		}
		if ev.ContractsOutsideRegion < p.GeoMinContracts {
			continue
		}
		slices.Sort(ev.AwardRegions)
		found = append(found, ev)
	}
	slices.SortStableFunc(found, func(a, b GeographicAnomalyEvidence) int {
		return cmp.Compare(b.ContractsOutsideRegion, a.ContractsOutsideRegion)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "geographic_anomaly", common.SeverityMedium,
			fmt.Sprintf("%s (based in %s, %s) won %d contracts in other regions: %s",
				ev.ContractorName, ev.HomeMunicipality, ev.HomeRegion, ev.ContractsOutsideRegion,
				strings.Join(ev.AwardRegions, ", ")), ev))
	}
	return flags, nil
}

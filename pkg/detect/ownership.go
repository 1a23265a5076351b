package detect

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// PoliticalConnections flags contractors owned by a person who is family of
// a politician.
func PoliticalConnections(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor, common.NodePerson, common.NodePolitician},
		[]common.EdgeType{common.EdgeOwnedBy, common.EdgeFamilyOf})
	if err != nil {
		return nil, err
	}

	var flags []common.RedFlag
	for _, con := range v.NodesOf(common.NodeContractor) {
		for _, own := range v.Out(common.EdgeOwnedBy, con.ID) {
			for _, fam := range v.Out(common.EdgeFamilyOf, own.Target) {
				pol, ok := v.Node(fam.Target)
				if !ok || pol.Type != common.NodePolitician {
					continue
				}
				ev := PoliticalConnectionEvidence{
					ContractorID:   con.ID,
					ContractorName: con.Label(),
					PersonID:       own.Target,
					PersonName:     v.Name(own.Target),
					PoliticianID:   pol.ID,
					PoliticianName: pol.Label(),
					Position:       pol.Properties.Text("position"),
					Relation:       fam.Properties.Text("relation"),
				}
				desc := fmt.Sprintf("%s is owned by %s, who is a family member of %s",
					ev.ContractorName, ev.PersonName, ev.PoliticianName)
				if ev.Position != "" {
					desc += " (" + ev.Position + ")"
				}
				flags = append(flags, newFlag(p, "political_connection", common.SeverityHigh, desc, ev))
			}
		}
	}
	return flags, nil
}

// ShellCompany flags contractors whose total awarded value exceeds
// CapitalRatio times their registered capital.
func ShellCompany(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContract, common.NodeContractor},
		[]common.EdgeType{common.EdgeAwardedTo})
	if err != nil {
		return nil, err
	}

	var found []ShellCompanyEvidence
	for _, con := range v.NodesOf(common.NodeContractor) {
		capital, ok := con.Properties.Float("registered_capital")
		if !ok || capital <= 0 {
			continue
		}
		var total float64
		for _, cid := range awardsOf(v, con.ID) {
			total += v.Props(cid).FloatOr("amount", 0)
		}
		if ratio := total / capital; ratio > p.CapitalRatio {
			found = append(found, ShellCompanyEvidence{
				ContractorID:   con.ID,
				ContractorName: con.Label(),
				Capital:        capital,
				TotalAwarded:   total,
				Ratio:          ratio,
			})
		}
	}
	slices.SortStableFunc(found, func(a, b ShellCompanyEvidence) int {
		return cmp.Compare(b.Ratio, a.Ratio)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		flags = append(flags, newFlag(p, "shell_company", common.SeverityHigh,
			fmt.Sprintf("%s has registered capital of %s but won contracts worth %s (%.1fx capital)",
				ev.ContractorName, common.Peso(ev.Capital), common.Peso(ev.TotalAwarded), ev.Ratio), ev))
	}
	return flags, nil
}

// PhoenixCompany flags contractors that are not blacklisted but share a
// director with a blacklisted one. One flag is raised per blacklist entry.
func PhoenixCompany(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor, common.NodeBlacklistEntry},
		[]common.EdgeType{common.EdgeBlacklisted, common.EdgeSharesDirectorWith, common.EdgeSameAddressAs})
	if err != nil {
		return nil, err
	}

	blacklisted := func(id string) bool {
		return len(v.Out(common.EdgeBlacklisted, id)) > 0
	}

	var flags []common.RedFlag
	for _, old := range v.NodesOf(common.NodeContractor) {
		entries := v.Out(common.EdgeBlacklisted, old.ID)
		if len(entries) == 0 {
			continue
		}
		var successors []string
		for _, e := range v.Both(common.EdgeSharesDirectorWith, old.ID) {
			if n := e.Other(old.ID); n != old.ID && !blacklisted(n) {
				successors = append(successors, n)
			}
		}
		successors = store.DedupeStrings(successors)
		slices.Sort(successors)

		for _, entry := range entries {
			props := v.Props(entry.Target)
			var date string
			if t, ok := props.Time("sanction_date"); ok {
				date = t.Format(time.DateOnly)
			}
			for _, n := range successors {
				ev := PhoenixCompanyEvidence{
					NewContractorID:           n,
					NewContractorName:         v.Name(n),
					BlacklistedContractorID:   old.ID,
					BlacklistedContractorName: old.Label(),
					BlacklistEntryID:          entry.Target,
					Offense:                   props.Text("offense"),
					BlacklistDate:             date,
					SharedAddress:             v.Connected(common.EdgeSameAddressAs, old.ID, n),
				}
				shared := "directors"
				if ev.SharedAddress {
					shared = "directors and address"
				}
				desc := fmt.Sprintf("%s shares %s with blacklisted company %s", ev.NewContractorName, shared, ev.BlacklistedContractorName)
				if ev.Offense != "" {
					desc += " (offense: " + ev.Offense + ")"
				}
				flags = append(flags, newFlag(p, "phoenix_company", common.SeverityHigh, desc, ev))
			}
		}
	}
	return flags, nil
}

// CampaignConnection flags contractors that donated to a politician and were
// later awarded contracts by an agency in a municipality that politician
// governs. When both dates are known the award must not precede the donation.
func CampaignConnection(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor, common.NodeCampaignDonation, common.NodePolitician, common.NodeContract},
		[]common.EdgeType{common.EdgeDonatedTo, common.EdgeGoverns, common.EdgeHasAgency, common.EdgeProcured, common.EdgeAwardedTo})
	if err != nil {
		return nil, err
	}

	var flags []common.RedFlag
	for _, con := range v.NodesOf(common.NodeContractor) {
		for _, d := range v.Out(common.EdgeDonatedTo, con.ID) {
			donation, ok := v.Node(d.Target)
			if !ok || donation.Type != common.NodeCampaignDonation {
				continue
			}
			donated, hasDate := donationDate(donation.Properties)

			for _, dp := range v.Out(common.EdgeDonatedTo, donation.ID) {
				pol, ok := v.Node(dp.Target)
				if !ok || pol.Type != common.NodePolitician {
					continue
				}
				ev := CampaignConnectionEvidence{
					ContractorID:   con.ID,
					ContractorName: con.Label(),
					PoliticianID:   pol.ID,
					PoliticianName: pol.Label(),
					DonationID:     donation.ID,
					DonationAmount: donation.Properties.FloatOr("amount", 0),
				}
				if hasDate {
					ev.DonationDate = donated.Format(time.DateOnly)
				}

				seen := make(map[string]bool)
				for _, g := range v.Out(common.EdgeGoverns, pol.ID) {
					for _, ha := range v.Out(common.EdgeHasAgency, g.Target) {
						for _, pr := range v.Out(common.EdgeProcured, ha.Target) {
							if seen[pr.Target] || !v.Connected(common.EdgeAwardedTo, pr.Target, con.ID) {
								continue
							}
							if awarded, ok := v.Props(pr.Target).Time("award_date"); ok && hasDate && awarded.Before(donated) {
								continue
							}
							seen[pr.Target] = true
							ref := contractRef(v, pr.Target)
							ev.Contracts = append(ev.Contracts, ref)
							ev.ContractsWon += ref.Amount
						}
					}
				}
				if len(ev.Contracts) == 0 {
					continue
				}
				slices.SortFunc(ev.Contracts, func(a, b ContractRef) int { return cmp.Compare(a.ID, b.ID) })
				flags = append(flags, newFlag(p, "campaign_connection", common.SeverityHigh,
					fmt.Sprintf("%s donated %s to %s, then won contracts worth %s from their jurisdiction",
						ev.ContractorName, common.Peso(ev.DonationAmount), ev.PoliticianName, common.Peso(ev.ContractsWon)), ev))
			}
		}
	}
	return flags, nil
}

// donationDate reads the donation date, falling back to January 1st of the
// donation year.
func donationDate(props common.Properties) (time.Time, bool) {
	if t, ok := props.Time("date"); ok {
		return t, true
	}
	if y, ok := props.Int("year"); ok && y > 0 {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ShellNetwork flags contractor pairs registered at the same address. Shared
// directors strengthen the description.
func ShellNetwork(ctx context.Context, r store.GraphReader, p Params) ([]common.RedFlag, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor},
		[]common.EdgeType{common.EdgeSameAddressAs, common.EdgeSharesDirectorWith})
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]bool)
	var found []ShellNetworkEvidence
	for _, e := range v.EdgesOf(common.EdgeSameAddressAs) {
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

		address := e.Properties.Text("address")
		if address == "" {
			address = v.Props(a).Text("address")
		}
		found = append(found, ShellNetworkEvidence{
			Contractor1ID:   a,
			Contractor1:     v.Name(a),
			Contractor2ID:   b,
			Contractor2:     v.Name(b),
			Address:         address,
			SharedDirectors: sharedDirectors(v, a, b),
		})
	}
	slices.SortStableFunc(found, func(x, y ShellNetworkEvidence) int {
		if c := cmp.Compare(x.Contractor1ID, y.Contractor1ID); c != 0 {
			return c
		}
		return cmp.Compare(x.Contractor2ID, y.Contractor2ID)
	})

	flags := make([]common.RedFlag, 0, len(found))
	for _, ev := range found {
		desc := fmt.Sprintf("%s and %s share the same address: %s", ev.Contractor1, ev.Contractor2, ev.Address)
		if ev.SharedDirectors > 0 {
			desc += fmt.Sprintf(" and %d director(s)", ev.SharedDirectors)
		}
		flags = append(flags, newFlag(p, "shell_network", common.SeverityHigh, desc, ev))
	}
	return flags, nil
}

// sharedDirectors counts the directors a and b have in common, read from
// the SHARES_DIRECTOR_WITH edge between them.
func sharedDirectors(v *store.View, a, b string) int {
	for _, e := range v.Both(common.EdgeSharesDirectorWith, a) {
		if e.Other(a) != b {
			continue
		}
		if n, ok := e.Properties.Int("director_count"); ok && n > 0 {
			return n
		}
		switch d := e.Properties["shared_directors"].(type) {
		case []string:
			return len(d)
		case []any:
			return len(d)
		}
		return 1
	}
	return 0
}

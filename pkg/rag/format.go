package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

const (
	neighborsShown     = 15
	relationshipsShown = 20
	topShown           = 5
)

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatNode(d analytics.NodeDetailResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s (Type: %s)", d.Node.Label(), d.Node.Type)
	fmt.Fprintf(&b, "\nID: %s", d.Node.ID)
	if props, err := json.Marshal(d.Node.Properties); err == nil {
		fmt.Fprintf(&b, "\nProperties: %s", props)
	}
	if len(d.Stats) > 0 {
		if stats, err := json.Marshal(d.Stats); err == nil {
			fmt.Fprintf(&b, "\nStats: %s", stats)
		}
	}

	if len(d.Neighbors) > 0 {
		names := make([]string, 0, neighborsShown)
		for _, n := range d.Neighbors[:min(neighborsShown, len(d.Neighbors))] {
			names = append(names, fmt.Sprintf("%s (%s)", n.Label(), n.Type))
		}
		fmt.Fprintf(&b, "\nConnected to: %s", strings.Join(names, ", "))
		if extra := len(d.Neighbors) - neighborsShown; extra > 0 {
			fmt.Fprintf(&b, "\n  ... and %d more connections", extra)
		}
	}
	if len(d.Edges) > 0 {
		b.WriteString("\nRelationships:")
		for _, e := range d.Edges[:min(relationshipsShown, len(d.Edges))] {
			fmt.Fprintf(&b, "\n  %s --[%s]--> %s", e.Source, e.Type, e.Target)
		}
	}
	return b.String()
}

func formatConcentration(r analytics.ConcentrationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agency Analytics for %s:", r.AgencyName)
	fmt.Fprintf(&b, "\n  HHI (concentration): %.3f", r.HHI)
	fmt.Fprintf(&b, "\n  Total contracts: %d", r.ContractCount)
	fmt.Fprintf(&b, "\n  Total value: %s", common.Peso(r.TotalValue))
	for _, c := range r.TopContractors[:min(topShown, len(r.TopContractors))] {
		fmt.Fprintf(&b, "\n  - %s: %s share, %s", c.Name, common.Percent(c.Share), common.Peso(c.Value))
	}
	if len(r.ByMethod) > 0 {
		b.WriteString("\n  Procurement methods:")
		for _, m := range r.ByMethod[:min(topShown, len(r.ByMethod))] {
			fmt.Fprintf(&b, "\n    - %s: %d contracts, %s", m.Method, m.Count, common.Peso(m.Value))
		}
	}
	return b.String()
}

func formatProfile(p analytics.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contractor Profile: %s", p.Name)
	fmt.Fprintf(&b, "\n  Total contracts won: %d", p.TotalContracts)
	fmt.Fprintf(&b, "\n  Total value: %s", common.Peso(p.TotalValue))
	fmt.Fprintf(&b, "\n  Win rate: %s", common.Percent(p.WinRate))
	if len(p.Agencies) > 0 {
		fmt.Fprintf(&b, "\n  Works with %d agencies:", len(p.Agencies))
		for _, a := range p.Agencies[:min(topShown, len(p.Agencies))] {
			fmt.Fprintf(&b, "\n    - %s", a.Name)
		}
	}
	if len(p.CoBidders) > 0 {
		fmt.Fprintf(&b, "\n  Co-bidders (%d):", len(p.CoBidders))
		for _, c := range p.CoBidders[:min(topShown, len(p.CoBidders))] {
			fmt.Fprintf(&b, "\n    - %s (%d contracts, %s)", c.Name, c.CoBidCount, c.WinPattern)
		}
	}
	if p.RedFlags.Ok() && len(p.RedFlags.Value) > 0 {
		fmt.Fprintf(&b, "\n  Red flags (risk score %.0f):", p.RiskScore.Value)
		for _, f := range p.RedFlags.Value {
			fmt.Fprintf(&b, "\n    - [%s] %s: %s", strings.ToUpper(string(f.Severity)), f.Type, f.Description)
		}
	}
	return b.String()
}

func formatContracts(rows []analytics.ContractRow, entity string) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contracts for %s (%d shown):", entity, len(rows))
	for _, c := range rows {
		counterparty := c.ContractorName
		if counterparty == entity || counterparty == "" {
			counterparty = c.AgencyName
		}
		fmt.Fprintf(&b, "\n  - %s: %s", c.ReferenceNumber, orNA(c.Title))
		fmt.Fprintf(&b, "\n    Amount: %s | Method: %s | Date: %s | Bids: %d | Status: %s | %s",
			common.Peso(c.Amount), orNA(c.ProcurementMethod), orNA(c.AwardDate), c.BidCount, orNA(c.Status), orNA(counterparty))
	}
	return b.String()
}

func formatCrossContracts(rows []analytics.ContractRow, agency, contractor string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No direct contracts found between %s and %s.", agency, contractor)
	}
	var total float64
	for _, c := range rows {
		total += c.Amount
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contracts between %s and %s (%d contracts, total %s):", agency, contractor, len(rows), common.Peso(total))
	for _, c := range rows {
		fmt.Fprintf(&b, "\n  - %s: %s\n    %s | %s | %s | %d bidders",
			c.ReferenceNumber, orNA(c.Title), common.Peso(c.Amount), orNA(c.ProcurementMethod), orNA(c.AwardDate), c.BidCount)
	}
	return b.String()
}

func formatAuditFindings(findings []analytics.AuditFinding, entity string) string {
	if len(findings) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "COA Audit Findings for %s (%d):", entity, len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "\n  - [%s] %s: %s", strings.ToUpper(orNA(f.Severity)), orNA(f.Type), orNA(f.Description))
		year := "N/A"
		if f.Year > 0 {
			year = fmt.Sprint(f.Year)
		}
		fmt.Fprintf(&b, "\n    Amount: %s | Year: %s | Status: %s", common.Peso(f.Amount), year, orNA(f.RecommendationStatus))
	}
	return b.String()
}

func formatSALN(entries []analytics.SALNEntry, entity string) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SALN (Statement of Assets, Liabilities and Net Worth) for %s:", entity)
	for _, s := range entries {
		fmt.Fprintf(&b, "\n  - Year %d: Net worth %s (Real property: %s, Personal: %s)",
			s.Year, common.Peso(s.NetWorth), common.Peso(s.RealProperty), common.Peso(s.PersonalProperty))
	}
	if len(entries) >= 2 {
		first, last := entries[0], entries[len(entries)-1]
		if first.NetWorth > 0 {
			growth := (last.NetWorth - first.NetWorth) / first.NetWorth * 100
			fmt.Fprintf(&b, "\n  Net worth change: %+.1f%% over %d years", growth, last.Year-first.Year)
		}
	}
	return b.String()
}

func formatCampaign(paths []analytics.CampaignContract, entity string) string {
	if len(paths) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign donors of %s who later won contracts:", entity)
	for _, p := range paths {
		fmt.Fprintf(&b, "\n  - %s donated %s", p.ContractorName, common.Peso(p.DonationAmount))
		if p.DonationYear > 0 {
			fmt.Fprintf(&b, " (%d election)", p.DonationYear)
		}
		fmt.Fprintf(&b, ", then won %s (%s) from %s on %s",
			p.ContractRef, common.Peso(p.ContractAmount), p.AgencyName, orNA(p.ContractDate))
	}
	return b.String()
}

func formatPath(p common.Path, from, to string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Path from %s to %s (%d hops):", from, to, p.Length)
	for i, n := range p.Nodes {
		prefix := "     "
		if i > 0 {
			prefix = "  -> "
		}
		fmt.Fprintf(&b, "\n%s%s (%s)", prefix, n.Label(), n.Type)
		if i < len(p.Edges) {
			fmt.Fprintf(&b, "\n     --[%s]-->", p.Edges[i].Type)
		}
	}
	return b.String()
}

func formatNoPath(from, to string, hops int) string {
	return fmt.Sprintf("No path found between %s and %s within %d hops.", from, to, hops)
}

func formatFlagged(flagged []common.FlaggedEntity) string {
	if len(flagged) == 0 {
		return "No red flags were detected."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Highest risk entities (%d):", len(flagged))
	for _, f := range flagged {
		fmt.Fprintf(&b, "\n  - %s (%s), risk score %.0f:", f.EntityName, f.EntityType, f.RiskScore)
		for _, fl := range f.Flags[:min(topShown, len(f.Flags))] {
			fmt.Fprintf(&b, "\n    - [%s] %s: %s", strings.ToUpper(string(fl.Severity)), fl.Type, fl.Description)
		}
	}
	return b.String()
}

func formatPhoenix(pairs []analytics.PhoenixPair) string {
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Blacklisted contractors linked to active ones:")
	for _, p := range pairs {
		date := "unknown date"
		if p.BlacklistDate != nil {
			date = *p.BlacklistDate
		}
		fmt.Fprintf(&b, "\n  - %s (blacklisted %s, %s) -> %s via %s %s",
			p.OldCompany, date, orNA(p.Offense), p.NewCompany, p.RelationshipType, p.SharedAttribute)
	}
	return b.String()
}

func formatStatsShort(s analytics.GraphStats) string {
	return fmt.Sprintf("Graph has %d nodes, %d edges, %s in contracts.",
		s.TotalNodes, s.TotalEdges, common.Peso(s.TotalContractValue))
}

func formatStats(s analytics.GraphStats) string {
	counts, _ := json.Marshal(s.NodeCounts)
	dates := "N/A"
	if s.DateRange.Min != nil && s.DateRange.Max != nil {
		dates = *s.DateRange.Min + " to " + *s.DateRange.Max
	}
	return fmt.Sprintf("Graph statistics:\n- Total nodes: %d\n- Total edges: %d\n- Node types: %s\n- Total contract value: %s\n- Date range: %s",
		s.TotalNodes, s.TotalEdges, counts, common.Peso(s.TotalContractValue), dates)
}

package analytics

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// requireType loads id and checks its type.
func requireType(ctx context.Context, r store.GraphReader, id string, t common.NodeType) (common.Node, error) {
	n, err := r.GetNode(ctx, id)
	if err != nil {
		return common.Node{}, err
	}
	if n.Type != t {
		return common.Node{}, common.NotFoundf("%s %s", strings.ToLower(string(t)), id)
	}
	return n, nil
}

type SubcontractCycle struct {
	ContractorIDs []string  `json:"contractor_ids"`
	Contractors   []string  `json:"contractors"`
	Amounts       []float64 `json:"subcontract_amounts"`
	Length        int       `json:"cycle_length"`
}

const maxEntityCycles = 50

// SubcontractCycles lists the SUBCONTRACTED_TO cycles through one contractor,
// shortest first, each rotated to start at that contractor.
func SubcontractCycles(ctx context.Context, r store.GraphReader, contractorID string, maxLen int) ([]SubcontractCycle, error) {
	if maxLen < 2 {
		maxLen = DefaultMaxHops
	}
	if _, err := requireType(ctx, r, contractorID, common.NodeContractor); err != nil {
		return nil, err
	}
	edges, err := r.EdgesByType(ctx, common.EdgeSubcontractedTo)
	if err != nil {
		return nil, err
	}
	adj := make(map[string][]string)
	amount := make(map[[2]string]float64)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		amount[[2]string{e.Source, e.Target}] += e.Properties.FloatOr("amount", 0)
	}

	var ids []string
	var cycles [][]string
	for _, c := range FindCycles(adj, maxLen, 0) {
		at := slices.Index(c, contractorID)
		if at < 0 {
			continue
		}
		rotated := append(slices.Clone(c[at:]), c[:at]...)
		cycles = append(cycles, rotated)
		ids = append(ids, rotated...)
	}
	slices.SortStableFunc(cycles, func(a, b []string) int { return cmp.Compare(len(a), len(b)) })
	if len(cycles) > maxEntityCycles {
		cycles = cycles[:maxEntityCycles]
	}
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return nil, err
	}
	v := store.NewView(nodes, nil)

	out := make([]SubcontractCycle, 0, len(cycles))
	for _, c := range cycles {
		sc := SubcontractCycle{ContractorIDs: c, Length: len(c)}
		for i, id := range c {
			sc.Contractors = append(sc.Contractors, v.Name(id))
			sc.Amounts = append(sc.Amounts, amount[[2]string{id, c[(i+1)%len(c)]}])
		}
		out = append(out, sc)
	}
	return out, nil
}

type CampaignContract struct {
	ContractorID   string  `json:"contractor_id"`
	ContractorName string  `json:"contractor_name"`
	DonationID     string  `json:"donation_id"`
	DonationAmount float64 `json:"donation_amount"`
	DonationYear   int     `json:"donation_year,omitempty"`
	ContractID     string  `json:"contract_id"`
	ContractRef    string  `json:"contract_ref"`
	ContractAmount float64 `json:"contract_amount"`
	ContractDate   string  `json:"contract_date,omitempty"`
	AgencyID       string  `json:"agency_id"`
	AgencyName     string  `json:"agency_name"`
	PathLength     int     `json:"path_length"`
}

const maxCampaignPaths = 100

// CampaignContracts traces contractor -> donation -> politician -> governed
// municipality -> agency -> contract -> same contractor paths for one
// politician, newest donation first.
func CampaignContracts(ctx context.Context, r store.GraphReader, politicianID string) ([]CampaignContract, error) {
	pol, err := requireType(ctx, r, politicianID, common.NodePolitician)
	if err != nil {
		return nil, err
	}

	var all []common.Edge
	hop := func(ids []string, t common.EdgeType) ([]common.Edge, error) {
		edges, err := r.Neighbors(ctx, ids, t)
		if err != nil {
			return nil, err
		}
		all = append(all, edges...)
		return edges, nil
	}

	first, err := hop([]string{politicianID}, common.EdgeDonatedTo)
	if err != nil {
		return nil, err
	}
	governs, err := hop([]string{politicianID}, common.EdgeGoverns)
	if err != nil {
		return nil, err
	}
	donations := sourcesOf(first)
	if _, err := hop(donations, common.EdgeDonatedTo); err != nil {
		return nil, err
	}
	hasAgency, err := hop(targetsOf(governs), common.EdgeHasAgency)
	if err != nil {
		return nil, err
	}
	procured, err := hop(targetsOf(hasAgency), common.EdgeProcured)
	if err != nil {
		return nil, err
	}
	if _, err := hop(targetsOf(procured), common.EdgeAwardedTo); err != nil {
		return nil, err
	}

	all = store.MergeEdges(all)
	var ids []string
	for _, e := range all {
		ids = append(ids, e.Source, e.Target)
	}
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return nil, err
	}
	v := store.NewView(append(nodes, pol), all)

	out := []CampaignContract{}
	for _, d := range v.In(common.EdgeDonatedTo, politicianID) {
		donation, ok := v.Node(d.Source)
		if !ok || donation.Type != common.NodeCampaignDonation {
			continue
		}
		for _, cd := range v.In(common.EdgeDonatedTo, donation.ID) {
			con := cd.Source
			for _, g := range v.Out(common.EdgeGoverns, politicianID) {
				for _, ha := range v.Out(common.EdgeHasAgency, g.Target) {
					for _, pr := range v.Out(common.EdgeProcured, ha.Target) {
						if !v.Connected(common.EdgeAwardedTo, pr.Target, con) {
							continue
						}
						props := v.Props(pr.Target)
						cc := CampaignContract{
							ContractorID:   con,
							ContractorName: v.Name(con),
							DonationID:     donation.ID,
							DonationAmount: donation.Properties.FloatOr("amount", 0),
							ContractID:     pr.Target,
							ContractRef:    props.Text("reference_number"),
							ContractAmount: props.FloatOr("amount", 0),
							AgencyID:       ha.Target,
							AgencyName:     v.Name(ha.Target),
							PathLength:     7,
						}
						if y, ok := donation.Properties.Int("year"); ok {
							cc.DonationYear = y
						} else if t, ok := donation.Properties.Time("date"); ok {
							cc.DonationYear = t.Year()
						}
						if t, ok := props.Time("award_date"); ok {
							cc.ContractDate = t.Format(time.DateOnly)
						}
						out = append(out, cc)
					}
				}
			}
		}
	}
	slices.SortStableFunc(out, func(a, b CampaignContract) int {
		if c := cmp.Compare(b.DonationYear, a.DonationYear); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ContractDate, a.ContractDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ContractID, b.ContractID)
	})
	if len(out) > maxCampaignPaths {
		out = out[:maxCampaignPaths]
	}
	return out, nil
}

type PhoenixPair struct {
	OldCompanyID     string          `json:"old_company_id"`
	OldCompany       string          `json:"old_company"`
	NewCompanyID     string          `json:"new_company_id"`
	NewCompany       string          `json:"new_company"`
	RelationshipType common.EdgeType `json:"relationship_type"`
	Offense          string          `json:"offense,omitempty"`
	BlacklistDate    *string         `json:"blacklist_date"`
	SharedAttribute  string          `json:"shared_attribute"`
}

const maxPhoenixPairs = 100

// PhoenixCompanies lists blacklisted contractors linked to a non-blacklisted
// one by a shared director or address, newest sanction first.
func PhoenixCompanies(ctx context.Context, r store.GraphReader) ([]PhoenixPair, error) {
	v, err := store.LoadView(ctx, r,
		[]common.NodeType{common.NodeContractor, common.NodeBlacklistEntry},
		[]common.EdgeType{common.EdgeBlacklisted, common.EdgeSharesDirectorWith, common.EdgeSameAddressAs})
	if err != nil {
		return nil, err
	}
	blacklisted := func(id string) bool { return len(v.Out(common.EdgeBlacklisted, id)) > 0 }

	out := []PhoenixPair{}
	for _, old := range v.NodesOf(common.NodeContractor) {
		for _, bl := range v.Out(common.EdgeBlacklisted, old.ID) {
			entry := v.Props(bl.Target)
			var date *string
			if t, ok := entry.Time("sanction_date"); ok {
				s := t.Format(time.DateOnly)
				date = &s
			}
			for _, t := range []common.EdgeType{common.EdgeSharesDirectorWith, common.EdgeSameAddressAs} {
				for _, e := range v.Both(t, old.ID) {
					other := e.Other(old.ID)
					if other == old.ID || blacklisted(other) {
						continue
					}
					shared := "director"
					if t == common.EdgeSameAddressAs {
						shared = old.Properties.Text("address")
					}
					out = append(out, PhoenixPair{
						OldCompanyID:     old.ID,
						OldCompany:       old.Label(),
						NewCompanyID:     other,
						NewCompany:       v.Name(other),
						RelationshipType: t,
						Offense:          entry.Text("offense"),
						BlacklistDate:    date,
						SharedAttribute:  shared,
					})
				}
			}
		}
	}
	slices.SortStableFunc(out, func(a, b PhoenixPair) int {
		return cmp.Compare(deref(b.BlacklistDate), deref(a.BlacklistDate))
	})
	if len(out) > maxPhoenixPairs {
		out = out[:maxPhoenixPairs]
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type SALNEntry struct {
	RecordID         string   `json:"record_id"`
	Year             int      `json:"year"`
	NetWorth         float64  `json:"net_worth"`
	RealProperty     float64  `json:"real_property"`
	PersonalProperty float64  `json:"personal_property"`
	Liabilities      float64  `json:"liabilities"`
	Assets           float64  `json:"assets"`
	NetWorthChange   *float64 `json:"net_worth_change"`
}

// SALNTimeline returns a politician's wealth declarations by year with the
// change in net worth from the previous declaration.
func SALNTimeline(ctx context.Context, r store.GraphReader, politicianID string) ([]SALNEntry, error) {
	if _, err := requireType(ctx, r, politicianID, common.NodePolitician); err != nil {
		return nil, err
	}
	edges, err := r.Neighbors(ctx, []string{politicianID}, common.EdgeDeclaredWealth)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range edges {
		if e.Source == politicianID {
			ids = append(ids, e.Target)
		}
	}
	records, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return nil, err
	}

	out := make([]SALNEntry, 0, len(records))
	for _, rec := range records {
		p := rec.Properties
		year, _ := p.Int("year")
		e := SALNEntry{
			RecordID:         rec.ID,
			Year:             year,
			NetWorth:         p.FloatOr("net_worth", 0),
			RealProperty:     p.FloatOr("real_property", 0),
			PersonalProperty: p.FloatOr("personal_property", 0),
			Liabilities:      p.FloatOr("liabilities", 0),
			Assets:           p.FloatOr("assets", 0),
		}
		if _, ok := p.Float("net_worth"); !ok && e.Assets > 0 {
			e.NetWorth = e.Assets - e.Liabilities
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b SALNEntry) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.RecordID, b.RecordID)
	})
	for i := 1; i < len(out); i++ {
		change := out[i].NetWorth - out[i-1].NetWorth
		out[i].NetWorthChange = &change
	}
	return out, nil
}

type ContractRow struct {
	ID                string  `json:"id"`
	ReferenceNumber   string  `json:"reference_number"`
	Title             string  `json:"title,omitempty"`
	Amount            float64 `json:"amount"`
	ProcurementMethod string  `json:"procurement_method,omitempty"`
	AwardDate         string  `json:"award_date,omitempty"`
	BidCount          int     `json:"bid_count"`
	Status            string  `json:"status,omitempty"`
	AgencyID          string  `json:"agency_id,omitempty"`
	AgencyName        string  `json:"agency_name,omitempty"`
	ContractorID      string  `json:"contractor_id,omitempty"`
	ContractorName    string  `json:"contractor_name,omitempty"`
}

// contractRow reads a contract from a view holding its PROCURED and
// AWARDED_TO edges and the counterpart nodes.
func contractRow(v *store.View, id string) ContractRow {
	p := v.Props(id)
	row := ContractRow{
		ID:                id,
		ReferenceNumber:   p.Text("reference_number"),
		Title:             p.Text("title"),
		Amount:            p.FloatOr("amount", 0),
		ProcurementMethod: p.Text("procurement_method"),
		Status:            p.Text("status"),
	}
	if row.ReferenceNumber == "" {
		_, row.ReferenceNumber, _ = common.ParseNodeID(id)
	}
	if n, ok := p.Int("bid_count"); ok {
		row.BidCount = n
	} else if n, ok := p.Int("bidder_count"); ok {
		row.BidCount = n
	}
	if t, ok := p.Time("award_date"); ok {
		row.AwardDate = t.Format(time.DateOnly)
	}
	for _, e := range v.In(common.EdgeProcured, id) {
		row.AgencyID, row.AgencyName = e.Source, v.Name(e.Source)
		break
	}
	for _, e := range v.Out(common.EdgeAwardedTo, id) {
		row.ContractorID, row.ContractorName = e.Target, v.Name(e.Target)
		break
	}
	return row
}

const (
	DefaultContractLimit = 15
	maxContractLimit     = 100
)

// EntityContracts lists the contracts of an agency or contractor, largest
// first. With a counterpart it lists only contracts between the two, newest
// first.
func EntityContracts(ctx context.Context, r store.GraphReader, entityID, counterpartID string, limit int) ([]ContractRow, error) {
	if limit <= 0 {
		limit = DefaultContractLimit
	}
	limit = min(limit, maxContractLimit)

	n, err := r.GetNode(ctx, entityID)
	if err != nil {
		return nil, err
	}
	var own common.EdgeType
	switch n.Type {
	case common.NodeAgency:
		own = common.EdgeProcured
	case common.NodeContractor:
		own = common.EdgeAwardedTo
	default:
		return nil, common.NotFoundf("contracts for %s", entityID)
	}

	edges, err := r.Neighbors(ctx, []string{entityID}, own)
	if err != nil {
		return nil, err
	}
	var contracts []string
	for _, e := range edges {
		contracts = append(contracts, e.Other(entityID))
	}
	contracts = store.DedupeStrings(contracts)
	links, err := r.Neighbors(ctx, contracts, common.EdgeProcured, common.EdgeAwardedTo)
	if err != nil {
		return nil, err
	}
	ids := append(slices.Clone(contracts), sourcesOf(links)...)
	ids = append(ids, targetsOf(links)...)
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return nil, err
	}
	v := store.NewView(nodes, links)

	out := []ContractRow{}
	for _, cid := range contracts {
		row := contractRow(v, cid)
		if counterpartID != "" && row.AgencyID != counterpartID && row.ContractorID != counterpartID {
			continue
		}
		out = append(out, row)
	}
	slices.SortStableFunc(out, func(a, b ContractRow) int {
		if counterpartID != "" {
			if c := cmp.Compare(b.AwardDate, a.AwardDate); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type AuditFinding struct {
	ID                   string  `json:"id"`
	Type                 string  `json:"type"`
	Severity             string  `json:"severity"`
	Description          string  `json:"description"`
	Amount               float64 `json:"amount"`
	Year                 int     `json:"year,omitempty"`
	Recommendation       string  `json:"recommendation,omitempty"`
	RecommendationStatus string  `json:"recommendation_status"`
}

var auditSeverityRank = map[string]int{"critical": 4, "high": 3, "medium": 2, "low": 1}

// EntityAuditFindings lists the audit findings against an agency, newest and
// most severe first.
func EntityAuditFindings(ctx context.Context, r store.GraphReader, entityID string, limit int) ([]AuditFinding, error) {
	if limit <= 0 {
		limit = 10
	}
	if _, err := r.GetNode(ctx, entityID); err != nil {
		return nil, err
	}
	edges, err := r.Neighbors(ctx, []string{entityID}, common.EdgeAudited)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range edges {
		if e.Source == entityID {
			ids = append(ids, e.Target)
		}
	}
	nodes, err := r.GetNodes(ctx, store.DedupeStrings(ids))
	if err != nil {
		return nil, err
	}

	out := make([]AuditFinding, 0, len(nodes))
	for _, n := range nodes {
		p := n.Properties
		year, _ := p.Int("year")
		out = append(out, AuditFinding{
			ID:                   n.ID,
			Type:                 p.Text("type"),
			Severity:             p.Text("severity"),
			Description:          p.Text("description"),
			Amount:               p.FloatOr("amount", 0),
			Year:                 year,
			Recommendation:       p.Text("recommendation"),
			RecommendationStatus: p.Text("recommendation_status"),
		})
	}
	slices.SortStableFunc(out, func(a, b AuditFinding) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(auditSeverityRank[strings.ToLower(b.Severity)], auditSeverityRank[strings.ToLower(a.Severity)]); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

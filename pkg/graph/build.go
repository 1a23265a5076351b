package graph

import (
	"fmt"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
)

// lookups resolve references to entities loaded by earlier runs.
type lookups struct {
	// municipalities maps an uppercased municipality name to its node id.
	municipalities map[string]string
	// provinces maps an uppercased province to its municipality ids.
	provinces   map[string][]string
	politicians map[string]bool
}

// builder maps the records of one source onto a batch.
type builder struct {
	*batch
	source  Source
	lookups lookups
	// canonical maps a raw contractor name to its resolved canonical name.
	canonical map[string]string
	// bidders counts distinct bidders per contract reference.
	bidders map[string]map[string]bool
	// coauthors counts bills per unordered author pair.
	coauthors map[[2]string]int
}

func newBuilder(source Source, l lookups, canonical map[string]string) *builder {
	return &builder{
		batch:     newBatch(),
		source:    source,
		lookups:   l,
		canonical: canonical,
		bidders:   make(map[string]map[string]bool),
		coauthors: make(map[[2]string]int),
	}
}

// contractor upserts the contractor named raw and returns its id.
func (b *builder) contractor(raw string, props common.Properties) string {
	name := raw
	if c, ok := b.canonical[raw]; ok {
		name = c
	}
	key := contractorKey(name)
	if key == "" {
		return ""
	}
	if props == nil {
		props = common.Properties{}
	}
	props["name"] = name
	props["normalized_name"] = key
	return b.node(common.NodeContractor, key, props)
}

func (b *builder) politician(raw string, props common.Properties) string {
	key := personKey(raw)
	if key == "" {
		return ""
	}
	if props == nil {
		props = common.Properties{}
	}
	props["name"] = strings.TrimSpace(raw)
	return b.node(common.NodePolitician, key, props)
}

func (b *builder) person(raw string, props common.Properties) string {
	key := personKey(raw)
	if key == "" {
		return ""
	}
	if props == nil {
		props = common.Properties{}
	}
	props["name"] = strings.TrimSpace(raw)
	return b.node(common.NodePerson, key, props)
}

func (b *builder) agency(raw string, props common.Properties) string {
	key := agencyKey(raw)
	if key == "" {
		return ""
	}
	if props == nil {
		props = common.Properties{}
	}
	props["name"] = strings.TrimSpace(raw)
	return b.node(common.NodeAgency, key, props)
}

// municipality resolves a PSGC code, falling back to a known municipality name.
func (b *builder) municipality(r common.Record) string {
	if code := r.Text("psgc_code"); code != "" {
		return common.NodeID(common.NodeMunicipality, code)
	}
	if name := r.Text("municipality"); name != "" {
		return b.lookups.municipalities[strings.ToUpper(name)]
	}
	return ""
}

func (b *builder) add(r common.Record) {
	switch b.source {
	case SourceAwards:
		b.award(r)
	case SourceBids:
		b.bid(r)
	case SourcePSGC:
		p := pick(r, []string{"psgc_code", "name", "region", "province"}, nil, nil)
		b.node(common.NodeMunicipality, r.Text("psgc_code"), p)
	case SourceAgencies:
		id := b.agency(r.Text("name"), nil)
		if m := b.municipality(r); m != "" {
			b.edge(common.EdgeLocatedIn, id, m, nil)
			b.edge(common.EdgeHasAgency, m, id, nil)
		}
	case SourceMembers:
		p := pick(r, []string{"position", "province", "party", "chamber", "district"}, nil, nil)
		id := b.politician(r.Text("name"), p)
		if m := b.municipality(r); m != "" {
			b.edge(common.EdgeGoverns, id, m, nil)
		}
	case SourceBills:
		b.bill(r)
	case SourceDynasties:
		b.dynasty(r)
	case SourceContractors:
		b.contractorProfile(r)
	case SourceOwnership:
		c := b.contractor(r.Text("contractor_name"), nil)
		p := b.person(r.Text("person_name"), nil)
		b.edge(common.EdgeOwnedBy, c, p, pick(r, []string{"role"}, []string{"share"}, nil))
	case SourceFamilyLinks:
		p := b.person(r.Text("person_name"), nil)
		pol := b.politician(r.Text("politician_name"), nil)
		b.edge(common.EdgeFamilyOf, p, pol, pick(r, []string{"relation"}, nil, nil))
	case SourceDonations:
		b.donation(r)
	case SourceBlacklist:
		c := b.contractor(r.Text("contractor_name"), nil)
		_, ck, _ := common.ParseNodeID(c)
		key := ck + "|" + r.Text("sanction_date")
		p := pick(r, []string{"offense", "contractor_name", "issuing_agency"}, nil, []string{"sanction_date", "end_date"})
		entry := b.node(common.NodeBlacklistEntry, key, p)
		b.edge(common.EdgeBlacklisted, c, entry, nil)
	case SourceSALN:
		year, _ := r.Int("year")
		p := pick(r, nil, []string{"assets", "liabilities", "net_worth", "real_property", "personal_property"}, nil)
		p["year"] = year
		if _, ok := p["net_worth"]; !ok {
			p["net_worth"] = r.FloatOr("assets", 0) - r.FloatOr("liabilities", 0)
		}
		pol := b.politician(r.Text("politician_name"), nil)
		saln := b.node(common.NodeSALNRecord, fmt.Sprintf("%s|%d", personKey(r.Text("politician_name")), year), p)
		b.edge(common.EdgeDeclaredWealth, pol, saln, nil)
	case SourceSubcontracts:
		from := b.contractor(r.Text("contractor_name"), nil)
		to := b.contractor(r.Text("subcontractor_name"), nil)
		b.edge(common.EdgeSubcontractedTo, from, to, pick(r, []string{"reference_number"}, []string{"amount"}, nil))
	case SourceAuditFindings:
		b.auditFinding(r)
	}
}

func (b *builder) award(r common.Record) {
	ref := r.Text("reference_number")
	p := pick(r,
		[]string{"reference_number", "title", "procurement_method", "status", "category"},
		[]string{"amount", "bid_count", "approved_budget"},
		[]string{"award_date"},
	)
	if _, ok := p["procurement_method"]; ok {
		p["procurement_method_raw"] = p["procurement_method"]
		p["procurement_method"] = normalize.ProcurementMethod(r.Text("procurement_method"))
	}
	contract := b.node(common.NodeContract, ref, p)
	agency := b.agency(r.Text("procuring_entity"), nil)
	contractor := b.contractor(r.Text("contractor_name"), nil)
	b.edge(common.EdgeProcured, agency, contract, nil)
	b.edge(common.EdgeAwardedTo, contract, contractor, nil)
}

func (b *builder) bid(r common.Record) {
	ref := r.Text("reference_number")
	contract := b.node(common.NodeContract, ref, common.Properties{"reference_number": ref})
	contractor := b.contractor(r.Text("contractor_name"), nil)
	b.edge(common.EdgeBidOn, contractor, contract, pick(r, nil, []string{"bid_amount"}, nil))
	if b.bidders[ref] == nil {
		b.bidders[ref] = make(map[string]bool)
	}
	b.bidders[ref][contractor] = true
}

func (b *builder) bill(r common.Record) {
	p := pick(r, []string{"bill_number", "title", "status"}, nil, []string{"date_filed"})
	bill := b.node(common.NodeBill, r.Text("bill_number"), p)

	var authors []string
	for _, name := range util.SplitList(r.Text("authors")) {
		if id := b.politician(name, nil); id != "" {
			authors = append(authors, id)
			b.edge(common.EdgeAuthored, id, bill, nil)
		}
	}
	for i := range authors {
		for j := i + 1; j < len(authors); j++ {
			x, y := authors[i], authors[j]
			if x == y {
				continue
			}
			if x > y {
				x, y = y, x
			}
			b.coauthors[[2]string{x, y}]++
		}
	}
}

func (b *builder) dynasty(r common.Record) {
	p := pick(r, []string{"dynasty_id", "name", "province"}, nil, nil)
	if _, ok := p["name"]; !ok {
		p["name"] = r.Text("dynasty_id")
	}
	family := b.node(common.NodePoliticalFamily, r.Text("dynasty_id"), p)
	for _, name := range util.SplitList(r.Text("members")) {
		if id := b.politician(name, nil); id != "" {
			b.edge(common.EdgeMemberOf, id, family, nil)
		}
	}
	for _, m := range b.lookups.provinces[strings.ToUpper(r.Text("province"))] {
		b.edge(common.EdgeAssociatedWith, family, m, nil)
	}
	for _, ally := range util.SplitList(r.Text("allies")) {
		b.edge(common.EdgeAlliedWith, family, common.NodeID(common.NodePoliticalFamily, ally), nil)
	}
}

func (b *builder) contractorProfile(r common.Record) {
	p := pick(r, []string{"registration_number", "classification", "address", "status"}, []string{"registered_capital"}, []string{"registration_date"})
	directors := util.SplitList(r.Text("directors"))
	if len(directors) > 0 {
		p["director_count"] = len(directors)
	}
	if addr := normalize.Address(r.Text("address")); addr != "" {
		p["normalized_address"] = addr
	}
	id := b.contractor(r.Text("name"), p)
	if m := b.municipality(r); m != "" {
		b.edge(common.EdgeLocatedIn, id, m, nil)
	}
	for _, d := range directors {
		b.edge(common.EdgeOwnedBy, id, b.person(d, nil), common.Properties{"role": "director"})
	}
	if prev := r.Text("previous_name"); prev != "" {
		b.edge(common.EdgeReRegisteredAs, b.contractor(prev, nil), id, nil)
	}
}

func (b *builder) donation(r common.Record) {
	year, _ := r.Int("year")
	date := ""
	if t, ok := r.Time("date"); ok {
		date = t.Format("2006-01-02")
		if year == 0 {
			year = t.Year()
		}
	}
	key := fmt.Sprintf("%s|%s|%d|%s", contractorKey(r.Text("contractor_name")), personKey(r.Text("politician_name")), year, date)
	p := pick(r, []string{"election", "contractor_name", "politician_name"}, []string{"amount"}, nil)
	if year > 0 {
		p["year"] = year
	}
	if date != "" {
		p["date"] = date
	}
	p["description"] = fmt.Sprintf("Donation by %s to %s", r.Text("contractor_name"), r.Text("politician_name"))

	donation := b.node(common.NodeCampaignDonation, key, p)
	b.edge(common.EdgeDonatedTo, b.contractor(r.Text("contractor_name"), nil), donation, nil)
	b.edge(common.EdgeDonatedTo, donation, b.politician(r.Text("politician_name"), nil), nil)
}

func (b *builder) auditFinding(r common.Record) {
	p := pick(r,
		[]string{"finding_id", "type", "severity", "description", "recommendation", "recommendation_status"},
		[]string{"amount", "year"},
		nil,
	)
	if y, ok := r.Int("year"); ok {
		p["year"] = y
	}
	finding := b.node(common.NodeAuditFinding, r.Text("finding_id"), p)
	b.edge(common.EdgeAudited, b.agency(r.Text("agency"), nil), finding, nil)

	for _, name := range util.SplitList(r.Text("officials")) {
		key := personKey(name)
		var official string
		if b.lookups.politicians[common.NodeID(common.NodePolitician, key)] {
			official = b.politician(name, nil)
		} else {
			official = b.person(name, nil)
		}
		b.edge(common.EdgeInvolvesOfficial, finding, official, nil)
	}
}

// finish writes the counters collected across records.
func (b *builder) finish() {
	for ref, bidders := range b.bidders {
		b.node(common.NodeContract, ref, common.Properties{"bidder_count": len(bidders)})
	}
	for pair, n := range b.coauthors {
		b.undirected(common.EdgeCoAuthoredWith, pair[0], pair[1], common.Properties{"bill_count": n})
	}
}

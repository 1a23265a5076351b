package common

import (
	"strings"
)

// NodeType is the closed set of entity kinds stored in the accountability graph.
type NodeType string

const (
	NodePolitician       NodeType = "Politician"
	NodePoliticalFamily  NodeType = "PoliticalFamily"
	NodeMunicipality     NodeType = "Municipality"
	NodeAgency           NodeType = "Agency"
	NodeContract         NodeType = "Contract"
	NodeContractor       NodeType = "Contractor"
	NodeAuditFinding     NodeType = "AuditFinding"
	NodeBill             NodeType = "Bill"
	NodePerson           NodeType = "Person"
	NodeCampaignDonation NodeType = "CampaignDonation"
	NodeBlacklistEntry   NodeType = "BlacklistEntry"
	NodeSALNRecord       NodeType = "SALNRecord"
)

// NodeTypes lists every NodeType in a stable order.
var NodeTypes = []NodeType{
	NodePolitician, NodePoliticalFamily, NodeMunicipality, NodeAgency,
	NodeContract, NodeContractor, NodeAuditFinding, NodeBill, NodePerson,
	NodeCampaignDonation, NodeBlacklistEntry, NodeSALNRecord,
}

func (t NodeType) Valid() bool {
	for _, nt := range NodeTypes {
		if nt == t {
			return true
		}
	}
	return false
}

// EdgeType is the closed set of directed relationship kinds.
type EdgeType string

// Direction is source -> target as written below.
const (
	EdgeMemberOf           EdgeType = "MEMBER_OF"            // Politician -> PoliticalFamily
	EdgeGoverns            EdgeType = "GOVERNS"              // Politician -> Municipality
	EdgeHasAgency          EdgeType = "HAS_AGENCY"           // Municipality -> Agency
	EdgeProcured           EdgeType = "PROCURED"             // Agency -> Contract
	EdgeAwardedTo          EdgeType = "AWARDED_TO"           // Contract -> Contractor
	EdgeBidOn              EdgeType = "BID_ON"               // Contractor -> Contract
	EdgeCoBidWith          EdgeType = "CO_BID_WITH"          // Contractor -> Contractor, unordered
	EdgeSubcontractedTo    EdgeType = "SUBCONTRACTED_TO"     // Contractor -> Contractor
	EdgeAudited            EdgeType = "AUDITED"              // Agency -> AuditFinding
	EdgeInvolvesOfficial   EdgeType = "INVOLVES_OFFICIAL"    // AuditFinding -> Politician|Person
	EdgeAuthored           EdgeType = "AUTHORED"             // Politician -> Bill
	EdgeCoAuthoredWith     EdgeType = "CO_AUTHORED_WITH"     // Politician -> Politician, unordered
	EdgeOwnedBy            EdgeType = "OWNED_BY"             // Contractor -> Person
	EdgeFamilyOf           EdgeType = "FAMILY_OF"            // Person -> Politician
	EdgeLocatedIn          EdgeType = "LOCATED_IN"           // Contractor|Agency -> Municipality
	EdgeAssociatedWith     EdgeType = "ASSOCIATED_WITH"      // PoliticalFamily -> Municipality
	EdgeDonatedTo          EdgeType = "DONATED_TO"           // Contractor -> CampaignDonation -> Politician
	EdgeBlacklisted        EdgeType = "BLACKLISTED"          // Contractor -> BlacklistEntry
	EdgeDeclaredWealth     EdgeType = "DECLARED_WEALTH"      // Politician -> SALNRecord
	EdgeReRegisteredAs     EdgeType = "RE_REGISTERED_AS"     // Contractor -> Contractor
	EdgeSameAddressAs      EdgeType = "SAME_ADDRESS_AS"      // Contractor -> Contractor, unordered
	EdgeSharesDirectorWith EdgeType = "SHARES_DIRECTOR_WITH" // Contractor -> Contractor, unordered
	EdgeAlliedWith         EdgeType = "ALLIED_WITH"          // PoliticalFamily -> PoliticalFamily
)

// EdgeTypes lists every EdgeType in a stable order.
var EdgeTypes = []EdgeType{
	EdgeMemberOf, EdgeGoverns, EdgeHasAgency, EdgeProcured, EdgeAwardedTo,
	EdgeBidOn, EdgeCoBidWith, EdgeSubcontractedTo, EdgeAudited,
	EdgeInvolvesOfficial, EdgeAuthored, EdgeCoAuthoredWith, EdgeOwnedBy,
	EdgeFamilyOf, EdgeLocatedIn, EdgeAssociatedWith, EdgeDonatedTo,
	EdgeBlacklisted, EdgeDeclaredWealth, EdgeReRegisteredAs, EdgeSameAddressAs,
	EdgeSharesDirectorWith, EdgeAlliedWith,
}

func (t EdgeType) Valid() bool {
	for _, et := range EdgeTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Node is a typed entity in the graph.
//
// ID is a stable natural key of the form "<Type>:<key>" (see NodeID), so the
// same source record always maps to the same node across loads and backends.
// RiskScore and RedFlags are derived at query time and never written back as
// inputs.
type Node struct {
	ID         string     `json:"id"`
	Type       NodeType   `json:"type"`
	Properties Properties `json:"properties"`
	RiskScore  *float64   `json:"risk_score,omitempty"`
	RedFlags   []RedFlag  `json:"red_flags,omitempty"`
}

// Label is the human readable name of the node, taken from the first
// populated display property.
func (n Node) Label() string {
	for _, key := range []string{"name", "title", "reference_number", "description", "offense"} {
		if v := n.Properties.Text(key); v != "" {
			return v
		}
	}
	return n.ID
}

// Edge is a typed, directed relationship. Its ID is derived from
// (type, source, target) unless the relationship carries its own natural key.
type Edge struct {
	ID         string     `json:"id"`
	Type       EdgeType   `json:"type"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Properties Properties `json:"properties,omitempty"`
}

// Other returns the endpoint of e that is not id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Graph is a bounded set of nodes and the edges between them, as returned by
// subgraph expansion.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Path is an alternating node/edge sequence from the first to the last node.
type Path struct {
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
	Length int    `json:"length"`
}

// NodeID builds the natural-key identifier for a node.
func NodeID(t NodeType, key string) string {
	return string(t) + ":" + strings.TrimSpace(key)
}

// EdgeID builds the identifier of an edge keyed by its endpoints. An optional
// discriminator separates parallel edges of the same type.
func EdgeID(t EdgeType, source, target string, discriminator ...string) string {
	id := string(t) + "|" + source + "|" + target
	for _, d := range discriminator {
		if d != "" {
			id += "|" + d
		}
	}
	return id
}

// ParseNodeID splits a natural-key id into its type and key.
func ParseNodeID(id string) (NodeType, string, bool) {
	t, key, ok := strings.Cut(id, ":")
	if !ok || !NodeType(t).Valid() {
		return "", "", false
	}
	return NodeType(t), key, true
}

// SearchHit is a single full-text or semantic search result.
type SearchHit struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    NodeType `json:"type"`
	Score   float64  `json:"score"`
	Context string   `json:"context,omitempty"`
}

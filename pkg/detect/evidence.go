package detect

import (
	"strconv"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// ContractRef identifies one contract cited as evidence.
type ContractRef struct {
	ID     string  `json:"id"`
	Ref    string  `json:"ref"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date,omitempty"`
}

func (c ContractRef) fields() map[string]any {
	m := map[string]any{"id": c.ID, "ref": c.Ref, "amount": c.Amount}
	if c.Date != "" {
		m["date"] = c.Date
	}
	return m
}

func contractList(cs []ContractRef) []map[string]any {
	out := make([]map[string]any, len(cs))
	for i, c := range cs {
		out[i] = c.fields()
	}
	return out
}

func contractor(id, name string) common.EntityRef {
	return common.EntityRef{ID: id, Name: name, Type: common.NodeContractor}
}

type SingleBidderEvidence struct {
	ContractorID   string
	ContractorName string
	SingleBidCount int
	Contracts      []ContractRef
}

func (e SingleBidderEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor_id":    e.ContractorID,
		"contractor_name":  e.ContractorName,
		"single_bid_count": e.SingleBidCount,
		"contracts":        contractList(e.Contracts),
	}
}

func (e SingleBidderEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

type IdenticalBidsEvidence struct {
	ContractID     string
	ContractRef    string
	ContractTitle  string
	ContractAmount float64
	Bidder1ID      string
	Bidder1        string
	Bidder2ID      string
	Bidder2        string
	Bid1           float64
	Bid2           float64
	Deviation      float64
}

func (e IdenticalBidsEvidence) Fields() map[string]any {
	return map[string]any{
		"contract_id":     e.ContractID,
		"contract_ref":    e.ContractRef,
		"contract_title":  e.ContractTitle,
		"contract_amount": e.ContractAmount,
		"bidder1_id":      e.Bidder1ID,
		"bidder1":         e.Bidder1,
		"bidder2_id":      e.Bidder2ID,
		"bidder2":         e.Bidder2,
		"bid1":            e.Bid1,
		"bid2":            e.Bid2,
		"deviation":       e.Deviation,
	}
}

func (e IdenticalBidsEvidence) Subject() common.EntityRef {
	return common.EntityRef{ID: e.ContractID, Name: e.ContractRef, Type: common.NodeContract}
}

type SplitContractsEvidence struct {
	AgencyID       string
	AgencyName     string
	ContractorID   string
	ContractorName string
	NumContracts   int
	TotalValue     float64
	Threshold      float64
	Contracts      []ContractRef
}

func (e SplitContractsEvidence) Fields() map[string]any {
	return map[string]any{
		"agency_id":       e.AgencyID,
		"agency_name":     e.AgencyName,
		"contractor_id":   e.ContractorID,
		"contractor_name": e.ContractorName,
		"num_contracts":   e.NumContracts,
		"total_value":     e.TotalValue,
		"threshold":       e.Threshold,
		"contracts":       contractList(e.Contracts),
	}
}

func (e SplitContractsEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

type ShareEntry struct {
	ID    string
	Name  string
	Value float64
	Share float64
}

type ConcentrationEvidence struct {
	AgencyID       string
	AgencyName     string
	HHI            float64
	TotalValue     float64
	TopContractors []ShareEntry
}

func (e ConcentrationEvidence) Fields() map[string]any {
	top := make([]map[string]any, len(e.TopContractors))
	for i, c := range e.TopContractors {
		top[i] = map[string]any{"id": c.ID, "name": c.Name, "value": c.Value, "share": c.Share}
	}
	return map[string]any{
		"agency_id":       e.AgencyID,
		"agency_name":     e.AgencyName,
		"hhi":             e.HHI,
		"total_value":     e.TotalValue,
		"top_contractors": top,
	}
}

func (e ConcentrationEvidence) Subject() common.EntityRef {
	return common.EntityRef{ID: e.AgencyID, Name: e.AgencyName, Type: common.NodeAgency}
}

type RotatingWinnersEvidence struct {
	Contractor1ID string
	Contractor1   string
	Contractor2ID string
	Contractor2   string
	CoBidCount    int
	// Wins1 are contracts won by contractor 1 that contractor 2 also bid on.
	Wins1 []string
	Wins2 []string
}

func (e RotatingWinnersEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor1_id": e.Contractor1ID,
		"contractor1":    e.Contractor1,
		"contractor2_id": e.Contractor2ID,
		"contractor2":    e.Contractor2,
		"co_bid_count":   e.CoBidCount,
		"wins": map[string]any{
			e.Contractor1: len(e.Wins1),
			e.Contractor2: len(e.Wins2),
		},
		"contractor1_wins": e.Wins1,
		"contractor2_wins": e.Wins2,
	}
}

func (e RotatingWinnersEvidence) Subject() common.EntityRef {
	return contractor(e.Contractor1ID, e.Contractor1)
}

type PoliticalConnectionEvidence struct {
	ContractorID   string
	ContractorName string
	PersonID       string
	PersonName     string
	PoliticianID   string
	PoliticianName string
	Position       string
	Relation       string
}

func (e PoliticalConnectionEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor_id":   e.ContractorID,
		"contractor_name": e.ContractorName,
		"person_id":       e.PersonID,
		"person_name":     e.PersonName,
		"politician_id":   e.PoliticianID,
		"politician_name": e.PoliticianName,
		"position":        e.Position,
		"relation":        e.Relation,
		"path_length":     2,
	}
}

func (e PoliticalConnectionEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

type GeographicAnomalyEvidence struct {
	ContractorID           string
	ContractorName         string
	HomeMunicipality       string
	HomeRegion             string
	AwardRegions           []string
	ContractsOutsideRegion int
	ValueOutsideRegion     float64
	Contracts              []ContractRef
}

func (e GeographicAnomalyEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor_id":            e.ContractorID,
		"contractor_name":          e.ContractorName,
		"home_municipality":        e.HomeMunicipality,
		"home_region":              e.HomeRegion,
		"award_regions":            e.AwardRegions,
		"contracts_outside_region": e.ContractsOutsideRegion,
		"value_outside_region":     e.ValueOutsideRegion,
		"contracts":                contractList(e.Contracts),
	}
}

func (e GeographicAnomalyEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

type ShellCompanyEvidence struct {
	ContractorID   string
	ContractorName string
	Capital        float64
	TotalAwarded   float64
	Ratio          float64
}

func (e ShellCompanyEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor_id":   e.ContractorID,
		"contractor_name": e.ContractorName,
		"capital":         e.Capital,
		"total_awarded":   e.TotalAwarded,
		"ratio":           e.Ratio,
	}
}

func (e ShellCompanyEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

type PhoenixCompanyEvidence struct {
	NewContractorID           string
	NewContractorName         string
	BlacklistedContractorID   string
	BlacklistedContractorName string
	BlacklistEntryID          string
	Offense                   string
	BlacklistDate             string
	SharedAddress             bool
}

func (e PhoenixCompanyEvidence) Fields() map[string]any {
	m := map[string]any{
		"new_contractor_id":           e.NewContractorID,
		"new_contractor_name":         e.NewContractorName,
		"blacklisted_contractor_id":   e.BlacklistedContractorID,
		"blacklisted_contractor_name": e.BlacklistedContractorName,
		"blacklist_entry_id":          e.BlacklistEntryID,
		"offense":                     e.Offense,
		"shared_address":              e.SharedAddress,
		"blacklist_date":              nil,
	}
	if e.BlacklistDate != "" {
		m["blacklist_date"] = e.BlacklistDate
	}
	return m
}

func (e PhoenixCompanyEvidence) Subject() common.EntityRef {
	return contractor(e.NewContractorID, e.NewContractorName)
}

type CampaignConnectionEvidence struct {
	ContractorID   string
	ContractorName string
	PoliticianID   string
	PoliticianName string
	DonationID     string
	DonationAmount float64
	DonationDate   string
	ContractsWon   float64
	Contracts      []ContractRef
}

func (e CampaignConnectionEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor_id":   e.ContractorID,
		"contractor_name": e.ContractorName,
		"politician_id":   e.PoliticianID,
		"politician_name": e.PoliticianName,
		"donation_id":     e.DonationID,
		"donation_amount": e.DonationAmount,
		"donation_date":   e.DonationDate,
		"contracts_won":   e.ContractsWon,
		"contract_count":  len(e.Contracts),
		"contracts":       contractList(e.Contracts),
	}
}

func (e CampaignConnectionEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

// CircularFlowEvidence lists the cycle members in flow order, starting at
// the member with the smallest id.
type CircularFlowEvidence struct {
	Cycle   []common.EntityRef
	Amounts []float64
}

func (e CircularFlowEvidence) Fields() map[string]any {
	names := make([]string, len(e.Cycle))
	m := map[string]any{"length": len(e.Cycle), "amounts": e.Amounts}
	for i, c := range e.Cycle {
		n := strconv.Itoa(i + 1)
		m["contractor"+n+"_id"] = c.ID
		m["contractor"+n] = c.Name
		names[i] = c.Name
	}
	m["cycle"] = names
	return m
}

func (e CircularFlowEvidence) Subject() common.EntityRef {
	if len(e.Cycle) == 0 {
		return common.EntityRef{ID: "unknown"}
	}
	return e.Cycle[0]
}

type TimingClusterEvidence struct {
	AgencyID       string
	AgencyName     string
	ContractorID   string
	ContractorName string
	WindowDays     int
	FirstDate      string
	LastDate       string
	Contracts      []ContractRef
}

func (e TimingClusterEvidence) Fields() map[string]any {
	return map[string]any{
		"agency_id":       e.AgencyID,
		"agency_name":     e.AgencyName,
		"contractor_id":   e.ContractorID,
		"contractor_name": e.ContractorName,
		"contract_count":  len(e.Contracts),
		"window_days":     e.WindowDays,
		"first_date":      e.FirstDate,
		"last_date":       e.LastDate,
		"contracts":       contractList(e.Contracts),
	}
}

func (e TimingClusterEvidence) Subject() common.EntityRef {
	return contractor(e.ContractorID, e.ContractorName)
}

type ShellNetworkEvidence struct {
	Contractor1ID   string
	Contractor1     string
	Contractor2ID   string
	Contractor2     string
	Address         string
	SharedDirectors int
}

func (e ShellNetworkEvidence) Fields() map[string]any {
	return map[string]any{
		"contractor1_id":   e.Contractor1ID,
		"contractor1":      e.Contractor1,
		"contractor2_id":   e.Contractor2ID,
		"contractor2":      e.Contractor2,
		"address":          e.Address,
		"shared_directors": e.SharedDirectors,
	}
}

func (e ShellNetworkEvidence) Subject() common.EntityRef {
	return contractor(e.Contractor1ID, e.Contractor1)
}

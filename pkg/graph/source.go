package graph

import (
	"fmt"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// Source names the kind of export a batch of records came from.
type Source string

const (
	SourceAwards        Source = "philgeps_awards"
	SourceBids          Source = "philgeps_bids"
	SourcePSGC          Source = "psgc"
	SourceAgencies      Source = "agencies"
	SourceMembers       Source = "congress_members"
	SourceBills         Source = "congress_bills"
	SourceDynasties     Source = "dynasties"
	SourceContractors   Source = "contractors"
	SourceOwnership     Source = "ownership"
	SourceFamilyLinks   Source = "family_links"
	SourceDonations     Source = "donations"
	SourceBlacklist     Source = "blacklist"
	SourceSALN          Source = "saln"
	SourceSubcontracts  Source = "subcontracts"
	SourceAuditFindings Source = "audit_findings"
)

// Sources lists every Source in load order: reference data first, then
// entities, then the records that link them.
var Sources = []Source{
	SourcePSGC, SourceAgencies, SourceMembers, SourceDynasties, SourceContractors,
	SourceAwards, SourceBids, SourceBills, SourceOwnership, SourceFamilyLinks,
	SourceDonations, SourceBlacklist, SourceSALN, SourceSubcontracts, SourceAuditFindings,
}

// required lists the fields a record of each source must carry. Records
// missing any of them are skipped as malformed.
var required = map[Source][]string{
	SourceAwards:        {"reference_number", "procuring_entity", "contractor_name"},
	SourceBids:          {"reference_number", "contractor_name"},
	SourcePSGC:          {"psgc_code", "name"},
	SourceAgencies:      {"name"},
	SourceMembers:       {"name"},
	SourceBills:         {"bill_number"},
	SourceDynasties:     {"dynasty_id"},
	SourceContractors:   {"name"},
	SourceOwnership:     {"contractor_name", "person_name"},
	SourceFamilyLinks:   {"person_name", "politician_name"},
	SourceDonations:     {"contractor_name", "politician_name"},
	SourceBlacklist:     {"contractor_name"},
	SourceSALN:          {"politician_name", "year"},
	SourceSubcontracts:  {"contractor_name", "subcontractor_name"},
	SourceAuditFindings: {"agency", "finding_id"},
}

// contractorFields are the fields of a source that hold contractor names.
var contractorFields = map[Source][]string{
	SourceAwards:       {"contractor_name"},
	SourceBids:         {"contractor_name"},
	SourceContractors:  {"name"},
	SourceOwnership:    {"contractor_name"},
	SourceDonations:    {"contractor_name"},
	SourceBlacklist:    {"contractor_name"},
	SourceSubcontracts: {"contractor_name", "subcontractor_name"},
}

// ParseSource validates a source name.
func ParseSource(name string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := required[s]; !ok {
		return "", fmt.Errorf("%w: unknown source %q", common.ErrMalformedInput, name)
	}
	return s, nil
}

// validate reports the first required field missing from r.
func (s Source) validate(r common.Record) error {
	for _, f := range required[s] {
		if r.Text(f) == "" {
			return fmt.Errorf("%w: %s record without %s", common.ErrMalformedInput, s, f)
		}
	}
	return nil
}

package loader

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// columnAliases maps header variants seen across PhilGEPS and COA exports to
// the canonical field of a source. Headers are compared after NormalizeHeader.
var columnAliases = map[string]map[string][]string{
	"philgeps_awards": {
		"reference_number":   {"reference_no", "ref_no", "refno", "reference"},
		"title":              {"project_title", "procurement_title", "description"},
		"procuring_entity":   {"agency", "pe", "organization_name"},
		"contractor_name":    {"contractor", "awardee", "winning_bidder", "supplier", "awarded_to"},
		"amount":             {"contract_amount", "approved_budget", "abc", "bid_amount"},
		"procurement_method": {"method", "mode_of_procurement"},
		"award_date":         {"date_awarded", "date_of_award"},
		"status":             {"procurement_status", "award_status"},
	},
	"philgeps_bids": {
		"reference_number": {"reference_no", "ref_no", "refno"},
		"contractor_name":  {"bidder", "bidder_name", "supplier"},
		"bid_amount":       {"amount", "bid_price"},
	},
	"audit_findings": {
		"agency":      {"auditee", "agency_name"},
		"finding_id":  {"observation_no", "finding_no"},
		"description": {"observation", "finding"},
	},
	"blacklist": {
		"contractor_name": {"name_of_contractor", "supplier"},
		"sanction_date":   {"date_blacklisted", "effectivity_date"},
	},
}

// NormalizeHeader lowercases a column header and joins its words with
// underscores: "Award Date " -> "award_date".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(".", " ", "-", " ", "/", " ", "#", " ").Replace(h)
	return strings.Join(strings.Fields(h), "_")
}

// canonicalHeaders maps each header of a file to its field name for source.
// A canonical field already present as a header wins over its aliases.
func canonicalHeaders(headers []string, source string) []string {
	out := make([]string, len(headers))
	present := make(map[string]bool, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h)
		present[out[i]] = true
	}

	aliases := columnAliases[source]
	if len(aliases) == 0 {
		return out
	}
	for field, variants := range aliases {
		if present[field] {
			continue
		}
		for _, v := range variants {
			if i := indexOf(out, v); i >= 0 {
				out[i] = field
				present[field] = true
				break
			}
		}
	}
	return out
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}

// RowsToRecords turns a header row and data rows into records. Blank rows
// are dropped, and cells beyond the header are ignored.
func RowsToRecords(header []string, rows [][]string, source string) []common.Record {
	fields := canonicalHeaders(header, source)
	records := make([]common.Record, 0, len(rows))
	for _, row := range rows {
		r := make(common.Record, len(fields))
		empty := true
		for i, f := range fields {
			if f == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			r[f] = v
			empty = false
		}
		if !empty {
			records = append(records, r)
		}
	}
	return records
}

// FileTypeOf picks the parser for a path by its extension.
func FileTypeOf(path string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx", ".xlsm":
		return FileTypeExcel, nil
	case ".jsonl", ".ndjson", ".json":
		return FileTypeJSONL, nil
	}
	return "", fmt.Errorf("%w: unsupported file type %q", common.ErrMalformedInput, filepath.Ext(path))
}

// CanonicalRecord renames the keys of a decoded object the way headers are
// renamed, so jsonl exports and spreadsheets share field names.
func CanonicalRecord(r common.Record, source string) common.Record {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fields := canonicalHeaders(keys, source)
	out := make(common.Record, len(r))
	for i, k := range keys {
		if v := r[k]; v != nil {
			out[fields[i]] = v
		}
	}
	return out
}

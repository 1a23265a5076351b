package common

import (
	"encoding/json"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight is the contribution of a flag of this severity to an entity's risk score.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func (s Severity) Valid() bool {
	return s.Weight() > 0
}

// EntityRef names the graph node a finding is attributed to.
type EntityRef struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type NodeType `json:"type"`
}

// Evidence is the detector-specific payload of a RedFlag. Each detector has
// its own concrete evidence type; Fields flattens it to the generic wire map
// and Subject names the node the finding is grouped under.
type Evidence interface {
	Fields() map[string]any
	Subject() EntityRef
}

// RedFlag is a single finding of a detector. Flags are computed from the
// current graph state on every query.
type RedFlag struct {
	Type        string
	Severity    Severity
	Description string
	Evidence    Evidence
	DetectedAt  time.Time
}

type redFlagJSON struct {
	Type        string         `json:"type"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Evidence    map[string]any `json:"evidence"`
	DetectedAt  time.Time      `json:"detected_at"`
}

// MarshalJSON renders the flag in its flat wire form.
func (r RedFlag) MarshalJSON() ([]byte, error) {
	out := redFlagJSON{
		Type:        r.Type,
		Severity:    r.Severity,
		Description: r.Description,
		Evidence:    map[string]any{},
		DetectedAt:  r.DetectedAt.UTC(),
	}
	if r.Evidence != nil {
		out.Evidence = r.Evidence.Fields()
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire form back. Evidence is restored as
// StoredEvidence since the detector-specific type is not recoverable.
func (r *RedFlag) UnmarshalJSON(data []byte) error {
	var in redFlagJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Type = in.Type
	r.Severity = in.Severity
	r.Description = in.Description
	r.DetectedAt = in.DetectedAt
	r.Evidence = StoredEvidence(in.Evidence)
	return nil
}

// Subject returns the entity the flag is attributed to.
func (r RedFlag) Subject() EntityRef {
	if r.Evidence == nil {
		return EntityRef{ID: "unknown"}
	}
	return r.Evidence.Subject()
}

// StoredEvidence is evidence read back from persistence. Its subject is
// recovered from the conventional identifier keys.
type StoredEvidence map[string]any

func (e StoredEvidence) Fields() map[string]any {
	return e
}

func (e StoredEvidence) Subject() EntityRef {
	p := Properties(e)
	switch {
	case p.Text("contractor_id") != "":
		return EntityRef{ID: p.Text("contractor_id"), Name: p.Text("contractor_name"), Type: NodeContractor}
	case p.Text("new_contractor_id") != "":
		return EntityRef{ID: p.Text("new_contractor_id"), Name: p.Text("new_contractor_name"), Type: NodeContractor}
	case p.Text("agency_id") != "":
		return EntityRef{ID: p.Text("agency_id"), Name: p.Text("agency_name"), Type: NodeAgency}
	case p.Text("contract_id") != "":
		return EntityRef{ID: p.Text("contract_id"), Name: p.Text("contract_ref"), Type: NodeContract}
	case p.Text("contractor1_id") != "":
		return EntityRef{ID: p.Text("contractor1_id"), Name: p.Text("contractor1"), Type: NodeContractor}
	}
	return EntityRef{ID: "unknown"}
}

// FlaggedEntity is the per-entity rollup of red flags with its risk score.
type FlaggedEntity struct {
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	EntityType NodeType  `json:"entity_type"`
	RiskScore  float64   `json:"risk_score"`
	Flags      []RedFlag `json:"flags"`
}

// RiskScore sums the severity weights of flags.
func RiskScore(flags []RedFlag) float64 {
	var score float64
	for _, f := range flags {
		score += f.Severity.Weight()
	}
	return score
}

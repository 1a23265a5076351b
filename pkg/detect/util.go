package detect

import (
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

func newFlag(p Params, typ string, sev common.Severity, desc string, ev common.Evidence) common.RedFlag {
	return common.RedFlag{
		Type:        typ,
		Severity:    sev,
		Description: desc,
		Evidence:    ev,
		DetectedAt:  p.Now().UTC(),
	}
}

func contractRef(v *store.View, id string) ContractRef {
	props := v.Props(id)
	ref := props.Text("reference_number")
	if ref == "" {
		_, key, _ := common.ParseNodeID(id)
		ref = key
	}
	c := ContractRef{ID: id, Ref: ref, Amount: props.FloatOr("amount", 0)}
	if t, ok := props.Time("award_date"); ok {
		c.Date = t.Format(time.DateOnly)
	}
	return c
}

// bidCount reads the number of bidders recorded on a contract. Older
// exports use bidder_count.
func bidCount(props common.Properties) (int, bool) {
	if n, ok := props.Int("bid_count"); ok {
		return n, true
	}
	return props.Int("bidder_count")
}

// awardsOf returns the ids of contracts awarded to contractorID.
func awardsOf(v *store.View, contractorID string) []string {
	in := v.In(common.EdgeAwardedTo, contractorID)
	out := make([]string, 0, len(in))
	for _, e := range in {
		out = append(out, e.Source)
	}
	return store.DedupeStrings(out)
}

// agencyOf returns the agency that procured contractID, or "".
func agencyOf(v *store.View, contractID string) string {
	for _, e := range v.In(common.EdgeProcured, contractID) {
		return e.Source
	}
	return ""
}

// Package quality runs data quality checks over the loaded graph: required
// properties, dangling edges, duplicate contractors and amount outliers.
package quality

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// sampleSize bounds the ids listed per failing check.
const sampleSize = 10

// RequiredFields lists the properties every node of a type must carry.
var RequiredFields = map[common.NodeType][]string{
	common.NodeContract:     {"reference_number"},
	common.NodeContractor:   {"name"},
	common.NodeAgency:       {"name"},
	common.NodePolitician:   {"name", "position"},
	common.NodeMunicipality: {"psgc_code", "name"},
}

// Result is the outcome of one quality check.
type Result struct {
	Name    string   `json:"name"`
	Status  Status   `json:"status"`
	Count   int      `json:"count"`
	Total   int      `json:"total"`
	Message string   `json:"message,omitempty"`
	Samples []string `json:"samples,omitempty"`
}

type Summary struct {
	TotalChecks int `json:"total_checks"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	Warned      int `json:"warned"`
}

// Report groups the checks by category.
type Report struct {
	Completeness         []Result  `json:"completeness"`
	ReferentialIntegrity []Result  `json:"referential_integrity"`
	Duplicates           []Result  `json:"duplicates"`
	Outliers             []Result  `json:"outliers"`
	Summary              Summary   `json:"summary"`
	CheckedAt            time.Time `json:"checked_at"`
}

// Check loads the graph once and runs every check on it.
func Check(ctx context.Context, r store.GraphReader) (*Report, error) {
	v, err := store.LoadView(ctx, r, common.NodeTypes, common.EdgeTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph for quality checks: %w", err)
	}

	rep := &Report{
		Completeness:         Completeness(v),
		ReferentialIntegrity: ReferentialIntegrity(v),
		Duplicates:           []Result{DuplicateRate(v)},
		Outliers:             []Result{AmountOutliers(v)},
		CheckedAt:            time.Now().UTC(),
	}
	for _, group := range [][]Result{rep.Completeness, rep.ReferentialIntegrity, rep.Duplicates, rep.Outliers} {
		for _, c := range group {
			rep.Summary.TotalChecks++
			switch c.Status {
			case StatusPass:
				rep.Summary.Passed++
			case StatusFail:
				rep.Summary.Failed++
			case StatusWarn:
				rep.Summary.Warned++
			}
		}
	}

	logger.Info("[Quality] Validation complete",
		"passed", rep.Summary.Passed,
		"failed", rep.Summary.Failed,
		"warned", rep.Summary.Warned,
	)
	return rep, nil
}

// Completeness reports, per type and required property, the nodes missing it.
// A contract also needs a procuring agency.
func Completeness(v *store.View) []Result {
	var checks []Result
	for _, t := range common.NodeTypes {
		fields, ok := RequiredFields[t]
		if !ok {
			continue
		}
		nodes := v.NodesOf(t)
		for _, f := range fields {
			var missing []string
			for _, n := range nodes {
				if n.Properties.Text(f) == "" {
					missing = append(missing, n.ID)
				}
			}
			checks = append(checks, failIf(fmt.Sprintf("%s.%s", t, f), missing, len(nodes)))
		}
	}

	contracts := v.NodesOf(common.NodeContract)
	var orphaned []string
	for _, c := range contracts {
		if len(v.In(common.EdgeProcured, c.ID)) == 0 {
			orphaned = append(orphaned, c.ID)
		}
	}
	checks = append(checks, failIf("Contract.procuring_entity", orphaned, len(contracts)))

	for _, c := range checks {
		if c.Status == StatusFail {
			logger.Warn("[Quality] Nodes missing required field", "check", c.Name, "missing", c.Count)
		}
	}
	return checks
}

// ReferentialIntegrity reports, per edge type, edges whose source or target
// node does not exist. Edge types without edges are left out.
func ReferentialIntegrity(v *store.View) []Result {
	var checks []Result
	for _, t := range common.EdgeTypes {
		edges := v.EdgesOf(t)
		if len(edges) == 0 {
			continue
		}
		var dangling []string
		for _, e := range edges {
			_, srcOK := v.Node(e.Source)
			_, tgtOK := v.Node(e.Target)
			if !srcOK || !tgtOK {
				dangling = append(dangling, e.ID)
			}
		}
		c := failIf(string(t), dangling, len(edges))
		if c.Status == StatusFail {
			logger.Warn("[Quality] Dangling edges", "type", t, "dangling", c.Count)
		}
		checks = append(checks, c)
	}
	if len(checks) == 0 {
		checks = append(checks, Result{Name: "all", Status: StatusPass})
	}
	return checks
}

// DuplicateRate counts contractors whose names normalize to the same form.
// Count is the number of duplicate groups; Message carries the node total.
func DuplicateRate(v *store.View) Result {
	contractors := v.NodesOf(common.NodeContractor)
	groups := make(map[string][]string)
	for _, c := range contractors {
		key := normalize.ContractorName(c.Label())
		if key != "" {
			groups[key] = append(groups[key], c.ID)
		}
	}

	c := Result{Name: "Contractor.normalized_name", Status: StatusPass, Total: len(contractors)}
	var keys []string
	members := 0
	for key, ids := range groups {
		if len(ids) > 1 {
			keys = append(keys, key)
			members += len(ids)
		}
	}
	if len(keys) == 0 {
		return c
	}
	slices.Sort(keys)
	c.Status = StatusWarn
	c.Count = len(keys)
	c.Message = fmt.Sprintf("%d contractors in %d duplicate groups", members, len(keys))
	c.Samples = keys[:min(sampleSize, len(keys))]
	logger.Warn("[Quality] Duplicate contractor groups", "groups", len(keys), "contractors", members)
	return c
}

// AmountOutliers flags contracts whose positive amount lies more than three
// sample standard deviations from the mean.
func AmountOutliers(v *store.View) Result {
	type amount struct {
		ref   string
		value float64
	}
	var amounts []amount
	for _, n := range v.NodesOf(common.NodeContract) {
		if a, ok := n.Properties.Float("amount"); ok && a > 0 {
			amounts = append(amounts, amount{n.Label(), a})
		}
	}

	c := Result{Name: "Contract.amount", Status: StatusPass, Total: len(amounts)}
	if len(amounts) < 2 {
		return c
	}
	mean := 0.0
	for _, a := range amounts {
		mean += a.value
	}
	mean /= float64(len(amounts))
	variance := 0.0
	for _, a := range amounts {
		variance += (a.value - mean) * (a.value - mean)
	}
	std := math.Sqrt(variance / float64(len(amounts)-1))
	if std == 0 {
		return c
	}

	var outliers []amount
	for _, a := range amounts {
		if math.Abs(a.value-mean) > 3*std {
			outliers = append(outliers, a)
		}
	}
	if len(outliers) == 0 {
		return c
	}
	slices.SortFunc(outliers, func(x, y amount) int {
		return cmp.Compare(y.value, x.value)
	})
	c.Status = StatusWarn
	c.Count = len(outliers)
	c.Message = fmt.Sprintf("mean %.2f, std %.2f", mean, std)
	for _, o := range outliers[:min(sampleSize, len(outliers))] {
		c.Samples = append(c.Samples, o.ref)
	}
	logger.Warn("[Quality] Contract amount outliers", "outliers", len(outliers))
	return c
}

func failIf(name string, offenders []string, total int) Result {
	c := Result{Name: name, Status: StatusPass, Count: len(offenders), Total: total}
	if len(offenders) > 0 {
		c.Status = StatusFail
		c.Samples = offenders[:min(sampleSize, len(offenders))]
	}
	return c
}

package quality

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/memory"
)

func find(results []Result, name string) (Result, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

func TestCheck(t *testing.T) {
	var f memory.Fixture
	agency := f.Node(common.NodeAgency, "DPWH", nil)
	abc := f.Node(common.NodeContractor, "ABC", common.Properties{"name": "ABC Corp"})
	f.Node(common.NodeContractor, "ABC CORPORATION", common.Properties{"name": "ABC Corporation"})
	f.Node(common.NodePolitician, "JUAN CRUZ", common.Properties{"name": "Juan Cruz"})

	for i := range 20 {
		f.Contract(agency, abc, fmt.Sprintf("R-%02d", i), 100, "2024-01-01", nil)
	}
	f.Contract(agency, abc, "R-BIG", 1_000_000, "2024-01-01", nil)
	f.Contract("", abc, "R-ORPHAN", 100, "2024-01-01", nil)
	f.Edge(common.EdgeOwnedBy, abc, "Person:NOBODY", nil)

	rep, err := Check(context.Background(), f.Store())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	position, _ := find(rep.Completeness, "Politician.position")
	if position.Status != StatusFail || position.Count != 1 {
		t.Fatalf("unexpected position check: %+v", position)
	}
	orphan, _ := find(rep.Completeness, "Contract.procuring_entity")
	if orphan.Status != StatusFail || !reflect.DeepEqual(orphan.Samples, []string{"Contract:R-ORPHAN"}) {
		t.Fatalf("unexpected procuring entity check: %+v", orphan)
	}
	if name, _ := find(rep.Completeness, "Contractor.name"); name.Status != StatusPass || name.Total != 2 {
		t.Fatalf("unexpected contractor name check: %+v", name)
	}

	owned, ok := find(rep.ReferentialIntegrity, string(common.EdgeOwnedBy))
	if !ok || owned.Status != StatusFail || owned.Count != 1 {
		t.Fatalf("expected one dangling OWNED_BY edge, got %+v", owned)
	}
	if awarded, _ := find(rep.ReferentialIntegrity, string(common.EdgeAwardedTo)); awarded.Status != StatusPass {
		t.Fatalf("unexpected AWARDED_TO check: %+v", awarded)
	}

	dup := rep.Duplicates[0]
	if dup.Status != StatusWarn || dup.Count != 1 || !reflect.DeepEqual(dup.Samples, []string{"ABC"}) {
		t.Fatalf("unexpected duplicate check: %+v", dup)
	}

	out := rep.Outliers[0]
	if out.Status != StatusWarn || !reflect.DeepEqual(out.Samples, []string{"R-BIG"}) {
		t.Fatalf("unexpected outlier check: %+v", out)
	}

	s := rep.Summary
	if s.TotalChecks != s.Passed+s.Failed+s.Warned || s.Failed != 3 || s.Warned != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestCheckOnEmptyGraph(t *testing.T) {
	rep, err := Check(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Summary.Failed != 0 || rep.Summary.Warned != 0 {
		t.Fatalf("expected a clean report, got %+v", rep.Summary)
	}
	if len(rep.ReferentialIntegrity) != 1 || rep.ReferentialIntegrity[0].Name != "all" {
		t.Fatalf("unexpected integrity checks: %+v", rep.ReferentialIntegrity)
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	n := common.Node{ID: "Contractor:A", Type: common.NodeContractor, Properties: common.Properties{"name": "A"}}
	e := common.Edge{Type: common.EdgeLocatedIn, Source: "Contractor:A", Target: "Municipality:1"}

	for range 3 {
		if err := s.UpsertNodes(ctx, []common.Node{n}); err != nil {
			t.Fatalf("upsert nodes: %v", err)
		}
		if err := s.UpsertEdges(ctx, []common.Edge{e}); err != nil {
			t.Fatalf("upsert edges: %v", err)
		}
	}
	c, _ := s.Counts(ctx)
	if c.Nodes[common.NodeContractor] != 1 || c.Edges[common.EdgeLocatedIn] != 1 {
		t.Fatalf("duplicates created: %+v", c)
	}

	_ = s.UpsertNodes(ctx, []common.Node{{ID: "Contractor:A", Type: common.NodeContractor, Properties: common.Properties{"address": "X"}}})
	got, err := s.GetNode(ctx, "Contractor:A")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got.Properties.Text("name") != "A" || got.Properties.Text("address") != "X" {
		t.Fatalf("properties should merge: %v", got.Properties)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	_, err := New().GetNode(context.Background(), "Agency:NONE")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelledContextIsStoreUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().NodesByType(ctx, common.NodeAgency)
	if !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestNeighborsAndSearch(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertNodes(ctx, []common.Node{
		{ID: "Contractor:ABC BUILDERS", Type: common.NodeContractor, Properties: common.Properties{"name": "ABC BUILDERS"}},
		{ID: "Contractor:XABC", Type: common.NodeContractor, Properties: common.Properties{"name": "XABC"}},
		{ID: "Agency:DPWH", Type: common.NodeAgency, Properties: common.Properties{"name": "DPWH"}},
	})
	_ = s.UpsertEdges(ctx, []common.Edge{
		{Type: common.EdgeProcured, Source: "Agency:DPWH", Target: "Contract:1"},
		{Type: common.EdgeAwardedTo, Source: "Contract:1", Target: "Contractor:ABC BUILDERS"},
	})

	edges, _ := s.Neighbors(ctx, []string{"Contract:1"}, common.EdgeAwardedTo)
	if len(edges) != 1 || edges[0].Target != "Contractor:ABC BUILDERS" {
		t.Fatalf("unexpected neighbors %+v", edges)
	}

	hits, _ := s.Search(ctx, "abc", "", 10)
	if len(hits) != 2 || hits[0].ID != "Contractor:ABC BUILDERS" {
		t.Fatalf("prefix match should rank first: %+v", hits)
	}
	hits, _ = s.Search(ctx, "abc", common.NodeAgency, 10)
	if len(hits) != 0 {
		t.Fatalf("type filter ignored: %+v", hits)
	}
}

type ev struct{ id string }

func (e ev) Fields() map[string]any     { return map[string]any{"contractor_id": e.id} }
func (e ev) Subject() common.EntityRef { return common.EntityRef{ID: e.id, Type: common.NodeContractor} }

func TestFlagsReplaceAndList(t *testing.T) {
	ctx := context.Background()
	s := New()
	flags := []store.StoredFlag{
		{Entity: common.EntityRef{ID: "A"}, Flag: common.RedFlag{Severity: common.SeverityMedium, Evidence: ev{"A"}}},
		{Entity: common.EntityRef{ID: "B"}, Flag: common.RedFlag{Severity: common.SeverityCritical, Evidence: ev{"B"}}},
		{Entity: common.EntityRef{ID: "A"}, Flag: common.RedFlag{Severity: common.SeverityHigh, Evidence: ev{"A"}}},
	}
	_ = s.ReplaceFlags(ctx, flags)

	all, _ := s.ListFlags(ctx, "", 10)
	if len(all) != 2 || all[0].EntityID != "A" || all[0].RiskScore != 5 {
		t.Fatalf("unexpected grouping %+v", all)
	}
	crit, _ := s.ListFlags(ctx, common.SeverityCritical, 10)
	if len(crit) != 1 || crit[0].EntityID != "B" {
		t.Fatalf("severity filter failed %+v", crit)
	}

	_ = s.ReplaceFlags(ctx, nil)
	all, _ = s.ListFlags(ctx, "", 10)
	if len(all) != 0 {
		t.Fatalf("replace should clear old flags")
	}
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	_ = s.RecordRun(ctx, store.PipelineRun{ID: "1", Source: "psgc", StartedAt: now.Add(-time.Hour)})
	_ = s.RecordRun(ctx, store.PipelineRun{ID: "2", Source: "philgeps_awards", StartedAt: now})
	_ = s.RecordRun(ctx, store.PipelineRun{ID: "1", Source: "psgc", Status: store.RunSucceeded, StartedAt: now.Add(-time.Hour)})

	runs, _ := s.ListRuns(ctx, 10)
	if len(runs) != 2 || runs[0].ID != "2" || runs[1].Status != store.RunSucceeded {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestSearchSimilar(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertNodes(ctx, []common.Node{
		{ID: "Agency:A", Type: common.NodeAgency, Properties: common.Properties{"name": "A"}},
		{ID: "Agency:B", Type: common.NodeAgency, Properties: common.Properties{"name": "B"}},
	})
	_ = s.SaveEmbeddings(ctx, []string{"Agency:A", "Agency:B"}, [][]float32{{1, 0}, {0, 1}})
	hits, _ := s.SearchSimilar(ctx, []float32{0.9, 0.1}, "", 1)
	if len(hits) != 1 || hits[0].ID != "Agency:A" {
		t.Fatalf("unexpected hits %+v", hits)
	}
}

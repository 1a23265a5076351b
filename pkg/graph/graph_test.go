package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/memory"
)

func newClient(t *testing.T) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{BatchSize: 2, ParallelWrites: 2, MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return g
}

func mustIngest(t *testing.T, g *GraphClient, st Store, source Source, records []common.Record) *IngestReport {
	t.Helper()
	report, err := g.Ingest(context.Background(), st, source, records)
	if err != nil {
		t.Fatalf("Ingest(%s): %v", source, err)
	}
	return report
}

func award(ref, agency, contractor string, amount any, date string) common.Record {
	return common.Record{
		"reference_number":   ref,
		"title":              "Road works " + ref,
		"procuring_entity":   agency,
		"contractor_name":    contractor,
		"amount":             amount,
		"procurement_method": "Public Bidding",
		"award_date":         date,
	}
}

func TestIngestAwardsResolvesContractors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	records := []common.Record{
		award("R-1", "DPWH  Cebu", "ABC Construction Corp.", 4_500_000, "2024-01-03"),
		award("R-2", "DPWH Cebu", "ABC CONSTRUCTION CORPORATION", "PHP 4,800,000", "2024-01-10"),
		award("R-3", "DPWH Cebu", "BUILDRITE ENTERPRISES", 4_900_000, "2024-01-20"),
		award("R-4", "DPWH Cebu", "BUILDRITE ENTERPRISE", 1_000_000, "2024-03-01"),
		{"reference_number": "R-5", "procuring_entity": "DPWH Cebu"},
	}
	report := mustIngest(t, g, st, SourceAwards, records)

	if report.Skipped != 1 {
		t.Fatalf("expected 1 skipped record, got %d", report.Skipped)
	}
	if got := report.MergeMap["BUILDRITE ENTERPRISE"]; got != "BUILDRITE ENTERPRISES" {
		t.Fatalf("unexpected merge target %q", got)
	}

	contractors, err := st.NodesByType(ctx, common.NodeContractor)
	if err != nil {
		t.Fatalf("NodesByType: %v", err)
	}
	var ids []string
	for _, c := range contractors {
		ids = append(ids, c.ID)
	}
	want := []string{"Contractor:ABC CONSTRUCTION", "Contractor:BUILDRITE ENTERPRISES"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("got contractors %v, want %v", ids, want)
	}

	abc, err := st.GetNode(ctx, "Contractor:ABC CONSTRUCTION")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if abc.Properties.Text("name") != "ABC CONSTRUCTION CORPORATION" {
		t.Fatalf("unexpected display name %q", abc.Properties.Text("name"))
	}

	agencies, _ := st.NodesByType(ctx, common.NodeAgency)
	if len(agencies) != 1 || agencies[0].ID != "Agency:DPWH CEBU" {
		t.Fatalf("expected one agency, got %+v", agencies)
	}

	contract, _ := st.GetNode(ctx, "Contract:R-2")
	if amount, _ := contract.Properties.Float("amount"); amount != 4_800_000 {
		t.Fatalf("amount not parsed: %v", contract.Properties["amount"])
	}

	largest := 0
	for _, c := range report.SplitClusters {
		largest = max(largest, c.ContractCount)
	}
	if largest != 3 {
		t.Fatalf("expected a split cluster of 3 contracts, got %+v", report.SplitClusters)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	records := []common.Record{
		award("R-1", "DPWH", "A Corp", 100, "2024-01-01"),
		award("R-2", "DPWH", "B Inc", 200, "2024-02-01"),
	}
	mustIngest(t, g, st, SourceAwards, records)
	first, _ := st.Counts(ctx)
	mustIngest(t, g, st, SourceAwards, records)
	second, _ := st.Counts(ctx)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("counts changed on reload: %+v vs %+v", first, second)
	}
	if first.Nodes[common.NodeContract] != 2 || first.Edges[common.EdgeAwardedTo] != 2 {
		t.Fatalf("unexpected counts: %+v", first)
	}
}

func TestIngestBidsDerivesCoBidding(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	bid := func(ref, name string, amount float64) common.Record {
		return common.Record{"reference_number": ref, "contractor_name": name, "bid_amount": amount}
	}
	report := mustIngest(t, g, st, SourceBids, []common.Record{
		bid("R-1", "Alpha Corp", 10), bid("R-1", "Beta Inc", 11), bid("R-1", "Gamma", 12),
		bid("R-2", "Alpha Corp", 20), bid("R-2", "Beta Inc", 21),
	})
	if report.DerivedEdges[common.EdgeCoBidWith] != 1 {
		t.Fatalf("expected 1 co-bid edge, got %v", report.DerivedEdges)
	}

	edges, _ := st.EdgesByType(ctx, common.EdgeCoBidWith)
	if len(edges) != 1 {
		t.Fatalf("expected 1 stored co-bid edge, got %d", len(edges))
	}
	e := edges[0]
	if e.Source != "Contractor:ALPHA" || e.Target != "Contractor:BETA" {
		t.Fatalf("unexpected endpoints %s -> %s", e.Source, e.Target)
	}
	if n, _ := e.Properties.Int("contract_count"); n != 2 {
		t.Fatalf("expected contract_count 2, got %v", e.Properties["contract_count"])
	}

	r1, _ := st.GetNode(ctx, "Contract:R-1")
	if n, _ := r1.Properties.Int("bidder_count"); n != 3 {
		t.Fatalf("expected bidder_count 3, got %v", r1.Properties["bidder_count"])
	}
	bids, _ := st.EdgesByType(ctx, common.EdgeBidOn)
	if len(bids) != 5 {
		t.Fatalf("expected 5 bid edges, got %d", len(bids))
	}
}

func TestIngestContractorsDerivesSharedAttributes(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	mustIngest(t, g, st, SourcePSGC, []common.Record{
		{"psgc_code": "072217000", "name": "Cebu City", "province": "Cebu", "region": "VII"},
	})
	mustIngest(t, g, st, SourceContractors, []common.Record{
		{"name": "Alpha Builders", "address": "1 Main St., Cebu", "directors": "Juan Dela Cruz; Maria Santos", "municipality": "cebu city", "registered_capital": "PHP 10,000"},
		{"name": "Beta Builders", "address": "1 MAIN ST CEBU", "directors": "Juan de la Cruz"},
		{"name": "Gamma Builders", "address": "9 Other Rd"},
	})

	same, _ := st.EdgesByType(ctx, common.EdgeSameAddressAs)
	if len(same) != 1 || same[0].Source != "Contractor:ALPHA BUILDERS" || same[0].Target != "Contractor:BETA BUILDERS" {
		t.Fatalf("unexpected SAME_ADDRESS_AS edges: %+v", same)
	}
	shared, _ := st.EdgesByType(ctx, common.EdgeSharesDirectorWith)
	if len(shared) != 1 {
		t.Fatalf("expected one SHARES_DIRECTOR_WITH edge, got %d", len(shared))
	}
	if !reflect.DeepEqual(shared[0].Properties["shared_directors"], []string{"JUAN DELA CRUZ"}) {
		t.Fatalf("unexpected shared directors: %v", shared[0].Properties["shared_directors"])
	}

	located, _ := st.EdgesByType(ctx, common.EdgeLocatedIn)
	if len(located) != 1 || located[0].Target != "Municipality:072217000" {
		t.Fatalf("expected municipality resolved by name, got %+v", located)
	}

	alpha, _ := st.GetNode(ctx, "Contractor:ALPHA BUILDERS")
	if n, _ := alpha.Properties.Int("director_count"); n != 2 {
		t.Fatalf("expected director_count 2, got %v", alpha.Properties["director_count"])
	}

	// an ownership file loaded later still links through the stored directors
	mustIngest(t, g, st, SourceOwnership, []common.Record{
		{"contractor_name": "Gamma Builders", "person_name": "Maria Santos"},
	})
	shared, _ = st.EdgesByType(ctx, common.EdgeSharesDirectorWith)
	if len(shared) != 2 {
		t.Fatalf("expected two SHARES_DIRECTOR_WITH edges after ownership load, got %d", len(shared))
	}
}

func TestIngestBillsDerivesCoAuthorship(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	mustIngest(t, g, st, SourceBills, []common.Record{
		{"bill_number": "HB-1", "title": "Roads", "authors": "Juan Cruz Jr.; Ana Reyes"},
		{"bill_number": "HB-2", "title": "Bridges", "authors": "Ana Reyes; Juan Cruz"},
		{"bill_number": "HB-3", "title": "Ports", "authors": "Ana Reyes"},
	})

	edges, _ := st.EdgesByType(ctx, common.EdgeCoAuthoredWith)
	if len(edges) != 1 {
		t.Fatalf("expected one co-author edge, got %d", len(edges))
	}
	if n, _ := edges[0].Properties.Int("bill_count"); n != 2 {
		t.Fatalf("expected bill_count 2, got %v", edges[0].Properties["bill_count"])
	}
	authored, _ := st.EdgesByType(ctx, common.EdgeAuthored)
	if len(authored) != 5 {
		t.Fatalf("expected 5 AUTHORED edges, got %d", len(authored))
	}
}

func TestIngestDonationsAndSALN(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	mustIngest(t, g, st, SourceDonations, []common.Record{
		{"contractor_name": "Alpha Corp", "politician_name": "Ana Reyes", "amount": "PHP 500,000", "date": "2022-03-01"},
	})
	mustIngest(t, g, st, SourceSALN, []common.Record{
		{"politician_name": "Ana Reyes", "year": 2022, "assets": 10_000_000, "liabilities": 2_000_000},
	})

	donations, _ := st.NodesByType(ctx, common.NodeCampaignDonation)
	if len(donations) != 1 {
		t.Fatalf("expected one donation, got %d", len(donations))
	}
	if y, _ := donations[0].Properties.Int("year"); y != 2022 {
		t.Fatalf("expected year taken from the date, got %v", donations[0].Properties["year"])
	}
	edges, _ := st.Neighbors(ctx, []string{donations[0].ID}, common.EdgeDonatedTo)
	if len(edges) != 2 {
		t.Fatalf("expected donation chain of two edges, got %d", len(edges))
	}

	saln, err := st.GetNode(ctx, "SALNRecord:ANA REYES|2022")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if nw, _ := saln.Properties.Float("net_worth"); nw != 8_000_000 {
		t.Fatalf("expected computed net worth, got %v", saln.Properties["net_worth"])
	}
}

func TestIngestRecordsPipelineRun(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	g := newClient(t)

	report := mustIngest(t, g, st, SourcePSGC, []common.Record{{"psgc_code": "1", "name": "A"}, {"name": "no code"}})
	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != report.RunID || run.Status != store.RunSucceeded || run.Skipped != 1 || run.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestIngestRejectsUnknownSource(t *testing.T) {
	_, err := newClient(t).Ingest(context.Background(), memory.New(), Source("rumors"), nil)
	if !errors.Is(err, common.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	if _, err := ParseSource(" PSGC "); err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
}

type failingStore struct {
	*memory.Store
}

func (f failingStore) UpsertEdges(ctx context.Context, edges []common.Edge) error {
	return common.StoreError("upsert edges", errors.New("connection reset"))
}

func TestIngestStoreFailureMarksRunFailed(t *testing.T) {
	ctx := context.Background()
	st := failingStore{memory.New()}
	g := newClient(t)

	_, err := g.Ingest(ctx, st, SourceAwards, []common.Record{award("R-1", "DPWH", "A", 1, "2024-01-01")})
	if !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	runs, _ := st.ListRuns(ctx, 1)
	if len(runs) != 1 || runs[0].Status != store.RunFailed || runs[0].Error == "" {
		t.Fatalf("expected failed run, got %+v", runs)
	}
}

package derive

import (
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

func bid(ref, name string) common.Record {
	return common.Record{"reference_number": ref, "contractor_name": name}
}

func TestCoBiddingFrequentPair(t *testing.T) {
	var records []common.Record
	for _, ref := range []string{"R1", "R2", "R3", "R4", "R5"} {
		records = append(records, bid(ref, "A"), bid(ref, "B"))
	}
	// repeated row on the same contract must not inflate the count
	records = append(records, bid("R1", "A"))

	edges, stats := CoBidding(records, DefaultCoBidOptions())
	want := []CoBidEdge{{A: "A", B: "B", ContractCount: 5, Pattern: PatternFrequent}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("got %+v, want %+v", edges, want)
	}
	if stats.Skipped != 0 {
		t.Fatalf("unexpected skipped: %d", stats.Skipped)
	}
}

func TestCoBiddingThresholdAndSymmetry(t *testing.T) {
	records := []common.Record{
		bid("R1", "B"), bid("R1", "A"), bid("R1", "C"),
		bid("R2", "A"), bid("R2", "B"),
		bid("R3", "C"), bid("R3", "D"),
		bid("", "A"), bid("R9", ""),
	}
	edges, stats := CoBidding(records, DefaultCoBidOptions())
	if stats.Skipped != 2 {
		t.Fatalf("expected 2 skipped rows, got %d", stats.Skipped)
	}
	if len(edges) != 1 {
		t.Fatalf("only A-B reaches 2 shared contracts, got %+v", edges)
	}
	e := edges[0]
	if e.A != "A" || e.B != "B" || e.ContractCount != 2 || e.Pattern != PatternOccasional {
		t.Fatalf("unexpected edge %+v", e)
	}
	seen := map[[2]string]bool{}
	for _, e := range edges {
		if e.ContractCount < 2 {
			t.Fatalf("edge below minimum count emitted: %+v", e)
		}
		if seen[[2]string{e.B, e.A}] {
			t.Fatalf("both orientations emitted for %+v", e)
		}
		seen[[2]string{e.A, e.B}] = true
	}
}

func contract(agency, ref string, amount float64, date string) common.Record {
	return common.Record{
		"procuring_entity": agency,
		"reference_number": ref,
		"amount":           amount,
		"award_date":       date,
	}
}

func TestSplitContractsCluster(t *testing.T) {
	records := []common.Record{
		contract("DPWH", "C1", 4_600_000, "2024-01-01"),
		contract("DPWH", "C2", 4_750_000, "2024-01-10"),
		contract("DPWH", "C3", 4_900_000, "2024-01-20"),
		contract("DPWH", "C4", 4_800_000, "2024-03-20"),
	}
	opts := DefaultSplitOptions()
	opts.Thresholds = []float64{5_000_000}

	clusters, _ := SplitContracts(records, opts)
	if len(clusters) == 0 {
		t.Fatalf("expected clusters")
	}
	top := clusters[0]
	if top.ContractCount != 3 || top.TotalAmount != 14_250_000 {
		t.Fatalf("unexpected top cluster: %+v", top)
	}
	if top.Contracts[0].Reference != "C1" {
		t.Fatalf("cluster should be seeded by earliest contract, got %+v", top.Contracts)
	}
	// C2 seeds an overlapping cluster with C3
	if len(clusters) != 2 || clusters[1].ContractCount != 2 {
		t.Fatalf("expected an overlapping second cluster, got %+v", clusters)
	}
}

func TestSplitContractsSkipsMalformedAndOutOfBand(t *testing.T) {
	records := []common.Record{
		contract("DPWH", "C1", 3_000_000, "2024-01-01"),
		contract("DPWH", "C2", 3_100_000, "2024-01-02"),
		{"procuring_entity": "DPWH", "amount": 4_900_000.0},
		{"procuring_entity": "DPWH", "award_date": "2024-01-03"},
		contract("", "C5", 4_900_000, "2024-01-03"),
	}
	opts := DefaultSplitOptions()
	opts.Thresholds = []float64{5_000_000}

	clusters, stats := SplitContracts(records, opts)
	if len(clusters) != 0 {
		t.Fatalf("amounts below band must not seed: %+v", clusters)
	}
	if stats.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %d", stats.Skipped)
	}
}

func TestSplitContractsWindowAndRatio(t *testing.T) {
	records := []common.Record{
		contract("DepEd", "S", 900_000, "2024-05-01"),
		contract("DepEd", "TOO_SMALL", 100_000, "2024-05-02"),
		contract("DepEd", "TOO_LATE", 900_000, "2024-06-15"),
		contract("DepEd", "OK", 1_500_000, "2024-05-31"),
		contract("Other", "OTHER_AGENCY", 900_000, "2024-05-02"),
	}
	clusters, _ := SplitContracts(records, DefaultSplitOptions())
	var refs []string
	for _, c := range clusters {
		if c.Agency == "DepEd" && c.Contracts[0].Reference == "S" {
			for _, ct := range c.Contracts {
				refs = append(refs, ct.Reference)
			}
		}
	}
	if !reflect.DeepEqual(refs, []string{"S", "OK"}) {
		t.Fatalf("unexpected cluster members: %v", refs)
	}
}

func TestSurnameLinks(t *testing.T) {
	contractors := []common.Record{
		{"contractor_name": "Builders Villar Inc.", "province": "Cavite"},
		{"contractor_name": "Acme Villar", "province": ""},
	}
	politicians := []common.Record{
		{"name": "Juan Villar Jr.", "province": "CAVITE"},
		{"name": "Villar, Maria", "province": "Laguna"},
	}
	links := SurnameLinks(contractors, politicians)
	if len(links) != 1 {
		t.Fatalf("expected one link, got %+v", links)
	}
	if links[0].Politician != "JUAN VILLAR" || links[0].Confidence != "low" {
		t.Fatalf("unexpected link %+v", links[0])
	}
}

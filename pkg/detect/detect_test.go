package detect

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/memory"
)

var fixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func testParams() Params {
	p := DefaultParams()
	p.Now = func() time.Time { return fixedNow }
	return p
}

func run1(t *testing.T, d Detector, f *memory.Fixture) []common.RedFlag {
	t.Helper()
	flags, err := d(context.Background(), f.Store(), testParams().withDefaults())
	if err != nil {
		t.Fatalf("detector failed: %v", err)
	}
	return flags
}

func TestDetectAllOnEmptyGraph(t *testing.T) {
	rep := DetectAll(context.Background(), memory.New(), testParams())
	if len(rep.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", rep.Failures)
	}
	if len(rep.Flags) != len(Names()) {
		t.Fatalf("expected %d detector keys, got %d", len(Names()), len(rep.Flags))
	}
	for name, flags := range rep.Flags {
		if flags == nil || len(flags) != 0 {
			t.Fatalf("%s: expected empty non-nil list, got %v", name, flags)
		}
	}
}

func TestDetectorsOnDisconnectedGraph(t *testing.T) {
	f := &memory.Fixture{}
	f.Node(common.NodeContractor, "LONE BUILDER", common.Properties{"registered_capital": 0})
	f.Node(common.NodeAgency, "DPWH", nil)
	f.Node(common.NodeMunicipality, "137404000", common.Properties{"region": "NCR"})
	f.Contract("", "", "NO-LINKS", 1_000_000, "2023-01-01", nil)

	rep := DetectAll(context.Background(), f.Store(), testParams())
	if len(rep.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", rep.Failures)
	}
	if n := len(rep.All()); n != 0 {
		t.Fatalf("expected no flags, got %d", n)
	}
}

func TestSingleBidderScenario(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "DPWH", nil)
	con := f.Node(common.NodeContractor, "ABC CONSTRUCTION", nil)
	f.Contract(agency, con, "C-1", 1_000_000, "2023-01-01", common.Properties{"bid_count": 1})
	f.Contract(agency, con, "C-2", 2_000_000, "2023-02-01", common.Properties{"bid_count": 1})
	f.Contract(agency, con, "C-3", 3_000_000, "2023-03-01", common.Properties{"bidder_count": 1})
	f.Contract(agency, con, "C-4", 4_000_000, "2023-04-01", common.Properties{"bid_count": 4})

	flags := run1(t, SingleBidder, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(SingleBidderEvidence)
	var refs []string
	for _, c := range ev.Contracts {
		refs = append(refs, c.Ref)
	}
	if !reflect.DeepEqual(refs, []string{"C-1", "C-2", "C-3"}) {
		t.Fatalf("unexpected contracts %v", refs)
	}
	if flags[0].Severity != common.SeverityMedium || flags[0].Subject().ID != con {
		t.Fatalf("unexpected flag %+v", flags[0])
	}

	p := testParams()
	p.SingleBidderMin = 4
	if flags, _ := SingleBidder(context.Background(), f.Store(), p.withDefaults()); len(flags) != 0 {
		t.Fatalf("raised threshold should suppress the flag")
	}
}

func TestIdenticalBids(t *testing.T) {
	f := &memory.Fixture{}
	a := f.Node(common.NodeContractor, "A", nil)
	b := f.Node(common.NodeContractor, "B", nil)
	c := f.Node(common.NodeContractor, "C", nil)
	contract := f.Contract("", "", "REF-1", 10_000_000, "", nil)
	f.Edge(common.EdgeBidOn, a, contract, common.Properties{"bid_amount": 9_990_000.0})
	f.Edge(common.EdgeBidOn, b, contract, common.Properties{"bid_amount": 9_995_000.0})
	f.Edge(common.EdgeBidOn, c, contract, common.Properties{"bid_amount": 8_000_000.0})

	flags := run1(t, IdenticalBids, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(IdenticalBidsEvidence)
	if ev.Bidder1ID != a || ev.Bidder2ID != b || ev.ContractRef != "REF-1" {
		t.Fatalf("unexpected evidence %+v", ev)
	}
	if want := 5_000.0 / 9_990_000.0; math.Abs(ev.Deviation-want) > 1e-12 {
		t.Fatalf("deviation = %v, want %v", ev.Deviation, want)
	}
	if flags[0].Subject().Type != common.NodeContract {
		t.Fatalf("identical bids are attributed to the contract")
	}
}

func TestSplitContractsScenario(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "DPWH REGION IV-A", nil)
	x := f.Node(common.NodeContractor, "X BUILDERS", nil)
	f.Contract(agency, x, "S-1", 4_600_000, "2023-06-01", nil)
	f.Contract(agency, x, "S-2", 4_750_000, "2023-06-10", nil)
	f.Contract(agency, x, "S-3", 4_900_000, "2023-06-20", nil)
	f.Contract(agency, x, "S-4", 12_000_000, "2023-06-21", nil)

	flags := run1(t, SplitContracts, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(SplitContractsEvidence)
	if ev.NumContracts != 3 || ev.TotalValue != 14_250_000 || ev.Threshold != 5_000_000 {
		t.Fatalf("unexpected evidence %+v", ev)
	}
	if ev.AgencyID != agency || ev.ContractorID != x {
		t.Fatalf("unexpected ids %+v", ev)
	}
}

func TestConcentrationScenario(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "DEPED", nil)
	a := f.Node(common.NodeContractor, "A", nil)
	b := f.Node(common.NodeContractor, "B", nil)
	c := f.Node(common.NodeContractor, "C", nil)
	f.Contract(agency, a, "K-1", 600, "", nil)
	f.Contract(agency, b, "K-2", 300, "", nil)
	f.Contract(agency, c, "K-3", 100, "", nil)

	flags := run1(t, Concentration, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(ConcentrationEvidence)
	if math.Abs(ev.HHI-0.46) > 1e-9 {
		t.Fatalf("HHI = %v, want 0.46", ev.HHI)
	}
	if ev.TopContractors[0].ID != a || math.Abs(ev.TopContractors[0].Share-0.6) > 1e-9 {
		t.Fatalf("unexpected top contractor %+v", ev.TopContractors[0])
	}
	if flags[0].Severity != common.SeverityHigh || flags[0].Subject().ID != agency {
		t.Fatalf("unexpected flag %+v", flags[0])
	}
}

func TestConcentrationIgnoresZeroValueAgency(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "EMPTY", nil)
	a := f.Node(common.NodeContractor, "A", nil)
	f.Contract(agency, a, "Z-1", 0, "", nil)
	if flags := run1(t, Concentration, f); len(flags) != 0 {
		t.Fatalf("expected no flag for zero-value agency, got %d", len(flags))
	}
}

func rotationFixture(bWins bool) *memory.Fixture {
	f := &memory.Fixture{}
	a := f.Node(common.NodeContractor, "A", nil)
	b := f.Node(common.NodeContractor, "B", nil)
	for i, ref := range []string{"R-1", "R-2", "R-3"} {
		winner := a
		if bWins && i == 1 {
			winner = b
		}
		c := f.Contract("", winner, ref, 1_000_000, "", nil)
		f.Edge(common.EdgeBidOn, a, c, nil)
		f.Edge(common.EdgeBidOn, b, c, nil)
	}
	f.Edge(common.EdgeCoBidWith, a, b, common.Properties{"contract_count": 3, "win_pattern": "occasional"})
	return f
}

func TestRotatingWinners(t *testing.T) {
	flags := run1(t, RotatingWinners, rotationFixture(true))
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(RotatingWinnersEvidence)
	if ev.CoBidCount != 3 || len(ev.Wins1) != 2 || len(ev.Wins2) != 1 {
		t.Fatalf("unexpected evidence %+v", ev)
	}

	if flags := run1(t, RotatingWinners, rotationFixture(false)); len(flags) != 0 {
		t.Fatalf("one-sided wins are not a rotation, got %d flags", len(flags))
	}
}

func TestPoliticalConnections(t *testing.T) {
	f := &memory.Fixture{}
	con := f.Node(common.NodeContractor, "FAMILY CORP", nil)
	person := f.Node(common.NodePerson, "JUAN REYES", nil)
	pol := f.Node(common.NodePolitician, "MARIA REYES", common.Properties{"position": "Governor"})
	f.Edge(common.EdgeOwnedBy, con, person, nil)
	f.Edge(common.EdgeFamilyOf, person, pol, common.Properties{"relation": "sibling"})

	flags := run1(t, PoliticalConnections, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(PoliticalConnectionEvidence)
	if ev.PoliticianID != pol || ev.PersonID != person || ev.Relation != "sibling" {
		t.Fatalf("unexpected evidence %+v", ev)
	}
	if flags[0].Type != "political_connection" {
		t.Fatalf("unexpected type %q", flags[0].Type)
	}
}

func TestGeographicAnomaly(t *testing.T) {
	f := &memory.Fixture{}
	home := f.Node(common.NodeMunicipality, "HOME", common.Properties{"region": "Region VII"})
	away := f.Node(common.NodeMunicipality, "AWAY", common.Properties{"region": "NCR"})
	agency := f.Node(common.NodeAgency, "CITY ENGINEERING", nil)
	f.Edge(common.EdgeHasAgency, away, agency, nil)
	con := f.Node(common.NodeContractor, "CEBU BUILDERS", nil)
	f.Edge(common.EdgeLocatedIn, con, home, nil)
	for _, ref := range []string{"G-1", "G-2", "G-3"} {
		f.Contract(agency, con, ref, 1_000_000, "", nil)
	}

	flags := run1(t, GeographicAnomaly, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(GeographicAnomalyEvidence)
	if ev.ContractsOutsideRegion != 3 || ev.ValueOutsideRegion != 3_000_000 || !reflect.DeepEqual(ev.AwardRegions, []string{"NCR"}) {
		t.Fatalf("unexpected evidence %+v", ev)
	}
}

func TestShellCompany(t *testing.T) {
	f := &memory.Fixture{}
	small := f.Node(common.NodeContractor, "TINY", common.Properties{"registered_capital": "PHP 10,000"})
	big := f.Node(common.NodeContractor, "BIG", common.Properties{"registered_capital": 100_000_000})
	f.Node(common.NodeContractor, "NO CAPITAL", nil)
	f.Contract("", small, "SC-1", 2_000_000, "", nil)
	f.Contract("", big, "SC-2", 2_000_000, "", nil)

	flags := run1(t, ShellCompany, f)
	if len(flags) != 1 || flags[0].Subject().ID != small {
		t.Fatalf("expected one flag on TINY, got %+v", flags)
	}
	if ev := flags[0].Evidence.(ShellCompanyEvidence); ev.Ratio != 200 {
		t.Fatalf("ratio = %v, want 200", ev.Ratio)
	}
}

func TestPhoenixCompany(t *testing.T) {
	f := &memory.Fixture{}
	old := f.Node(common.NodeContractor, "OLD CO", nil)
	reborn := f.Node(common.NodeContractor, "NEW CO", nil)
	other := f.Node(common.NodeContractor, "ALSO BANNED", nil)
	entry := f.Node(common.NodeBlacklistEntry, "BL-1", common.Properties{"offense": "Delay", "sanction_date": "2021-03-04"})
	entry2 := f.Node(common.NodeBlacklistEntry, "BL-2", nil)
	f.Edge(common.EdgeBlacklisted, old, entry, nil)
	f.Edge(common.EdgeBlacklisted, other, entry2, nil)
	f.Edge(common.EdgeSharesDirectorWith, old, reborn, nil)
	f.Edge(common.EdgeSharesDirectorWith, old, other, nil)
	f.Edge(common.EdgeSameAddressAs, reborn, old, nil)

	flags := run1(t, PhoenixCompany, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(PhoenixCompanyEvidence)
	if ev.NewContractorID != reborn || ev.BlacklistedContractorID != old || !ev.SharedAddress || ev.BlacklistDate != "2021-03-04" {
		t.Fatalf("unexpected evidence %+v", ev)
	}
}

func TestCampaignConnection(t *testing.T) {
	f := &memory.Fixture{}
	con := f.Node(common.NodeContractor, "DONOR CORP", nil)
	pol := f.Node(common.NodePolitician, "MAYOR", nil)
	donation := f.Node(common.NodeCampaignDonation, "D-1", common.Properties{"amount": 500_000, "date": "2022-03-01"})
	town := f.Node(common.NodeMunicipality, "TOWN", nil)
	agency := f.Node(common.NodeAgency, "TOWN BAC", nil)
	f.Edge(common.EdgeDonatedTo, con, donation, nil)
	f.Edge(common.EdgeDonatedTo, donation, pol, nil)
	f.Edge(common.EdgeGoverns, pol, town, nil)
	f.Edge(common.EdgeHasAgency, town, agency, nil)
	f.Contract(agency, con, "BEFORE", 9_000_000, "2021-12-01", nil)
	f.Contract(agency, con, "AFTER", 7_000_000, "2022-09-01", nil)

	flags := run1(t, CampaignConnection, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(CampaignConnectionEvidence)
	if len(ev.Contracts) != 1 || ev.Contracts[0].Ref != "AFTER" || ev.ContractsWon != 7_000_000 {
		t.Fatalf("award before the donation must be excluded: %+v", ev)
	}
}

func TestCircularFlow(t *testing.T) {
	f := &memory.Fixture{}
	a := f.Node(common.NodeContractor, "A", nil)
	b := f.Node(common.NodeContractor, "B", nil)
	c := f.Node(common.NodeContractor, "C", nil)
	d := f.Node(common.NodeContractor, "D", nil)
	f.Edge(common.EdgeSubcontractedTo, a, b, common.Properties{"amount": 100})
	f.Edge(common.EdgeSubcontractedTo, b, c, common.Properties{"amount": 90})
	f.Edge(common.EdgeSubcontractedTo, c, a, common.Properties{"amount": 80})
	f.Edge(common.EdgeSubcontractedTo, c, d, nil)

	flags := run1(t, CircularFlow, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(flags))
	}
	ev := flags[0].Evidence.(CircularFlowEvidence)
	var ids []string
	for _, n := range ev.Cycle {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{a, b, c}) || !reflect.DeepEqual(ev.Amounts, []float64{100, 90, 80}) {
		t.Fatalf("unexpected cycle %v amounts %v", ids, ev.Amounts)
	}
	if flags[0].Severity != common.SeverityCritical {
		t.Fatalf("circular flow is critical")
	}
	if flags[0].Description != "Circular subcontracting detected: A → B → C → A" {
		t.Fatalf("unexpected description %q", flags[0].Description)
	}
}

func TestTimingCluster(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "DOH", nil)
	con := f.Node(common.NodeContractor, "MED SUPPLY", nil)
	f.Contract(agency, con, "T-1", 100, "2023-05-01", nil)
	f.Contract(agency, con, "T-2", 100, "2023-05-02", nil)
	f.Contract(agency, con, "T-3", 100, "2023-05-03", nil)
	f.Contract(agency, con, "T-4", 100, "2023-07-01", nil)

	flags := run1(t, TimingCluster, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(TimingClusterEvidence)
	if len(ev.Contracts) != 3 || ev.FirstDate != "2023-05-01" || ev.LastDate != "2023-05-03" {
		t.Fatalf("unexpected evidence %+v", ev)
	}
}

func TestShellNetwork(t *testing.T) {
	f := &memory.Fixture{}
	a := f.Node(common.NodeContractor, "A", common.Properties{"address": "1 MAIN ST"})
	b := f.Node(common.NodeContractor, "B", nil)
	f.Edge(common.EdgeSameAddressAs, b, a, nil)
	f.Edge(common.EdgeSharesDirectorWith, a, b, common.Properties{"shared_directors": []string{"X", "Y"}})

	flags := run1(t, ShellNetwork, f)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	ev := flags[0].Evidence.(ShellNetworkEvidence)
	if ev.Contractor1ID != a || ev.Address != "1 MAIN ST" || ev.SharedDirectors != 2 {
		t.Fatalf("unexpected evidence %+v", ev)
	}
	if flags[0].Description != "A and B share the same address: 1 MAIN ST and 2 director(s)" {
		t.Fatalf("unexpected description %q", flags[0].Description)
	}
}

type failingReader struct {
	*memory.Store
	fail common.EdgeType
}

func (r failingReader) EdgesByType(ctx context.Context, types ...common.EdgeType) ([]common.Edge, error) {
	for _, t := range types {
		if t == r.fail {
			return nil, common.StoreError("edges by type", errors.New("relationship type missing"))
		}
	}
	return r.Store.EdgesByType(ctx, types...)
}

func TestDetectAllIsolatesFailures(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "DPWH", nil)
	con := f.Node(common.NodeContractor, "ABC", nil)
	for _, ref := range []string{"I-1", "I-2", "I-3"} {
		f.Contract(agency, con, ref, 1_000_000, "", common.Properties{"bid_count": 1})
	}

	rep := DetectAll(context.Background(), failingReader{f.Store(), common.EdgeSubcontractedTo}, testParams())
	if _, ok := rep.Failures["circular_flow"]; !ok || len(rep.Failures) != 1 {
		t.Fatalf("expected only circular_flow to fail, got %v", rep.Failures)
	}
	if len(rep.Flags["single_bidder"]) != 1 {
		t.Fatalf("single_bidder should still report, got %v", rep.Flags["single_bidder"])
	}
	if rep.Flags["circular_flow"] == nil {
		t.Fatalf("failed detector should degrade to an empty list")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	boom := func(context.Context, store.GraphReader, Params) ([]common.RedFlag, error) {
		panic("corrupt row")
	}
	flags, err := run(context.Background(), "boom", boom, memory.New(), testParams().withDefaults())
	if err == nil || flags != nil {
		t.Fatalf("expected recovered panic as error, got %v, %v", flags, err)
	}
}

type recordingObserver struct {
	calls map[string]int
}

func (o *recordingObserver) DetectorFinished(name string, _ time.Duration, flags int, _ error) {
	o.calls[name] = flags
}

func TestRunDetector(t *testing.T) {
	_, err := RunDetector(context.Background(), memory.New(), "nope", testParams())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	obs := &recordingObserver{calls: map[string]int{}}
	p := testParams()
	p.Observer = obs
	flags, err := RunDetector(context.Background(), memory.New(), "shell_network", p)
	if err != nil || flags == nil || len(flags) != 0 {
		t.Fatalf("expected empty result, got %v, %v", flags, err)
	}
	if _, ok := obs.calls["shell_network"]; !ok {
		t.Fatalf("observer not notified")
	}

	_, err = RunDetector(context.Background(), failingReader{memory.New(), common.EdgeSameAddressAs}, "shell_network", p)
	if !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("single detector errors propagate, got %v", err)
	}
}

func TestGroupByEntityAndPersist(t *testing.T) {
	f := &memory.Fixture{}
	agency := f.Node(common.NodeAgency, "DPWH", nil)
	con := f.Node(common.NodeContractor, "ABC", nil)
	for i, ref := range []string{"P-1", "P-2", "P-3"} {
		f.Contract(agency, con, ref, 4_000_000, "2023-01-0"+string(rune('1'+i)), common.Properties{"bid_count": 1})
	}
	s := f.Store()
	ctx := context.Background()

	rep := DetectAll(ctx, s, testParams())
	live := GroupByEntity(rep.All(), "", 0)
	if len(live) == 0 || live[0].EntityID != con {
		t.Fatalf("expected contractor first, got %+v", live)
	}
	// single_bidder (2) + split_contracts (3) + timing_cluster (3)
	if live[0].RiskScore != 8 {
		t.Fatalf("risk score = %v, want 8", live[0].RiskScore)
	}

	if err := Persist(ctx, s, rep); err != nil {
		t.Fatalf("persist: %v", err)
	}
	stored, err := s.ListFlags(ctx, "", 50)
	if err != nil {
		t.Fatalf("list flags: %v", err)
	}
	if len(stored) != len(live) {
		t.Fatalf("stored and live views disagree: %d vs %d", len(stored), len(live))
	}
	for i := range live {
		if stored[i].EntityID != live[i].EntityID || stored[i].RiskScore != live[i].RiskScore {
			t.Fatalf("entity %d differs: %+v vs %+v", i, stored[i], live[i])
		}
	}

	high := GroupByEntity(rep.All(), common.SeverityMedium, 0)
	if len(high) != 1 || len(high[0].Flags) != 1 || high[0].Flags[0].Type != "single_bidder" {
		t.Fatalf("severity filter failed: %+v", high)
	}
}

func TestFlagMarshalsFlatEvidence(t *testing.T) {
	flag := newFlag(testParams(), "shell_network", common.SeverityHigh, "d", ShellNetworkEvidence{
		Contractor1ID: "Contractor:A", Contractor1: "A", Contractor2ID: "Contractor:B", Contractor2: "B",
	})
	raw, err := json.Marshal(flag)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ev := out["evidence"].(map[string]any)
	if ev["contractor1_id"] != "Contractor:A" || out["detected_at"] != "2024-05-01T08:00:00Z" {
		t.Fatalf("unexpected wire form %s", raw)
	}

	var back common.RedFlag
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal flag: %v", err)
	}
	if back.Subject().ID != "Contractor:A" {
		t.Fatalf("stored subject = %+v", back.Subject())
	}
}


func TestDetectorOf(t *testing.T) {
	for flag, want := range map[string]string{
		"identical_bid_amounts": "identical_bids",
		"political_connection":  "political_connections",
		"shell_network":         "shell_network",
	} {
		got, ok := DetectorOf(flag)
		if !ok || got != want {
			t.Fatalf("DetectorOf(%q) = %q, %v; want %q", flag, got, ok, want)
		}
	}
	if _, ok := DetectorOf("nope"); ok {
		t.Fatalf("unknown flag type resolved")
	}
}

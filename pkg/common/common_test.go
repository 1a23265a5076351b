package common

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestPropertiesAccessors(t *testing.T) {
	p := Properties{
		"amount":     "PHP 4,600,000.50",
		"bid_count":  float64(1),
		"award_date": "2024-03-05",
		"capital":    int64(250000),
		"bad":        "n/a",
		"name":       "  ABC Builders ",
	}

	if f, ok := p.Float("amount"); !ok || f != 4600000.5 {
		t.Fatalf("amount parse: got %v %v", f, ok)
	}
	if n, ok := p.Int("bid_count"); !ok || n != 1 {
		t.Fatalf("bid_count parse: got %v %v", n, ok)
	}
	if f, ok := p.Float("capital"); !ok || f != 250000 {
		t.Fatalf("capital parse: got %v %v", f, ok)
	}
	if _, ok := p.Float("bad"); ok {
		t.Fatalf("non-numeric string should not parse")
	}
	if _, ok := p.Float("missing"); ok {
		t.Fatalf("missing key should not parse")
	}
	d, ok := p.Time("award_date")
	if !ok || !d.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date parse: got %v %v", d, ok)
	}
	if got := p.Text("name"); got != "ABC Builders" {
		t.Fatalf("text trim: got %q", got)
	}
	if got := p.Text("bid_count"); got != "1" {
		t.Fatalf("number text: got %q", got)
	}
}

func TestNodeIDRoundTrip(t *testing.T) {
	id := NodeID(NodeContractor, "ABC CONSTRUCTION")
	nt, key, ok := ParseNodeID(id)
	if !ok || nt != NodeContractor || key != "ABC CONSTRUCTION" {
		t.Fatalf("unexpected parse: %v %q %v", nt, key, ok)
	}
	if _, _, ok := ParseNodeID("Bogus:x"); ok {
		t.Fatalf("unknown type should not parse")
	}
}

type testEvidence struct{ id string }

func (e testEvidence) Fields() map[string]any {
	return map[string]any{"contractor_id": e.id}
}

func (e testEvidence) Subject() EntityRef {
	return EntityRef{ID: e.id, Type: NodeContractor}
}

func TestRedFlagJSONFlattensEvidence(t *testing.T) {
	flag := RedFlag{
		Type:        "single_bidder",
		Severity:    SeverityMedium,
		Description: "x",
		Evidence:    testEvidence{id: "Contractor:A"},
		DetectedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(flag)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{"contractor_id": "Contractor:A"}
	if !reflect.DeepEqual(generic["evidence"], want) {
		t.Fatalf("evidence not flattened: %v", generic["evidence"])
	}

	var back RedFlag
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal flag: %v", err)
	}
	if back.Subject().ID != "Contractor:A" {
		t.Fatalf("stored evidence subject lost: %+v", back.Subject())
	}
}

func TestRiskScore(t *testing.T) {
	flags := []RedFlag{
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
		{Severity: SeverityMedium},
		{Severity: SeverityLow},
	}
	if got := RiskScore(flags); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestStoreErrorWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := StoreError("nodes by type", base)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, base) {
		t.Fatalf("expected both sentinel and cause in chain: %v", err)
	}
	if StoreError("x", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	nf := NotFoundf("node %s", "x")
	if got := StoreError("get", nf); got != nf {
		t.Fatalf("not found should pass through unchanged")
	}
}

func TestPartialMarshal(t *testing.T) {
	ok := Available([]int{1, 2})
	data, _ := json.Marshal(ok)
	if string(data) != "[1,2]" {
		t.Fatalf("got %s", data)
	}
	bad := Unavailable[[]int](errors.New("timeout"))
	data, _ = json.Marshal(bad)
	if string(data) != "null" {
		t.Fatalf("got %s", data)
	}
	if !errors.Is(bad.Err, ErrPartialDataUnavailable) {
		t.Fatalf("expected partial data sentinel")
	}
}

func TestPesoFormatting(t *testing.T) {
	cases := map[float64]string{
		0:          "PHP 0.00",
		999:        "PHP 999.00",
		1000:       "PHP 1,000.00",
		14_250_000: "PHP 14,250,000.00",
		-1234.5:    "-PHP 1,234.50",
	}
	for in, want := range cases {
		if got := Peso(in); got != want {
			t.Fatalf("Peso(%v) = %q, want %q", in, got, want)
		}
	}
	if got := Percent(0.425); got != "42.5%" {
		t.Fatalf("Percent(0.425) = %q", got)
	}
}

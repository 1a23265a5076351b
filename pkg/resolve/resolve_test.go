package resolve

import (
	"context"
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
)

func recs(names ...string) []common.Record {
	out := make([]common.Record, len(names))
	for i, n := range names {
		out[i] = common.Record{"contractor_name": n}
	}
	return out
}

func TestResolveExactNormalizedDuplicatesAutoMerge(t *testing.T) {
	res := Resolve(recs("ABC Construction Inc.", "ABC CONSTRUCTION INCORPORATED"), DefaultOptions())

	if len(res.AutoMerged) != 1 {
		t.Fatalf("expected one auto merge, got %+v", res.AutoMerged)
	}
	d := res.AutoMerged[0]
	if d.Score != 1 {
		t.Fatalf("expected score 1, got %v", d.Score)
	}
	if d.Canonical != "ABC CONSTRUCTION INCORPORATED" {
		t.Fatalf("canonical should be the longer raw name, got %q", d.Canonical)
	}
	want := map[string]string{"ABC Construction Inc.": "ABC CONSTRUCTION INCORPORATED"}
	if !reflect.DeepEqual(res.MergeMap, want) {
		t.Fatalf("unexpected merge map: %v", res.MergeMap)
	}
}

func TestFuzzyMatchExcludesEqualNormalizedNames(t *testing.T) {
	pairs := FuzzyMatch(recs("ABC Construction Inc.", "ABC CONSTRUCTION CORP"), DefaultOptions())
	if len(pairs) != 0 {
		t.Fatalf("equal normalized names must not be fuzzy paired, got %+v", pairs)
	}
}

func TestResolveClassifiesByThreshold(t *testing.T) {
	opts := DefaultOptions()
	res := Resolve(recs("SANTOS BUILDERS", "SANTOS BUILDER", "XYZ TRADING"), opts)

	score := normalize.Similarity("SANTOS BUILDERS", "SANTOS BUILDER")
	if score < opts.AutoThreshold {
		t.Fatalf("fixture assumption broken, score %v", score)
	}
	if len(res.AutoMerged) != 1 || len(res.ReviewRequired) != 0 {
		t.Fatalf("unexpected classification: %+v", res)
	}
	if res.MergeMap["SANTOS BUILDER"] != "SANTOS BUILDERS" {
		t.Fatalf("unexpected merge map: %v", res.MergeMap)
	}
}

func TestReviewRequiredIsNeverMerged(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoThreshold = 0.99
	opts.ReviewThreshold = 0.5

	res := Resolve(recs("DELTA WORKS", "DELTA WORX"), opts)
	if len(res.ReviewRequired) != 1 {
		t.Fatalf("expected one review pair, got %+v", res)
	}
	if len(res.MergeMap) != 0 {
		t.Fatalf("review pairs must not be merged: %v", res.MergeMap)
	}
}

func TestResolveSkipsMissingNames(t *testing.T) {
	records := []common.Record{
		{"contractor_name": ""},
		{"other": "x"},
		{"name": "Fallback Name Inc."},
		{"contractor_name": "Inc."},
	}
	res := Resolve(records, DefaultOptions())
	if res.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %d", res.Skipped)
	}
	if len(res.AutoMerged)+len(res.ReviewRequired) != 0 {
		t.Fatalf("expected no pairs, got %+v", res)
	}
}

func TestCanonicalDeterminism(t *testing.T) {
	if got := Canonical("ABCD", "ABC"); got != "ABCD" {
		t.Fatalf("longer should win, got %q", got)
	}
	if got := Canonical("ABD", "ABC"); got != "ABC" {
		t.Fatalf("tie should go to lexically smaller, got %q", got)
	}
	if Canonical("ABD", "ABC") != Canonical("ABC", "ABD") {
		t.Fatalf("canonical must not depend on argument order")
	}

	names := recs("MEGA BUILDERS", "MEGA BUILDER", "MEGA BUILDERZ", "MEGA BUILDERS INC")
	first := Resolve(names, DefaultOptions())
	for range 5 {
		again := Resolve(names, DefaultOptions())
		if !reflect.DeepEqual(first.MergeMap, again.MergeMap) {
			t.Fatalf("merge map changed across runs: %v vs %v", first.MergeMap, again.MergeMap)
		}
	}
	for _, d := range first.AutoMerged {
		if d.Canonical != d.Name1 && d.Canonical != d.Name2 {
			t.Fatalf("canonical %q is not one of the pair", d.Canonical)
		}
	}
}

func TestBuildMergeMapCollapsesChains(t *testing.T) {
	decisions := []MergeDecision{
		{Name1: "AB", Name2: "ABC", Classification: AutoMerge},
		{Name1: "ABC", Name2: "ABCD", Classification: AutoMerge},
		{Name1: "X", Name2: "Y", Classification: ReviewRequired},
	}
	got := BuildMergeMap(decisions)
	want := map[string]string{"AB": "ABCD", "ABC": "ABCD"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDeduplicate(t *testing.T) {
	records := []common.Record{
		{"reference_number": "R1", "amount": 1.0},
		{"reference_number": "R1", "amount": 2.0},
		{"reference_number": "R2"},
		{"amount": 3.0},
	}
	unique, stats := Deduplicate(records, "reference_number")
	if len(unique) != 2 || stats.Duplicates != 1 || stats.MissingKey != 1 {
		t.Fatalf("unexpected dedupe: %v %+v", unique, stats)
	}
	if unique[0]["amount"] != 1.0 {
		t.Fatalf("first record should be kept, got %v", unique[0])
	}
}

func TestApplyMergeMap(t *testing.T) {
	records := recs("ABC Construction Inc.", "Other")
	out := ApplyMergeMap(records, map[string]string{"ABC Construction Inc.": "ABC CONSTRUCTION INCORPORATED"}, "contractor_name")

	if out[0].Text("contractor_name") != "ABC CONSTRUCTION INCORPORATED" {
		t.Fatalf("name not rewritten: %v", out[0])
	}
	if out[0].Text("original_name") != "ABC Construction Inc." {
		t.Fatalf("original name not kept: %v", out[0])
	}
	if records[0].Text("contractor_name") != "ABC Construction Inc." {
		t.Fatalf("input record must not be mutated")
	}
	if _, ok := out[1]["original_name"]; ok {
		t.Fatalf("unmapped record should be untouched")
	}
}

func TestResolveWithKeyField(t *testing.T) {
	records := []common.Record{
		{"reference_number": "R1", "contractor_name": "ABC Construction Inc."},
		{"reference_number": "R1", "contractor_name": "ABC Construction Inc."},
		{"reference_number": "R2", "contractor_name": "ABC CONSTRUCTION INCORPORATED"},
	}
	opts := DefaultOptions()
	opts.KeyField = "reference_number"
	res := Resolve(records, opts)
	if res.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", res.Duplicates)
	}
	if len(res.MergeMap) != 1 {
		t.Fatalf("expected one mapping, got %v", res.MergeMap)
	}
}

func TestResolveBatches(t *testing.T) {
	batches := [][]common.Record{
		recs("ABC Construction Inc.", "ABC CONSTRUCTION INCORPORATED"),
		recs("Solo Builders"),
		recs("ABC Construction Inc."),
	}
	results, err := ResolveBatches(context.Background(), batches, DefaultOptions(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if len(results[0].MergeMap) != 1 || len(results[1].MergeMap) != 0 || len(results[2].MergeMap) != 0 {
		t.Fatalf("batches should resolve independently: %+v", results)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ResolveBatches(ctx, batches, DefaultOptions(), 2); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

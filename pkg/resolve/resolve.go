// Package resolve merges noisy, multi-source entity names into canonical names.
//
// Resolution runs in four steps over one bounded batch of raw records:
//
//  1. Deduplicate drops repeated records by a declared key field.
//  2. Exact collapse merges raw names whose normalized forms are equal.
//  3. FuzzyMatch pairs the remaining distinct normalized names by
//     Jaro-Winkler similarity. This step is O(n²) within a batch.
//  4. Classify labels each pair auto_merge or review_required, and
//     BuildMergeMap turns the auto pairs into a raw -> canonical map.
//
// Review-required pairs are reported and never merged.
package resolve

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
)

type Classification string

const (
	AutoMerge      Classification = "auto_merge"
	ReviewRequired Classification = "review_required"
)

const (
	DefaultAutoThreshold   = 0.92
	DefaultReviewThreshold = 0.85
)

type Options struct {
	AutoThreshold   float64
	ReviewThreshold float64
	// NameFields are tried in order; the first non-empty value is the display name.
	NameFields []string
	// KeyField enables key-based deduplication before matching when set.
	KeyField  string
	Normalize func(string) string
}

// DefaultOptions matches contractor records from procurement exports.
func DefaultOptions() Options {
	return Options{
		AutoThreshold:   DefaultAutoThreshold,
		ReviewThreshold: DefaultReviewThreshold,
		NameFields:      []string{"contractor_name", "name"},
		Normalize:       normalize.ContractorName,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AutoThreshold <= 0 {
		o.AutoThreshold = d.AutoThreshold
	}
	if o.ReviewThreshold <= 0 {
		o.ReviewThreshold = d.ReviewThreshold
	}
	if o.ReviewThreshold > o.AutoThreshold {
		o.ReviewThreshold = o.AutoThreshold
	}
	if len(o.NameFields) == 0 {
		o.NameFields = d.NameFields
	}
	if o.Normalize == nil {
		o.Normalize = d.Normalize
	}
	return o
}

// MergeDecision is a scored candidate pair and its classification.
type MergeDecision struct {
	Name1          string         `json:"name1"`
	Name2          string         `json:"name2"`
	Record1        common.Record  `json:"record1,omitempty"`
	Record2        common.Record  `json:"record2,omitempty"`
	Score          float64        `json:"score"`
	Classification Classification `json:"classification"`
	// Canonical is always Name1 or Name2.
	Canonical string `json:"canonical"`
}

// Result is the outcome of resolving one batch.
type Result struct {
	AutoMerged     []MergeDecision   `json:"auto_merged"`
	ReviewRequired []MergeDecision   `json:"review_required"`
	MergeMap       map[string]string `json:"merge_map"`
	Records        int               `json:"records"`
	Duplicates     int               `json:"duplicates"`
	Skipped        int               `json:"skipped"`
}

type nameEntry struct {
	raw    string
	norm   string
	record common.Record
}

// Canonical picks the canonical of two raw names: the longer one, ties going
// to the lexically smaller.
func Canonical(a, b string) string {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	switch {
	case la > lb:
		return a
	case lb > la:
		return b
	case a <= b:
		return a
	default:
		return b
	}
}

// Resolve runs the full pipeline on one batch of records.
func Resolve(records []common.Record, opts Options) Result {
	opts = opts.withDefaults()
	res := Result{Records: len(records), MergeMap: map[string]string{}}

	if opts.KeyField != "" {
		var stats DedupeStats
		records, stats = Deduplicate(records, opts.KeyField)
		res.Duplicates = stats.Duplicates
		res.Skipped += stats.MissingKey
	}

	entries, skipped := distinctNames(records, opts)
	res.Skipped += skipped

	exact, representatives := exactCollapse(entries)
	fuzzy := fuzzyPairs(representatives, opts)
	classified := Classify(append(exact, fuzzy...), opts)

	for _, d := range classified {
		switch d.Classification {
		case AutoMerge:
			res.AutoMerged = append(res.AutoMerged, d)
		case ReviewRequired:
			res.ReviewRequired = append(res.ReviewRequired, d)
		}
	}
	res.MergeMap = BuildMergeMap(res.AutoMerged)

	if res.Skipped > 0 {
		logger.Warn("[Resolve] Skipped records without a name or key", "skipped", res.Skipped, "records", res.Records)
	}
	logger.Debug("[Resolve] Batch resolved",
		"records", res.Records,
		"auto", len(res.AutoMerged),
		"review", len(res.ReviewRequired),
		"mapped", len(res.MergeMap),
	)
	return res
}

// FuzzyMatch returns every unordered pair of distinct names in records whose
// normalized similarity reaches the review threshold. Names equal after
// normalization are never paired. Pairs are ordered by score, highest first.
func FuzzyMatch(records []common.Record, opts Options) []MergeDecision {
	opts = opts.withDefaults()
	entries, _ := distinctNames(records, opts)
	return fuzzyPairs(entries, opts)
}

// Classify labels each pair and fixes its canonical name. Pairs below the
// review threshold are dropped.
func Classify(pairs []MergeDecision, opts Options) []MergeDecision {
	opts = opts.withDefaults()
	out := make([]MergeDecision, 0, len(pairs))
	for _, p := range pairs {
		switch {
		case p.Score >= opts.AutoThreshold:
			p.Classification = AutoMerge
		case p.Score >= opts.ReviewThreshold:
			p.Classification = ReviewRequired
		default:
			continue
		}
		p.Canonical = Canonical(p.Name1, p.Name2)
		out = append(out, p)
	}
	return out
}

func nameOf(r common.Record, fields []string) string {
	return r.First(fields...)
}

// distinctNames keeps the first record of every distinct raw name, skipping
// records whose name is missing or normalizes to nothing.
func distinctNames(records []common.Record, opts Options) ([]nameEntry, int) {
	seen := make(map[string]bool, len(records))
	entries := make([]nameEntry, 0, len(records))
	skipped := 0
	for _, r := range records {
		raw := nameOf(r, opts.NameFields)
		norm := opts.Normalize(raw)
		if norm == "" {
			skipped++
			continue
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		entries = append(entries, nameEntry{raw: raw, norm: norm, record: r})
	}
	return entries, skipped
}

// exactCollapse merges raw names sharing a normalized form. It returns one
// decision per absorbed name and one representative entry per normalized name.
func exactCollapse(entries []nameEntry) ([]MergeDecision, []nameEntry) {
	groups := make(map[string][]nameEntry)
	var order []string
	for _, e := range entries {
		if _, ok := groups[e.norm]; !ok {
			order = append(order, e.norm)
		}
		groups[e.norm] = append(groups[e.norm], e)
	}

	var decisions []MergeDecision
	reps := make([]nameEntry, 0, len(order))
	for _, norm := range order {
		group := groups[norm]
		rep := group[0]
		for _, e := range group[1:] {
			if Canonical(rep.raw, e.raw) == e.raw {
				rep = e
			}
		}
		for _, e := range group {
			if e.raw == rep.raw {
				continue
			}
			decisions = append(decisions, MergeDecision{
				Name1:   rep.raw,
				Name2:   e.raw,
				Record1: rep.record,
				Record2: e.record,
				Score:   1,
			})
		}
		reps = append(reps, rep)
	}
	return decisions, reps
}

func fuzzyPairs(entries []nameEntry, opts Options) []MergeDecision {
	var pairs []MergeDecision
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.norm == b.norm {
				continue
			}
			score := normalize.Similarity(a.norm, b.norm)
			if score < opts.ReviewThreshold {
				continue
			}
			pairs = append(pairs, MergeDecision{
				Name1:   a.raw,
				Name2:   b.raw,
				Record1: a.record,
				Record2: b.record,
				Score:   score,
			})
		}
	}
	slices.SortStableFunc(pairs, func(x, y MergeDecision) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return pairs
}

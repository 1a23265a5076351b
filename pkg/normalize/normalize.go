// Package normalize canonicalizes entity names before matching. Every function
// is pure, total and idempotent.
package normalize

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"
)

var (
	rePunct = regexp.MustCompile(`[.,;:]`)
	reSpace = regexp.MustCompile(`\s+`)

	// Compound suffixes come before their single-word tails.
	contractorSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`(^|\s)&\s*CO$`),
		regexp.MustCompile(`\bAND\s+CO$`),
		regexp.MustCompile(`\bINCORPORATED$`),
		regexp.MustCompile(`\bINC$`),
		regexp.MustCompile(`\bCORPORATION$`),
		regexp.MustCompile(`\bCORP$`),
		regexp.MustCompile(`\bCOMPANY$`),
		regexp.MustCompile(`\bCO$`),
		regexp.MustCompile(`\bLIMITED$`),
		regexp.MustCompile(`\bLTD$`),
		regexp.MustCompile(`\bLLC$`),
		regexp.MustCompile(`\bPTE$`),
		regexp.MustCompile(`\bPVT$`),
	}

	generationalSuffixes = map[string]bool{
		"JR": true, "SR": true, "II": true, "III": true, "IV": true,
	}

	particles = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\bDE\s+LA\s+`), "DELA "},
		{regexp.MustCompile(`\bDE\s+LOS\s+`), "DELOS "},
		{regexp.MustCompile(`\bDE\s+LAS\s+`), "DELAS "},
	}
)

// ContractorName uppercases name, drops punctuation and strips trailing
// business suffixes until none remain.
//
//	"ABC Construction Corp., Inc." -> "ABC CONSTRUCTION"
func ContractorName(name string) string {
	s := strings.ToUpper(name)
	s = rePunct.ReplaceAllString(s, "")
	s = collapse(s)

	for {
		before := s
		for _, re := range contractorSuffixes {
			s = strings.TrimSpace(re.ReplaceAllString(s, ""))
		}
		if s == before {
			break
		}
	}
	return collapse(s)
}

// PoliticianName uppercases name, removes generational suffixes (Jr., Sr.,
// II to IV) and joins Filipino particles: "DE LA CRUZ" -> "DELA CRUZ".
// "DEL" stays a separate token.
func PoliticianName(name string) string {
	tokens := strings.Fields(strings.ToUpper(name))
	kept := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		core := strings.TrimRight(tok, ".,")
		if i > 0 && generationalSuffixes[core] {
			// "CRUZ, JR., JUAN": keep the comma that separated surname from given name.
			if strings.HasSuffix(tok, ",") && len(kept) > 0 && !strings.HasSuffix(kept[len(kept)-1], ",") {
				kept[len(kept)-1] += ","
			}
			continue
		}
		kept = append(kept, tok)
	}

	s := strings.Join(kept, " ")
	for _, p := range particles {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	s = collapse(s)
	return strings.TrimRight(s, ", ")
}

// Similarity is the Jaro-Winkler similarity of two already normalized names,
// in [0, 1].
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// Address canonicalizes a street address for equality comparison.
func Address(addr string) string {
	s := strings.ToUpper(addr)
	s = rePunct.ReplaceAllString(s, " ")
	return collapse(s)
}

func collapse(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

var procurementMethods = []struct {
	method   string
	variants []string
}{
	{"public_bidding", []string{"public bidding", "competitive bidding", "public bid"}},
	{"shopping", []string{"shopping", "small value procurement"}},
	{"negotiated", []string{"negotiated procurement", "negotiated", "direct contracting"}},
	{"limited_source", []string{"limited source bidding"}},
	{"direct_retail", []string{"direct retail purchase"}},
	{"repeat_order", []string{"repeat order"}},
	{"emergency", []string{"emergency purchase", "emergency"}},
}

// ProcurementMethod maps a free-text procurement mode onto a fixed set of
// methods. Blank input is "unknown" and unmatched input is "other".
func ProcurementMethod(method string) string {
	m := strings.ToLower(collapse(method))
	if m == "" {
		return "unknown"
	}
	for _, pm := range procurementMethods {
		if pm.method == strings.ReplaceAll(m, " ", "_") {
			return pm.method
		}
		for _, v := range pm.variants {
			if strings.Contains(m, v) {
				return pm.method
			}
		}
	}
	return "other"
}

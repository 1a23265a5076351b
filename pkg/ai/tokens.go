package ai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "o200k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(encodingName)
	})
	return enc, encErr
}

// CountTokens returns the o200k token count of s. When the encoding cannot be
// loaded it falls back to four characters per token.
func CountTokens(s string) int {
	e, err := encoding()
	if err != nil {
		return (len(s) + 3) / 4
	}
	return len(e.Encode(s, nil, nil))
}

// TrimToTokens keeps whole sections, in order, until the budget is spent.
// A section that does not fit is cut at a line boundary and the rest are
// dropped. The second result reports whether anything was dropped.
func TrimToTokens(sections []string, budget int) ([]string, bool) {
	var kept []string
	used := 0
	for _, s := range sections {
		n := CountTokens(s)
		if used+n <= budget {
			kept = append(kept, s)
			used += n
			continue
		}
		if head := trimLines(s, budget-used); head != "" {
			kept = append(kept, head)
		}
		return kept, true
	}
	return kept, false
}

func trimLines(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	for line := range strings.Lines(s) {
		n := CountTokens(line)
		if used+n > budget {
			break
		}
		b.WriteString(line)
		used += n
	}
	return strings.TrimRight(b.String(), "\n")
}

// FitDimensions converts an embedding to float32, truncating or zero padding
// it to dim values.
func FitDimensions(v []float64, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim && i < len(v); i++ {
		out[i] = float32(v[i])
	}
	return out
}

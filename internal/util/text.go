package util

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SplitList splits a delimited cell ("A; B, C") into trimmed, non-empty parts.
func SplitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || r == '|' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewID returns a 21 character nanoid, falling back to a fixed prefix when
// the system random source fails.
func NewID() string {
	id, err := gonanoid.New()
	if err != nil {
		return "id-unavailable"
	}
	return id
}

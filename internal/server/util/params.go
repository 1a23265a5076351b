package util

import (
	"strconv"
	"strings"
)

// Clamp returns def for a zero v and bounds anything else to [lo, hi].
func Clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	return min(max(v, lo), hi)
}

// QueryBool reads a boolean query value. Unparseable values are false.
func QueryBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}

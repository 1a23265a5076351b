package common

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Properties holds scalar node/edge properties: strings, numbers, booleans and
// ISO dates stored as strings.
type Properties map[string]any

// Record is a flat row produced by a collector. It shares the accessor set of
// Properties so resolver, deriver and ingest code read both the same way.
type Record = Properties

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2006",
}

// Text returns the property rendered as trimmed text. Numbers are formatted
// without exponent.
func (p Properties) Text(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format("2006-01-02")
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Float parses the property as a number. Strings may carry thousands
// separators and a peso prefix. The boolean is false when the property is
// missing or not numeric.
func (p Properties) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "PHP")
		s = strings.TrimPrefix(s, "₱")
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOr returns the numeric property or def.
func (p Properties) FloatOr(key string, def float64) float64 {
	if f, ok := p.Float(key); ok {
		return f
	}
	return def
}

// Int parses the property as an integer, truncating fractional values.
func (p Properties) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Time parses a date property.
func (p Properties) Time(key string) (time.Time, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, !t.IsZero()
	}
	s := p.Text(key)
	if s == "" {
		return time.Time{}, false
	}
	return ParseDate(s)
}

// First returns the first non-empty string among keys.
func (p Properties) First(keys ...string) string {
	for _, k := range keys {
		if v := p.Text(k); v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ParseDate accepts the date layouts found across the source exports.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

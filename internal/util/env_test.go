package util

import (
	"testing"
	"time"
)

func TestGetEnvNumeric(t *testing.T) {
	t.Setenv("KWENTA_TEST_NUM", "0.85")
	if got := GetEnvNumeric("KWENTA_TEST_NUM", 0.5); got != 0.85 {
		t.Fatalf("expected 0.85, got %v", got)
	}

	t.Setenv("KWENTA_TEST_NUM", "abc")
	if got := GetEnvNumeric("KWENTA_TEST_NUM", 0.5); got != 0.5 {
		t.Fatalf("expected default on parse error, got %v", got)
	}

	if got := GetEnvNumeric("KWENTA_TEST_MISSING", 3); got != 3 {
		t.Fatalf("expected default for missing key, got %v", got)
	}
}

func TestGetEnvIntAndBool(t *testing.T) {
	t.Setenv("KWENTA_TEST_INT", "12")
	if got := GetEnvInt("KWENTA_TEST_INT", 4); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}

	t.Setenv("KWENTA_TEST_BOOL", "yes")
	if got := GetEnvBool("KWENTA_TEST_BOOL", true); !got {
		t.Fatalf("non true/false value should fall back to default")
	}
	t.Setenv("KWENTA_TEST_BOOL", "false")
	if got := GetEnvBool("KWENTA_TEST_BOOL", true); got {
		t.Fatalf("expected false")
	}
}

func TestGetEnvSeconds(t *testing.T) {
	t.Setenv("KWENTA_TEST_SECS", "90")
	if got := GetEnvSeconds("KWENTA_TEST_SECS", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	t.Setenv("KWENTA_TEST_SECS", "-1")
	if got := GetEnvSeconds("KWENTA_TEST_SECS", time.Minute); got != time.Minute {
		t.Fatalf("expected default for non-positive value, got %v", got)
	}
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_HOST", "db")
	t.Setenv("DATABASE_USER", "u")
	t.Setenv("DATABASE_PASSWORD", "p")
	t.Setenv("DATABASE_NAME", "graph")
	t.Setenv("DATABASE_PORT", "6543")

	want := "postgres://u:p@db:6543/graph?sslmode=disable"
	if got := DatabaseURL(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	t.Setenv("DATABASE_URL", "postgres://direct")
	if got := DatabaseURL(); got != "postgres://direct" {
		t.Fatalf("DATABASE_URL should win, got %q", got)
	}
}

package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Level: "warn", Output: &buf})

	l.Info("[Test] hidden")
	l.Warn("[Test] shown", "count", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "count=3") {
		t.Fatalf("warn message missing from output: %q", out)
	}
}

func TestConsoleLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Level: "loud", Output: &buf})

	l.Debug("debug line")
	l.Info("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Fatalf("debug should be filtered: %q", out)
	}
	if !strings.Contains(out, "info line") {
		t.Fatalf("info missing: %q", out)
	}
}

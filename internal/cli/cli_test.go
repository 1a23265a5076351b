package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/kwenta-ph/kwenta/backend/pkg/resolve"
)

// resetFlags restores flag defaults, since the commands are package globals
// shared by every test.
func resetFlags() {
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GRAPH_BACKEND", "memory")
	resetFlags()
	// Cobra keeps the first context it hands a subcommand; clear it so each
	// run gets the fresh context from Execute instead of a canceled one.
	for _, cmd := range rootCmd.Commands() {
		cmd.SetContext(nil)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

func TestResolvePrintsDecisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "awards.csv")
	csv := "contractor_name\nABC Construction Inc.\nABC CONSTRUCTION INC\nXYZ Builders\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := run(t, "resolve", "--file", path, "--field", "contractor_name")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var res resolve.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Records != 3 {
		t.Fatalf("records = %d, want 3", res.Records)
	}
	if len(res.AutoMerged) != 1 || res.AutoMerged[0].Classification != resolve.AutoMerge {
		t.Fatalf("auto merged = %+v", res.AutoMerged)
	}
	if res.AutoMerged[0].Record1 != nil {
		t.Fatalf("records should be stripped from the output")
	}
}

func TestDetectRejectsUnknownDetector(t *testing.T) {
	_, err := run(t, "detect", "--detector", "no_such_detector")
	if err == nil || !strings.Contains(err.Error(), "no_such_detector") {
		t.Fatalf("err = %v", err)
	}
}

func TestDetectPersistNeedsFullRun(t *testing.T) {
	_, err := run(t, "detect", "--detector", "single_bidder", "--persist")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestDetectEmptyGraph(t *testing.T) {
	out, err := run(t, "detect", "--detector", "single_bidder")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var got detectOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got.Flags) != 0 || len(got.Failures) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestMigrateRejectsDirection(t *testing.T) {
	_, err := run(t, "migrate", "sideways")
	if err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("err = %v", err)
	}
}

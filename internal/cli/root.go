// Package cli implements the kwenta command line: schema migrations, local
// ingest, name resolution previews, red-flag runs and data quality checks.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/internal/util"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "kwenta",
	Short: "Kwenta - public accountability knowledge graph",
	Long: `Kwenta loads Philippine procurement, audit, campaign finance and
asset declaration exports into one graph and flags the patterns worth a
closer look.

A red flag is an indicator for review, never a finding of wrongdoing.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.LoadEnv()
		setup.Logger("kwenta")
		if verbose {
			setup.DebugLogger("kwenta")
		}
	},
}

// Execute runs the command line until it finishes or is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/pkg/quality"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the data quality checks",
	Long: `Check the loaded graph for missing required properties, dangling edges,
duplicate contractors and amount outliers. Exits non-zero when a check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stores, err := setup.OpenStores(ctx)
		if err != nil {
			return err
		}
		defer stores.Close(context.Background())

		report, err := quality.Check(ctx, stores.Graph)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if report.Summary.Failed > 0 {
			return fmt.Errorf("%d of %d quality checks failed", report.Summary.Failed, report.Summary.TotalChecks)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

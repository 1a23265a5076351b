package cli

import (
	"github.com/spf13/cobra"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/resolve"
)

var (
	resolveFiles []string
	resolveField string
	resolveKey   string
	resolveSheet  string
	resolveSource string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Preview the name merges for an export",
	Long: `Run entity resolution over the names in an export and print the merge
decisions without writing anything.

Example:
  kwenta resolve --file awards.csv --field contractor_name`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(cmd.Context(), resolveSource, resolveFiles, resolveSheet)
		if err != nil {
			return err
		}
		opts := resolve.DefaultOptions()
		opts.NameFields = []string{resolveField}
		opts.KeyField = resolveKey
		opts.AutoThreshold = util.GetEnvNumeric("RESOLVE_AUTO_THRESHOLD", opts.AutoThreshold)
		opts.ReviewThreshold = util.GetEnvNumeric("RESOLVE_REVIEW_THRESHOLD", opts.ReviewThreshold)

		res := resolve.Resolve(records, opts)
		for i := range res.AutoMerged {
			res.AutoMerged[i].Record1, res.AutoMerged[i].Record2 = nil, nil
		}
		for i := range res.ReviewRequired {
			res.ReviewRequired[i].Record1, res.ReviewRequired[i].Record2 = nil, nil
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringSliceVar(&resolveFiles, "file", nil, "csv, xlsx or jsonl export (repeatable)")
	resolveCmd.Flags().StringVar(&resolveField, "field", "contractor_name", "column holding the names")
	resolveCmd.Flags().StringVar(&resolveKey, "key", "", "column to deduplicate records by")
	resolveCmd.Flags().StringVar(&resolveSheet, "sheet", "", "workbook sheet, default all sheets")
	resolveCmd.Flags().StringVar(&resolveSource, "source", "", "source kind whose column aliases apply")
	_ = resolveCmd.MarkFlagRequired("file")
}

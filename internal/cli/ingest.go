package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kwenta-ph/kwenta/backend/internal/metrics"
	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/graph"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
	ioloader "github.com/kwenta-ph/kwenta/backend/pkg/loader/io"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader/tabular"
)

var (
	ingestSource string
	ingestFiles  []string
	ingestSheet  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load local source exports into the graph",
	Long: `Load one or more local exports of a single source into the graph.
All files are ingested as one run, so contractor names are resolved
across them together.

Example:
  kwenta ingest --source philgeps_awards --file awards-2023.csv --file awards-2024.xlsx`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source kind, e.g. philgeps_awards")
	ingestCmd.Flags().StringSliceVar(&ingestFiles, "file", nil, "csv, xlsx or jsonl export (repeatable)")
	ingestCmd.Flags().StringVar(&ingestSheet, "sheet", "", "workbook sheet, default all sheets")
	_ = ingestCmd.MarkFlagRequired("source")
	_ = ingestCmd.MarkFlagRequired("file")
}

// readRecords parses local files with the same loaders the worker uses.
func readRecords(ctx context.Context, source string, paths []string, sheet string) ([]common.Record, error) {
	records := tabular.NewRecordLoader(ioloader.NewIOFileLoader())
	var out []common.Record
	for _, p := range paths {
		rs, err := records.GetRecords(ctx, loader.SourceFile{
			ID:     util.NewID(),
			Path:   p,
			Source: source,
			Sheet:  sheet,
		})
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(p), err)
		}
		out = append(out, rs...)
	}
	return out, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source, err := graph.ParseSource(ingestSource)
	if err != nil {
		return err
	}
	records, err := readRecords(ctx, string(source), ingestFiles, ingestSheet)
	if err != nil {
		return err
	}

	stores, err := setup.OpenStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	client, err := setup.GraphClient(metrics.NewCollector())
	if err != nil {
		return err
	}
	report, err := client.Ingest(ctx, stores.Graph, source, records)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}

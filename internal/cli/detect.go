package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kwenta-ph/kwenta/backend/internal/metrics"
	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
)

var (
	detectors     []string
	detectPersist bool
	detectGrouped bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run the red-flag detectors",
	Long: `Run the red-flag detectors against the graph and print the flags as JSON.
A failing detector is reported and does not stop the others.

Example:
  kwenta detect
  kwenta detect --detector single_bidder --detector split_contracts
  kwenta detect --persist`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringSliceVar(&detectors, "detector", nil, "detector to run (repeatable), default all")
	detectCmd.Flags().BoolVar(&detectPersist, "persist", false, "replace the stored flag set with the results")
	detectCmd.Flags().BoolVar(&detectGrouped, "by-entity", false, "group the flags per entity")
}

type detectOutput struct {
	Flags    []common.RedFlag       `json:"flags,omitempty"`
	Entities []common.FlaggedEntity `json:"entities,omitempty"`
	Failures map[string]string      `json:"failures,omitempty"`
	Took     string                 `json:"took"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	for _, name := range detectors {
		if !slices.Contains(detect.Names(), name) {
			return fmt.Errorf("unknown detector %q, expected one of %v", name, detect.Names())
		}
	}
	if detectPersist && len(detectors) > 0 {
		return fmt.Errorf("--persist replaces the whole flag set and runs every detector")
	}

	ctx := cmd.Context()
	stores, err := setup.OpenStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	params := setup.DetectParams(metrics.NewCollector())
	var rep detect.Report
	if len(detectors) == 0 {
		rep = detect.DetectAll(ctx, stores.Graph, params)
	} else {
		rep = detect.Report{Flags: map[string][]common.RedFlag{}, Failures: map[string]string{}}
		for _, name := range detectors {
			flags, err := detect.RunDetector(ctx, stores.Graph, name, params)
			if err != nil {
				rep.Failures[name] = err.Error()
				continue
			}
			rep.Flags[name] = flags
		}
	}

	if detectPersist {
		if err := detect.Persist(ctx, stores.Graph, rep); err != nil {
			return err
		}
	}

	out := detectOutput{Failures: rep.Failures, Took: rep.Took.String()}
	if detectGrouped {
		out.Entities = detect.GroupByEntity(rep.All(), "", 0)
	} else {
		out.Flags = rep.All()
	}
	return printJSON(cmd.OutOrStdout(), out)
}

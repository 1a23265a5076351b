package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	pgstore "github.com/kwenta-ph/kwenta/backend/pkg/store/pgx"
)

var (
	migrationsPath string
	downSteps      int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <up|down>",
	Short: "Apply or roll back the Postgres schema",
	Long: `Apply or roll back the graph schema migrations.

Example:
  kwenta migrate up
  kwenta migrate down --steps 1`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "up":
			return pgstore.Migrate(util.DatabaseURL(), migrationsPath)
		case "down":
			return pgstore.MigrateDown(util.DatabaseURL(), migrationsPath, downSteps)
		}
		return fmt.Errorf("unknown direction %q, expected up or down", args[0])
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrationsPath, "path", util.GetEnvString("MIGRATIONS_PATH", "file://migrations"), "migration source URL")
	migrateCmd.Flags().IntVar(&downSteps, "steps", 0, "migrations to roll back, 0 for all")
}

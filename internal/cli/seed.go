package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/db"
)

// NewSeedCmd creates the 'seed' command.
func NewSeedCmd() *cobra.Command {
	var (
		databaseURL string
		file        string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a catalog snapshot into the database",
		Long: `Validate a JSON catalog snapshot and upsert its categories, makers,
products and variants. The schema is applied first.`,
		Example: `  comparectl seed --file catalog.json
  comparectl seed --file catalog.json --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadSnapshotFile(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "Snapshot OK: %s\n", describeSnapshot(snap))
				return nil
			}
			if databaseURL == "" {
				return errNoDatabaseURL
			}

			database, err := db.Open(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.Migrate(cmd.Context()); err != nil {
				return err
			}

			store := catalog.NewSQLStore(database, slog.Default())
			if err := store.Seed(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(out, "Seeded %s\n", describeSnapshot(snap))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog snapshot JSON file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the snapshot without writing")
	_ = cmd.MarkFlagRequired("file")
	databaseURLFlag(cmd, &databaseURL)
	return cmd
}

func describeSnapshot(s catalog.Snapshot) string {
	return fmt.Sprintf("%d categories, %d makers, %d products, %d variants",
		len(s.Categories), len(s.Makers), len(s.Products), len(s.Variants))
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goreulmanhae/compare-api/internal/db"
)

var errNoDatabaseURL = errors.New("no database URL: set DATABASE_URL or pass --database-url")

// NewMigrateCmd creates the 'migrate' command.
func NewMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  `Apply the embedded schema. Every statement is idempotent, so running it twice is safe.`,
		Example: `  comparectl migrate
  comparectl migrate --database-url sqlite://data/compare.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d schema statements (%s)\n", len(db.Statements()), database.Dialect)
			return nil
		},
	}
	databaseURLFlag(cmd, &databaseURL)
	return cmd
}

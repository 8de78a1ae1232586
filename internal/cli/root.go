// Package cli implements the comparectl operator commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd assembles comparectl and its subcommands.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "comparectl",
		Short: "Operator tool for the product comparison API",
		Long: `comparectl manages the comparison API's database and catalog, runs the
scoring engine offline and mints access tokens for testing.

DATABASE_URL and JWT_SECRET are read from the environment (or a .env file)
unless overridden by flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewMigrateCmd(),
		NewSeedCmd(),
		NewScoreCmd(),
		NewTokenCmd(),
	)
	return root
}

// databaseURLFlag registers --database-url defaulting to $DATABASE_URL.
func databaseURLFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "database-url", os.Getenv("DATABASE_URL"), "database URL (postgres://, sqlite:// or file:)")
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goreulmanhae/compare-api/internal/auth"
)

// NewTokenCmd creates the 'token' command.
func NewTokenCmd() *cobra.Command {
	var (
		secret   string
		userID   string
		username string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token",
		Long:  `Sign an access token for a user id with JWT_SECRET, for testing the history endpoints.`,
		Example: `  comparectl token --user 8d1c6a52-0b5e-4f55-9a4d-3b1f1b2f0c11
  comparectl token --user u-1 --username alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := auth.NewJWTService(auth.JWTConfig{Secret: secret})
			if err != nil {
				return fmt.Errorf("%w (set JWT_SECRET or pass --secret)", err)
			}
			token, err := svc.GenerateAccessToken(userID, username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (sub claim)")
	cmd.Flags().StringVar(&username, "username", "", "optional username claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

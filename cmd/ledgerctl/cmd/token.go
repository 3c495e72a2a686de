package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/auth"
	"ledger/internal/cli"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var ttl time.Duration
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an owner",
		Long: `Mint an HS256 bearer token signed with AUTH_JWT_SECRET. The token
subject is the owner id the API will scope every request to.`,
		Example: `  ledgerctl token --owner alice --ttl 720h`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set, the server runs without authentication")
			}
			tok, err := auth.GenerateToken(cfg.JWTSecret, root.ownerFor(cfg), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	c.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	return c
}

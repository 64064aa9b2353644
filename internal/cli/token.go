package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitgud-app/gitgud/internal/api"
	"github.com/gitgud-app/gitgud/internal/daemon"
)

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default from config)")
	rootCmd.AddCommand(tokenCmd)
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token EMAIL",
	Short: "Mint a bearer token for the API",
	Long: `Sign an HS256 token for EMAIL with the configured secret.
Useful for local development and scripting against 'gitgud serve'.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.Auth.TTL()
	}

	tok, err := api.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, args[0], ttl)
	if err != nil {
		return fmt.Errorf("%w (set GITGUD_JWT_SECRET or [auth] jwt_secret)", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

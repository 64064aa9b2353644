// Package cli implements the GitGud command-line interface using Cobra.
// Task commands run the ledger against the local store directly; serve
// exposes the same ledger over HTTP.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gitgud",
	Short: "GitGud: level up by getting things done",
	Long: `GitGud is a gamified task tracker.
Finish tasks to earn XP, keep a daily streak, and watch your efficiency.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnv,
}

var userEmail string

func init() {
	rootCmd.PersistentFlags().StringVar(&userEmail, "email", "", "Act as this user (default $GITGUD_EMAIL)")
}

// loadEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnv(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

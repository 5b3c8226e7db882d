// Package main implements followupctl, the operator CLI of the review
// follow-up service.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rankitpro/review-followup/internal/config"
)

var (
	envPath string
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "followupctl",
	Short: "Operate the review follow-up service",
	Long: `followupctl runs database migrations, previews evaluation passes and
renders follow-up templates against the configured environment.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "path to a .env file")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig is the PersistentPreRunE of commands that need configuration.
func loadConfig(_ *cobra.Command, _ []string) error {
	return config.Load(envPath)
}

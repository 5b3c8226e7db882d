package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankitpro/review-followup/internal/config"
	"github.com/rankitpro/review-followup/migrations"
	"github.com/rankitpro/review-followup/pkg/pg"
)

var migrationsDir string

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "read migrations from this directory instead of the embedded set")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|redo|version|reset]",
	Short: "Run database migrations",
	Long: `Run goose migrations against the write database.

Examples:
  # Apply all pending migrations
  followupctl migrate --env=.env

  # Show migration status
  followupctl migrate status

  # Roll back the last migration
  followupctl migrate down`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgs:         []string{"up", "down", "status", "redo", "version", "reset"},
	PersistentPreRunE: loadConfig,
	RunE:              runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	if migrationsDir != "" {
		return pg.RunMigration(ctx, config.Get().PostgresWrite(), nil, migrationsDir, command)
	}
	return pg.RunMigration(ctx, config.Get().PostgresWrite(), migrations.FS, ".", command)
}

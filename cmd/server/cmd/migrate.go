package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/counselcms/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the embedded schema migrations.

Only DATABASE_URL (or --database-url) is needed; the rest of the server
configuration is not read.`,
	}

	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations, including the job queue tables",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Long: `Roll back the most recent schema migrations.

Examples:
  # Roll back the last migration
  server migrate down

  # Roll back three migrations
  server migrate down --steps 3`,
		Args: cobra.NoArgs,
		RunE: runMigrateDown,
	}

	migrateVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE:  runMigrateVersion,
	}

	migrateDatabaseURL string
	migrateSteps       int
	migrateSkipRiver   bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)

	migrateCmd.PersistentFlags().StringVar(&migrateDatabaseURL, "database-url", "", "postgres connection URL (default: DATABASE_URL)")
	migrateUpCmd.Flags().BoolVar(&migrateSkipRiver, "skip-river", false, "do not install the job queue tables")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
}

func migrationURL() (string, error) {
	if migrateDatabaseURL != "" {
		return migrateDatabaseURL, nil
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	return "", errors.New("DATABASE_URL is required (or pass --database-url)")
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	url, err := migrationURL()
	if err != nil {
		return err
	}
	if err := postgres.MigrateUp(url); err != nil {
		return err
	}
	if !migrateSkipRiver {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return fmt.Errorf("connect for job queue migration: %w", err)
		}
		defer pool.Close()
		if err := postgres.MigrateRiver(ctx, pool); err != nil {
			return err
		}
	}
	return printSchemaVersion(cmd, url)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	url, err := migrationURL()
	if err != nil {
		return err
	}
	if err := postgres.MigrateDown(url, migrateSteps); err != nil {
		return err
	}
	return printSchemaVersion(cmd, url)
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	url, err := migrationURL()
	if err != nil {
		return err
	}
	return printSchemaVersion(cmd, url)
}

func printSchemaVersion(cmd *cobra.Command, url string) error {
	version, dirty, err := postgres.SchemaVersion(url)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case version == 0:
		fmt.Fprintln(out, "Schema version: none")
	case dirty:
		fmt.Fprintf(out, "Schema version: %d (dirty)\n", version)
	default:
		fmt.Fprintf(out, "Schema version: %d\n", version)
	}
	return nil
}

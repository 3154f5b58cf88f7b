package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/counselcms/server/internal/config"
	"github.com/counselcms/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel  string
	logFormat string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Counsel CMS server - law firm website and admin console",
		Long: `Counsel CMS serves a law firm's public website, assembled from
database-stored page sections, together with the admin console and JSON API
used to edit that content.

Besides the HTTP server, this binary manages the database schema, seeds
content from YAML, runs one-shot data patches and manages admin users.`,
		SilenceUsage: true,
		// Run the serve command by default if no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthcheckCmd)
}

// loadConfig reads the environment and applies the global logging flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// commandLogger is the logger for maintenance commands. It writes to the
// command's stderr and defaults to the console format.
func commandLogger(cmd *cobra.Command, cfg config.LoggingConfig) zerolog.Logger {
	if logFormat == "" {
		cfg.Format = "console"
	}
	return config.NewLoggerTo(cfg, cmd.ErrOrStderr())
}

// openDatabase connects to postgres for commands that read or write stored
// content. The caller closes the pool.
func openDatabase(ctx context.Context, cfg config.Config) (*pgxpool.Pool, *postgres.Repository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := postgres.NewPool(connectCtx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, repo, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/counselcms/server/internal/api"
	"github.com/counselcms/server/internal/config"
	"github.com/counselcms/server/internal/metrics"
	"github.com/counselcms/server/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Counsel CMS HTTP server",
	Long: `Start the HTTP server for the public site, admin console and JSON API.

The server will:
- Load configuration from environment variables
- Bootstrap an admin user if ADMIN_* env vars are set and no admin exists
- Start the notification and retention workers
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging in a readable format
  server serve --log-level debug --log-format console`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting counsel server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	pool, _, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Background work shares this context and stops before the pool closes.
	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	dbCollector := metrics.NewDBCollector(pool)
	go dbCollector.Start(bgCtx, 15*time.Second)

	router, err := api.NewRouter(cfg, logger, pool, Version, GitCommit, BuildDate)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	defer router.Close()

	bootstrapCtx, cancelBootstrap := context.WithTimeout(ctx, 10*time.Second)
	bootstrapAdminUser(bootstrapCtx, cfg, router, logger)
	cancelBootstrap()

	if router.RiverClient != nil {
		if err := router.RiverClient.Start(bgCtx); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Msg("river background job workers started")
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := router.RiverClient.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
			} else {
				logger.Info().Msg("river workers stopped")
			}
		}()
	} else {
		logger.Warn().Msg("background jobs disabled; notifications are logged only")
	}
	router.StartBackground(bgCtx)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler,
		ReadTimeout:       30 * time.Second, // resume uploads need more than the default
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	return gracefulShutdown(ctx, server, serverErr, logger)
}

// bootstrapAdminUser creates the ADMIN_USERNAME account when the users table
// has no admin yet. Failure is logged and does not stop the server.
func bootstrapAdminUser(ctx context.Context, cfg config.Config, router *api.RouterWithClient, logger zerolog.Logger) {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Username == "" || bootstrap.Password == "" {
		logger.Debug().Msg("admin bootstrap env vars not set; skipping")
		return
	}
	created, err := router.Users.EnsureAdmin(ctx, bootstrap.Username, bootstrap.Password, bootstrap.Email)
	if err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
		return
	}
	if !created {
		return
	}
	// Email is PII; keep it out of production logs.
	event := logger.Info().Str("username", bootstrap.Username)
	if !cfg.IsProduction() {
		event = event.Str("email", bootstrap.Email)
	}
	event.Msg("bootstrapped admin user")
}

func gracefulShutdown(ctx context.Context, server *http.Server, serverErr <-chan error, logger zerolog.Logger) error {
	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			logger.Error().Err(err).Msg("http server error")
			return err
		}
	case <-stopCtx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

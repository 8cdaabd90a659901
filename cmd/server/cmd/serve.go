package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teranga-events/server/internal/api"
	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/auth"
	"github.com/teranga-events/server/internal/config"
	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/domain/orgs"
	"github.com/teranga-events/server/internal/domain/policy"
	"github.com/teranga-events/server/internal/domain/tickettypes"
	"github.com/teranga-events/server/internal/domain/users"
	"github.com/teranga-events/server/internal/jobs"
	"github.com/teranga-events/server/internal/metrics"
	"github.com/teranga-events/server/internal/storage/postgres"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Teranga HTTP server",
	Long: `Start the Teranga HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Connect to PostgreSQL and start River background workers
- Serve the versioned JSON API
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
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

	logger := config.NewLogger(cfg.Logging, cfg.Environment)
	logger.Info().Str("env", cfg.Environment).Msg("starting teranga server")

	metrics.AppInfo.WithLabelValues(Version, GitCommit).Set(1)

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	orgRepo := postgres.NewOrgRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	ticketTypeRepo := postgres.NewTicketTypeRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	recorder := audit.NewRecorder(auditRepo, logger)
	evaluator := policy.NewEvaluator(orgRepo)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)

	services := api.Services{
		Users:       users.NewService(userRepo, jwtManager, recorder, logger),
		Orgs:        orgs.NewService(orgRepo, userRepo, evaluator, recorder, logger),
		Events:      events.NewService(eventRepo, ticketTypeRepo, evaluator, recorder, logger),
		TicketTypes: tickettypes.NewService(ticketTypeRepo, eventRepo, evaluator, recorder, logger),
		JWT:         jwtManager,
		DBPing:      pool.Ping,
	}

	// Background jobs: hourly event rollover, daily audit retention.
	workers := jobs.NewWorkers(eventRepo, auditRepo, recorder, cfg.Audit.RetentionDays, logger)
	riverClient, err := jobs.NewClient(pool, workers, jobs.NewPeriodicJobs())
	if err != nil {
		return fmt.Errorf("river client setup failed: %w", err)
	}

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Msg("river background job workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
		} else {
			logger.Info().Msg("river workers stopped")
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, services, logger),
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	// Override logging from flags if provided
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

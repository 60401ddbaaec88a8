// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/safeconnect/safeconnect/internal/auth"
	"github.com/safeconnect/safeconnect/internal/auth/memory"
	"github.com/safeconnect/safeconnect/internal/auth/postgres"
	"github.com/safeconnect/safeconnect/internal/config"
	"github.com/safeconnect/safeconnect/internal/httpapi"
	"github.com/safeconnect/safeconnect/internal/logging"
	"github.com/safeconnect/safeconnect/internal/observability"
	"github.com/safeconnect/safeconnect/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the SafeConnect HTTP API, the metrics and health endpoints,
and the expired-session janitor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	defaults := config.Defaults()
	flags := cmd.Flags()
	flags.String("addr", defaults["http.addr"].(string), "HTTP API listen address")
	flags.Duration("request-timeout", 10*time.Second, "per-request timeout")
	flags.String("metrics-addr", defaults["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", defaults["log.format"].(string), "log format (json or text)")
	flags.String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
	flags.String("store", config.DriverPostgres, "storage driver (postgres or memory)")
	flags.String("database-url", "", "PostgreSQL connection URL")
	flags.Bool("auto-migrate", true, "apply pending migrations on startup")
	flags.Duration("session-ttl", auth.DefaultSessionTTL, "session lifetime")
	flags.Int("bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor")
	flags.Duration("purge-interval", time.Hour, "expired-session purge interval (0 = disabled)")

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.RepositoryFactory == nil {
		deps.RepositoryFactory = func(ctx context.Context, cfg *config.Config) (*Repositories, error) {
			return openRepositories(ctx, cfg, defaultMigratorFactory)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, registry *prometheus.Registry, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, registry, ready)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogging(cfg)
	logger.Info("starting safeconnect",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Store.Driver,
		"log_format", cfg.Log.Format,
	)

	repos, err := deps.RepositoryFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repos.Close()

	svc, err := newAuthService(cfg, repos, logger)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	registry := observability.NewRegistry()
	auth.RegisterMetrics(registry)
	metrics := observability.NewMetrics(registry)

	api, err := httpapi.New(svc, httpapi.Config{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP API: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, registry, ready.Load)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
	}

	errChan := make(chan error, 1)
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if serveErr := api.App().Listener(listener); serveErr != nil {
			errChan <- serveErr
		}
	}()
	ready.Store(true)

	var janitor sync.WaitGroup
	if cfg.Auth.PurgeInterval > 0 {
		janitor.Add(1)
		go func() {
			defer janitor.Done()
			runJanitor(ctx, svc, cfg.Auth.PurgeInterval, logger)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Printf("SafeConnect API listening on %s\n", listener.Addr())
	logger.Info("safeconnect ready", "http_addr", listener.Addr().String())

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		logger.Error("HTTP server error", "error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	ready.Store(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := api.App().ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}
	// Shutdown only reaches listeners the server has registered; a shutdown
	// that wins the race with Listener must close it here.
	if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("error closing HTTP listener", "error", err)
	}
	select {
	case <-serveDone:
	case <-shutdownCtx.Done():
		logger.Warn("timed out waiting for HTTP server to exit")
	}
	stopObservability(obsServer)
	janitor.Wait()

	logger.Info("shutdown complete")
	if serveErr != nil {
		return fmt.Errorf("HTTP server error: %w", serveErr)
	}
	return nil
}

func newAuthService(cfg *config.Config, repos *Repositories, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewJWTIssuer([]byte(cfg.Auth.TokenSecret))
	if err != nil {
		return nil, err
	}
	return auth.NewServiceWithLogger(repos.Accounts, repos.Sessions, hasher, issuer, logger,
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithHashConcurrency(cfg.Auth.HashConcurrency),
	)
}

// openRepositories opens the configured storage driver. For PostgreSQL it
// waits for the server and applies migrations when auto_migrate is set.
func openRepositories(ctx context.Context, cfg *config.Config, newMigrator MigratorFactory) (*Repositories, error) {
	if cfg.Store.Driver == config.DriverMemory {
		s := memory.NewStore()
		slog.Warn("using in-memory store, data is lost on restart")
		return &Repositories{Accounts: s.Accounts, Sessions: s.Sessions, Close: func() {}}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{
		Attempts: cfg.Database.ConnectAttempts,
		Logger:   slog.Default(),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(cfg.Database.URL, newMigrator); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Repositories{
		Accounts: postgres.NewAccountRepository(pool),
		Sessions: postgres.NewSessionRepository(pool),
		Close:    pool.Close,
	}, nil
}

// autoMigrate applies pending migrations. A failure to close the migrator is logged only.
func autoMigrate(databaseURL string, newMigrator MigratorFactory) error {
	migrator, err := newMigrator(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	slog.Info("database migrations applied")
	return nil
}

// setupLogging configures and installs the default slog logger.
func setupLogging(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(logging.Options{
		Service: "safeconnect",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
}

func stopObservability(obsServer ObservabilityServer) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when an error arrives, the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

// sessionPurger is implemented by auth.Service.
type sessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// runJanitor purges expired sessions every interval until ctx ends.
func runJanitor(ctx context.Context, purger sessionPurger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeExpiredSessions(ctx)
			switch {
			case errors.Is(err, context.Canceled):
				return
			case err != nil:
				logger.Warn("expired session purge failed", "error", err)
			case n > 0:
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}

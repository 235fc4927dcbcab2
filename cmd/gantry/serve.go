package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	httpadapter "github.com/gantryio/gantry/internal/adapters/http"
	"github.com/gantryio/gantry/internal/config"
	"github.com/gantryio/gantry/internal/database"
	"github.com/gantryio/gantry/internal/health"
	"github.com/gantryio/gantry/internal/identity"
	"github.com/gantryio/gantry/internal/logging"
	"github.com/gantryio/gantry/internal/storage"
	"github.com/gantryio/gantry/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Starts the HTTP server with its session storage, dependency health surface, and metrics endpoint.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		logger := logging.New(slog.LevelInfo)

		cfg, err := config.Load(cfgPath)
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}

		ctx := cmd.Context()

		db, err := database.Open(cfg.Database.URL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		redisClient, err := newRedisClient(cfg.Redis)
		if err != nil {
			logger.Error("failed to configure redis", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer redisClient.Close()
		}

		// Backend selection happens once, here. A Redis server that comes
		// up later is not adopted until the process restarts.
		store := storage.NewStore(storage.Select(ctx, redisClient, logger))

		var cache health.CacheProber
		if redisClient != nil {
			cache = storage.NewRedisBackend(redisClient)
		}

		var wf health.WorkflowProber
		if cfg.Workflow.Enabled {
			client, err := workflow.Dial(cfg.Workflow)
			if err != nil {
				logger.Error("failed to dial workflow engine", "error", err)
				os.Exit(1)
			}
			defer client.Close()
			wf = client
		}

		reg := prometheus.NewRegistry()
		checker := health.New(cfg, db, cache, wf, identity.NewClient(nil),
			health.WithLogger(logger),
			health.WithMetrics(health.NewMetrics(reg)))

		srv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: httpadapter.NewHandler(checker, reg, logger),
		}

		sweepCtx, stopSweep := context.WithCancel(ctx)
		defer stopSweep()
		go sweepExpired(sweepCtx, store, cfg.Session.CleanupInterval, logger)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting server", "addr", srv.Addr, "environment", cfg.App.Environment)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			logger.Error("server error", "error", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "error", err)
				}
			}
			logger.Info("server stopped gracefully")
		}
	},
}

// newRedisClient builds a client from the cache configuration, or nil when
// the cache is disabled.
func newRedisClient(cfg config.Redis) (backend.UniversalClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	opts, err := backend.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return backend.NewClient(opts), nil
}

// sweepExpired periodically removes expired session records. For the Redis
// backend this is a cheap no-op; the in-memory backend needs the sweep so
// abandoned sessions do not accumulate.
func sweepExpired(ctx context.Context, store *storage.Store, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("swept expired sessions", "removed", removed)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

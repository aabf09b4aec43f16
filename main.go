package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/secondhand-market/app/db"
	appLogger "github.com/FACorreiaa/secondhand-market/app/logger"
	"github.com/FACorreiaa/secondhand-market/app/observability/metrics"
	"github.com/FACorreiaa/secondhand-market/app/tracer"
	"github.com/FACorreiaa/secondhand-market/config"
	_ "github.com/FACorreiaa/secondhand-market/docs"
	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/container"
	"github.com/FACorreiaa/secondhand-market/internal/router"
)

const serviceName = "secondhand-market"

// @title                      Secondhand Market API
// @version                    1.0
// @description                Listings, search, accounts and orders for a secondhand marketplace.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Secondhand marketplace API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, logger, url, err := bootstrap()
			if err != nil {
				return err
			}
			return database.RunMigrations(url, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			_, logger, url, err := bootstrap()
			if err != nil {
				return err
			}
			return database.RollbackMigrations(url, steps, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, url, err := bootstrap()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(url, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}

// bootstrap loads config, builds the logger and resolves the database URL.
func bootstrap() (*config.Config, *slog.Logger, string, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, "", fmt.Errorf("error initializing config: %w", err)
	}

	logger := appLogger.New(os.Stdout, cfg.IsDevelopment())
	slog.SetDefault(logger)

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		return nil, nil, "", err
	}
	return &cfg, logger, dbConfig.ConnectionURL, nil
}

// prepareDatabase migrates only once the database accepts connections.
func prepareDatabase(ctx context.Context, ready func(context.Context) bool, migrate func() error) error {
	if !ready(ctx) {
		return errors.New("database not ready after waiting")
	}
	if err := migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runServer(parent context.Context) error {
	cfg, logger, dbURL, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	providers, err := tracer.InitTracingAndMetrics(serviceName)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.Any("error", err))
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down OpenTelemetry providers", slog.Any("error", err))
		}
	}()
	metrics.InitAppMetrics()

	httpMetrics, err := tracer.HTTPMetrics(otel.GetMeterProvider().Meter(serviceName))
	if err != nil {
		return err
	}

	// --- Database ---
	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	err = prepareDatabase(ctx, c.WaitForDB, func() error {
		return database.RunMigrations(dbURL, logger)
	})
	if err != nil {
		logger.Error("Failed to prepare database", slog.Any("error", err))
		return err
	}

	// --- HTTP ---
	handler := router.SetupRouter(&router.Config{
		Logger:                 logger,
		AuthHandler:            c.AuthHandler,
		UserHandler:            c.UserHandler,
		CategoryHandler:        c.CategoryHandler,
		ProductHandler:         c.ProductHandler,
		OrderHandler:           c.OrderHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, c.Tokens),
		OptionalAuthMiddleware: auth.OptionalAuthenticate(logger, c.Tokens),
		Metrics:                httpMetrics,
		AllowedOrigins:         cfg.CORS.AllowedOrigins,
		RequestTimeout:         cfg.Server.Timeout,
		AuthRateRequests:       cfg.RateLimit.AuthRequests,
		AuthRateWindow:         cfg.RateLimit.AuthWindow,
	})

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	if cfg.Server.Timeout > 0 {
		srv.WriteTimeout = cfg.Server.Timeout + 5*time.Second
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", providers.MetricsHandler)
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Handlers.Prometheus.Port),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		err := errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
		if err != nil {
			logger.Error("Graceful shutdown failed", slog.Any("error", err))
			return err
		}
		logger.Info("HTTP servers gracefully stopped")
		return nil
	})

	err = g.Wait()
	logger.Info("Application shut down complete.")
	return err
}

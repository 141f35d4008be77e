package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/config"
	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/UnknownOlympus/geoplot/internal/metrics"
	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/UnknownOlympus/geoplot/internal/service"
	"github.com/UnknownOlympus/geoplot/internal/session"
	"github.com/UnknownOlympus/geoplot/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the web UI and the monitoring server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	// Create a context that will be canceled when an interrupt signal is received.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env, os.Stdout)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	repo, db, closeDB, err := openRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	geoService := service.NewGeocodingService(logger, repo, appMetrics, service.Options{
		ProviderType:  geocoding.ProviderType(cfg.Provider.Type),
		RateLimit:     cfg.Provider.RateLimit,
		Region:        cfg.Provider.Region,
		AddressPrefix: cfg.AddrPrefix,
		SessionTTL:    cfg.SessionTTL,
		Interval:      cfg.Interval,
	})
	sessions := session.NewManager(logger, geoService)
	geoService.AddSweeper(sessions)

	handler := web.NewRouter(web.NewHandler(logger, sessions, appMetrics), cfg.CORSOrigins)

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "provider", cfg.Provider.Type)

	go startMonitoringServer(ctx, logger, reg, db, cfg.HealthPort)
	go geoService.Run(ctx)

	readHeaderTimeout := 10
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(readHeaderTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting web server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")
	case err = <-serverErr:
		logger.ErrorContext(ctx, "Web server failed", "error", err)
		return err
	}

	shutdownTimeout := 10
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(shutdownTimeout)*time.Second)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Web server shutdown failed", "error", err)
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")

	return nil
}

// openRepository connects to PostgreSQL when a host is configured and falls back
// to the in-memory run cache otherwise. The returned pinger is nil for memory.
func openRepository(
	ctx context.Context,
	cfg config.PostgresConfig,
	log *slog.Logger,
) (repository.Interface, pinger, func(), error) {
	if !cfg.Enabled() {
		log.InfoContext(ctx, "No database configured, runs are kept in memory")
		return repository.NewMemoryRepository(), nil, func() {}, nil
	}

	dtb, err := repository.NewDatabase(ctx, cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	repo := repository.NewRepository(dtb, log)
	if err = repo.EnsureSchema(ctx); err != nil {
		dtb.Close()
		return nil, nil, nil, err
	}

	return repo, dtb, dtb.Close, nil
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the specified port and logs the server's status and any errors encountered.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	dtb pinger,
	port int,
) {
	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      monitoringMux(ctx, log, reg, dtb),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

func monitoringMux(ctx context.Context, log *slog.Logger, reg *prometheus.Registry, dtb pinger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if dtb != nil {
			if err := dtb.Ping(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		writer.WriteHeader(status)
		_, err := writer.Write([]byte(body))
		if err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

// Package main provides the entry point for the paper scroll service server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paperscroll/paper-scroll-service/internal/catalog"
	"github.com/paperscroll/paper-scroll-service/internal/config"
	"github.com/paperscroll/paper-scroll-service/internal/feed"
	"github.com/paperscroll/paper-scroll-service/internal/observability"
	httpserver "github.com/paperscroll/paper-scroll-service/internal/server/http"
	"github.com/paperscroll/paper-scroll-service/internal/storage"
	"github.com/paperscroll/paper-scroll-service/internal/syncer"
	"github.com/paperscroll/paper-scroll-service/internal/works"
	"github.com/paperscroll/paper-scroll-service/internal/zotero"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-scroll-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the file-backed stores under the storage root.
	settingsStore, err := storage.NewSettingsStore(filepath.Join(cfg.Storage.Root, "config.json"))
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}
	snapshotStore, err := storage.NewSnapshotStore(filepath.Join(cfg.Storage.Root, "journals"))
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	starStore, err := storage.NewStarStore(filepath.Join(cfg.Storage.Root, "starred"))
	if err != nil {
		return fmt.Errorf("open star store: %w", err)
	}
	logger.Info().Str("root", cfg.Storage.Root).Msg("storage initialized")

	// Initialize metrics.
	metrics := observability.NewMetrics("paper_scroll")

	// Create upstream API clients. The works client joins the polite pool
	// when the user has configured a contact email; the provider reads the
	// settings on every request so email changes apply immediately.
	catalogClient := catalog.New(catalog.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		Rows:      cfg.Catalog.Rows,
		PageDelay: cfg.Catalog.PageDelay,
		Timeout:   cfg.Catalog.Timeout,
		UserAgent: cfg.Catalog.UserAgent,
	})
	worksClient := works.New(works.Config{
		BaseURL:       cfg.Works.BaseURL,
		EmailProvider: func() string { return settingsStore.Get().Email },
		Timeout:       cfg.Works.Timeout,
		RateLimit:     cfg.Works.RateLimit,
		BurstSize:     cfg.Works.BurstSize,
	})
	zoteroClient := zotero.New(zotero.Config{})

	// Create the syncer.
	sync := syncer.New(snapshotStore, catalogClient, logger, metrics)

	// Build the paper index from the snapshots already on disk and start
	// the prefetch buffer.
	items, err := snapshotStore.LoadItems()
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	index := feed.NewIndex(items)
	logger.Info().Int("dois", index.Len()).Msg("paper index built")

	buffer := feed.NewBuffer(ctx, worksClient, index, feed.Config{
		MaxAttempts:    cfg.Feed.MaxAttempts,
		InitialBackoff: cfg.Feed.InitialBackoff,
		MaxBackoff:     cfg.Feed.MaxBackoff,
	}, logger, metrics)

	// Create the HTTP server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		ctx,
		settingsStore,
		snapshotStore,
		starStore,
		sync,
		buffer,
		zoteroClient,
		logger,
		metrics,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: 30 * time.Second,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-scroll-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-scroll-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-scroll-service shutdown complete")
	return nil
}

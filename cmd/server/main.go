package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/api"
	"github.com/shubhsaxena/stock-search-assistant/internal/cache"
	"github.com/shubhsaxena/stock-search-assistant/internal/clickhouse"
	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/firestore"
	"github.com/shubhsaxena/stock-search-assistant/internal/indexing"
	"github.com/shubhsaxena/stock-search-assistant/internal/kafka"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
	"github.com/shubhsaxena/stock-search-assistant/internal/orchestrator"
	"github.com/shubhsaxena/stock-search-assistant/internal/searchindex"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize logger
	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting stock search assistant",
		zap.String("service", cfg.Observability.ServiceName),
	)

	// Initialize tracing
	tracerShutdown, err := observability.InitTracer(cfg.Observability.ServiceName)
	if err != nil {
		logger.Warn("tracing initialization failed, continuing without tracing", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients
	redisCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("initializing redis: %w", err)
	}
	defer redisCache.Close()
	logger.Info("redis cache initialized")

	searchClient, err := searchindex.NewClient(cfg.SearchIndex, cfg.Search, logger)
	if err != nil {
		return fmt.Errorf("initializing search index client: %w", err)
	}
	defer searchClient.Close()
	logger.Info("search index client initialized")

	var chClient *clickhouse.Client
	chClient, err = clickhouse.NewClient(cfg.ClickHouse, logger)
	if err != nil {
		logger.Warn("clickhouse initialization failed, quotes and analytics will be unavailable", zap.Error(err))
		chClient = nil
	} else {
		defer chClient.Close()
		if err := chClient.EnsureTables(ctx); err != nil {
			logger.Warn("clickhouse table creation failed", zap.Error(err))
		}
		logger.Info("clickhouse client initialized")
	}

	var fsClient *firestore.Client
	if cfg.Firestore.ProjectID != "" {
		fsClient, err = firestore.NewClient(ctx, cfg.Firestore, logger)
		if err != nil {
			logger.Warn("firestore initialization failed, profile hydration will be unavailable", zap.Error(err))
			fsClient = nil
		} else {
			defer fsClient.Close()
			logger.Info("firestore client initialized")
		}
	}

	// Initialize slow query detector
	var analyticsWriter observability.AnalyticsWriter
	if chClient != nil {
		analyticsWriter = chClient
	}
	slowQueryDetector := observability.NewSlowQueryDetector(
		cfg.Search.SlowQuery.WarningThreshold,
		cfg.Search.SlowQuery.CriticalThreshold,
		logger,
		analyticsWriter,
	)

	// Assign optional clients through interface variables so a nil
	// *clickhouse.Client never ends up as a non-nil interface.
	var quoteStore orchestrator.QuoteStore
	if chClient != nil {
		quoteStore = chClient
	}
	var hydrator orchestrator.Hydrator
	if fsClient != nil {
		hydrator = fsClient
	}

	orch := orchestrator.New(
		searchClient, quoteStore, hydrator, redisCache,
		slowQueryDetector, cfg.Search, logger,
	)

	// Profile edits make cached search responses stale, so drop them.
	if fsClient != nil {
		listener := fsClient.NewProfileListener(func(ctx context.Context, event *models.ProfileEvent) error {
			logger.Info("profile changed, invalidating cached results",
				zap.String("type", event.Type),
				zap.String("symbol", event.Symbol),
			)
			return redisCache.InvalidatePattern(ctx, []string{"sr:*"})
		})
		go func() {
			if err := listener.Listen(ctx); err != nil && ctx.Err() == nil {
				logger.Error("profile listener stopped", zap.Error(err))
			}
		}()
	}

	// Initialize tick ingest pipeline
	var consumer *kafka.Consumer
	if chClient != nil {
		streamProcessor := indexing.NewStreamProcessor(
			chClient, redisCache, cfg.Kafka, logger,
		)
		defer streamProcessor.Stop()

		consumer = kafka.NewConsumer(cfg.Kafka, streamProcessor.HandleEvent, logger)
		if err := consumer.Start(ctx); err != nil {
			logger.Warn("kafka consumer start failed, tick ingest will be unavailable", zap.Error(err))
			consumer = nil
		} else {
			defer consumer.Stop()
			logger.Info("kafka consumer started")
		}
	} else {
		logger.Warn("tick ingest disabled, no clickhouse connection")
	}

	// Initialize HTTP server
	handler := api.NewHandler(orch, logger)

	healthHandler := api.NewHealthHandler(logger)
	healthHandler.Register("redis", redisCache)
	healthHandler.Register("search_index", searchClient)
	if chClient != nil {
		healthHandler.Register("clickhouse", chClient)
	}
	if consumer != nil {
		healthHandler.Register("kafka", consumer)
	}

	router := api.NewRouter(handler, healthHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	// Graceful shutdown
	logger.Info("starting graceful shutdown", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new requests
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	// Cancel background operations
	cancel()

	// Shutdown tracing
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

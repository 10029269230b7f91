package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/config"
	logutil "github.com/edgecomet/preview/internal/common/logger"
	"github.com/edgecomet/preview/internal/common/metricsserver"
	"github.com/edgecomet/preview/internal/common/redis"
	"github.com/edgecomet/preview/internal/preview/cache"
	"github.com/edgecomet/preview/internal/preview/configtest"
	"github.com/edgecomet/preview/internal/preview/events"
	"github.com/edgecomet/preview/internal/preview/fetcher"
	"github.com/edgecomet/preview/internal/preview/metrics"
	"github.com/edgecomet/preview/internal/preview/pipeline"
	"github.com/edgecomet/preview/internal/preview/service"
)

func main() {
	configPath := flag.String("c", "configs/preview-service.yaml",
		"Path to preview service configuration file")
	testMode := flag.Bool("t", false, "test configuration and exit; an optional URL argument is previewed once")
	flag.Parse()

	if *testMode {
		os.Exit(runConfigTest(*configPath, flag.Arg(0)))
	}

	// Initialize logger (will be reconfigured from config)
	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	configMgr, err := config.NewConfigManager(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	cfg := configMgr.GetConfig()

	// Uses INFO level during startup if configured level is higher
	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log, "preview-service")
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}

	logger := dynamicLogger.Logger

	logger.Info("Preview Service starting",
		zap.String("listen", cfg.Server.Listen),
		zap.Int("max_concurrent", cfg.Server.MaxConcurrent),
		zap.Bool("cache_enabled", cfg.Cache.Enabled))

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, logger)

	metricsServer, err := metricsserver.StartMetricsServer(cfg.Metrics, metricsCollector, logger)
	if err != nil {
		logger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	var redisClient *redis.Client
	var previewCache service.PreviewCache
	if cfg.Cache.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		previewCache = cache.NewStore(redisClient, cfg.Cache.TTL.ToDuration(), cfg.Cache.Compression, logger)
	}

	emitter, err := events.NewEmitter(cfg.Events, logger)
	if err != nil {
		logger.Fatal("Failed to create event emitter", zap.Error(err))
	}

	pageFetcher := fetcher.NewFetcher(&cfg.Fetch, logger)
	processor := pipeline.NewProcessor(metricsCollector, logger)

	svc := service.NewService(cfg, pageFetcher, processor, previewCache, emitter, metricsCollector, logger)

	serverTimeout := cfg.Server.Timeout.ToDuration() + 5*time.Second

	server := &fasthttp.Server{
		Handler:      svc.CreateHTTPHandler(),
		ReadTimeout:  serverTimeout,
		WriteTimeout: serverTimeout,
		IdleTimeout:  serverTimeout,
		Name:         "EdgeComet-Preview",
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("listen", cfg.Server.Listen))
		if err := server.ListenAndServe(cfg.Server.Listen); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait briefly for HTTP server to start listening
	time.Sleep(100 * time.Millisecond)

	select {
	case err := <-serverErrCh:
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	default:
	}

	logger.Info("Preview Service ready",
		zap.String("listen", cfg.Server.Listen))

	dynamicLogger.SwitchToConfiguredLevel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		logger.Error("Server error", zap.Error(err))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("Shutting down gracefully...")

	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.ShutdownWithContext(metricsShutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		} else {
			logger.Info("Metrics server shutdown complete")
		}
		metricsShutdownCancel()
	}

	// Complete in-flight previews
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := emitter.Close(); err != nil {
		logger.Error("Event emitter close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("Preview Service stopped")
}

// runConfigTest validates the configuration and optionally dry-runs one URL
func runConfigTest(configPath, testURL string) int {
	cfg, err := config.LoadPreviewConfig(configPath)
	if err != nil {
		fmt.Println("Configuration validation FAILED:")
		fmt.Printf("- %s: %v\n", configPath, err)
		return 1
	}

	fmt.Printf("configuration file %s syntax is ok\n", configPath)
	fmt.Println("configuration test is successful")

	if testURL == "" {
		return 0
	}

	logger := zap.NewNop()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout.ToDuration())
	defer cancel()

	result := configtest.CheckURL(ctx, fetcher.NewFetcher(&cfg.Fetch, logger), pipeline.NewProcessor(nil, logger),
		testURL, cfg.Fetch.IsSSRFProtectionEnabled(), logger)
	configtest.PrintURLTestResult(os.Stdout, result)
	if result.Error != "" {
		return 1
	}
	return 0
}

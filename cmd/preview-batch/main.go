package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/batch"
	"github.com/edgecomet/preview/internal/common/config"
	logutil "github.com/edgecomet/preview/internal/common/logger"
	"github.com/edgecomet/preview/internal/preview/fetcher"
	"github.com/edgecomet/preview/internal/preview/pipeline"
)

func main() {
	configPath := flag.String("c", "configs/preview-service.yaml",
		"Path to preview configuration file")
	sitesPath := flag.String("sites", "", "Sites file, one URL per line (overrides batch.sites_file)")
	outputDir := flag.String("o", "", "Output directory (overrides batch.output_dir)")
	noScreenshots := flag.Bool("no-screenshots", false, "Skip browser screenshots and console capture")
	flag.Parse()

	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	configMgr, err := config.NewConfigManager(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	cfg := configMgr.GetConfig()

	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log, "preview-batch")
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	logger := dynamicLogger.Logger
	defer func() { _ = logger.Sync() }()

	if *sitesPath != "" {
		cfg.Batch.SitesFile = *sitesPath
	}
	if *outputDir != "" {
		cfg.Batch.OutputDir = *outputDir
	}
	if *noScreenshots {
		cfg.Batch.Screenshots = false
	}

	if cfg.Batch.SitesFile == "" {
		logger.Fatal("No sites file given, set batch.sites_file or pass -sites")
	}

	sites, err := batch.LoadSites(cfg.Batch.SitesFile)
	if err != nil {
		logger.Fatal("Failed to load sites", zap.Error(err))
	}

	concurrency, err := batch.ResolveConcurrency(cfg.Batch.Concurrency)
	if err != nil {
		logger.Fatal("Invalid batch concurrency", zap.Error(err))
	}

	logger.Info("Batch starting",
		zap.Int("sites", len(sites)),
		zap.Int("concurrency", concurrency),
		zap.Bool("screenshots", cfg.Batch.Screenshots),
		zap.String("output_dir", cfg.Batch.OutputDir))

	var browser batch.Browser
	if cfg.Batch.Screenshots {
		chromeBrowser, err := batch.NewChromeBrowser(batch.BrowserConfig{
			ExecPath: cfg.Batch.ChromePath,
			Width:    cfg.Batch.Viewport.Width,
			Height:   cfg.Batch.Viewport.Height,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to start Chrome", zap.Error(err))
		}
		defer chromeBrowser.Close()
		browser = chromeBrowser
	}

	runner := batch.NewRunner(batch.RunnerConfig{
		OutputDir:   cfg.Batch.OutputDir,
		Concurrency: concurrency,
		PageTimeout: cfg.Batch.PageTimeout.ToDuration(),
	}, fetcher.NewFetcher(&cfg.Fetch, logger), pipeline.NewProcessor(nil, logger), browser, logger)

	dynamicLogger.SwitchToConfiguredLevel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, runErr := runner.Run(ctx, sites)
	if runErr != nil {
		logger.Warn("Batch interrupted, writing partial report", zap.Error(runErr))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()

	reportPath, err := runner.WriteReport(results, time.Now())
	if err != nil {
		logger.Error("Failed to write report", zap.Error(err))
		exit(browser, 1)
	}

	failed := 0
	for _, r := range results {
		if !r.FetchLoad.Pass || !r.Heading.Pass {
			failed++
		}
	}

	logger.Info("Batch complete",
		zap.Int("sites", len(results)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
		zap.String("report", reportPath))

	if failed > 0 || runErr != nil {
		exit(browser, 1)
	}
}

// exit closes the browser before leaving since os.Exit skips deferred calls
func exit(browser batch.Browser, code int) {
	if browser != nil {
		browser.Close()
	}
	os.Exit(code)
}

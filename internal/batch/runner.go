package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edgecomet/preview/internal/common/urlutil"
	"github.com/edgecomet/preview/internal/preview/fetcher"
	"github.com/edgecomet/preview/internal/preview/pipeline"
)

const (
	ScreenshotsDir = "screenshots"
	ReportFile     = "report.md"

	screenshotFailedPrefix = "FAILED: "
	headingTextUnavailable = "found (text not extracted)"
)

// PageFetcher downloads origin pages
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string, logger *zap.Logger) (*fetcher.Response, error)
}

// RunnerConfig configures a batch run
type RunnerConfig struct {
	OutputDir   string
	Concurrency int
	PageTimeout time.Duration
}

// Runner checks every site of a batch: fetch and process, H1 detection, screenshots, console errors.
type Runner struct {
	config    RunnerConfig
	fetcher   PageFetcher
	processor *pipeline.Processor
	browser   Browser // nil disables screenshots and console capture
	logger    *zap.Logger
}

func NewRunner(cfg RunnerConfig, pageFetcher PageFetcher, processor *pipeline.Processor, browser Browser, logger *zap.Logger) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{
		config:    cfg,
		fetcher:   pageFetcher,
		processor: processor,
		browser:   browser,
		logger:    logger,
	}
}

// Run tests all sites and returns results in input order
func (r *Runner) Run(ctx context.Context, sites []string) ([]SiteResult, error) {
	if r.browser != nil {
		if err := os.MkdirAll(filepath.Join(r.config.OutputDir, ScreenshotsDir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create screenshots directory: %w", err)
		}
	}

	results := make([]SiteResult, len(sites))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for i, site := range sites {
		g.Go(func() error {
			results[i] = r.TestSite(gctx, site)

			n := done.Add(1)
			r.logger.Info("Site tested",
				zap.String("progress", fmt.Sprintf("%d/%d", n, len(sites))),
				zap.String("url", site),
				zap.String("fetch", passFail(results[i].FetchLoad.Pass)),
				zap.String("h1", passFail(results[i].Heading.Pass)))
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// TestSite runs every check for one site. Failures are recorded, never returned.
func (r *Runner) TestSite(ctx context.Context, siteURL string) SiteResult {
	domain := urlutil.SanitizeDomain(siteURL)
	result := SiteResult{URL: siteURL, Domain: domain}
	logger := r.logger.With(zap.String("url", siteURL))

	siteCtx, cancel := context.WithTimeout(ctx, r.config.PageTimeout)
	defer cancel()

	// 1. Fetch and process
	preview, err := r.buildPreview(siteCtx, siteURL, logger)
	if err != nil {
		result.FetchLoad.Error = firstLine(err.Error())
		result.Heading.Error = result.FetchLoad.Error
		return result
	}
	result.FetchLoad.Pass = true

	// 2. H1 detection
	result.Heading.Pass = true
	result.Heading.Text = preview.heading
	if result.Heading.Text == "" {
		result.Heading.Text = headingTextUnavailable
	}

	if r.browser == nil {
		return result
	}

	// 3. Screenshots and console errors of the processed render
	processed, err := r.browser.RenderProcessed(siteCtx, preview.html)
	if err != nil {
		logger.Warn("Processed render failed", zap.Error(err))
		result.Screenshots.Processed = screenshotFailedPrefix + firstLine(err.Error())
		return result
	}
	result.ConsoleErrors = FilterConsoleErrors(processed.ConsoleErrors)
	name, err := r.saveScreenshot(domain, "processed", processed.Screenshot)
	if err != nil {
		result.Screenshots.Processed = screenshotFailedPrefix + firstLine(err.Error())
		return result
	}
	result.Screenshots.Processed = name

	live, err := r.browser.CaptureLive(siteCtx, siteURL)
	if err != nil {
		result.Screenshots.Live = screenshotFailedPrefix + firstLine(err.Error())
		return result
	}
	if name, err := r.saveScreenshot(domain, "live", live.Screenshot); err != nil {
		result.Screenshots.Live = screenshotFailedPrefix + firstLine(err.Error())
	} else {
		result.Screenshots.Live = name
	}

	return result
}

type builtPreview struct {
	heading string
	html    string
}

func (r *Runner) buildPreview(ctx context.Context, siteURL string, logger *zap.Logger) (*builtPreview, error) {
	if _, err := urlutil.ValidateTargetURL(siteURL, false); err != nil {
		return nil, err
	}

	resp, err := r.fetcher.Fetch(ctx, siteURL, logger)
	if err != nil {
		return nil, err
	}

	res, err := r.processor.Process(string(resp.Body), resp.URL)
	if err != nil {
		return nil, err
	}
	return &builtPreview{heading: res.Heading, html: res.HTML}, nil
}

func (r *Runner) saveScreenshot(domain, kind string, data []byte) (string, error) {
	name := fmt.Sprintf("%s-%s.png", domain, kind)
	path := filepath.Join(r.config.OutputDir, ScreenshotsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return name, nil
}

// WriteReport renders the report into OutputDir and returns its path
func (r *Runner) WriteReport(results []SiteResult, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(r.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(r.config.OutputDir, ReportFile)
	if err := os.WriteFile(path, []byte(GenerateReport(results, generatedAt)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func passFail(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

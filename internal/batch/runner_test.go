package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/edgecomet/preview/internal/common/htmlprocessor"
	"github.com/edgecomet/preview/internal/preview/fetcher"
	"github.com/edgecomet/preview/internal/preview/pipeline"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, targetURL string, logger *zap.Logger) (*fetcher.Response, error) {
	body, ok := f.pages[targetURL]
	if !ok {
		return nil, &fetcher.StatusError{StatusCode: 404}
	}
	return &fetcher.Response{URL: targetURL, StatusCode: 200, Body: []byte(body)}, nil
}

type fakeBrowser struct {
	mu        sync.Mutex
	processed []string
	liveErr   error
	console   []string
}

func (b *fakeBrowser) RenderProcessed(ctx context.Context, html string) (*Capture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed = append(b.processed, html)
	return &Capture{Screenshot: []byte("processed-png"), ConsoleErrors: b.console}, nil
}

func (b *fakeBrowser) CaptureLive(ctx context.Context, pageURL string) (*Capture, error) {
	if b.liveErr != nil {
		return nil, b.liveErr
	}
	return &Capture{Screenshot: []byte("live-png")}, nil
}

func (b *fakeBrowser) Close() {}

func newTestRunner(t *testing.T, pages map[string]string, browser Browser) (*Runner, string) {
	t.Helper()
	out := t.TempDir()
	logger := zaptest.NewLogger(t)
	cfg := RunnerConfig{OutputDir: out, Concurrency: 2, PageTimeout: 5 * time.Second}
	return NewRunner(cfg, &fakeFetcher{pages: pages}, pipeline.NewProcessor(nil, logger), browser, logger), out
}

func TestRunner_Run(t *testing.T) {
	pages := map[string]string{
		"https://good.example/":    `<html><body><h1>Good site</h1><img src="a.png"></body></html>`,
		"https://noh1.example/":    `<html><body><h2>Nope</h2></body></html>`,
		"https://empty-h1.example": `<html><body><h1> </h1></body></html>`,
	}
	browser := &fakeBrowser{console: []string{"favicon.ico 404", "Uncaught ReferenceError: app is not defined"}}
	runner, out := newTestRunner(t, pages, browser)

	sites := []string{"https://good.example/", "https://noh1.example/", "https://missing.example/", "https://empty-h1.example"}
	results, err := runner.Run(context.Background(), sites)
	require.NoError(t, err)
	require.Len(t, results, 4)

	good := results[0]
	assert.Equal(t, "good.example", good.Domain)
	assert.True(t, good.FetchLoad.Pass)
	assert.True(t, good.Heading.Pass)
	assert.Equal(t, "Good site", good.Heading.Text)
	assert.Equal(t, []string{"Uncaught ReferenceError: app is not defined"}, good.ConsoleErrors)
	assert.Equal(t, "good.example-processed.png", good.Screenshots.Processed)
	assert.Equal(t, "good.example-live.png", good.Screenshots.Live)

	data, err := os.ReadFile(filepath.Join(out, ScreenshotsDir, "good.example-live.png"))
	require.NoError(t, err)
	assert.Equal(t, "live-png", string(data))

	noHeading := results[1]
	assert.False(t, noHeading.FetchLoad.Pass)
	assert.Equal(t, htmlprocessor.ErrNoHeading.Error(), noHeading.FetchLoad.Error)
	assert.False(t, noHeading.Heading.Pass)

	missing := results[2]
	assert.False(t, missing.FetchLoad.Pass)
	assert.Contains(t, missing.FetchLoad.Error, "404")

	assert.Equal(t, headingTextUnavailable, results[3].Heading.Text)

	assert.Len(t, browser.processed, 2)
	for _, html := range browser.processed {
		assert.True(t, strings.HasPrefix(html, htmlprocessor.Doctype))
	}
}

func TestRunner_LiveCaptureFails(t *testing.T) {
	pages := map[string]string{"https://slow.example/": `<html><body><h1>Slow</h1></body></html>`}
	runner, _ := newTestRunner(t, pages, &fakeBrowser{liveErr: errors.New("navigation timeout\nstack")})

	result := runner.TestSite(context.Background(), "https://slow.example/")

	assert.Equal(t, "slow.example-processed.png", result.Screenshots.Processed)
	assert.Equal(t, "FAILED: navigation timeout", result.Screenshots.Live)
}

func TestRunner_WithoutBrowser(t *testing.T) {
	pages := map[string]string{"https://site.example/": `<html><body><h1>Hi</h1></body></html>`}
	runner, out := newTestRunner(t, pages, nil)

	results, err := runner.Run(context.Background(), []string{"https://site.example/", "not a url"})
	require.NoError(t, err)

	assert.True(t, results[0].Heading.Pass)
	assert.Empty(t, results[0].Screenshots.Processed)
	assert.False(t, results[1].FetchLoad.Pass)

	_, err = os.Stat(filepath.Join(out, ScreenshotsDir))
	assert.True(t, os.IsNotExist(err))

	path, err := runner.WriteReport(results, time.Now())
	require.NoError(t, err)
	report, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(report), "- Sites tested: 2\n")
	assert.Contains(t, string(report), "### https://site.example/\n")
}

func TestRunner_CanceledContext(t *testing.T) {
	pages := map[string]string{"https://site.example/": `<html><body><h1>Hi</h1></body></html>`}
	runner, _ := newTestRunner(t, pages, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, []string{"https://site.example/"})
	assert.ErrorIs(t, err, context.Canceled)
}

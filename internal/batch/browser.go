package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	// Settle times before taking screenshots
	processedSettle = 2 * time.Second
	liveSettle      = 3 * time.Second

	// screenshotQuality 100 makes chromedp capture PNG
	screenshotQuality = 100
)

// Capture is one rendered page
type Capture struct {
	Screenshot    []byte
	ConsoleErrors []string
}

// Browser renders pages for the batch run
type Browser interface {
	// RenderProcessed loads a processed preview document and captures it
	RenderProcessed(ctx context.Context, html string) (*Capture, error)
	// CaptureLive loads pageURL as-is and captures it
	CaptureLive(ctx context.Context, pageURL string) (*Capture, error)
	Close()
}

// BrowserConfig configures the headless Chrome used for screenshots
type BrowserConfig struct {
	ExecPath string
	Width    int
	Height   int
}

// ChromeBrowser drives a headless Chrome through chromedp; each capture runs in its own tab.
type ChromeBrowser struct {
	config          BrowserConfig
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	ctx             context.Context
	cancel          context.CancelFunc
	logger          *zap.Logger
}

// NewChromeBrowser starts the browser process
func NewChromeBrowser(cfg BrowserConfig, logger *zap.Logger) (*ChromeBrowser, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.WindowSize(cfg.Width, cfg.Height),
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	b := &ChromeBrowser{config: cfg, logger: logger}

	allocatorOpts := append(chromedp.DefaultExecAllocatorOptions[:], opts...)
	b.allocatorCtx, b.allocatorCancel = chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	b.ctx, b.cancel = chromedp.NewContext(b.allocatorCtx)

	if err := chromedp.Run(b.ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	logger.Info("Chrome started for batch screenshots",
		zap.Int("viewport_width", cfg.Width),
		zap.Int("viewport_height", cfg.Height))
	return b, nil
}

// RenderProcessed injects html into a blank tab, so no origin request is made for the document itself
func (b *ChromeBrowser) RenderProcessed(ctx context.Context, html string) (*Capture, error) {
	return b.capture(ctx, chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(processedSettle),
	})
}

// CaptureLive navigates to the original page with scripts enabled
func (b *ChromeBrowser) CaptureLive(ctx context.Context, pageURL string) (*Capture, error) {
	return b.capture(ctx, chromedp.Tasks{
		chromedp.Navigate(pageURL),
		chromedp.Sleep(liveSettle),
	})
}

func (b *ChromeBrowser) capture(ctx context.Context, load chromedp.Tasks) (*Capture, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.ctx)
	defer tabCancel()

	// Stop the tab when the caller's deadline passes
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var (
		mu       sync.Mutex
		messages []string
	)
	chromedp.ListenTarget(tabCtx, func(event interface{}) {
		var text string
		switch ev := event.(type) {
		case *cdpruntime.EventConsoleAPICalled:
			if ev.Type != cdpruntime.APITypeError {
				return
			}
			var parts []string
			for _, arg := range ev.Args {
				if part := formatConsoleArg(arg); part != "" {
					parts = append(parts, part)
				}
			}
			text = strings.Join(parts, " ")
		case *cdplog.EventEntryAdded:
			if ev.Entry == nil || ev.Entry.Level != cdplog.LevelError {
				return
			}
			text = ev.Entry.Text
			if ev.Entry.URL != "" {
				text += " " + ev.Entry.URL
			}
		default:
			return
		}
		if text == "" {
			return
		}
		mu.Lock()
		messages = append(messages, text)
		mu.Unlock()
	})

	var screenshot []byte
	tasks := chromedp.Tasks{
		cdplog.Enable(),
		emulation.SetDeviceMetricsOverride(int64(b.config.Width), int64(b.config.Height), 1.0, false),
		load,
		chromedp.FullScreenshot(&screenshot, screenshotQuality),
	}
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return &Capture{
		Screenshot:    screenshot,
		ConsoleErrors: append([]string(nil), messages...),
	}, nil
}

// Close stops the browser process
func (b *ChromeBrowser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocatorCancel != nil {
		b.allocatorCancel()
	}
}

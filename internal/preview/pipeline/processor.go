package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/htmlprocessor"
	"github.com/edgecomet/preview/internal/preview/metrics"
	"github.com/edgecomet/preview/pkg/types"
)

// Processor turns fetched HTML into a preview document.
// It holds no per-document state and is safe for concurrent use.
type Processor struct {
	metrics *metrics.MetricsCollector
	logger  *zap.Logger
}

// NewProcessor creates a Processor. metrics may be nil.
func NewProcessor(mc *metrics.MetricsCollector, logger *zap.Logger) *Processor {
	return &Processor{
		metrics: mc,
		logger:  logger,
	}
}

// Process runs clean, source context extraction, absolutify and serialize on rawHTML
// fetched for pageURL. The only error that reaches callers besides parse failures is
// htmlprocessor.ErrNoHeading.
func (p *Processor) Process(rawHTML, pageURL string) (*types.PreviewResult, error) {
	start := time.Now()

	cleaned, err := htmlprocessor.Clean(rawHTML, pageURL)
	if err != nil {
		p.logger.Debug("Clean failed",
			zap.String("url", pageURL),
			zap.Int("html_size", len(rawHTML)),
			zap.Error(err))
		return nil, err
	}

	// Source context keeps the short URLs, so it must run before Absolutify
	sourceContext := htmlprocessor.ExtractSourceContext(cleaned)

	htmlprocessor.Absolutify(cleaned.Document, cleaned.BaseURL)
	output := htmlprocessor.Serialize(cleaned.Document)

	elapsed := time.Since(start)
	p.metrics.RecordPipeline(elapsed, cleaned.Stats)

	p.logger.Debug("Preview processed",
		zap.String("url", pageURL),
		zap.String("base_url", cleaned.BaseURL),
		zap.String("heading", cleaned.HeadingText),
		zap.Int("input_size", len(rawHTML)),
		zap.Int("output_size", len(output)),
		zap.Any("clean_stats", cleaned.Stats),
		zap.Duration("duration", elapsed))

	return &types.PreviewResult{
		URL:           pageURL,
		BaseURL:       cleaned.BaseURL,
		Heading:       cleaned.HeadingText,
		HTML:          output,
		SourceContext: sourceContext,
		ProcessTime:   elapsed,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

package configtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/redis"
	"github.com/edgecomet/preview/internal/common/urlutil"
	"github.com/edgecomet/preview/internal/preview/pipeline"
	"github.com/edgecomet/preview/internal/preview/service"
)

// URLTestResult is what a single dry-run preview of a URL produced
type URLTestResult struct {
	URL         string
	FinalURL    string
	BaseURL     string
	CacheKey    string
	StatusCode  int
	Redirects   int
	BodySize    int
	HTMLSize    int
	Heading     string
	ParentTag   string
	FetchTime   time.Duration
	ProcessTime time.Duration
	Error       string
	ErrorType   string
	HTTPStatus  int // status the service would answer with on error
}

// CheckURL fetches targetURL and runs the preview pipeline once, without the cache.
// Failures are reported in the result, never returned.
func CheckURL(ctx context.Context, pageFetcher service.PageFetcher, processor *pipeline.Processor, targetURL string, blockPrivate bool, logger *zap.Logger) *URLTestResult {
	result := &URLTestResult{URL: targetURL}

	parsed, err := urlutil.ValidateTargetURL(targetURL, blockPrivate)
	if err != nil {
		return result.fail(err)
	}
	result.CacheKey = redis.PreviewKey(parsed.String())

	start := time.Now()
	resp, err := pageFetcher.Fetch(ctx, parsed.String(), logger)
	result.FetchTime = time.Since(start)
	if err != nil {
		return result.fail(err)
	}
	result.FinalURL = resp.URL
	result.StatusCode = resp.StatusCode
	result.Redirects = resp.Redirects
	result.BodySize = len(resp.Body)

	res, err := processor.Process(string(resp.Body), resp.URL)
	if err != nil {
		return result.fail(err)
	}
	result.BaseURL = res.BaseURL
	result.Heading = res.Heading
	result.ParentTag = res.SourceContext.ParentTag
	result.HTMLSize = len(res.HTML)
	result.ProcessTime = res.ProcessTime

	return result
}

func (r *URLTestResult) fail(err error) *URLTestResult {
	r.Error = err.Error()
	r.HTTPStatus, r.ErrorType = service.ClassifyError(err)
	return r
}

package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/edgecomet/preview/internal/common/configtypes"
	"github.com/edgecomet/preview/internal/common/htmlprocessor"
	"github.com/edgecomet/preview/internal/common/urlutil"
	"github.com/edgecomet/preview/internal/preview/events"
	"github.com/edgecomet/preview/internal/preview/fetcher"
	"github.com/edgecomet/preview/internal/preview/metrics"
	"github.com/edgecomet/preview/internal/preview/pipeline"
	"github.com/edgecomet/preview/pkg/types"
)

// ErrOverloaded is returned when every processing slot is taken
var ErrOverloaded = errors.New("preview service is at capacity, retry later")

// PageFetcher downloads origin pages
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string, logger *zap.Logger) (*fetcher.Response, error)
}

// PreviewCache stores processed previews by request URL
type PreviewCache interface {
	Get(ctx context.Context, pageURL string) (*types.PreviewResult, error)
	Set(ctx context.Context, requestURL string, res *types.PreviewResult) error
	Invalidate(ctx context.Context, pageURL string) error
}

// Service answers preview requests: validate, cache lookup, fetch, process, cache store.
type Service struct {
	config    *configtypes.PreviewConfig
	fetcher   PageFetcher
	processor *pipeline.Processor
	cache     PreviewCache // nil when caching is disabled
	emitter   events.EventEmitter
	metrics   *metrics.MetricsCollector
	logger    *zap.Logger

	slots    *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// NewService wires the preview service. cache may be nil and mc may be nil.
func NewService(cfg *configtypes.PreviewConfig, pageFetcher PageFetcher, processor *pipeline.Processor, cache PreviewCache, emitter events.EventEmitter, mc *metrics.MetricsCollector, logger *zap.Logger) *Service {
	capacity := int64(cfg.Server.MaxConcurrent)
	if capacity < 1 {
		capacity = 1
	}
	if emitter == nil {
		emitter = &events.NoopEmitter{}
	}

	return &Service{
		config:    cfg,
		fetcher:   pageFetcher,
		processor: processor,
		cache:     cache,
		emitter:   emitter,
		metrics:   mc,
		logger:    logger,
		slots:     semaphore.NewWeighted(capacity),
		capacity:  capacity,
	}
}

// buildOutcome is what one preview build produced
type buildOutcome struct {
	result      *types.PreviewResult
	cacheStatus string
}

// BuildPreview returns the processed preview for targetURL, from cache when possible.
// It fails fast with ErrOverloaded when no processing slot is free.
func (s *Service) BuildPreview(ctx context.Context, targetURL string, logger *zap.Logger) (*types.PreviewResult, string, error) {
	parsed, err := urlutil.ValidateTargetURL(targetURL, s.config.Fetch.IsSSRFProtectionEnabled())
	if err != nil {
		return nil, "", err
	}
	pageURL := parsed.String()

	if !s.slots.TryAcquire(1) {
		s.metrics.RecordRejected()
		return nil, "", ErrOverloaded
	}
	defer s.slots.Release(1)

	s.inFlight.Add(1)
	s.metrics.IncActiveRequests()
	defer func() {
		s.inFlight.Add(-1)
		s.metrics.DecActiveRequests()
	}()

	out, err := s.build(ctx, pageURL, logger)
	if err != nil {
		return nil, out.cacheStatus, err
	}
	return out.result, out.cacheStatus, nil
}

func (s *Service) build(ctx context.Context, pageURL string, logger *zap.Logger) (buildOutcome, error) {
	out := buildOutcome{cacheStatus: types.CacheStatusDisabled}

	if s.cache != nil {
		out.cacheStatus = types.CacheStatusMiss
		cached, err := s.cache.Get(ctx, pageURL)
		switch {
		case err != nil:
			s.metrics.RecordCacheError("get")
			logger.Warn("Preview cache read failed, processing page",
				zap.String("url", pageURL),
				zap.Error(err))
		case cached != nil:
			s.metrics.RecordCacheHit()
			out.result = cached
			out.cacheStatus = types.CacheStatusHit
			return out, nil
		}
		s.metrics.RecordCacheMiss()
	}

	fetchStart := time.Now()
	resp, err := s.fetcher.Fetch(ctx, pageURL, logger)
	if err != nil {
		s.metrics.RecordFetch(fetcher.ErrorType(err), time.Since(fetchStart), 0)
		return out, err
	}
	s.metrics.RecordFetch("success", time.Since(fetchStart), len(resp.Body))

	res, err := s.processor.Process(string(resp.Body), resp.URL)
	if err != nil {
		return out, err
	}
	out.result = res

	if s.cache != nil {
		if err := s.cache.Set(ctx, pageURL, res); err != nil {
			s.metrics.RecordCacheError("set")
			logger.Warn("Failed to cache preview",
				zap.String("url", pageURL),
				zap.Error(err))
		}
	}

	return out, nil
}

// Invalidate drops the cached preview of targetURL; a no-op when caching is disabled.
func (s *Service) Invalidate(ctx context.Context, targetURL string) error {
	parsed, err := urlutil.ValidateTargetURL(targetURL, false)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, parsed.String())
}

// Stats reports current load
func (s *Service) Stats() (inFlight, capacity int64) {
	return s.inFlight.Load(), s.capacity
}

// ClassifyError maps a preview error to an HTTP status and wire error type
func ClassifyError(err error) (int, string) {
	switch {
	case errors.Is(err, htmlprocessor.ErrNoHeading):
		return fasthttp.StatusUnprocessableEntity, types.ErrorTypeNoHeading
	case errors.Is(err, ErrOverloaded):
		return fasthttp.StatusServiceUnavailable, types.ErrorTypeOverloaded
	case errors.Is(err, urlutil.ErrInvalidTargetURL):
		return fasthttp.StatusBadRequest, types.ErrorTypeInvalidURL
	case errors.Is(err, urlutil.ErrPrivateAddress):
		return fasthttp.StatusBadRequest, types.ErrorTypeBlockedAddress
	case errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout, types.ErrorTypeFetchFailed
	case errors.Is(err, htmlprocessor.ErrParse):
		return fasthttp.StatusBadGateway, types.ErrorTypeParseFailed
	}

	return fasthttp.StatusBadGateway, fetcher.ErrorType(err)
}

package service

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/clientip"
	"github.com/edgecomet/preview/internal/common/httputil"
	"github.com/edgecomet/preview/internal/common/requestid"
	"github.com/edgecomet/preview/internal/preview/events"
	"github.com/edgecomet/preview/pkg/types"
)

// Response headers of GET /preview
const (
	HeaderHeading   = "X-Preview-Heading"
	HeaderBaseURL   = "X-Preview-Base-URL"
	HeaderCache     = "X-Preview-Cache"
	previewCSP      = "script-src 'none'"
	contentTypeHTML = "text/html; charset=utf-8"
)

// SourceResponse is the data payload of GET /source
type SourceResponse struct {
	URL           string              `json:"url"`
	BaseURL       string              `json:"base_url"`
	Heading       string              `json:"heading"`
	SourceContext types.SourceContext `json:"source_context"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	InFlight     int64  `json:"in_flight"`
	Capacity     int64  `json:"capacity"`
	CacheEnabled bool   `json:"cache_enabled"`
}

// requestState carries per-request bookkeeping shared by the preview and source handlers
type requestState struct {
	requestID string
	clientIP  string
	endpoint  string
	targetURL string
	start     time.Time
	logger    *zap.Logger
}

func (s *Service) newRequestState(ctx *fasthttp.RequestCtx, endpoint string) *requestState {
	id := requestid.FromRequest(ctx)
	ip := clientip.FromRequest(ctx, s.config.Server.ClientIPHeaders)
	targetURL := string(ctx.QueryArgs().Peek("url"))
	ctx.Response.Header.Set(requestid.HeaderName, id)

	return &requestState{
		requestID: id,
		clientIP:  ip,
		endpoint:  endpoint,
		targetURL: targetURL,
		start:     time.Now(),
		logger: s.logger.With(
			zap.String("request_id", id),
			zap.String("client_ip", ip),
			zap.String("endpoint", endpoint),
			zap.String("url", targetURL)),
	}
}

// run builds the preview for the request under the configured timeout
func (s *Service) run(rs *requestState) (*types.PreviewResult, string, error) {
	buildCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.Timeout.ToDuration())
	defer cancel()

	return s.BuildPreview(buildCtx, rs.targetURL, rs.logger)
}

// HandlePreview processes GET /preview?url=... and answers with the processed document
func (s *Service) HandlePreview(ctx *fasthttp.RequestCtx) {
	rs := s.newRequestState(ctx, events.EndpointPreview)

	res, cacheStatus, err := s.run(rs)
	if err != nil {
		s.writeError(ctx, rs, cacheStatus, err)
		return
	}

	ctx.Response.Header.Set(HeaderHeading, url.PathEscape(res.Heading))
	ctx.Response.Header.Set(HeaderBaseURL, res.BaseURL)
	ctx.Response.Header.Set(HeaderCache, cacheStatus)
	ctx.Response.Header.Set("Content-Security-Policy", previewCSP)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentTypeHTML)
	ctx.SetBodyString(res.HTML)

	s.finish(rs, fasthttp.StatusOK, cacheStatus, res)
}

// HandleSource processes GET /source?url=... and answers with the pre-absolutify heading context
func (s *Service) HandleSource(ctx *fasthttp.RequestCtx) {
	rs := s.newRequestState(ctx, events.EndpointSource)

	res, cacheStatus, err := s.run(rs)
	if err != nil {
		s.writeError(ctx, rs, cacheStatus, err)
		return
	}

	ctx.Response.Header.Set(HeaderCache, cacheStatus)
	httputil.JSONData(ctx, SourceResponse{
		URL:           res.URL,
		BaseURL:       res.BaseURL,
		Heading:       res.Heading,
		SourceContext: res.SourceContext,
	}, fasthttp.StatusOK)

	s.finish(rs, fasthttp.StatusOK, cacheStatus, res)
}

// HandleInvalidate processes DELETE /preview?url=... and drops the cached preview
func (s *Service) HandleInvalidate(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	targetURL := string(ctx.QueryArgs().Peek("url"))

	invalidateCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.Timeout.ToDuration())
	defer cancel()

	if err := s.Invalidate(invalidateCtx, targetURL); err != nil {
		status, errorType := ClassifyError(err)
		if errorType == types.ErrorTypeFetchFailed {
			status, errorType = fasthttp.StatusInternalServerError, types.ErrorTypeInternal
		}
		httputil.JSONError(ctx, errorType, err.Error(), status)
		s.metrics.RecordRequest("invalidate", strconv.Itoa(status), time.Since(start))
		s.logger.Warn("Cache invalidation failed",
			zap.String("url", targetURL),
			zap.Error(err))
		return
	}

	httputil.JSONSuccess(ctx, "cache entry removed", fasthttp.StatusOK)
	s.metrics.RecordRequest("invalidate", "200", time.Since(start))
	s.logger.Info("Preview cache invalidated", zap.String("url", targetURL))
}

// HandleHealth returns the current health status and load
func (s *Service) HandleHealth(ctx *fasthttp.RequestCtx) {
	inFlight, capacity := s.Stats()

	httputil.JSONData(ctx, HealthResponse{
		Status:       "ok",
		InFlight:     inFlight,
		Capacity:     capacity,
		CacheEnabled: s.cache != nil,
	}, fasthttp.StatusOK)
	s.metrics.RecordRequest("health", "200", 0)
}

func (s *Service) writeError(ctx *fasthttp.RequestCtx, rs *requestState, cacheStatus string, err error) {
	status, errorType := ClassifyError(err)
	httputil.JSONError(ctx, errorType, err.Error(), status)
	s.metrics.RecordError(errorType)

	if status >= fasthttp.StatusInternalServerError && errorType != types.ErrorTypeOverloaded {
		rs.logger.Error("Preview failed",
			zap.Int("status_code", status),
			zap.String("error_type", errorType),
			zap.Error(err))
	} else {
		rs.logger.Info("Preview rejected",
			zap.Int("status_code", status),
			zap.String("error_type", errorType),
			zap.Error(err))
	}

	s.finishEvent(rs, status, cacheStatus, nil, errorType, err.Error())
}

func (s *Service) finish(rs *requestState, status int, cacheStatus string, res *types.PreviewResult) {
	rs.logger.Info("Preview served",
		zap.String("final_url", res.URL),
		zap.String("heading", res.Heading),
		zap.String("cache", cacheStatus),
		zap.Int("html_bytes", len(res.HTML)),
		zap.Duration("duration", time.Since(rs.start)))

	s.finishEvent(rs, status, cacheStatus, res, "", "")
}

// finishEvent records the request metric and emits the event line
func (s *Service) finishEvent(rs *requestState, status int, cacheStatus string, res *types.PreviewResult, errorType, errorMessage string) {
	duration := time.Since(rs.start)
	s.metrics.RecordRequest(rs.endpoint, strconv.Itoa(status), duration)

	event := &events.PreviewEvent{
		RequestID:    rs.requestID,
		ClientIP:     rs.clientIP,
		Endpoint:     rs.endpoint,
		URL:          rs.targetURL,
		StatusCode:   status,
		CacheStatus:  cacheStatus,
		Duration:     duration,
		ErrorType:    errorType,
		ErrorMessage: errorMessage,
		CreatedAt:    rs.start.UTC(),
	}
	if res != nil {
		event.FinalURL = res.URL
		event.Heading = res.Heading
		event.HTMLSize = len(res.HTML)
	}
	s.emitter.Emit(event)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/htmlprocessor"
)

// Clean action labels
const (
	ActionScriptsRemoved      = "scripts_removed"
	ActionCloaksRemoved       = "cloaks_removed"
	ActionForcedHidden        = "forced_hidden"
	ActionCrossOriginStripped = "crossorigin_stripped"
	ActionDisplayVarsStripped = "display_vars_stripped"
	ActionAuthoringCleaned    = "authoring_attrs_cleaned"
	ActionBaseRemoved         = "base_removed"
)

// MetricsCollector centralizes metrics recording for the preview service.
// A nil *MetricsCollector records nothing, so components can run without metrics.
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector registers the metrics on the default Prometheus registry
func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return NewMetricsCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewMetricsCollectorWithRegistry registers the metrics on registerer, for tests
func NewMetricsCollectorWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetricsWithRegistry(namespace, registerer, logger),
		logger:     logger,
	}
}

// RecordRequest records a finished API request with timing
func (mc *MetricsCollector) RecordRequest(endpoint, status string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordRequest(endpoint, status, duration)

	mc.logger.Debug("Recorded request metric",
		zap.String("endpoint", endpoint),
		zap.String("status", status),
		zap.Duration("duration", duration))
}

func (mc *MetricsCollector) IncActiveRequests() {
	if mc != nil {
		mc.prometheus.IncActiveRequests()
	}
}

func (mc *MetricsCollector) DecActiveRequests() {
	if mc != nil {
		mc.prometheus.DecActiveRequests()
	}
}

// RecordRejected records a request turned away with 503
func (mc *MetricsCollector) RecordRejected() {
	if mc != nil {
		mc.prometheus.RecordRejected()
	}
}

// RecordFetch records an origin download; result is "success" or an error type
func (mc *MetricsCollector) RecordFetch(result string, duration time.Duration, bodySize int) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordFetch(result, duration, bodySize)

	mc.logger.Debug("Recorded fetch metric",
		zap.String("result", result),
		zap.Duration("duration", duration),
		zap.Int("body_size", bodySize))
}

// RecordPipeline records one successful pipeline run and what the cleaner changed
func (mc *MetricsCollector) RecordPipeline(duration time.Duration, stats htmlprocessor.CleanStats) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordPipeline(duration)

	mc.prometheus.AddCleanActions(ActionScriptsRemoved, stats.ScriptsRemoved)
	mc.prometheus.AddCleanActions(ActionCloaksRemoved, stats.CloaksRemoved)
	mc.prometheus.AddCleanActions(ActionForcedHidden, stats.ForcedHidden)
	mc.prometheus.AddCleanActions(ActionCrossOriginStripped, stats.CrossOriginStripped)
	mc.prometheus.AddCleanActions(ActionDisplayVarsStripped, stats.DisplayVarsStripped)
	mc.prometheus.AddCleanActions(ActionAuthoringCleaned, stats.AuthoringAttrsCleaned)
	if stats.BaseElementRemoved {
		mc.prometheus.AddCleanActions(ActionBaseRemoved, 1)
	}
}

// RecordError records a failed preview by error type
func (mc *MetricsCollector) RecordError(errorType string) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordError(errorType)

	mc.logger.Debug("Recorded error metric", zap.String("error_type", errorType))
}

func (mc *MetricsCollector) RecordCacheHit() {
	if mc != nil {
		mc.prometheus.RecordCacheHit()
	}
}

func (mc *MetricsCollector) RecordCacheMiss() {
	if mc != nil {
		mc.prometheus.RecordCacheMiss()
	}
}

// RecordCacheError records a cache get/set failure that was ignored
func (mc *MetricsCollector) RecordCacheError(operation string) {
	if mc != nil {
		mc.prometheus.RecordCacheError(operation)
	}
}

// ServeHTTP serves Prometheus metrics via HTTP
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}

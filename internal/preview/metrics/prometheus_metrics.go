package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const subsystem = "preview"

// PrometheusMetrics holds every preview metric
type PrometheusMetrics struct {
	// Request metrics
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	activeRequests   prometheus.Gauge
	rejectedRequests prometheus.Counter

	// Origin fetch metrics
	fetchDuration *prometheus.HistogramVec
	fetchBytes    prometheus.Histogram

	// Pipeline metrics
	pipelineDuration prometheus.Histogram
	pipelineErrors   *prometheus.CounterVec
	cleanActions     *prometheus.CounterVec

	// Cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	cacheHitRatio    prometheus.Gauge
	cacheErrorsTotal *prometheus.CounterVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetricsWithRegistry registers the preview metrics on registerer.
// registerer should also be a Gatherer; otherwise the default gatherer serves /metrics.
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of preview API requests",
		},
		[]string{"endpoint", "status"},
	)

	pm.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Time taken to answer preview API requests",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"endpoint"},
	)

	pm.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_requests",
			Help:      "Previews currently being processed",
		},
	)

	pm.rejectedRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_requests_total",
			Help:      "Requests rejected because every processing slot was busy",
		},
	)

	pm.fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Time taken to download origin pages",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"result"},
	)

	pm.fetchBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_body_bytes",
			Help:      "Size of downloaded origin HTML",
			Buckets:   prometheus.ExponentialBuckets(4*1024, 4, 8), // 4KB to 64MB
		},
	)

	pm.pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent cleaning, absolutifying and serializing one document",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
	)

	pm.pipelineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Failed previews by error type",
		},
		[]string{"error_type"},
	)

	pm.cleanActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "clean_actions_total",
			Help:      "Elements and attributes changed by the cleaner",
		},
		[]string{"action"},
	)

	pm.cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of preview cache hits",
		},
	)

	pm.cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of preview cache misses",
		},
	)

	pm.cacheHitRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hit_ratio",
			Help:      "Preview cache hit ratio (0-1)",
		},
	)

	pm.cacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_errors_total",
			Help:      "Preview cache operations that failed and were ignored",
		},
		[]string{"operation"},
	)

	registerer.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.activeRequests,
		pm.rejectedRequests,
		pm.fetchDuration,
		pm.fetchBytes,
		pm.pipelineDuration,
		pm.pipelineErrors,
		pm.cleanActions,
		pm.cacheHitsTotal,
		pm.cacheMissesTotal,
		pm.cacheHitRatio,
		pm.cacheErrorsTotal,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Debug("Prometheus metrics initialized")
	return pm
}

func (pm *PrometheusMetrics) RecordRequest(endpoint, status string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(endpoint, status).Inc()
	pm.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) IncActiveRequests() {
	pm.activeRequests.Inc()
}

func (pm *PrometheusMetrics) DecActiveRequests() {
	pm.activeRequests.Dec()
}

func (pm *PrometheusMetrics) RecordRejected() {
	pm.rejectedRequests.Inc()
}

func (pm *PrometheusMetrics) RecordFetch(result string, duration time.Duration, bodySize int) {
	pm.fetchDuration.WithLabelValues(result).Observe(duration.Seconds())
	if bodySize > 0 {
		pm.fetchBytes.Observe(float64(bodySize))
	}
}

func (pm *PrometheusMetrics) RecordPipeline(duration time.Duration) {
	pm.pipelineDuration.Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordError(errorType string) {
	pm.pipelineErrors.WithLabelValues(errorType).Inc()
}

func (pm *PrometheusMetrics) AddCleanActions(action string, count int) {
	if count > 0 {
		pm.cleanActions.WithLabelValues(action).Add(float64(count))
	}
}

// RecordCacheHit records a cache hit and updates hit ratio
func (pm *PrometheusMetrics) RecordCacheHit() {
	pm.cacheHitsTotal.Inc()
	pm.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss and updates hit ratio
func (pm *PrometheusMetrics) RecordCacheMiss() {
	pm.cacheMissesTotal.Inc()
	pm.updateCacheHitRatio()
}

func (pm *PrometheusMetrics) RecordCacheError(operation string) {
	pm.cacheErrorsTotal.WithLabelValues(operation).Inc()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}

func (pm *PrometheusMetrics) updateCacheHitRatio() {
	hits := pm.getCounterValue(pm.cacheHitsTotal)
	misses := pm.getCounterValue(pm.cacheMissesTotal)

	if total := hits + misses; total > 0 {
		pm.cacheHitRatio.Set(hits / total)
	}
}

// getCounterValue reads the current value of a counter through its DTO
func (pm *PrometheusMetrics) getCounterValue(counter prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		pm.logger.Warn("Failed to read counter value", zap.Error(err))
		return 0
	}
	return metric.GetCounter().GetValue()
}

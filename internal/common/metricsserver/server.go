package metricsserver

import (
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/configtypes"
)

// MetricsHandler interface for metrics collectors
type MetricsHandler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx)
}

// StartMetricsServer starts the metrics endpoint on its own port.
// Returns nil, nil when metrics are disabled. The listen address is bound before
// returning so a busy port is reported to the caller.
func StartMetricsServer(cfg configtypes.MetricsConfig, metricsHandler MetricsHandler, logger *zap.Logger) (*fasthttp.Server, error) {
	if !cfg.Enabled {
		logger.Info("Metrics collection disabled")
		return nil, nil
	}

	listen, err := configtypes.NormalizeListen(cfg.Listen)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	metricsServer := NewServer(cfg.Path, metricsHandler)

	go func() {
		logger.Info("Metrics server listening",
			zap.String("listen", listen),
			zap.String("path", cfg.Path))

		if err := metricsServer.Serve(ln); err != nil {
			logger.Error("Metrics server stopped",
				zap.String("listen", listen),
				zap.Error(err))
		}
	}()

	return metricsServer, nil
}

// NewServer builds the metrics fasthttp server without binding it
func NewServer(metricsPath string, metricsHandler MetricsHandler) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            createMetricsHandler(metricsPath, metricsHandler),
		Name:               "EdgeComet-Preview-Metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 * 1024,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 30 * time.Second,
		MaxConnsPerIP:      100,
		MaxRequestsPerConn: 1000,
		Concurrency:        100,
	}
}

func createMetricsHandler(metricsPath string, metricsHandler MetricsHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == metricsPath {
			metricsHandler.ServeHTTP(ctx)
			return
		}

		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("Not Found")
	}
}

package service

import (
	"github.com/valyala/fasthttp"
)

// Route paths
const (
	PathPreview = "/preview"
	PathSource  = "/source"
	PathHealth  = "/health"
)

// CreateHTTPHandler creates the main HTTP request handler with routing
func (s *Service) CreateHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case method == fasthttp.MethodGet && path == PathPreview:
			s.HandlePreview(ctx)
		case method == fasthttp.MethodDelete && path == PathPreview:
			s.HandleInvalidate(ctx)
		case method == fasthttp.MethodGet && path == PathSource:
			s.HandleSource(ctx)
		case method == fasthttp.MethodGet && path == PathHealth:
			s.HandleHealth(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("Not Found")
			s.metrics.RecordRequest("unknown", "404", 0)
		}
	}
}

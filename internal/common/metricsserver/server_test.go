package metricsserver

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/configtypes"
)

type mockMetricsHandler struct {
	called bool
}

func (m *mockMetricsHandler) ServeHTTP(ctx *fasthttp.RequestCtx) {
	m.called = true
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("# TYPE test_metric counter\ntest_metric 42\n")
}

func serveInMemory(t *testing.T, server *fasthttp.Server) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
}

func get(t *testing.T, client *fasthttp.Client, uri string) (int, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	require.NoError(t, client.Do(req, resp))
	return resp.StatusCode(), string(resp.Body())
}

func TestStartMetricsServer_Disabled(t *testing.T) {
	server, err := StartMetricsServer(configtypes.MetricsConfig{Enabled: false}, &mockMetricsHandler{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, server)
}

func TestStartMetricsServer_InvalidListen(t *testing.T) {
	_, err := StartMetricsServer(configtypes.MetricsConfig{Enabled: true, Listen: "nope", Path: "/metrics"}, &mockMetricsHandler{}, zap.NewNop())
	assert.Error(t, err)
}

func TestMetricsServer_ServesPath(t *testing.T) {
	handler := &mockMetricsHandler{}
	client := serveInMemory(t, NewServer("/metrics", handler))

	status, body := get(t, client, "http://metrics/metrics")
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, body, "test_metric 42")
	assert.True(t, handler.called)
}

func TestMetricsServer_OtherPaths404(t *testing.T) {
	handler := &mockMetricsHandler{}
	client := serveInMemory(t, NewServer("/custom-metrics", handler))

	status, body := get(t, client, "http://metrics/metrics")
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, "Not Found", body)
	assert.False(t, handler.called)
}

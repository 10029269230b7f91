package clientip

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func newRequestCtx(remoteAddr string, headers map[string]string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	addr, _ := net.ResolveTCPAddr("tcp", remoteAddr)
	ctx.SetRemoteAddr(addr)
	for key, value := range headers {
		ctx.Request.Header.Set(key, value)
	}
	return ctx
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    []string
		reqHeaders map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "real ip header",
			headers:    []string{"X-Real-IP"},
			reqHeaders: map[string]string{"X-Real-IP": "203.0.113.50"},
			remoteAddr: "1.1.1.1:1234",
			expected:   "203.0.113.50",
		},
		{
			name:       "forwarded list uses leftmost",
			headers:    []string{"X-Forwarded-For"},
			reqHeaders: map[string]string{"X-Forwarded-For": " 203.0.113.50 , 70.41.3.18"},
			remoteAddr: "1.1.1.1:1234",
			expected:   "203.0.113.50",
		},
		{
			name:       "first populated header wins",
			headers:    []string{"X-Real-IP", "X-Forwarded-For"},
			reqHeaders: map[string]string{"X-Forwarded-For": "10.0.0.2"},
			remoteAddr: "1.1.1.1:1234",
			expected:   "10.0.0.2",
		},
		{
			name:       "bracketed ipv6 with zone",
			headers:    []string{"X-Real-IP"},
			reqHeaders: map[string]string{"X-Real-IP": "[fe80::1%eth0]"},
			remoteAddr: "1.1.1.1:1234",
			expected:   "fe80::1",
		},
		{
			name:       "unparseable header value kept",
			headers:    []string{"X-Real-IP"},
			reqHeaders: map[string]string{"X-Real-IP": "unknown"},
			remoteAddr: "1.1.1.1:1234",
			expected:   "unknown",
		},
		{
			name:       "no headers configured",
			remoteAddr: "192.0.2.7:5555",
			reqHeaders: map[string]string{"X-Real-IP": "10.0.0.1"},
			expected:   "192.0.2.7",
		},
		{
			name:       "empty header falls back to peer",
			headers:    []string{"X-Real-IP"},
			reqHeaders: map[string]string{"X-Real-IP": " , "},
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newRequestCtx(tt.remoteAddr, tt.reqHeaders)
			assert.Equal(t, tt.expected, FromRequest(ctx, tt.headers))
		})
	}
}

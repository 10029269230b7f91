package clientip

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// FromRequest returns the caller address for request logs. The first configured
// header holding a value wins; for list headers such as X-Forwarded-For the
// leftmost entry is used. Without a usable header the TCP peer address is returned.
func FromRequest(ctx *fasthttp.RequestCtx, headers []string) string {
	for _, name := range headers {
		if ip := firstListEntry(string(ctx.Request.Header.Peek(name))); ip != "" {
			return ip
		}
	}

	addr := ctx.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return canonical(addr)
}

func firstListEntry(value string) string {
	first, _, _ := strings.Cut(value, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}
	return canonical(first)
}

// canonical strips brackets and zone IDs and prints parseable IPs in standard form.
// Anything unparseable is returned as given.
func canonical(raw string) string {
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	if zone := strings.IndexByte(raw, '%'); zone >= 0 {
		raw = raw[:zone]
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}

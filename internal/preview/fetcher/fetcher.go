package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/configtypes"
	"github.com/edgecomet/preview/internal/common/urlutil"
	"github.com/edgecomet/preview/pkg/types"
)

var (
	ErrBodyTooLarge     = errors.New("origin response body too large")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrNotHTML          = errors.New("origin did not return HTML")
	ErrEmptyBody        = errors.New("origin returned an empty body")
	ErrOriginStatus     = errors.New("origin returned an error status")
)

const dialTimeout = 10 * time.Second

// Response holds a downloaded origin page
type Response struct {
	URL         string // final URL after redirects
	StatusCode  int
	Body        []byte
	ContentType string
	Redirects   int
}

// StatusError carries the origin status code of a non-2xx response
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrOriginStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrOriginStatus
}

// Fetcher downloads origin pages for previewing
type Fetcher struct {
	config *configtypes.FetchConfig
	client *fasthttp.Client
	logger *zap.Logger
}

// NewFetcher creates a Fetcher. SSRF protection is on unless disabled in cfg.
func NewFetcher(cfg *configtypes.FetchConfig, logger *zap.Logger) *Fetcher {
	timeout := cfg.Timeout.ToDuration()

	client := &fasthttp.Client{
		ReadTimeout:              timeout,
		WriteTimeout:             timeout,
		MaxResponseBodySize:      cfg.MaxBodySize,
		NoDefaultUserAgentHeader: true,
	}

	// Blocks DNS rebinding to private IPs
	if cfg.IsSSRFProtectionEnabled() {
		client.Dial = ssrfSafeDial
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Fetch downloads targetURL, following up to MaxRedirects redirects.
// Non-2xx statuses, non-HTML content types and empty bodies are errors.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, logger *zap.Logger) (*Response, error) {
	deadline := time.Now().Add(f.config.Timeout.ToDuration())
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	currentURL := targetURL
	redirects := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req.Reset()
		resp.Reset()
		req.SetRequestURI(currentURL)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("User-Agent", f.config.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

		if err := f.client.DoDeadline(req, resp, deadline); err != nil {
			if errors.Is(err, fasthttp.ErrBodyTooLarge) {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
			}
			logger.Warn("Origin request failed",
				zap.String("url", currentURL),
				zap.Error(err))
			return nil, fmt.Errorf("fetch %s: %w", currentURL, err)
		}

		if !fasthttp.StatusCodeIsRedirect(resp.StatusCode()) {
			break
		}

		location := string(resp.Header.Peek(fasthttp.HeaderLocation))
		if location == "" {
			break
		}
		if redirects >= f.config.MaxRedirects {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyRedirects, f.config.MaxRedirects)
		}

		next, err := resolveRedirect(currentURL, location, f.config.IsSSRFProtectionEnabled())
		if err != nil {
			return nil, err
		}
		logger.Debug("Following redirect",
			zap.String("from", currentURL),
			zap.String("to", next),
			zap.Int("status_code", resp.StatusCode()))

		currentURL = next
		redirects++
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status}
	}

	contentType := string(resp.Header.ContentType())
	if !isHTMLContentType(contentType) {
		return nil, fmt.Errorf("%w: content type %q", ErrNotHTML, contentType)
	}

	body := append([]byte(nil), resp.Body()...) // Copy the body
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrEmptyBody
	}

	logger.Debug("Origin request completed",
		zap.String("url", currentURL),
		zap.Int("status_code", status),
		zap.Int("response_size", len(body)),
		zap.Int("redirects", redirects))

	return &Response{
		URL:         currentURL,
		StatusCode:  status,
		Body:        body,
		ContentType: contentType,
		Redirects:   redirects,
	}, nil
}

// ErrorType maps a Fetch error to its wire error type
func ErrorType(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		if statusErr.StatusCode >= 500 {
			return types.ErrorTypeOrigin5xx
		}
		return types.ErrorTypeOrigin4xx
	case errors.Is(err, urlutil.ErrPrivateAddress):
		return types.ErrorTypeBlockedAddress
	case errors.Is(err, urlutil.ErrInvalidTargetURL):
		return types.ErrorTypeInvalidURL
	case errors.Is(err, ErrBodyTooLarge):
		return types.ErrorTypeResponseTooLarge
	case errors.Is(err, ErrNotHTML):
		return types.ErrorTypeNotHTML
	case errors.Is(err, ErrEmptyBody):
		return types.ErrorTypeEmptyResponse
	default:
		return types.ErrorTypeFetchFailed
	}
}

// resolveRedirect resolves a Location header against the current URL and validates the target
func resolveRedirect(currentURL, location string, blockPrivate bool) (string, error) {
	resolved := urlutil.AbsolutifyURL(location, currentURL)
	if strings.HasPrefix(resolved, "//") {
		if scheme, _, ok := strings.Cut(currentURL, ":"); ok {
			resolved = scheme + ":" + resolved
		}
	}

	parsed, err := urlutil.ValidateTargetURL(resolved, blockPrivate)
	if err != nil {
		return "", fmt.Errorf("redirect to %q: %w", location, err)
	}
	return parsed.String(), nil
}

// isHTMLContentType accepts HTML, XHTML and a missing content type
func isHTMLContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ssrfSafeDial resolves the hostname, validates all IPs are public, then connects.
// Prevents DNS rebinding attacks where an attacker's domain resolves to a private IP.
func ssrfSafeDial(addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("DNS resolution failed for %q: %w", host, err)
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %q", host)
	}

	for _, ip := range ips {
		if err := urlutil.ValidateResolvedIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF protection for %q: %w", host, err)
		}
	}

	// All IPs validated as public; connect to the first one
	return fasthttp.DialTimeout(net.JoinHostPort(ips[0].String(), port), dialTimeout)
}

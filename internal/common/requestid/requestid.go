package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// HeaderName carries the request ID in both directions
const HeaderName = "X-Request-ID"

const (
	// MaxRequestIDLength is the maximum total length (same as UUID: 36 chars)
	MaxRequestIDLength = 36
	// PrefixLength is the length of the random prefix
	PrefixLength = 5
	// MaxCustomIDLength is 36 total - 5 prefix - 1 hyphen
	MaxCustomIDLength = MaxRequestIDLength - PrefixLength - 1
)

var (
	sanitizeRegex           = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	consecutiveHyphensRegex = regexp.MustCompile(`-+`)
)

// GenerateRequestID builds a request ID of the form {5 random hex}-{sanitized customID}.
// customID keeps only [a-zA-Z0-9-] with spaces turned into hyphens, and is cut to fit 36 chars.
// An empty or fully invalid customID yields a UUID.
func GenerateRequestID(customID string) string {
	sanitized := strings.ReplaceAll(customID, " ", "-")
	sanitized = sanitizeRegex.ReplaceAllString(sanitized, "")
	sanitized = consecutiveHyphensRegex.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		return uuid.New().String()
	}

	if len(sanitized) > MaxCustomIDLength {
		sanitized = sanitized[:MaxCustomIDLength]
	}

	return generateRandomPrefix() + "-" + sanitized
}

// FromRequest derives the ID for an incoming preview request from its X-Request-ID header.
// The caller's value is kept as the custom part so it can be correlated upstream.
func FromRequest(ctx *fasthttp.RequestCtx) string {
	return GenerateRequestID(string(ctx.Request.Header.Peek(HeaderName)))
}

func generateRandomPrefix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(b)[:PrefixLength]
}

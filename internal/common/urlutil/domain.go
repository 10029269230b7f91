package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var unsafeFileRunes = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ExtractHost extracts and lowercases the host from a URL string.
// Returns empty string if URL is invalid or has no host.
func ExtractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// SanitizeDomain turns a URL into a string usable as a file name prefix.
// The hostname is used when the URL parses; otherwise the whole input is sanitized.
// Every rune outside [a-zA-Z0-9.-] becomes '-'.
func SanitizeDomain(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Hostname() != "" {
		return unsafeFileRunes.ReplaceAllString(parsed.Hostname(), "-")
	}
	return unsafeFileRunes.ReplaceAllString(rawURL, "-")
}

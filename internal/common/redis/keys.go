package redis

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const previewKeyPrefix = "preview:"

// HashURL returns the 16 hex char XXHash64 of the normalized URL.
// Scheme and host are lowercased, the fragment is dropped and the query is sorted,
// so trivially different spellings of a page share one cache entry.
func HashURL(rawURL string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalizeURL(rawURL)))
}

// PreviewKey returns the Redis key holding the cached preview for rawURL
func PreviewKey(rawURL string) string {
	return previewKeyPrefix + HashURL(rawURL)
}

func normalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		// Encode sorts by key
		u.RawQuery = u.Query().Encode()
	}
	return u.String()
}

package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Error type constants for structured error categorization on the wire
const (
	ErrorTypeInvalidURL       = "invalid_url"
	ErrorTypeBlockedAddress   = "blocked_address"
	ErrorTypeFetchFailed      = "fetch_failed"
	ErrorTypeOrigin4xx        = "origin_4xx"
	ErrorTypeOrigin5xx        = "origin_5xx"
	ErrorTypeNotHTML          = "not_html"
	ErrorTypeResponseTooLarge = "response_too_large"
	ErrorTypeEmptyResponse    = "empty_response"
	ErrorTypeNoHeading        = "no_heading"
	ErrorTypeParseFailed      = "parse_failed"
	ErrorTypeOverloaded       = "overloaded"
	ErrorTypeInternal         = "internal"
)

// Compression algorithm constants
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy" // default
	CompressionLZ4    = "lz4"
)

// CompressionMinSize is the minimum content size in bytes for compression to be applied.
// Smaller payloads are stored raw.
const CompressionMinSize = 1024

// Cache status values reported in X-Preview-Cache and event lines
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
)

// SourceContext is the pre-absolutify snapshot around the page heading.
// URLs inside HeadingHTML and ParentHTML are in their original short form.
type SourceContext struct {
	Title       string `json:"title,omitempty"`
	HeadingText string `json:"heading_text"`
	HeadingHTML string `json:"heading_html"`
	ParentTag   string `json:"parent_tag,omitempty"`
	ParentHTML  string `json:"parent_html,omitempty"`
}

// PreviewResult is the outcome of running the preview pipeline on one page
type PreviewResult struct {
	URL           string        `json:"url"`       // page URL the HTML was fetched for (after redirects)
	BaseURL       string        `json:"base_url"`  // URL every relative reference was resolved against
	Heading       string        `json:"heading"`   // trimmed text of the selected h1
	HTML          string        `json:"-"`         // serialized processed document
	SourceContext SourceContext `json:"source_context"`
	ProcessTime   time.Duration `json:"process_time"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CachedPreviewMetadata is stored alongside the compressed HTML of a cached preview
type CachedPreviewMetadata struct {
	URL           string        `json:"url"`
	BaseURL       string        `json:"base_url"`
	Heading       string        `json:"heading"`
	SourceContext SourceContext `json:"source_context"`
	Compression   string        `json:"compression"`
	HTMLSize      int           `json:"html_size"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Duration wraps time.Duration with extended YAML parsing support for days and weeks
type Duration time.Duration

var extendedDurationPattern = regexp.MustCompile(`^(-?)(\d+(?:\.\d+)?)(d|w)$`)

// UnmarshalYAML implements yaml.Unmarshaler for extended duration formats
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON accepts both numbers (nanoseconds) and strings ("15s", "24h", "30d", "2w").
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ns int64
	if err := json.Unmarshal(data, &ns); err == nil {
		*d = Duration(ns)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or number, got %s", string(data))
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ToDuration converts types.Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDuration parses standard Go durations plus the d (days) and w (weeks) suffixes.
func ParseDuration(s string) (time.Duration, error) {
	if dur, err := time.ParseDuration(s); err == nil {
		return dur, nil
	}

	matches := extendedDurationPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid duration %q: expected Go duration or value like '30d' or '2w'", s)
	}

	value, err := strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if matches[1] == "-" {
		value = -value
	}

	unit := 24 * time.Hour
	if matches[3] == "w" {
		unit = 7 * 24 * time.Hour
	}
	return time.Duration(value * float64(unit)), nil
}

package events

import (
	"time"
)

// Endpoints recorded in events
const (
	EndpointPreview = "preview"
	EndpointSource  = "source"
)

// PreviewEvent describes one finished preview request
type PreviewEvent struct {
	RequestID    string
	ClientIP     string
	Endpoint     string
	URL          string // requested URL
	FinalURL     string // page URL after redirects
	StatusCode   int
	Heading      string
	CacheStatus  string
	Duration     time.Duration
	ErrorType    string
	ErrorMessage string
	HTMLSize     int
	CreatedAt    time.Time
}

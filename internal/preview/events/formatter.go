package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TemplateFormatter formats PreviewEvent using a template string
type TemplateFormatter struct {
	template     string
	placeholders []placeholder
}

type placeholder struct {
	raw   string // e.g. "{heading}"
	field string
	start int
	end   int
}

// validFields contains all known placeholder names
var validFields = map[string]bool{
	"timestamp":     true,
	"request_id":    true,
	"client_ip":     true,
	"endpoint":      true,
	"url":           true,
	"final_url":     true,
	"status":        true,
	"heading":       true,
	"cache":         true,
	"duration":      true,
	"error_type":    true,
	"error_message": true,
	"html_size":     true,
}

// NewTemplateFormatter parses and validates the template.
// Returns error if any placeholder is unknown or template is empty.
func NewTemplateFormatter(template string) (*TemplateFormatter, error) {
	if template == "" {
		return nil, fmt.Errorf("template cannot be empty")
	}

	placeholders, err := parsePlaceholders(template)
	if err != nil {
		return nil, err
	}

	return &TemplateFormatter{
		template:     template,
		placeholders: placeholders,
	}, nil
}

// parsePlaceholders extracts and validates all placeholders from the template
func parsePlaceholders(template string) ([]placeholder, error) {
	var placeholders []placeholder
	i := 0

	for i < len(template) {
		start := strings.Index(template[i:], "{")
		if start == -1 {
			break
		}
		start += i

		end := strings.Index(template[start:], "}")
		if end == -1 {
			return nil, fmt.Errorf("unclosed placeholder at position %d", start)
		}
		end += start

		field := template[start+1 : end]
		if field == "" {
			return nil, fmt.Errorf("empty placeholder at position %d", start)
		}
		if !validFields[field] {
			return nil, fmt.Errorf("unknown placeholder {%s}", field)
		}

		placeholders = append(placeholders, placeholder{
			raw:   template[start : end+1],
			field: field,
			start: start,
			end:   end + 1,
		})

		i = end + 1
	}

	return placeholders, nil
}

// Template returns the original template string
func (f *TemplateFormatter) Template() string {
	return f.template
}

// Format renders the event using the template
func (f *TemplateFormatter) Format(event *PreviewEvent) string {
	if len(f.placeholders) == 0 {
		return f.template
	}

	var b strings.Builder
	last := 0
	for _, p := range f.placeholders {
		b.WriteString(f.template[last:p.start])
		b.WriteString(fieldValue(event, p.field))
		last = p.end
	}
	b.WriteString(f.template[last:])
	return b.String()
}

func fieldValue(event *PreviewEvent, field string) string {
	switch field {
	case "timestamp":
		return formatTime(event.CreatedAt)
	case "request_id":
		return formatString(event.RequestID)
	case "client_ip":
		return formatString(event.ClientIP)
	case "endpoint":
		return formatString(event.Endpoint)
	case "url":
		return formatString(event.URL)
	case "final_url":
		return formatString(event.FinalURL)
	case "status":
		return strconv.Itoa(event.StatusCode)
	case "heading":
		return formatString(event.Heading)
	case "cache":
		return formatString(event.CacheStatus)
	case "duration":
		return formatSeconds(event.Duration)
	case "error_type":
		return formatString(event.ErrorType)
	case "error_message":
		return formatString(event.ErrorMessage)
	case "html_size":
		return strconv.Itoa(event.HTMLSize)
	default:
		return "-"
	}
}

// escapeString escapes special characters in a string for log output
func escapeString(s string) string {
	escaped := strings.ReplaceAll(s, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	escaped = strings.ReplaceAll(escaped, "\t", "\\t")
	escaped = strings.ReplaceAll(escaped, "\r", "\\r")
	return escaped
}

// formatString quotes and escapes s; empty values become "-"
func formatString(s string) string {
	if s == "" {
		return "-"
	}
	return "\"" + escapeString(s) + "\""
}

// formatSeconds formats a duration as seconds with 3 decimal places
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// formatTime formats a time in ISO 8601 format
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

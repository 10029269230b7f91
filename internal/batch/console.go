package batch

import (
	"regexp"
	"strconv"

	cdpruntime "github.com/chromedp/cdproto/runtime"
)

// ignorableConsole matches console errors that are expected on most third-party pages
var ignorableConsole = []*regexp.Regexp{
	regexp.MustCompile(`(?i)font.*cors`),
	regexp.MustCompile(`(?i)favicon\.ico`),
	regexp.MustCompile(`(?i)404.*favicon`),
	regexp.MustCompile(`(?i)third.party`),
	regexp.MustCompile(`(?i)googletagmanager`),
	regexp.MustCompile(`(?i)google-analytics`),
	regexp.MustCompile(`(?i)analytics`),
	regexp.MustCompile(`(?i)hotjar`),
	regexp.MustCompile(`(?i)intercom`),
	regexp.MustCompile(`(?i)sentry`),
}

// IsIgnorableConsoleMessage reports whether text is a known harmless console error
func IsIgnorableConsoleMessage(text string) bool {
	for _, pattern := range ignorableConsole {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// FilterConsoleErrors drops ignorable messages and keeps the order of the rest
func FilterConsoleErrors(messages []string) []string {
	var kept []string
	for _, msg := range messages {
		if !IsIgnorableConsoleMessage(msg) {
			kept = append(kept, msg)
		}
	}
	return kept
}

// formatConsoleArg converts a CDP RemoteObject to a string representation.
func formatConsoleArg(arg *cdpruntime.RemoteObject) string {
	if len(arg.Value) > 0 {
		raw := string(arg.Value)
		if unquoted, err := strconv.Unquote(raw); err == nil {
			return unquoted
		}
		if raw != "null" && raw != "undefined" {
			return raw
		}
	}

	if arg.Description != "" {
		return arg.Description
	}
	if arg.ClassName != "" {
		return "[" + arg.ClassName + "]"
	}
	if string(arg.Type) != "" {
		return "[" + string(arg.Type) + "]"
	}
	return ""
}

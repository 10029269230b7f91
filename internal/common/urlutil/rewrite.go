package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

// skipAbsolutifyPattern matches references that are already absolute or must never be rewritten.
var skipAbsolutifyPattern = regexp.MustCompile(`(?i)^([a-z][a-z0-9+.\-]*://|//|#|data:|javascript:|mailto:|tel:|blob:)`)

// cssURLPattern matches url(...) with an optional matching quote around the argument.
// Go regexp has no backreferences, so each quoting style is its own alternative:
// group 1 is single-quoted, group 2 double-quoted, group 3 bare.
var cssURLPattern = regexp.MustCompile(`url\(\s*(?:'(.+?)'|"(.+?)"|(.+?))\s*\)`)

// ShouldAbsolutify reports whether a raw URL value is relative and eligible for rewriting.
// Empty values, absolute URLs, protocol-relative URLs, fragments and the
// data:, javascript:, mailto:, tel: and blob: schemes are left alone.
func ShouldAbsolutify(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed != "" && !skipAbsolutifyPattern.MatchString(trimmed)
}

// AbsolutifyURL resolves raw against baseURL.
// Non-qualifying values are returned unchanged, and so is raw whenever either
// side fails to parse or baseURL is not absolute.
func AbsolutifyURL(raw, baseURL string) string {
	if !ShouldAbsolutify(raw) {
		return raw
	}

	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || !base.IsAbs() {
		return raw
	}

	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}

	return base.ResolveReference(ref).String()
}

// AbsolutifySrcset rewrites the URL candidate of every srcset entry.
// Descriptors ("2x", "480w") are kept in place; tokens are rejoined with a single
// space and entries with ", ".
func AbsolutifySrcset(srcset, baseURL string) string {
	entries := strings.Split(srcset, ",")
	for i, entry := range entries {
		parts := strings.Fields(entry)
		if len(parts) > 0 && ShouldAbsolutify(parts[0]) {
			parts[0] = AbsolutifyURL(parts[0], baseURL)
		}
		entries[i] = strings.Join(parts, " ")
	}
	return strings.Join(entries, ", ")
}

// AbsolutifyCSSURLs rewrites url(...) occurrences in CSS text, keeping the original quoting.
// This is a lexical scan, not a CSS parser: url() nested inside other functions is
// only handled when the innermost match happens to be well formed.
func AbsolutifyCSSURLs(cssText, baseURL string) string {
	matches := cssURLPattern.FindAllStringSubmatchIndex(cssText, -1)
	if len(matches) == 0 {
		return cssText
	}

	var sb strings.Builder
	sb.Grow(len(cssText))
	last := 0

	for _, m := range matches {
		sb.WriteString(cssText[last:m[0]])
		last = m[1]

		quote, inner := cssURLArgument(cssText, m)
		if !ShouldAbsolutify(inner) {
			sb.WriteString(cssText[m[0]:m[1]])
			continue
		}

		sb.WriteString("url(")
		sb.WriteString(quote)
		sb.WriteString(AbsolutifyURL(inner, baseURL))
		sb.WriteString(quote)
		sb.WriteString(")")
	}
	sb.WriteString(cssText[last:])

	return sb.String()
}

// cssURLArgument returns the quote character and argument of one cssURLPattern match.
func cssURLArgument(cssText string, m []int) (quote, inner string) {
	switch {
	case m[2] >= 0:
		return "'", cssText[m[2]:m[3]]
	case m[4] >= 0:
		return `"`, cssText[m[4]:m[5]]
	default:
		return "", cssText[m[6]:m[7]]
	}
}

package htmlprocessor

import (
	"strings"
	"unicode/utf8"

	"github.com/edgecomet/preview/pkg/types"
)

// MaxSourceContextRunes caps each markup snippet of a SourceContext.
const MaxSourceContextRunes = 2000

// ExtractSourceContext snapshots the markup around the heading.
// Call it before Absolutify so the snippets keep the page's own short URLs.
func ExtractSourceContext(res *CleanResult) types.SourceContext {
	if res == nil || res.Heading == nil {
		return types.SourceContext{}
	}

	sc := types.SourceContext{
		HeadingText: res.HeadingText,
		HeadingHTML: truncateRunes(res.Heading.OuterHTML(), MaxSourceContextRunes),
	}
	if res.Document != nil {
		sc.Title = res.Document.Title()
	}

	// body and html parents would just repeat the whole page
	if parent := res.Heading.Parent(); parent != nil && parent.Tag() != "body" && parent.Tag() != "html" {
		sc.ParentTag = parent.Tag()
		sc.ParentHTML = truncateRunes(strings.TrimSpace(parent.OuterHTML()), MaxSourceContextRunes)
	}

	return sc
}

// truncateRunes truncates a string to maxLen runes (not bytes).
// Returns the original string if it's already within the limit.
func truncateRunes(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

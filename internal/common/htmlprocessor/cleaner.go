package htmlprocessor

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoHeading is returned by Clean when the document has no <h1> at all.
// It is the only user-facing failure of the pipeline; callers should ask for a different URL.
var ErrNoHeading = errors.New("no <h1> found on this page; try a page with a heading")

const (
	headingSelector        = `h1:not([aria-hidden="true"])`
	anyHeadingSelector     = "h1"
	scriptSelector         = "script, noscript"
	cloakSelector          = "[x-cloak]"
	mediaCrossOriginSelect = "img[crossorigin], video[crossorigin], audio[crossorigin], source[crossorigin]"
	styleAttrSelector      = "[style]"
	authoringSelector      = "[data-editable], [data-prop], [data-path], [data-key]"
)

// authoringAttributes are authoring-surface markers stripped from any element carrying one of them.
var authoringAttributes = []string{"data-editable", "data-prop", "data-path", "data-key", "data-type"}

// CleanStats counts what the cleaner removed or changed.
type CleanStats struct {
	ScriptsRemoved        int  `json:"scripts_removed"`
	CloaksRemoved         int  `json:"cloaks_removed"`
	ForcedHidden          int  `json:"forced_hidden"`
	CrossOriginStripped   int  `json:"crossorigin_stripped"`
	DisplayVarsStripped   int  `json:"display_vars_stripped"`
	AuthoringAttrsCleaned int  `json:"authoring_attrs_cleaned"`
	BaseElementRemoved    bool `json:"base_element_removed"`
}

// CleanResult is the output of the cleaning phase.
// Heading and HeadingText are captured before any URL is rewritten.
type CleanResult struct {
	Document    Document
	Heading     Element
	HeadingText string
	BaseURL     string
	Stats       CleanStats
}

// Clean parses raw HTML fetched for pageURL, strips everything that depends on a
// script runtime and locates the primary heading. URLs are not rewritten here.
func Clean(rawHTML, pageURL string) (*CleanResult, error) {
	doc, err := ParseDocument([]byte(rawHTML))
	if err != nil {
		return nil, err
	}

	var stats CleanStats
	baseURL, removed := takeBaseURL(doc, pageURL)
	stats.BaseElementRemoved = removed

	stats.ScriptsRemoved = removeScripts(doc)
	stats.CloaksRemoved, stats.ForcedHidden = uncloak(doc)
	stats.CrossOriginStripped = stripMediaCrossOrigin(doc)
	stats.DisplayVarsStripped = stripDisplayVariables(doc)
	stats.AuthoringAttrsCleaned = stripAuthoringAttributes(doc)

	heading := selectHeading(doc)
	if heading == nil {
		return nil, ErrNoHeading
	}

	return &CleanResult{
		Document:    doc,
		Heading:     heading,
		HeadingText: strings.TrimSpace(heading.Text()),
		BaseURL:     baseURL,
		Stats:       stats,
	}, nil
}

// takeBaseURL resolves the first <base href> against pageURL and removes the element,
// so the preview's own resolution cannot diverge from the rewritten URLs.
// Without a <base href> the page URL is the base.
func takeBaseURL(doc Document, pageURL string) (string, bool) {
	base := doc.QueryFirst("base[href]")
	if base == nil {
		return pageURL, false
	}

	href, _ := base.Attr("href")
	base.Remove()
	return resolveBaseHref(href, pageURL), true
}

// resolveBaseHref mirrors HTMLBaseElement.href: the attribute resolved against the
// document URL, or the raw attribute when it cannot be resolved.
func resolveBaseHref(href, pageURL string) string {
	href = strings.TrimSpace(href)

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}

	page, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || !page.IsAbs() {
		return href
	}
	return page.ResolveReference(ref).String()
}

// removeScripts drops every <script> and <noscript>, at any depth.
func removeScripts(doc Document) int {
	scripts := doc.Query(scriptSelector)
	for _, el := range scripts {
		el.Remove()
	}
	return len(scripts)
}

// uncloak removes Alpine.js x-cloak markers, which only the never-running framework would clear.
// An element that also has x-show is forced hidden unless the expression starts with "!":
// negated flags default to visible, bare flags default to false. This misreads
// expressions like "a != b"; it is a heuristic, not evaluation.
func uncloak(doc Document) (cloaks, hidden int) {
	for _, el := range doc.Query(cloakSelector) {
		el.RemoveAttr("x-cloak")
		cloaks++

		expr, ok := el.Attr("x-show")
		if !ok || expr == "" || strings.HasPrefix(strings.TrimSpace(expr), "!") {
			continue
		}

		style, _ := el.Attr("style")
		el.SetAttr("style", setStyleDeclaration(style, "display", "none"))
		hidden++
	}
	return cloaks, hidden
}

// stripMediaCrossOrigin removes crossorigin from img, video, audio and source.
// Credentialed CORS loads from the preview origin fail their preflight on arbitrary
// third-party hosts, while plain loads succeed as opaque resources. <link> keeps
// the attribute; some CDNs need the CORS flow for stylesheets.
func stripMediaCrossOrigin(doc Document) int {
	elements := doc.Query(mediaCrossOriginSelect)
	for _, el := range elements {
		el.RemoveAttr("crossorigin")
	}
	return len(elements)
}

// stripDisplayVariables drops display: var(--x) declarations whose defining script is gone.
// An inline style left empty is removed.
func stripDisplayVariables(doc Document) int {
	count := 0
	for _, el := range doc.Query(styleAttrSelector) {
		style, _ := el.Attr("style")
		if !hasDisplayVariable(style) {
			continue
		}

		if cleaned := stripDisplayVariable(style); cleaned != "" {
			el.SetAttr("style", cleaned)
		} else {
			el.RemoveAttr("style")
		}
		count++
	}
	return count
}

// stripAuthoringAttributes removes editor-only data attributes so they never reach
// the preview markup.
func stripAuthoringAttributes(doc Document) int {
	elements := doc.Query(authoringSelector)
	for _, el := range elements {
		for _, attr := range authoringAttributes {
			el.RemoveAttr(attr)
		}
	}
	return len(elements)
}

// selectHeading picks the first visible h1, falling back to the first h1 of any kind.
func selectHeading(doc Document) Element {
	if h1 := doc.QueryFirst(headingSelector); h1 != nil {
		return h1
	}
	return doc.QueryFirst(anyHeadingSelector)
}

package htmlprocessor

import (
	"strings"

	"github.com/edgecomet/preview/internal/common/urlutil"
)

// urlAttributes hold a single URL and are rewritten on every element that carries them.
var urlAttributes = []string{"src", "href"}

// Absolutify rewrites every relative URL reference in doc against baseURL, in place.
// It covers src/href, srcset candidates, url() in inline styles and url() in <style> blocks.
// Unparseable references are left as they are.
func Absolutify(doc Document, baseURL string) {
	for _, el := range doc.Query("[src], [href]") {
		for _, attr := range urlAttributes {
			val, ok := el.Attr(attr)
			if ok && urlutil.ShouldAbsolutify(val) {
				el.SetAttr(attr, urlutil.AbsolutifyURL(val, baseURL))
			}
		}
	}

	for _, el := range doc.Query("[srcset]") {
		srcset, _ := el.Attr("srcset")
		el.SetAttr("srcset", urlutil.AbsolutifySrcset(srcset, baseURL))
	}

	for _, el := range doc.Query(styleAttrSelector) {
		style, _ := el.Attr("style")
		if strings.Contains(style, "url(") {
			el.SetAttr("style", urlutil.AbsolutifyCSSURLs(style, baseURL))
		}
	}

	for _, el := range doc.Query("style") {
		if css := el.Text(); strings.Contains(css, "url(") {
			el.SetText(urlutil.AbsolutifyCSSURLs(css, baseURL))
		}
	}
}

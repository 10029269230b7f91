package htmlprocessor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbsolutify_Attributes(t *testing.T) {
	doc := parseDocument(t, `<html><head><link href="s.css" rel="stylesheet"></head><body>
		<img id="img" src="a.png">
		<a id="rel" href="../about">about</a>
		<a id="abs" href="https://other.example/x">x</a>
		<a id="frag" href="#top">top</a>
		<a id="mail" href="mailto:hi@site.example">mail</a>
		<a id="js" href="javascript:void(0)">js</a>
		<img id="data" src="data:image/gif;base64,R0lGOD">
		<img id="proto" src="//cdn.example/p.png">
		<iframe id="frame" src="embed/1"></iframe>
	</body></html>`)

	Absolutify(doc, pageURL)

	tests := []struct {
		selector string
		name     string
		want     string
	}{
		{"link", "href", "https://site.example/p/s.css"},
		{"#img", "src", "https://site.example/p/a.png"},
		{"#rel", "href", "https://site.example/about"},
		{"#abs", "href", "https://other.example/x"},
		{"#frag", "href", "#top"},
		{"#mail", "href", "mailto:hi@site.example"},
		{"#js", "href", "javascript:void(0)"},
		{"#data", "src", "data:image/gif;base64,R0lGOD"},
		{"#proto", "src", "//cdn.example/p.png"},
		{"#frame", "src", "https://site.example/p/embed/1"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, ok := attr(t, doc, tt.selector, tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAbsolutify_Srcset(t *testing.T) {
	doc := parseDocument(t, `<html><body>
		<img srcset="a.png 1x, b.png 2x">
		<picture><source id="src" srcset="/w.webp 480w,https://cdn.example/x.webp 800w"></picture>
	</body></html>`)

	Absolutify(doc, pageURL)

	got, _ := attr(t, doc, "img", "srcset")
	assert.Equal(t, "https://site.example/p/a.png 1x, https://site.example/p/b.png 2x", got)

	got, _ = attr(t, doc, "#src", "srcset")
	assert.Equal(t, "https://site.example/w.webp 480w, https://cdn.example/x.webp 800w", got)
}

func TestAbsolutify_InlineStyle(t *testing.T) {
	doc := parseDocument(t, `<html><body>
		<div id="bg" style="background:url('bg.jpg') no-repeat; color: red">x</div>
		<div id="plain" style="color: red">y</div>
		<div id="data" style="background-image:url(data:image/png;base64,AAA)">z</div>
	</body></html>`)

	Absolutify(doc, pageURL)

	got, _ := attr(t, doc, "#bg", "style")
	assert.Equal(t, "background:url('https://site.example/p/bg.jpg') no-repeat; color: red", got)

	got, _ = attr(t, doc, "#plain", "style")
	assert.Equal(t, "color: red", got)

	got, _ = attr(t, doc, "#data", "style")
	assert.Equal(t, "background-image:url(data:image/png;base64,AAA)", got)
}

func TestAbsolutify_StyleBlocks(t *testing.T) {
	doc := parseDocument(t, `<html><head>
		<style>@font-face{src:url("fonts/a.woff2") format("woff2")}</style>
		<style>h1{color:red}</style>
	</head><body></body></html>`)

	Absolutify(doc, pageURL)

	styles := doc.Query("style")
	require.Len(t, styles, 2)
	assert.Equal(t, `@font-face{src:url("https://site.example/p/fonts/a.woff2") format("woff2")}`, styles[0].Text())
	assert.Equal(t, `h1{color:red}`, styles[1].Text())
}

func TestAbsolutify_MalformedLeftUnchanged(t *testing.T) {
	doc := parseDocument(t, `<html><body><img src="%zz.png"><a href="ok">ok</a></body></html>`)

	Absolutify(doc, pageURL)

	src, _ := attr(t, doc, "img", "src")
	href, _ := attr(t, doc, "a", "href")
	assert.Equal(t, "%zz.png", src)
	assert.Equal(t, "https://site.example/p/ok", href)
}

func TestAbsolutify_Idempotent(t *testing.T) {
	raw := `<html><head><style>a{background:url(x.png)}</style></head><body>
		<img src="a.png" srcset="a.png 1x, b.png 2x" style="background:url(c.png)">
	</body></html>`

	doc := parseDocument(t, raw)
	Absolutify(doc, pageURL)
	once := doc.HTML()

	Absolutify(doc, pageURL)
	assert.Equal(t, once, doc.HTML())
	assert.Equal(t, 5, strings.Count(once, "https://site.example/p/"))
}

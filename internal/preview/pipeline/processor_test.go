package pipeline

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/edgecomet/preview/internal/common/htmlprocessor"
	"github.com/edgecomet/preview/internal/preview/metrics"
)

const samplePage = `<html><head><title>Shop</title><base href="/assets/"></head><body>
	<header><h1 aria-hidden="true">Logo</h1></header>
	<main><h1 data-editable="true">Fresh <a href="deals">deals</a></h1>
	<img src="hero.jpg" srcset="hero.jpg 1x, hero@2x.jpg 2x" crossorigin="anonymous">
	<div x-cloak x-show="menuOpen">menu</div>
	<script>track()</script></main>
</body></html>`

func TestProcessor_Process(t *testing.T) {
	p := NewProcessor(nil, zaptest.NewLogger(t))

	res, err := p.Process(samplePage, "https://shop.example/catalog/")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example/catalog/", res.URL)
	assert.Equal(t, "https://shop.example/assets/", res.BaseURL)
	assert.Equal(t, "Fresh deals", res.Heading)
	assert.False(t, res.CreatedAt.IsZero())

	assert.True(t, strings.HasPrefix(res.HTML, htmlprocessor.Doctype))
	assert.Contains(t, res.HTML, `src="https://shop.example/assets/hero.jpg"`)
	assert.Contains(t, res.HTML, `srcset="https://shop.example/assets/hero.jpg 1x, https://shop.example/assets/hero@2x.jpg 2x"`)
	assert.Contains(t, res.HTML, `href="https://shop.example/assets/deals"`)
	assert.Contains(t, res.HTML, "display: none;")
	assert.Contains(t, res.HTML, htmlprocessor.EditableRegionCSS)
	assert.NotContains(t, res.HTML, "track()")
	assert.NotContains(t, res.HTML, "crossorigin")
	assert.NotContains(t, res.HTML, "data-editable")
	assert.NotContains(t, res.HTML, "<base")
}

func TestProcessor_SourceContextKeepsShortURLs(t *testing.T) {
	p := NewProcessor(nil, zap.NewNop())

	res, err := p.Process(samplePage, "https://shop.example/catalog/")
	require.NoError(t, err)

	assert.Equal(t, "Shop", res.SourceContext.Title)
	assert.Equal(t, "Fresh deals", res.SourceContext.HeadingText)
	assert.Contains(t, res.SourceContext.HeadingHTML, `href="deals"`)
	assert.Equal(t, "main", res.SourceContext.ParentTag)
}

func TestProcessor_NoHeading(t *testing.T) {
	p := NewProcessor(nil, zap.NewNop())

	res, err := p.Process(`<html><body><h2>nothing</h2></body></html>`, "https://shop.example/")
	assert.ErrorIs(t, err, htmlprocessor.ErrNoHeading)
	assert.Nil(t, res)
}

func TestProcessor_RecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	mc := metrics.NewMetricsCollectorWithRegistry("test", registry, zap.NewNop())
	p := NewProcessor(mc, zap.NewNop())

	_, err := p.Process(samplePage, "https://shop.example/catalog/")
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, family := range families {
		found[family.GetName()] = true
	}
	assert.True(t, found["test_preview_pipeline_duration_seconds"])
	assert.True(t, found["test_preview_clean_actions_total"])
}

func TestProcessor_Concurrent(t *testing.T) {
	p := NewProcessor(nil, zap.NewNop())

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := p.Process(samplePage, "https://shop.example/catalog/")
			if err != nil {
				done <- err.Error()
				return
			}
			done <- res.HTML
		}()
	}

	first := <-done
	for i := 1; i < 8; i++ {
		assert.Equal(t, first, <-done)
	}
}

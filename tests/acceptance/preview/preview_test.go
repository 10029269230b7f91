package preview_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/edgecomet/preview/internal/common/httputil"
	"github.com/edgecomet/preview/internal/preview/service"
	"github.com/edgecomet/preview/pkg/types"
)

type sourceEnvelope struct {
	Success bool                   `json:"success"`
	Data    service.SourceResponse `json:"data"`
}

func decodeError(body string) httputil.APIResponse {
	var resp httputil.APIResponse
	Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
	return resp
}

var _ = Describe("Preview", func() {
	Context("when the origin page has a heading", func() {
		It("should serve cleaned, absolutified HTML", func() {
			resp := testEnv.Get(testEnv.PreviewPath(service.PathPreview, "/article/index.html"))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Headers.Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(resp.Headers.Get("Content-Security-Policy")).To(Equal("script-src 'none'"))
			Expect(resp.Headers.Get("X-Request-ID")).NotTo(BeEmpty())

			heading, err := url.PathUnescape(resp.Headers.Get(service.HeaderHeading))
			Expect(err).NotTo(HaveOccurred())
			Expect(heading).To(Equal("Welcome home"))

			articleBase := testEnv.Origin.URL("/article/")
			Expect(resp.Headers.Get(service.HeaderBaseURL)).To(Equal(testEnv.Origin.URL("/article/index.html")))

			body := resp.Body
			Expect(body).To(HavePrefix("<!DOCTYPE html>"))
			Expect(body).NotTo(ContainSubstring("<script"))
			Expect(body).NotTo(ContainSubstring("<noscript"))
			Expect(body).NotTo(ContainSubstring("x-cloak"))
			Expect(body).NotTo(ContainSubstring("crossorigin"))
			Expect(body).NotTo(ContainSubstring("data-editable"))
			Expect(body).NotTo(ContainSubstring("var(--mode)"))

			Expect(body).To(ContainSubstring(`href="` + articleBase + `css/site.css"`))
			Expect(body).To(ContainSubstring(`src="` + articleBase + `img/photo.png"`))
			Expect(body).To(ContainSubstring(articleBase + "img/photo@2x.png 2x"))
			Expect(body).To(ContainSubstring(`url("` + articleBase + `img/hero.jpg")`))
			Expect(body).To(ContainSubstring(articleBase + "img/bg.png"))
			Expect(body).To(ContainSubstring(`href="` + testEnv.Origin.URL("/about") + `"`))
			Expect(body).To(ContainSubstring("display: none;"))
			Expect(body).To(ContainSubstring(".editable-region"))
		})

		It("should honor the page's base element and drop it", func() {
			resp := testEnv.Get(testEnv.PreviewPath(service.PathPreview, "/based.html"))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Headers.Get(service.HeaderBaseURL)).To(Equal(testEnv.Origin.URL("/docs/")))
			Expect(resp.Body).To(ContainSubstring(`src="` + testEnv.Origin.URL("/docs/shot.png") + `"`))
			Expect(resp.Body).NotTo(ContainSubstring("<base"))
		})

		It("should follow redirects and resolve against the final URL", func() {
			resp := testEnv.Get(testEnv.PreviewPath(service.PathPreview, "/old"))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Headers.Get(service.HeaderBaseURL)).To(Equal(testEnv.Origin.URL("/article/index.html")))
			Expect(testEnv.Origin.Hits("/old")).To(Equal(1))
			Expect(testEnv.Origin.Hits("/article/index.html")).To(Equal(1))
		})
	})

	Context("source context", func() {
		It("should return the heading with its original short URLs", func() {
			resp := testEnv.Get(testEnv.PreviewPath(service.PathSource, "/article/index.html"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var env sourceEnvelope
			Expect(json.Unmarshal([]byte(resp.Body), &env)).To(Succeed())
			Expect(env.Success).To(BeTrue())
			Expect(env.Data.Heading).To(Equal("Welcome home"))
			Expect(env.Data.SourceContext.Title).To(Equal("Fixture Article"))
			Expect(env.Data.SourceContext.HeadingHTML).To(ContainSubstring(`href="/about"`))
			Expect(env.Data.SourceContext.HeadingHTML).NotTo(ContainSubstring("data-editable"))
			Expect(env.Data.SourceContext.ParentTag).To(Equal("main"))
		})
	})

	Context("when the page cannot be previewed", func() {
		DescribeTable("should answer with a typed error",
			func(target string, status int, errorType string) {
				target = strings.Replace(target, "ORIGIN", testEnv.Origin.URL(""), 1)
				resp := testEnv.Get(service.PathPreview + "?url=" + url.QueryEscape(target))

				Expect(resp.StatusCode).To(Equal(status))
				apiResp := decodeError(resp.Body)
				Expect(apiResp.Success).To(BeFalse())
				Expect(apiResp.ErrorType).To(Equal(errorType))
				Expect(apiResp.Error).NotTo(BeEmpty())
			},
			Entry("no heading", "ORIGIN/no-heading", http.StatusUnprocessableEntity, types.ErrorTypeNoHeading),
			Entry("origin 404", "ORIGIN/missing", http.StatusBadGateway, types.ErrorTypeOrigin4xx),
			Entry("not html", "ORIGIN/image.png", http.StatusBadGateway, types.ErrorTypeNotHTML),
			Entry("empty body", "ORIGIN/empty", http.StatusBadGateway, types.ErrorTypeEmptyResponse),
			Entry("redirect loop", "ORIGIN/loop", http.StatusBadGateway, types.ErrorTypeFetchFailed),
			Entry("unsupported scheme", "ftp://files.example/a", http.StatusBadRequest, types.ErrorTypeInvalidURL),
			Entry("missing url", "", http.StatusBadRequest, types.ErrorTypeInvalidURL),
		)

		It("should tell the user to pick a page with a heading", func() {
			resp := testEnv.Get(testEnv.PreviewPath(service.PathPreview, "/no-heading"))
			Expect(decodeError(resp.Body).Error).To(ContainSubstring("try a page with a heading"))
		})
	})

	Context("caching", func() {
		It("should serve the second request from Redis", func() {
			path := testEnv.PreviewPath(service.PathPreview, "/article/index.html")

			first := testEnv.Get(path)
			Expect(first.StatusCode).To(Equal(http.StatusOK))
			Expect(first.Headers.Get(service.HeaderCache)).To(Equal(types.CacheStatusMiss))

			second := testEnv.Get(path)
			Expect(second.StatusCode).To(Equal(http.StatusOK))
			Expect(second.Headers.Get(service.HeaderCache)).To(Equal(types.CacheStatusHit))
			Expect(second.Body).To(Equal(first.Body))
			Expect(second.Headers.Get(service.HeaderHeading)).To(Equal(first.Headers.Get(service.HeaderHeading)))

			Expect(testEnv.Origin.Hits("/article/index.html")).To(Equal(1))
			Expect(testEnv.MiniRedis.Keys()).To(HaveLen(1))
		})

		It("should share the cache between preview and source", func() {
			Expect(testEnv.Get(testEnv.PreviewPath(service.PathPreview, "/based.html")).StatusCode).To(Equal(http.StatusOK))

			resp := testEnv.Get(testEnv.PreviewPath(service.PathSource, "/based.html"))
			Expect(resp.Headers.Get(service.HeaderCache)).To(Equal(types.CacheStatusHit))
			Expect(testEnv.Origin.Hits("/based.html")).To(Equal(1))
		})

		It("should refetch after invalidation", func() {
			path := testEnv.PreviewPath(service.PathPreview, "/article/index.html")
			Expect(testEnv.Get(path).StatusCode).To(Equal(http.StatusOK))

			del := testEnv.Do(http.MethodDelete, path, nil)
			Expect(del.StatusCode).To(Equal(http.StatusOK))
			Expect(testEnv.MiniRedis.Keys()).To(BeEmpty())

			again := testEnv.Get(path)
			Expect(again.Headers.Get(service.HeaderCache)).To(Equal(types.CacheStatusMiss))
			Expect(testEnv.Origin.Hits("/article/index.html")).To(Equal(2))
		})

		It("should not cache failures", func() {
			path := testEnv.PreviewPath(service.PathPreview, "/no-heading")
			Expect(testEnv.Get(path).StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(testEnv.Get(path).StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(testEnv.Origin.Hits("/no-heading")).To(Equal(2))
		})
	})

	Context("event log", func() {
		It("should write one line per request, keyed by the request ID", func() {
			resp := testEnv.Do(http.MethodGet, testEnv.PreviewPath(service.PathPreview, "/based.html"),
				map[string]string{"X-Request-ID": "acceptance-evt-1"})
			requestID := resp.Headers.Get("X-Request-ID")
			Expect(requestID).To(HaveSuffix("-acceptance-evt-1"))

			prefix := `"` + requestID + `"` + "\t"
			var line string
			Eventually(func() string {
				data, _ := os.ReadFile(testEnv.EventLogPath)
				for _, l := range strings.Split(string(data), "\n") {
					if strings.HasPrefix(l, prefix) {
						line = l
					}
				}
				return line
			}).ShouldNot(BeEmpty())

			fields := strings.Split(line, "\t")
			Expect(fields).To(HaveLen(6))
			Expect(fields[1]).To(Equal(`"preview"`))
			Expect(fields[2]).To(Equal(`"` + testEnv.Origin.URL("/based.html") + `"`))
			Expect(fields[3]).To(Equal("200"))
			Expect(fields[4]).To(Equal(`"` + types.CacheStatusMiss + `"`))
			Expect(fields[5]).To(Equal("-"))
		})
	})

	Context("health", func() {
		It("should report capacity and cache state", func() {
			resp := testEnv.Get(service.PathHealth)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var env struct {
				Data service.HealthResponse `json:"data"`
			}
			Expect(json.Unmarshal([]byte(resp.Body), &env)).To(Succeed())
			Expect(env.Data.Status).To(Equal("ok"))
			Expect(env.Data.Capacity).To(Equal(int64(4)))
			Expect(env.Data.CacheEnabled).To(BeTrue())
		})

		It("should 404 unknown paths", func() {
			Expect(testEnv.Get("/nope").StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})

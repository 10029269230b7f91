package preview_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/edgecomet/preview/internal/batch"
	"github.com/edgecomet/preview/internal/preview/fetcher"
	"github.com/edgecomet/preview/internal/preview/pipeline"
)

var _ = Describe("Batch", func() {
	It("should test every listed site and write the report", func() {
		outputDir := GinkgoT().TempDir()
		sitesFile := filepath.Join(outputDir, "sites.txt")
		sites := strings.Join([]string{
			"# fixtures",
			testEnv.Origin.URL("/article/index.html"),
			"",
			testEnv.Origin.URL("/no-heading"),
			testEnv.Origin.URL("/based.html"),
		}, "\n")
		Expect(os.WriteFile(sitesFile, []byte(sites), 0o644)).To(Succeed())

		loaded, err := batch.LoadSites(sitesFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(3))

		runner := batch.NewRunner(batch.RunnerConfig{
			OutputDir:   outputDir,
			Concurrency: 2,
			PageTimeout: 10 * time.Second,
		}, fetcher.NewFetcher(&testEnv.Config.Fetch, testEnv.Logger), pipeline.NewProcessor(nil, testEnv.Logger), nil, testEnv.Logger)

		results, err := runner.Run(context.Background(), loaded)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		Expect(results[0].FetchLoad.Pass).To(BeTrue())
		Expect(results[0].Heading.Text).To(Equal("Welcome home"))
		Expect(results[1].FetchLoad.Pass).To(BeFalse())
		Expect(results[1].FetchLoad.Error).To(ContainSubstring("no <h1>"))
		Expect(results[2].Heading.Text).To(Equal("Guide"))

		reportPath, err := runner.WriteReport(results, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
		Expect(err).NotTo(HaveOccurred())

		report, err := os.ReadFile(reportPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(report)).To(ContainSubstring("- Sites tested: 3"))
		Expect(string(report)).To(ContainSubstring("- Fetch/load failed: 1"))
		Expect(string(report)).To(ContainSubstring("### Failed sites\n- " + testEnv.Origin.URL("/no-heading") + " -- "))
		Expect(string(report)).To(ContainSubstring("- **H1 detection**: PASS (h1 text: \"Welcome home\")"))
	})
})

package batch

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxReportedConsoleErrors = 5
	maxConsoleErrorRunes     = 200
)

// GenerateReport renders the Markdown report for a batch run
func GenerateReport(results []SiteResult, generatedAt time.Time) string {
	var passed, failed, headingPassed int
	for _, r := range results {
		if r.FetchLoad.Pass {
			passed++
		} else {
			failed++
		}
		if r.Heading.Pass {
			headingPassed++
		}
	}

	var b strings.Builder
	b.WriteString("# Batch Test Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Sites tested: %d\n", len(results))
	fmt.Fprintf(&b, "- Fetch/load passed: %d\n", passed)
	fmt.Fprintf(&b, "- Fetch/load failed: %d\n", failed)
	fmt.Fprintf(&b, "- H1 detection passed: %d\n", headingPassed)
	fmt.Fprintf(&b, "- H1 detection failed: %d\n\n", len(results)-headingPassed)

	if failed > 0 {
		b.WriteString("### Failed sites\n")
		for _, r := range results {
			if !r.FetchLoad.Pass {
				fmt.Fprintf(&b, "- %s -- %s\n", r.URL, r.FetchLoad.Error)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Per-site results\n\n")
	for _, r := range results {
		writeSiteSection(&b, r)
	}

	return b.String()
}

func writeSiteSection(b *strings.Builder, r SiteResult) {
	fmt.Fprintf(b, "### %s\n", r.URL)

	if r.FetchLoad.Pass {
		b.WriteString("- **Fetch/load**: PASS\n")
	} else {
		fmt.Fprintf(b, "- **Fetch/load**: FAIL (%s)\n", r.FetchLoad.Error)
	}

	switch {
	case r.Heading.Pass:
		fmt.Fprintf(b, "- **H1 detection**: PASS (h1 text: \"%s\")\n", r.Heading.Text)
	case r.FetchLoad.Pass:
		fmt.Fprintf(b, "- **H1 detection**: FAIL (%s)\n", r.Heading.Error)
	default:
		b.WriteString("- **H1 detection**: SKIPPED (fetch failed)\n")
	}

	if n := len(r.ConsoleErrors); n > 0 {
		fmt.Fprintf(b, "- **Console errors**: %d error(s)\n", n)
		for i, msg := range r.ConsoleErrors {
			if i == maxReportedConsoleErrors {
				break
			}
			fmt.Fprintf(b, "  - `%s`\n", clipRunes(msg, maxConsoleErrorRunes))
		}
		if n > maxReportedConsoleErrors {
			fmt.Fprintf(b, "  - ... and %d more\n", n-maxReportedConsoleErrors)
		}
	} else {
		b.WriteString("- **Console errors**: None\n")
	}

	shots := r.Screenshots
	switch {
	case !r.FetchLoad.Pass:
		b.WriteString("- **Screenshots**: None (fetch failed)\n")
	case shots.Processed == "" && shots.Live == "":
		b.WriteString("- **Screenshots**: None (disabled)\n")
	case isFailedShot(shots.Processed):
		fmt.Fprintf(b, "- **Screenshots**: None (processed render failed: %s)\n", strings.TrimPrefix(shots.Processed, screenshotFailedPrefix))
	case shots.Live != "" && !isFailedShot(shots.Live):
		fmt.Fprintf(b, "- **Screenshots**: `%s`, `%s`\n", shots.Live, shots.Processed)
	default:
		fmt.Fprintf(b, "- **Screenshots**: Processed only (live screenshot failed: %s)\n", shots.Live)
	}

	b.WriteString("\n")
}

func isFailedShot(name string) bool {
	return strings.HasPrefix(name, screenshotFailedPrefix)
}

func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

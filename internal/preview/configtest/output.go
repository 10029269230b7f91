package configtest

import (
	"fmt"
	"io"
	"time"
)

// PrintURLTestResult writes a human-readable dry-run report
func PrintURLTestResult(w io.Writer, result *URLTestResult) {
	fmt.Fprintf(w, "\n=== URL: %s ===\n", result.URL)
	if result.CacheKey != "" {
		fmt.Fprintf(w, "Cache Key: %s\n", result.CacheKey)
	}

	if result.FinalURL != "" {
		fmt.Fprintf(w, "Final URL: %s\n", result.FinalURL)
		fmt.Fprintf(w, "Origin Status: %d (%d redirect(s))\n", result.StatusCode, result.Redirects)
		fmt.Fprintf(w, "Body Size: %d bytes\n", result.BodySize)
		fmt.Fprintf(w, "Fetch Time: %s\n", result.FetchTime.Round(time.Millisecond))
	}

	if result.Error != "" {
		fmt.Fprintf(w, "\nERROR (%d %s): %s\n", result.HTTPStatus, result.ErrorType, result.Error)
		return
	}

	fmt.Fprintf(w, "Base URL: %s\n", result.BaseURL)
	fmt.Fprintf(w, "Heading: %q\n", result.Heading)
	if result.ParentTag != "" {
		fmt.Fprintf(w, "Heading Parent: <%s>\n", result.ParentTag)
	}
	fmt.Fprintf(w, "Preview Size: %d bytes\n", result.HTMLSize)
	fmt.Fprintf(w, "Process Time: %s\n", result.ProcessTime.Round(time.Microsecond))
}

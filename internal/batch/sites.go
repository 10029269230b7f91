package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseSites reads one URL per line. Blank lines and lines starting with '#' are skipped.
func ParseSites(r io.Reader) ([]string, error) {
	var sites []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sites = append(sites, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sites list: %w", err)
	}
	return sites, nil
}

// LoadSites reads the sites list at path
func LoadSites(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sites list: %w", err)
	}
	defer f.Close()

	return ParseSites(f)
}

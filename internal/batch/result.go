package batch

// CheckResult is the outcome of the fetch/load check
type CheckResult struct {
	Pass  bool
	Error string
}

// HeadingResult is the outcome of the H1 detection check
type HeadingResult struct {
	Pass  bool
	Error string
	Text  string
}

// Screenshots holds screenshot file names relative to the screenshots dir.
// A capture that failed holds "FAILED: <reason>" instead of a name.
type Screenshots struct {
	Live      string
	Processed string
}

// SiteResult is everything checked for one site
type SiteResult struct {
	URL           string
	Domain        string
	FetchLoad     CheckResult
	Heading       HeadingResult
	ConsoleErrors []string
	Screenshots   Screenshots
}

package model

import (
	"time"
)

// ReportStats holds the aggregate counters of one run.
type ReportStats struct {
	// URLsCrawled is the number of pages fetched (successfully or not).
	URLsCrawled int `json:"urls_crawled"`

	// FilesFound is the number of unique file candidates discovered.
	FilesFound int `json:"files_found"`

	// FilesDownloaded is the number of candidates written to disk.
	FilesDownloaded int `json:"files_downloaded"`

	// FilesFailed is the number of candidates whose retries exhausted.
	FilesFailed int `json:"files_failed"`

	// BytesDownloaded is the total size of all files written to disk.
	BytesDownloaded int64 `json:"bytes_downloaded"`

	// ElapsedSeconds is the wall-clock duration of the run.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// RunReport is the final result of a crawl-and-download run. It is the
// structure serialized to the metadata artifact and rendered by the
// report writers.
type RunReport struct {
	// Timestamp is when the run finished.
	Timestamp time.Time `json:"timestamp"`

	// Seeds are the URLs the crawl started from.
	Seeds []string `json:"seeds,omitempty"`

	// Stats holds the aggregate counters.
	Stats ReportStats `json:"stats"`

	// FoundLinks maps each category to the candidate URLs discovered
	// for it, deduplicated by normalized URL.
	FoundLinks map[string][]string `json:"found_links"`

	// DownloadResults lists one outcome per unique candidate, in
	// completion order.
	DownloadResults []DownloadOutcome `json:"download_results"`

	// CrawlErrors lists page-level fetch failures. These abandoned one
	// branch of the frontier each but did not fail the run.
	CrawlErrors []string `json:"crawl_errors,omitempty"`

	// Partial is true when the run was cancelled before the frontier
	// or the download queue drained.
	Partial bool `json:"partial,omitempty"`
}

// NewRunReport creates an empty report for the given seeds.
func NewRunReport(seeds []string) *RunReport {
	return &RunReport{
		Timestamp:       time.Now(),
		Seeds:           seeds,
		FoundLinks:      make(map[string][]string),
		DownloadResults: make([]DownloadOutcome, 0),
	}
}

// TotalFound returns the number of candidate URLs across all categories.
func (r *RunReport) TotalFound() int {
	total := 0
	for _, links := range r.FoundLinks {
		total += len(links)
	}
	return total
}

package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/crawldl/crawldl/internal/model"
)

// SimpleWriter outputs a human-readable text summary for terminal
// display. Plain ASCII so the output pipes cleanly to files and other
// tools.
type SimpleWriter struct {
	baseWriter

	// verbose includes per-file results instead of just the counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-file detail in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report summary.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("Crawl Summary\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "Pages crawled:    %d\n", report.Stats.URLsCrawled)
	fmt.Fprintf(&sb, "Files found:      %d\n", report.Stats.FilesFound)
	fmt.Fprintf(&sb, "Files downloaded: %d\n", report.Stats.FilesDownloaded)
	fmt.Fprintf(&sb, "Files failed:     %d\n", report.Stats.FilesFailed)
	fmt.Fprintf(&sb, "Bytes downloaded: %s\n", formatBytes(report.Stats.BytesDownloaded))
	fmt.Fprintf(&sb, "Elapsed:          %.1fs\n", report.Stats.ElapsedSeconds)
	if report.Partial {
		sb.WriteString("Status:           partial (cancelled before completion)\n")
	}

	if len(report.FoundLinks) > 0 {
		sb.WriteString("\nBy category:\n")
		categories := make([]string, 0, len(report.FoundLinks))
		for category := range report.FoundLinks {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(&sb, "  %-12s %d\n", category, len(report.FoundLinks[category]))
		}
	}

	if w.verbose {
		w.writeResults(&sb, report)
	}

	if len(report.CrawlErrors) > 0 {
		fmt.Fprintf(&sb, "\nCrawl errors: %d\n", len(report.CrawlErrors))
		if w.verbose {
			for _, e := range report.CrawlErrors {
				fmt.Fprintf(&sb, "  %s\n", e)
			}
		}
	}

	return w.output.Write([]byte(sb.String()))
}

// writeResults appends per-file outcomes.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.RunReport) {
	if len(report.DownloadResults) == 0 {
		return
	}

	sb.WriteString("\nDownloads:\n")
	for _, r := range report.DownloadResults {
		if r.Success {
			fmt.Fprintf(sb, "  [ok]   %s (%s)\n", r.Filename, formatBytes(r.ByteSize))
			for _, warning := range r.Warnings {
				fmt.Fprintf(sb, "         warning: %s\n", warning)
			}
		} else {
			fmt.Fprintf(sb, "  [fail] %s: %s (attempts: %d)\n", r.URL, r.FinalError, r.Attempts)
		}
	}
}

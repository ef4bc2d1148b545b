package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/crawldl/crawldl/internal/model"
)

// MarkdownWriter outputs reports in Markdown, for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter

	// maxResults caps the download results table. Zero means all.
	maxResults int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxResults caps how many download results appear in the table.
func WithMaxResults(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxResults = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeFoundLinks(md, report)
	w.writeResults(md, report)
	w.writeErrors(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	status := "Complete"
	if report.Partial {
		status = "Partial (cancelled before completion)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Finished", report.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(report.Stats.URLsCrawled)},
			{"Files Found", strconv.Itoa(report.Stats.FilesFound)},
			{"Files Downloaded", strconv.Itoa(report.Stats.FilesDownloaded)},
			{"Files Failed", strconv.Itoa(report.Stats.FilesFailed)},
			{"Bytes Downloaded", formatBytes(report.Stats.BytesDownloaded)},
			{"Elapsed", fmt.Sprintf("%.1fs", report.Stats.ElapsedSeconds)},
			{"Status", status},
		},
	})
	md.PlainText("")
}

// writeFoundLinks writes per-category counts in a stable order.
func (w *MarkdownWriter) writeFoundLinks(md *markdown.Markdown, report *model.RunReport) {
	if len(report.FoundLinks) == 0 {
		return
	}

	md.H2("Found Files by Category")
	md.PlainText("")

	categories := make([]string, 0, len(report.FoundLinks))
	for category := range report.FoundLinks {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	rows := make([][]string, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, []string{category, strconv.Itoa(len(report.FoundLinks[category]))})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Files"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeResults writes the per-file download outcomes.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.RunReport) {
	if len(report.DownloadResults) == 0 {
		return
	}

	md.H2("Downloads")
	md.PlainText("")

	results := report.DownloadResults
	truncated := 0
	if w.maxResults > 0 && len(results) > w.maxResults {
		truncated = len(results) - w.maxResults
		results = results[:w.maxResults]
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		detail := formatBytes(r.ByteSize)
		if !r.Success {
			status = "failed"
			detail = r.FinalError
		}
		name := r.Filename
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{name, status, detail, strconv.Itoa(r.Attempts)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"File", "Status", "Detail", "Attempts"},
		Rows:   rows,
	})
	if truncated > 0 {
		md.PlainTextf("... and %d more", truncated)
	}
	md.PlainText("")
}

// writeErrors lists page-level crawl failures.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.RunReport) {
	if len(report.CrawlErrors) == 0 {
		return
	}

	md.H2("Crawl Errors")
	md.PlainText("")
	md.BulletList(report.CrawlErrors...)
	md.PlainText("")
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

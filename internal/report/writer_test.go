package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/crawldl/crawldl/internal/model"
)

func sampleReport() *model.RunReport {
	return &model.RunReport{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Seeds:     []string{"http://example.com/"},
		Stats: model.ReportStats{
			URLsCrawled:     12,
			FilesFound:      3,
			FilesDownloaded: 2,
			FilesFailed:     1,
			BytesDownloaded: 2048,
			ElapsedSeconds:  4.2,
		},
		FoundLinks: map[string][]string{
			"documents": {"http://example.com/a.pdf", "http://example.com/b.pdf"},
			"images":    {"http://example.com/c.png"},
		},
		DownloadResults: []model.DownloadOutcome{
			{URL: "http://example.com/a.pdf", Success: true, Filename: "a.pdf", ByteSize: 1024, Attempts: 1, SHA256: "deadbeef"},
			{URL: "http://example.com/b.pdf", Success: true, Filename: "b.pdf", ByteSize: 1024, Attempts: 2},
			{URL: "http://example.com/c.png", Success: false, Attempts: 4, FinalError: "unexpected status 500"},
		},
		CrawlErrors: []string{"http://example.com/broken: status 500"},
	}
}

// TestJSONWriter tests round-trippable JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output parses back", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		n, err := w.Write(sampleReport())
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		var decoded model.RunReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Stats.FilesFound != 3 {
			t.Errorf("expected 3 files found, got %d", decoded.Stats.FilesFound)
		}
		if len(decoded.DownloadResults) != 3 {
			t.Errorf("expected 3 results, got %d", len(decoded.DownloadResults))
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"stats\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("failed result keeps error and omits sha256", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, `"error":"unexpected status 500"`) {
			t.Error("expected error field for failed download")
		}
		if strings.Count(out, `"sha256"`) != 1 {
			t.Error("sha256 should appear only for the hashed result")
		}
	})
}

// TestMarkdownWriter tests the rendered Markdown structure.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report",
		"## Found Files by Category",
		"## Downloads",
		"## Crawl Errors",
		"documents",
		"a.pdf",
		"unexpected status 500",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}

	// Categories appear in sorted order.
	if strings.Index(out, "documents") > strings.Index(out, "images") {
		t.Error("categories not sorted")
	}
}

// TestSimpleWriter tests the terminal summary.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("summary counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"Pages crawled:    12",
			"Files found:      3",
			"Files downloaded: 2",
			"Files failed:     1",
			"documents",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q", want)
			}
		}
		if strings.Contains(out, "a.pdf") {
			t.Error("per-file detail should require verbose")
		}
	})

	t.Run("verbose lists files", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(sampleReport()); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[ok]   a.pdf") {
			t.Error("verbose output missing successful file")
		}
		if !strings.Contains(out, "[fail] http://example.com/c.png") {
			t.Error("verbose output missing failed file")
		}
	})
}

// failingWriter always errors, for MultiWriter short-circuit tests.
type failingWriter struct{}

func (failingWriter) Write(*model.RunReport) (int, error) {
	return 0, errors.New("boom")
}

// TestMultiWriter tests fan-out and error short-circuit.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))

		if _, err := mw.Write(sampleReport()); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&after))

		if _, err := mw.Write(sampleReport()); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("writers after the failure should not run")
		}
	})
}

// TestFormatBytes tests the unit suffixes.
func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d): expected %q, got %q", tt.in, got, tt.want)
		}
	}
}

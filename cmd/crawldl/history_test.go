package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/crawldl/crawldl/internal/database"
	"github.com/crawldl/crawldl/internal/model"
	"github.com/spf13/cobra"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history" {
			t.Errorf("expected use 'history', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has limit flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.Shorthand != "l" {
			t.Errorf("expected shorthand 'l', got %q", flag.Shorthand)
		}
	})

	t.Run("has show flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("show")
		if flag == nil {
			t.Fatal("expected show flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has latest and json flags", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("latest") == nil {
			t.Error("expected latest flag")
		}
		if cmd.Flags().Lookup("json") == nil {
			t.Error("expected json flag")
		}
	})
}

// openHistoryDB creates a populated test database.
func openHistoryDB(t *testing.T) (*database.RunDB, int64) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	report := model.NewRunReport([]string{"https://example.com"})
	report.Stats.URLsCrawled = 4
	report.Stats.FilesFound = 2
	report.Stats.FilesDownloaded = 2

	id, err := db.SaveRunReport(context.Background(), report)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	return db, id
}

// captureCmd returns a throwaway command with a captured output buffer.
func captureCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

// TestListRuns tests the run listing table.
func TestListRuns(t *testing.T) {
	t.Parallel()

	t.Run("lists stored runs", func(t *testing.T) {
		t.Parallel()
		db, _ := openHistoryDB(t)
		cmd, buf := captureCmd()

		if err := listRuns(context.Background(), cmd, db, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEEDS") {
			t.Errorf("expected table header, got %q", output)
		}
		if !strings.Contains(output, "https://example.com") {
			t.Errorf("expected seed URL in listing, got %q", output)
		}
	})

	t.Run("reports empty database", func(t *testing.T) {
		t.Parallel()
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		cmd, buf := captureCmd()
		if err := listRuns(context.Background(), cmd, db, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "No runs recorded yet") {
			t.Errorf("expected empty message, got %q", buf.String())
		}
	})
}

// TestShowRun tests full-report display by ID.
func TestShowRun(t *testing.T) {
	t.Parallel()

	t.Run("shows stored report", func(t *testing.T) {
		t.Parallel()
		db, id := openHistoryDB(t)
		cmd, buf := captureCmd()

		if err := showRun(context.Background(), cmd, db, id, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "Crawl Summary") {
			t.Errorf("expected summary output, got %q", buf.String())
		}
	})

	t.Run("shows stored report as JSON", func(t *testing.T) {
		t.Parallel()
		db, id := openHistoryDB(t)
		cmd, buf := captureCmd()

		if err := showRun(context.Background(), cmd, db, id, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), `"seeds"`) {
			t.Errorf("expected JSON output, got %q", buf.String())
		}
	})

	t.Run("unknown ID is an error", func(t *testing.T) {
		t.Parallel()
		db, _ := openHistoryDB(t)
		cmd, _ := captureCmd()

		err := showRun(context.Background(), cmd, db, 9999, false)
		if err == nil {
			t.Fatal("expected error for unknown run ID")
		}
		if !strings.Contains(err.Error(), "no run with ID") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestShowLatestRun tests the latest-report shortcut.
func TestShowLatestRun(t *testing.T) {
	t.Parallel()

	t.Run("shows most recent report", func(t *testing.T) {
		t.Parallel()
		db, _ := openHistoryDB(t)
		cmd, buf := captureCmd()

		if err := showLatestRun(context.Background(), cmd, db, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "Crawl Summary") {
			t.Errorf("expected summary output, got %q", buf.String())
		}
	})

	t.Run("empty database is an error", func(t *testing.T) {
		t.Parallel()
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		cmd, _ := captureCmd()
		if err := showLatestRun(context.Background(), cmd, db, false); err == nil {
			t.Fatal("expected error for empty database")
		}
	})
}

// TestTruncateSeeds tests seed list shortening.
func TestTruncateSeeds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		seeds  string
		maxLen int
		want   string
	}{
		{
			name:   "short list unchanged",
			seeds:  "https://example.com",
			maxLen: 60,
			want:   "https://example.com",
		},
		{
			name:   "long list truncated with ellipsis",
			seeds:  strings.Repeat("x", 80),
			maxLen: 10,
			want:   strings.Repeat("x", 7) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := truncateSeeds(tt.seeds, tt.maxLen); got != tt.want {
				t.Errorf("truncateSeeds(%q, %d) = %q, want %q", tt.seeds, tt.maxLen, got, tt.want)
			}
		})
	}
}

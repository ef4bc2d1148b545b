package main

import (
	"testing"
)

// TestNewFindCmd tests the find command creation.
func TestNewFindCmd(t *testing.T) {
	t.Parallel()

	cmd := NewFindCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "find [seed-url]..." {
			t.Errorf("expected use 'find [seed-url]...', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("shares crawl flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"depth", "max-pages", "category", "json", "output", "config"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has no download flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"concurrency", "retries", "chunk-size", "notify-url"} {
			if cmd.Flags().Lookup(name) != nil {
				t.Errorf("did not expect %s flag on find", name)
			}
		}
	})
}

// TestFindBuildsFindOnlyConfig verifies that find leaves download-only
// settings at their defaults.
func TestFindBuildsFindOnlyConfig(t *testing.T) {
	cmd := NewFindCmd()
	cfg, err := buildConfig(cmd, []string{"https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// FindOnly is set by the run function, not buildConfig.
	if cfg.FindOnly {
		t.Error("expected FindOnly to be unset by buildConfig")
	}
	if cfg.MaxConcurrentDownloads <= 0 {
		t.Error("expected download defaults to survive for validation")
	}
}

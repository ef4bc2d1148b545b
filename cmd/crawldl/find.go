package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewFindCmd creates the find command.
func NewFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [seed-url]...",
		Short: "Discover downloadable files without downloading them",
		Long: `Find crawls the seed URLs exactly like crawl does, but stops after
discovery: it reports the file links grouped by category and downloads
nothing.

Examples:
  # List everything downloadable on a site
  crawldl find https://example.com

  # Machine-readable inventory
  crawldl find --json https://example.com

  # Only archives, one level deep
  crawldl find --category archives --depth 1 https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runFindCmd,
	}

	addCrawlFlags(cmd)

	return cmd
}

// runFindCmd executes the find command.
func runFindCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.FindOnly = true

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCrawl(ctx, cfg, logger)
}

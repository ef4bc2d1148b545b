package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crawldl/crawldl/internal/config"
	"github.com/crawldl/crawldl/internal/database"
	"github.com/crawldl/crawldl/internal/model"
	"github.com/crawldl/crawldl/internal/report"
)

// NewHistoryCmd creates the history command.
// This command reads run reports stored in the database by previous runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and inspect past runs",
		Long: `History lists the runs stored in the local database and shows full
reports for individual runs.

Every crawl and find run is stored automatically unless --no-history
was given.

Examples:
  # List the most recent runs
  crawldl history

  # List the last 5 runs
  crawldl history --limit 5

  # Show the full report of run 3
  crawldl history --show 3

  # Show the most recent report as JSON
  crawldl history --latest --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().Int64P("show", "s", 0,
		"Show the full report for the run with this ID")
	cmd.Flags().Bool("latest", false,
		"Show the full report of the most recent run")
	cmd.Flags().BoolP("json", "j", false,
		"Output reports in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}

	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no run history found (run a crawl first): %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case showID > 0:
		return showRun(ctx, cmd, db, showID, jsonOutput)
	case latest:
		return showLatestRun(ctx, cmd, db, jsonOutput)
	default:
		return listRuns(ctx, cmd, db, limit)
	}
}

// listRuns prints a table of stored run summaries.
func listRuns(ctx context.Context, cmd *cobra.Command, db *database.RunDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "%-4s  %-19s  %-7s  %-6s  %-6s  %-6s  %-8s  %s\n",
		"ID", "FINISHED", "PAGES", "FOUND", "OK", "FAIL", "STATUS", "SEEDS")
	for _, run := range runs {
		status := "done"
		if run.Partial {
			status = "partial"
		}
		fmt.Fprintf(out, "%-4d  %-19s  %-7d  %-6d  %-6d  %-6d  %-8s  %s\n",
			run.ID,
			run.FinishedAt.Format("2006-01-02 15:04:05"),
			run.PagesCrawled,
			run.FilesFound,
			run.FilesDownloaded,
			run.FilesFailed,
			status,
			truncateSeeds(run.Seeds, 60),
		)
	}

	return nil
}

// showRun prints the full stored report for one run ID.
func showRun(ctx context.Context, cmd *cobra.Command, db *database.RunDB, id int64, jsonOutput bool) error {
	runReport, err := db.GetRunReport(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if runReport == nil {
		return fmt.Errorf("no run with ID %d (use 'crawldl history' to list runs)", id)
	}

	return writeStoredReport(cmd, runReport, jsonOutput)
}

// showLatestRun prints the full report of the most recent run.
func showLatestRun(ctx context.Context, cmd *cobra.Command, db *database.RunDB, jsonOutput bool) error {
	runReport, err := db.GetLatestRunReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to load latest run: %w", err)
	}
	if runReport == nil {
		return fmt.Errorf("no runs recorded yet")
	}

	return writeStoredReport(cmd, runReport, jsonOutput)
}

// writeStoredReport writes a stored report in simple or JSON form.
func writeStoredReport(cmd *cobra.Command, runReport *model.RunReport, jsonOutput bool) error {
	out := cmd.OutOrStdout()

	var writer report.Writer
	if jsonOutput {
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	} else {
		fmt.Fprintf(out, "Run finished at %s\n\n", runReport.Timestamp.Format(time.RFC3339))
		writer = report.NewSimpleWriter(out, report.WithVerbose(true))
	}

	_, err := writer.Write(runReport)
	return err
}

// truncateSeeds shortens a seed list for table display.
func truncateSeeds(seeds string, maxLen int) string {
	if len(seeds) <= maxLen {
		return seeds
	}
	return strings.TrimSpace(seeds[:maxLen-3]) + "..."
}

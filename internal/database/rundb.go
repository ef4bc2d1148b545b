package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/crawldl/crawldl/internal/model"
)

// RunDB stores finished run reports in a local SQLite database so past
// crawls can be listed and inspected. Only completed reports are
// written; crawl state never touches the database mid-run.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run history database under dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "crawldl.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer, so the pool stays at one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (r *RunDB) createTables() error {
	schema := `
	-- Run reports store one finished crawl-and-download run as JSON
	-- plus denormalized counters for cheap listing.
	CREATE TABLE IF NOT EXISTS run_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seeds TEXT NOT NULL,
		finished_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		pages_crawled INTEGER NOT NULL DEFAULT 0,
		files_found INTEGER NOT NULL DEFAULT 0,
		files_downloaded INTEGER NOT NULL DEFAULT 0,
		files_failed INTEGER NOT NULL DEFAULT 0,
		bytes_downloaded INTEGER NOT NULL DEFAULT 0,
		partial INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_finished ON run_reports(finished_at);
	`

	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRunReport stores a finished report and returns its row ID.
func (r *RunDB) SaveRunReport(ctx context.Context, report *model.RunReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("serialize report: %w", err)
	}

	query := `
	INSERT INTO run_reports
		(seeds, finished_at, pages_crawled, files_found, files_downloaded,
		 files_failed, bytes_downloaded, partial, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	partial := 0
	if report.Partial {
		partial = 1
	}

	result, err := r.db.ExecContext(ctx, query,
		strings.Join(report.Seeds, " "),
		report.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		report.Stats.URLsCrawled,
		report.Stats.FilesFound,
		report.Stats.FilesDownloaded,
		report.Stats.FilesFailed,
		report.Stats.BytesDownloaded,
		partial,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("save run report: %w", err)
	}

	return result.LastInsertId()
}

// RunSummary is the listing row for one stored run.
type RunSummary struct {
	// ID is the database row ID, usable with GetRunReport.
	ID int64

	// Seeds are the space-joined seed URLs of the run.
	Seeds string

	// FinishedAt is when the run completed.
	FinishedAt time.Time

	// PagesCrawled, FilesFound, FilesDownloaded, FilesFailed mirror
	// the report counters.
	PagesCrawled    int
	FilesFound      int
	FilesDownloaded int
	FilesFailed     int

	// BytesDownloaded is the total size written to disk.
	BytesDownloaded int64

	// Partial marks runs cancelled before completion.
	Partial bool
}

// ListRuns returns stored run summaries, most recent first. A limit of
// zero returns all runs.
func (r *RunDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, seeds, finished_at, pages_crawled, files_found,
	       files_downloaded, files_failed, bytes_downloaded, partial
	FROM run_reports
	ORDER BY finished_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var finished string
		var partial int

		if err := rows.Scan(&s.ID, &s.Seeds, &finished, &s.PagesCrawled,
			&s.FilesFound, &s.FilesDownloaded, &s.FilesFailed,
			&s.BytesDownloaded, &partial); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}

		s.FinishedAt = parseTimestamp(finished)
		s.Partial = partial != 0
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetRunReport retrieves a full stored report by row ID. It returns
// nil when no run has that ID.
func (r *RunDB) GetRunReport(ctx context.Context, id int64) (*model.RunReport, error) {
	query := `SELECT report_json FROM run_reports WHERE id = ?`

	var reportJSON string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("parse run report: %w", err)
	}

	return &report, nil
}

// GetLatestRunReport retrieves the most recent stored report, or nil
// when the database is empty.
func (r *RunDB) GetLatestRunReport(ctx context.Context) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM run_reports
	ORDER BY finished_at DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := r.db.QueryRowContext(ctx, query).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("parse run report: %w", err)
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats SQLite may return,
// more specific formats first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp string, returning zero time
// when no known format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

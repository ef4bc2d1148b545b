package runner

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crawldl/crawldl/internal/crawler"
	"github.com/crawldl/crawldl/internal/delivery"
	"github.com/crawldl/crawldl/internal/model"
	"github.com/crawldl/crawldl/internal/transport"
)

// Downloader turns candidates into outcomes. Satisfied by
// download.Scheduler.
type Downloader interface {
	DownloadAll(ctx context.Context, candidates []model.FileCandidate) []model.DownloadOutcome
}

// Runner drives one crawl-and-download run: frontier to exhaustion,
// candidates into the scheduler, outcomes through the delivery
// pipeline, everything folded into a RunReport.
type Runner struct {
	frontier  *crawler.Frontier
	scheduler Downloader
	pipeline  *delivery.Pipeline
	logger    *slog.Logger

	// findOnly reports discovered files without downloading them.
	findOnly bool

	// metadataDir receives crawl_metadata.json and found_links.json
	// after the run. Empty disables the artifacts.
	metadataDir string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithFindOnly switches the runner to discovery-only mode.
func WithFindOnly(on bool) RunnerOption {
	return func(r *Runner) {
		r.findOnly = on
	}
}

// WithMetadataDir enables the metadata artifacts in the given directory.
func WithMetadataDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.metadataDir = dir
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner from its three stages. The pipeline may be nil
// in discovery-only setups.
func New(frontier *crawler.Frontier, scheduler Downloader, pipeline *delivery.Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		frontier:  frontier,
		scheduler: scheduler,
		pipeline:  pipeline,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes the run and returns its report. Cancellation mid-run
// returns the partial report together with the context error; every
// other failure is folded into the report instead of returned.
func (r *Runner) Run(ctx context.Context, seeds []string) (*model.RunReport, error) {
	stats := NewStats()
	report := model.NewRunReport(seeds)

	r.logger.Info("crawl starting", "seeds", len(seeds), "find_only", r.findOnly)

	crawlResult, crawlErr := r.frontier.Crawl(ctx, seeds)
	stats.RecordPagesCrawled(crawlResult.PagesCrawled)
	stats.RecordFilesFound(len(crawlResult.Candidates))
	report.CrawlErrors = crawlResult.Errors

	for _, candidate := range crawlResult.Candidates {
		report.FoundLinks[candidate.Category] = append(report.FoundLinks[candidate.Category], candidate.URL)
	}

	var cause error
	if crawlErr != nil && isContextErr(crawlErr) {
		cause = crawlErr
	}

	if !r.findOnly && cause == nil && len(crawlResult.Candidates) > 0 {
		r.logger.Info("downloading", "candidates", len(crawlResult.Candidates))

		outcomes := r.scheduler.DownloadAll(ctx, crawlResult.Candidates)
		for i := range outcomes {
			if r.pipeline != nil {
				r.pipeline.Process(ctx, &outcomes[i])
			}
			stats.RecordDownloadResult(outcomes[i])
		}
		report.DownloadResults = outcomes

		if err := ctx.Err(); err != nil {
			cause = err
		}
	}

	report.Stats = stats.Snapshot()
	report.Partial = cause != nil

	if r.metadataDir != "" {
		if err := writeMetadata(r.metadataDir, report); err != nil {
			r.logger.Warn("metadata artifacts not written", "dir", r.metadataDir, "error", err)
		}
	}

	r.logger.Info("run finished",
		"pages", report.Stats.URLsCrawled,
		"found", report.Stats.FilesFound,
		"downloaded", report.Stats.FilesDownloaded,
		"failed", report.Stats.FilesFailed,
		"partial", report.Partial)

	return report, cause
}

// isContextErr reports whether err is a cancellation or deadline error.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RouterProber adapts the routed transport's HEAD probe to the
// classifier's confirmation interface.
type RouterProber struct {
	Router *transport.Router
}

// Probe issues a HEAD request and returns the response headers and status.
func (p RouterProber) Probe(ctx context.Context, rawURL string) (http.Header, int, error) {
	resp, err := p.Router.Probe(ctx, rawURL)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	return resp.Header, resp.StatusCode, nil
}

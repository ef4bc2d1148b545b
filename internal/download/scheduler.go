package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/crawldl/crawldl/internal/model"
	"github.com/crawldl/crawldl/internal/transport"
)

// Fetcher fetches file URLs. Satisfied by transport.Router.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error)
}

// Scheduler downloads file candidates with bounded parallelism.
// Each download streams to a temp file in the target directory and is
// renamed into place only after the body arrived complete, so a
// partially downloaded file is never visible under its final name.
type Scheduler struct {
	fetcher Fetcher
	dir     string
	logger  *slog.Logger

	// slots bounds simultaneous downloads.
	slots *semaphore.Weighted

	// maxRetries is the number of retries after the first attempt.
	// Total attempts never exceed maxRetries+1.
	maxRetries int

	retryBase time.Duration
	retryMax  time.Duration

	// chunkSize is the copy buffer size for streaming bodies.
	chunkSize int

	names *nameAllocator
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency sets the maximum simultaneous downloads.
func WithConcurrency(n int64) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(n)
		}
	}
}

// WithMaxRetries sets how many times a retryable failure is retried
// after the first attempt.
func WithMaxRetries(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base and cap for the retry delay.
func WithRetryBackoff(base, maxDelay time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.retryBase = base
		s.retryMax = maxDelay
	}
}

// WithChunkSize sets the streaming copy buffer size.
func WithChunkSize(size int) SchedulerOption {
	return func(s *Scheduler) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithSchedulerLogger sets the structured logger for download progress.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a Scheduler writing into dir. The directory is
// created if missing; an unusable directory is the one fatal download
// error, everything later is per-file.
func NewScheduler(fetcher Fetcher, dir string, opts ...SchedulerOption) (*Scheduler, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	s := &Scheduler{
		fetcher:    fetcher,
		dir:        dir,
		logger:     slog.Default(),
		slots:      semaphore.NewWeighted(3),
		maxRetries: 3,
		retryBase:  time.Second,
		retryMax:   30 * time.Second,
		chunkSize:  64 * 1024,
		names:      newNameAllocator(dir),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// DownloadAll downloads every candidate and returns one outcome per
// candidate in input order. Individual failures never affect other
// downloads; cancellation aborts in-flight transfers and marks the
// rest as failed.
func (s *Scheduler) DownloadAll(ctx context.Context, candidates []model.FileCandidate) []model.DownloadOutcome {
	outcomes := make([]model.DownloadOutcome, len(candidates))

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			// The candidate never ran, but its outcome still counts
			// as one failed attempt.
			outcomes[i] = model.DownloadOutcome{
				URL:        candidate.URL,
				Category:   candidate.Category,
				Attempts:   1,
				FinalError: fmt.Sprintf("%v: %v", ErrNoSlot, err),
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.slots.Release(1)
			outcomes[i] = s.Download(ctx, candidate)
		}()
	}
	wg.Wait()

	return outcomes
}

// Download fetches a single candidate with retries and returns its outcome.
func (s *Scheduler) Download(ctx context.Context, candidate model.FileCandidate) model.DownloadOutcome {
	outcome := model.DownloadOutcome{
		URL:      candidate.URL,
		Category: candidate.Category,
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		outcome.Attempts = attempt + 1

		filename, size, err := s.tryOnce(ctx, candidate.URL)
		if err == nil {
			outcome.Success = true
			outcome.Filename = filename
			outcome.LocalPath = filepath.Join(s.dir, filename)
			outcome.ByteSize = size
			s.logger.Info("downloaded",
				"url", candidate.URL,
				"file", filename,
				"bytes", size,
				"attempts", outcome.Attempts)
			return outcome
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt >= s.maxRetries {
			break
		}

		delay := backoff(attempt, s.retryBase, s.retryMax)
		s.logger.Debug("download retry",
			"url", candidate.URL,
			"attempt", outcome.Attempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			outcome.FinalError = ctx.Err().Error()
			return outcome
		case <-time.After(delay):
		}
	}

	outcome.FinalError = lastErr.Error()
	s.logger.Warn("download failed",
		"url", candidate.URL,
		"attempts", outcome.Attempts,
		"error", lastErr)
	return outcome
}

// tryOnce performs one download attempt. On success it returns the
// final filename and the byte count; on any failure the temp file is
// removed and nothing is visible in the download directory.
func (s *Scheduler) tryOnce(ctx context.Context, rawURL string) (string, int64, error) {
	resp, err := s.fetcher.Fetch(ctx, rawURL, "")
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return "", 0, &StatusError{Code: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(s.dir, ".crawldl-*.part")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	written, err := io.CopyBuffer(tmp, resp.Body, make([]byte, s.chunkSize))
	if err != nil {
		cleanup()
		return "", 0, fmt.Errorf("stream body: %w", err)
	}

	if resp.ContentLength > 0 && written < resp.ContentLength {
		cleanup()
		return "", 0, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedBody, written, resp.ContentLength)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", 0, fmt.Errorf("close temp file: %w", err)
	}

	filename := s.names.claim(resolveFilename(rawURL, resp.Header))
	if err := os.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		s.names.release(filename)
		os.Remove(tmpName)
		return "", 0, fmt.Errorf("finalize file: %w", err)
	}

	return filename, written, nil
}

// retryable reports whether a download error is worth another attempt.
// Timeouts, connection resets, truncation, and 5xx-class statuses are
// transient; everything the transport refuses outright is not.
func retryable(err error) bool {
	// A deadline error here is the per-request timeout, which is
	// transient. Parent-context expiry is handled by the caller before
	// retryable is consulted.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, transport.ErrProxyUnavailable) ||
		errors.Is(err, transport.ErrAnonymityDisabled) ||
		errors.Is(err, transport.ErrInvalidOnionAddress) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	if errors.Is(err, ErrTruncatedBody) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Unrecognized transport-level failures get the benefit of the doubt.
	return true
}

var _ Fetcher = (*transport.Router)(nil)

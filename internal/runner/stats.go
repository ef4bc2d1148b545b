package runner

import (
	"sync"
	"time"

	"github.com/crawldl/crawldl/internal/model"
)

// Stats accumulates run counters behind a mutex so frontier and
// scheduler goroutines can report progress concurrently.
type Stats struct {
	mu    sync.Mutex
	start time.Time
	inner model.ReportStats
}

// NewStats creates a Stats with the clock started.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// RecordPagesCrawled adds fetched pages to the counter.
func (s *Stats) RecordPagesCrawled(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.URLsCrawled += n
}

// RecordFilesFound adds discovered candidates to the counter.
func (s *Stats) RecordFilesFound(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.FilesFound += n
}

// RecordDownloadResult folds one download outcome into the counters.
func (s *Stats) RecordDownloadResult(outcome model.DownloadOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outcome.Success {
		s.inner.FilesDownloaded++
		s.inner.BytesDownloaded += outcome.ByteSize
	} else {
		s.inner.FilesFailed++
	}
}

// Snapshot returns a copy of the counters with the elapsed time filled in.
func (s *Stats) Snapshot() model.ReportStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.inner
	out.ElapsedSeconds = time.Since(s.start).Seconds()
	return out
}

package delivery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/crawldl/crawldl/internal/model"
)

// FileMeta describes a completed download handed to sinks.
type FileMeta struct {
	// Path is the absolute local path of the downloaded file.
	Path string

	// Filename is the final name within the download directory.
	Filename string

	// SHA256 is the lowercase hex digest of the file content, or ""
	// when the hash could not be computed.
	SHA256 string

	// OriginURL is the URL the file was downloaded from.
	OriginURL string

	// Size is the file size in bytes.
	Size int64
}

// Sink receives completed downloads. Implementations must tolerate
// being called concurrently for different files.
type Sink interface {
	// Name identifies the sink in logs and warnings.
	Name() string

	// Deliver processes one completed file.
	Deliver(ctx context.Context, meta FileMeta) error
}

// Pipeline hashes completed downloads and fans them out to sinks.
// Sink failures degrade to warnings on the outcome; a downloaded file
// stays successful no matter what happens after it hit the disk.
type Pipeline struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewPipeline creates a Pipeline delivering to the given sinks. A
// pipeline with no sinks still computes integrity hashes.
func NewPipeline(sinks []Sink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{sinks: sinks, logger: logger}
}

// Process hashes the downloaded file and delivers it to every sink,
// mutating the outcome in place. Failed outcomes pass through
// untouched. Each sink sees each file exactly once per run.
func (p *Pipeline) Process(ctx context.Context, outcome *model.DownloadOutcome) {
	if !outcome.Success {
		return
	}

	sum, err := hashFile(outcome.LocalPath)
	if err != nil {
		outcome.AddWarning(fmt.Sprintf("integrity hash failed: %v", err))
		p.logger.Warn("integrity hash failed", "file", outcome.LocalPath, "error", err)
	} else {
		outcome.SHA256 = sum
	}

	meta := FileMeta{
		Path:      outcome.LocalPath,
		Filename:  outcome.Filename,
		SHA256:    outcome.SHA256,
		OriginURL: outcome.URL,
		Size:      outcome.ByteSize,
	}

	for _, sink := range p.sinks {
		if err := sink.Deliver(ctx, meta); err != nil {
			outcome.AddWarning(fmt.Sprintf("sink %s: %v", sink.Name(), err))
			p.logger.Warn("sink delivery failed",
				"sink", sink.Name(),
				"file", outcome.Filename,
				"error", err)
		}
	}
}

// hashFile computes the streaming SHA-256 of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

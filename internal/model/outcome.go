package model

// DownloadOutcome is the immutable record of one candidate's final
// download result. The scheduler writes it exactly once, after all
// retries succeed or exhaust; the delivery pipeline and the run
// coordinator only read it (the delivery pipeline fills in the hash
// and warnings before the outcome is published).
type DownloadOutcome struct {
	// URL is the candidate URL in its normalized form.
	URL string `json:"url"`

	// Category is the candidate's inferred file category.
	Category string `json:"category,omitempty"`

	// Success reports whether the file was fully written to disk.
	Success bool `json:"success"`

	// Filename is the final on-disk name, after sanitization and
	// collision disambiguation. Empty when Success is false.
	Filename string `json:"filename,omitempty"`

	// LocalPath is the absolute path of the downloaded file.
	LocalPath string `json:"local_path,omitempty"`

	// ByteSize is the number of bytes written to disk.
	ByteSize int64 `json:"size"`

	// SHA256 is the hex-encoded content hash, computed by the delivery
	// pipeline. Empty if hashing failed (a warning is recorded instead).
	SHA256 string `json:"sha256,omitempty"`

	// Attempts is the number of fetch attempts made. Always >= 1.
	Attempts int `json:"attempts"`

	// FinalError describes the last failure. Non-empty whenever
	// Success is false.
	FinalError string `json:"error,omitempty"`

	// Warnings collects non-fatal problems: hash computation failures
	// and delivery sink errors. Warnings never flip Success.
	Warnings []string `json:"warnings,omitempty"`
}

// AddWarning appends a non-fatal problem description to the outcome.
func (o *DownloadOutcome) AddWarning(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

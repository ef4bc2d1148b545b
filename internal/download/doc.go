// Package download fetches file candidates to the local filesystem.
//
// The Scheduler bounds parallel transfers with a weighted semaphore
// and retries transient failures with capped exponential backoff.
// Bodies stream to a hidden temp file and are renamed into place only
// once complete, so the download directory never shows partial files.
// Filenames come from the Content-Disposition header when present,
// then the URL path, with numeric suffixes resolving collisions.
package download

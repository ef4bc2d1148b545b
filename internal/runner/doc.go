// Package runner coordinates a full crawl-and-download run.
//
// The Runner chains the crawl frontier, the download scheduler, and
// the delivery pipeline, folds their results into a RunReport, and
// optionally writes metadata artifacts next to the downloaded files.
// A cancelled run still produces a report covering the work that
// finished.
package runner

// Package delivery post-processes completed downloads.
//
// The Pipeline computes a streaming SHA-256 over each downloaded file
// and hands the file to every configured Sink. Sinks are best effort:
// a failed upload or notification becomes a warning on the download
// outcome and never undoes the download itself.
package delivery

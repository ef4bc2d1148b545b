// Package main provides the entry point for the crawldl CLI.
//
// crawldl crawls web sites, discovers downloadable files by extension,
// URL pattern, and response headers, and downloads them concurrently.
// Onion hosts are fetched through a Tor SOCKS5 proxy when anonymity
// transport is enabled.
//
// Usage:
//
//	crawldl crawl <seed-url>...
//	crawldl find <seed-url>...
//
// See --help for all available options.
package main

// main is the entry point for crawldl.
func main() {
	Execute()
}

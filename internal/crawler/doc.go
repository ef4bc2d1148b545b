// Package crawler discovers downloadable files by walking linked HTML
// pages breadth first.
//
// The Frontier fetches pages through a transport Fetcher, parses them
// with the Parser, and runs every discovered URL through the classify
// package exactly once. URLs that look like files become candidates
// for the download scheduler; in-scope page links feed the next crawl
// level. Depth, page count, concurrency, and request spacing are all
// bounded.
package crawler

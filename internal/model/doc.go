// Package model defines the core data types shared across the crawl and
// download pipeline: crawl tasks, file candidates, download outcomes,
// run statistics, and the final run report.
//
// Types in this package are plain data carriers. They hold no network or
// filesystem state, which keeps them trivially serializable and safe to
// pass between goroutines once constructed.
package model

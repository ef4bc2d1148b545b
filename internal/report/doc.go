// Package report renders run results in multiple formats.
//
// Three writers share the Writer interface: SimpleWriter for terminal
// summaries, JSONWriter for tool integration, and MarkdownWriter for
// shareable documents. MultiWriter fans a report out to several
// destinations at once.
package report

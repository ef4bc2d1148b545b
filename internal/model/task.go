package model

import (
	"net/url"
	"sort"
	"strings"
)

// CrawlTask is a single page-fetch unit of work in the frontier.
// Tasks are created when a link passes the scope rules and are never
// mutated after creation.
type CrawlTask struct {
	// URL is the absolute URL of the page to fetch.
	URL string

	// Depth is the distance from the seed that discovered this page.
	// Seeds start at depth 0.
	Depth int

	// OriginHost is the host of the seed this task descends from.
	// It anchors the same-domain scope check for the whole branch.
	OriginHost string
}

// DetectionMethod records how a file candidate was classified.
type DetectionMethod string

// Detection methods, in increasing order of cost.
const (
	// DetectionExtension means the URL path extension matched a known
	// or custom mapping. This is authoritative and requires no network.
	DetectionExtension DetectionMethod = "extension"

	// DetectionEndpoint means the URL path matched a download-endpoint
	// pattern (e.g. "/download/"). Tentative until headers confirm it.
	DetectionEndpoint DetectionMethod = "endpoint-pattern"

	// DetectionHeader means response headers (Content-Disposition or
	// Content-Type) decided the classification.
	DetectionHeader DetectionMethod = "response-header"
)

// FileCandidate is a URL classified as a downloadable file rather than
// a page to recurse into. Ownership passes from the classifier to the
// download scheduler; the struct is immutable once created.
type FileCandidate struct {
	// URL is the absolute URL of the file.
	URL string

	// Category is the inferred file category (e.g. "documents").
	Category string

	// SourcePage is the page URL on which the link was discovered.
	SourcePage string

	// Method records which classification phase produced the category.
	Method DetectionMethod
}

// NormalizeURL returns the canonical identity form of a URL:
// lowercased scheme and host, fragment stripped, query parameters
// sorted, and an empty path normalized to "/".
//
// Two URLs with the same normalized form are the same unit of work;
// the visited set and the download scheduler both key on this form.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		values, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var b strings.Builder
			for _, k := range keys {
				vs := values[k]
				sort.Strings(vs)
				for _, v := range vs {
					if b.Len() > 0 {
						b.WriteByte('&')
					}
					b.WriteString(url.QueryEscape(k))
					b.WriteByte('=')
					b.WriteString(url.QueryEscape(v))
				}
			}
			u.RawQuery = b.String()
		}
	}

	return u.String()
}

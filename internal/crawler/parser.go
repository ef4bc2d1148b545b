package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Parser extracts navigable links and asset references from HTML content.
// All extracted URLs are resolved against the page's base URL.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative references. Callers should pass the final URL after
	// redirects so relative links resolve against the real location.
	baseURL *url.URL
}

// ParseResult contains the links extracted from a single HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains resolved URLs from anchor href attributes. These
	// are candidates for further crawling or file classification.
	Links []string

	// Assets contains resolved URLs from src attributes (img, script,
	// audio, video, source, embed) and download-style link elements.
	// Assets are classified but never crawled as pages.
	Assets []string
}

// NewParser creates a parser that resolves relative links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse reads HTML content and extracts the title, anchor links, and
// asset references. The contentType is used to detect non-UTF-8
// encodings; pass the raw Content-Type header value or "" if unknown.
func (p *Parser) Parse(content io.Reader, contentType string) (*ParseResult, error) {
	reader, err := charset.NewReader(content, contentType)
	if err != nil {
		// Fall back to the raw bytes when the charset is unknown.
		reader = content
	}

	doc, err := html.Parse(reader)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:  make([]string, 0),
		Assets: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement extracts URLs from a single HTML element node.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a", "area":
		if href := getAttr(n, "href"); href != "" {
			if resolved := p.resolveURL(href); resolved != "" {
				result.Links = append(result.Links, resolved)
			}
		}

	case "img", "script", "audio", "video", "source", "embed", "iframe":
		if src := getAttr(n, "src"); src != "" {
			if resolved := p.resolveURL(src); resolved != "" {
				result.Assets = append(result.Assets, resolved)
			}
		}

	case "link":
		// Stylesheet and icon references count as assets; alternate
		// document links (RSS feeds etc.) are skipped.
		rel := strings.ToLower(getAttr(n, "rel"))
		if rel == "stylesheet" || rel == "icon" || rel == "shortcut icon" {
			if href := getAttr(n, "href"); href != "" {
				if resolved := p.resolveURL(href); resolved != "" {
					result.Assets = append(result.Assets, resolved)
				}
			}
		}

	case "object":
		if data := getAttr(n, "data"); data != "" {
			if resolved := p.resolveURL(data); resolved != "" {
				result.Assets = append(result.Assets, resolved)
			}
		}
	}
}

// resolveURL resolves a relative URL against the base URL. Non-web
// schemes and empty fragments return "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	if strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

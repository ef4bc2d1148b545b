package classify

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/crawldl/crawldl/internal/model"
)

// Prober performs the lightweight existence check used to confirm a
// tentative classification. Implementations issue a HEAD request through
// the routed transport and return the response headers and status code.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (http.Header, int, error)
}

// Result is the classification of a single URL.
type Result struct {
	// Category is the inferred file category.
	Category Category

	// Method records which classification phase decided.
	Method model.DetectionMethod
}

// Classifier maps URLs to file categories. The zero value is not
// usable; construct with New.
//
// Classification itself is pure: the same URL and headers always yield
// the same result. The only stateful part is the probe cache, which
// memoizes header lookups per URL for the lifetime of the run.
type Classifier struct {
	// extensions maps lowercase extensions (with dot) to categories.
	// Built from the defaults plus any custom mappings.
	extensions map[string]Category

	// enabled restricts which categories produce candidates.
	// An empty set means all categories are enabled.
	enabled map[Category]bool

	// prober confirms tentative endpoint classifications. Nil disables
	// header confirmation; tentative results are then kept as-is.
	prober Prober

	// probeCache memoizes probe results by URL so a URL discovered on
	// several pages is probed at most once per run.
	probeCache map[string]Result
	mu         sync.Mutex
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithCustomExtensions adds user-supplied extension mappings. Keys may
// omit the leading dot; values name a category (unknown names map to
// the custom category).
func WithCustomExtensions(mappings map[string]string) Option {
	return func(c *Classifier) {
		for ext, cat := range mappings {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			category := Category(cat)
			if !IsKnownCategory(cat) {
				category = CategoryCustom
			}
			c.extensions[ext] = category
		}
	}
}

// WithEnabledCategories restricts classification to the named
// categories. URLs matching a disabled category classify as NotAFile
// from the candidate pipeline's point of view.
func WithEnabledCategories(names []string) Option {
	return func(c *Classifier) {
		for _, name := range names {
			c.enabled[Category(name)] = true
		}
	}
}

// WithProber sets the header probe used to confirm tentative
// endpoint classifications.
func WithProber(p Prober) Option {
	return func(c *Classifier) {
		c.prober = p
	}
}

// New creates a Classifier with the default extension tables.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		extensions: make(map[string]Category),
		enabled:    make(map[Category]bool),
		probeCache: make(map[string]Result),
	}

	for category, exts := range defaultExtensions {
		for _, ext := range exts {
			c.extensions[ext] = category
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify performs the syntactic pass on a URL. It returns the
// classification and true when the URL looks like a file, or a zero
// Result and false when the URL should be treated as a page.
//
// An extension match is authoritative. A download-endpoint path match
// with no extension is tentative (Method == DetectionEndpoint) and
// should be confirmed with ConfirmCandidate when headers matter.
func (c *Classifier) Classify(rawURL string) (Result, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, false
	}

	lowerPath := strings.ToLower(u.Path)

	if ext := path.Ext(lowerPath); ext != "" {
		if category, ok := c.extensions[ext]; ok {
			return Result{Category: category, Method: model.DetectionExtension}, true
		}
	}

	// No recognized extension. Endpoint patterns only apply to
	// extension-free paths; "/download/readme.html" is still a page.
	if path.Ext(lowerPath) == "" {
		for _, pattern := range endpointPatterns {
			if strings.Contains(lowerPath, pattern) {
				return Result{Category: CategoryDownloads, Method: model.DetectionEndpoint}, true
			}
		}
	}

	return Result{}, false
}

// ClassifyHeaders maps response headers to a category. It returns false
// when the headers describe an HTML page or carry no file signal.
//
// Content-Disposition attachment is checked first: it is an explicit
// server statement that the body is a file, regardless of type.
func (c *Classifier) ClassifyHeaders(hdr http.Header) (Result, bool) {
	disposition := strings.ToLower(hdr.Get("Content-Disposition"))
	contentType := strings.ToLower(strings.TrimSpace(hdr.Get("Content-Type")))

	if strings.Contains(contentType, "text/html") && !strings.Contains(disposition, "attachment") {
		return Result{}, false
	}

	for _, family := range mimeFamilies {
		if strings.HasPrefix(contentType, family.prefix) {
			return Result{Category: family.category, Method: model.DetectionHeader}, true
		}
	}

	if strings.Contains(disposition, "attachment") {
		return Result{Category: CategoryDownloads, Method: model.DetectionHeader}, true
	}

	return Result{}, false
}

// ConfirmCandidate resolves a tentative endpoint classification using a
// cached header probe. Authoritative results pass through unchanged.
// When the probe shows an HTML page, the second return value is false
// and the URL should be recursed into instead of downloaded.
//
// A probe failure keeps the tentative classification: a download
// endpoint that rejects HEAD requests is still worth attempting.
func (c *Classifier) ConfirmCandidate(ctx context.Context, rawURL string, syntactic Result) (Result, bool) {
	if syntactic.Method != model.DetectionEndpoint || c.prober == nil {
		return syntactic, true
	}

	c.mu.Lock()
	if cached, ok := c.probeCache[rawURL]; ok {
		c.mu.Unlock()
		if cached.Category == "" {
			return Result{}, false
		}
		return cached, true
	}
	c.mu.Unlock()

	result, isFile := c.probeOnce(ctx, rawURL, syntactic)

	c.mu.Lock()
	if isFile {
		c.probeCache[rawURL] = result
	} else {
		c.probeCache[rawURL] = Result{}
	}
	c.mu.Unlock()

	return result, isFile
}

// probeOnce performs the actual header probe for ConfirmCandidate.
func (c *Classifier) probeOnce(ctx context.Context, rawURL string, syntactic Result) (Result, bool) {
	hdr, status, err := c.prober.Probe(ctx, rawURL)
	if err != nil || status < 200 || status >= 300 {
		return syntactic, true
	}

	if confirmed, ok := c.ClassifyHeaders(hdr); ok {
		return confirmed, true
	}

	// Headers say HTML page: not a file after all.
	return Result{}, false
}

// Enabled reports whether candidates of the given category should be
// downloaded under the current configuration.
func (c *Classifier) Enabled(category Category) bool {
	if len(c.enabled) == 0 {
		return true
	}
	return c.enabled[category]
}

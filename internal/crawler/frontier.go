package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/crawldl/crawldl/internal/classify"
	"github.com/crawldl/crawldl/internal/model"
	"github.com/crawldl/crawldl/internal/transport"
)

// Fetcher fetches pages for the frontier. Satisfied by transport.Router.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error)
}

// Frontier walks linked pages breadth first, classifying every
// discovered URL. Pages within scope are fetched and parsed; URLs that
// look like files are collected as candidates and never fetched here.
type Frontier struct {
	fetcher    Fetcher
	classifier *classify.Classifier
	logger     *slog.Logger

	// maxDepth limits link distance from a seed. 0 means only the
	// seed pages themselves.
	maxDepth int

	// maxPages caps the total pages fetched across all seeds.
	maxPages int

	// pageConcurrency bounds simultaneous page fetches within a level.
	pageConcurrency int

	// limiter spaces out requests. Shared across workers so the delay
	// applies to the whole crawl, not per goroutine.
	limiter *rate.Limiter

	// sameDomainOnly restricts page crawling to the seed's registrable
	// domain. File candidates are collected regardless of host.
	sameDomainOnly bool

	// allowedHosts are extra hosts crawlable despite sameDomainOnly.
	allowedHosts map[string]struct{}

	// maxBodySize limits how much of a page body is parsed.
	maxBodySize int64

	mutex      sync.Mutex
	visited    map[string]struct{}
	pagesCount int
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithMaxDepth sets the maximum link distance from a seed URL.
func WithMaxDepth(depth int) Option {
	return func(f *Frontier) {
		f.maxDepth = depth
	}
}

// WithMaxPages caps the total number of pages fetched.
func WithMaxPages(n int) Option {
	return func(f *Frontier) {
		f.maxPages = n
	}
}

// WithPageConcurrency bounds simultaneous page fetches.
func WithPageConcurrency(n int) Option {
	return func(f *Frontier) {
		if n > 0 {
			f.pageConcurrency = n
		}
	}
}

// WithRequestDelay sets the minimum spacing between page requests.
// Zero disables the politeness delay.
func WithRequestDelay(d time.Duration) Option {
	return func(f *Frontier) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithSameDomainOnly restricts page crawling to each seed's
// registrable domain.
func WithSameDomainOnly(on bool) Option {
	return func(f *Frontier) {
		f.sameDomainOnly = on
	}
}

// WithAllowedHosts permits extra hosts when same-domain scoping is on.
func WithAllowedHosts(hosts []string) Option {
	return func(f *Frontier) {
		for _, h := range hosts {
			f.allowedHosts[strings.ToLower(h)] = struct{}{}
		}
	}
}

// WithMaxBodySize limits how many bytes of a page body are parsed.
func WithMaxBodySize(size int64) Option {
	return func(f *Frontier) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithLogger sets the structured logger for crawl progress.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Frontier) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFrontier creates a Frontier fetching through the given Fetcher
// and classifying discovered URLs with the given classifier.
func NewFrontier(fetcher Fetcher, classifier *classify.Classifier, opts ...Option) *Frontier {
	f := &Frontier{
		fetcher:         fetcher,
		classifier:      classifier,
		logger:          slog.Default(),
		maxDepth:        3,
		maxPages:        500,
		pageConcurrency: 4,
		limiter:         rate.NewLimiter(rate.Inf, 1),
		sameDomainOnly:  true,
		allowedHosts:    make(map[string]struct{}),
		maxBodySize:     10 * 1024 * 1024,
		visited:         make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Result accumulates everything a crawl discovered.
type Result struct {
	// Candidates are URLs classified as downloadable files, deduplicated
	// by normalized URL.
	Candidates []model.FileCandidate

	// PagesCrawled is the number of pages successfully fetched and parsed.
	PagesCrawled int

	// Errors describes pages that could not be fetched. The crawl
	// continues past individual page failures.
	Errors []string
}

// Crawl walks all seeds breadth first and returns the discovered file
// candidates. On context cancellation it returns what was collected so
// far together with the context error.
func (f *Frontier) Crawl(ctx context.Context, seeds []string) (*Result, error) {
	result := &Result{
		Candidates: make([]model.FileCandidate, 0),
		Errors:     make([]string, 0),
	}

	level := make([]model.CrawlTask, 0, len(seeds))
	for _, seed := range seeds {
		u, err := url.Parse(seed)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid seed URL", seed))
			continue
		}
		if u.Scheme == "" {
			u.Scheme = "http"
		}
		task := model.CrawlTask{URL: u.String(), Depth: 0, OriginHost: u.Hostname()}
		if f.markVisited(task.URL) {
			level = append(level, task)
		}
	}

	for depth := 0; len(level) > 0 && depth <= f.maxDepth; depth++ {
		next, err := f.crawlLevel(ctx, level, result)
		if err != nil {
			return result, err
		}
		level = next
	}

	return result, nil
}

// crawlLevel fetches one depth level concurrently and returns the next.
func (f *Frontier) crawlLevel(ctx context.Context, level []model.CrawlTask, result *Result) ([]model.CrawlTask, error) {
	var (
		mu   sync.Mutex
		next []model.CrawlTask
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.pageConcurrency)

	for _, task := range level {
		if !f.reservePage() {
			break
		}

		g.Go(func() error {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}

			page, err := f.fetchPage(ctx, task)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				f.logger.Debug("page fetch failed", "url", task.URL, "error", err)
				f.releasePage()
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", task.URL, err))
				mu.Unlock()
				return nil
			}

			candidates, links := f.siftLinks(ctx, task, page)

			mu.Lock()
			result.PagesCrawled++
			result.Candidates = append(result.Candidates, candidates...)
			if task.Depth < f.maxDepth {
				for _, link := range links {
					next = append(next, model.CrawlTask{
						URL:        link,
						Depth:      task.Depth + 1,
						OriginHost: task.OriginHost,
					})
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return next, err
	}
	return next, nil
}

// pageContent is the parsed outcome of a single page fetch.
type pageContent struct {
	finalURL string
	parsed   *ParseResult

	// selfCandidate is set when the fetched URL turned out to be a
	// downloadable file rather than a page, judged by its response
	// headers.
	selfCandidate *model.FileCandidate
}

// fetchPage fetches and parses one page. Responses whose headers mark
// them as downloadable files short-circuit: the URL itself becomes a
// candidate instead of a page.
func (f *Frontier) fetchPage(ctx context.Context, task model.CrawlTask) (*pageContent, error) {
	resp, err := f.fetcher.Fetch(ctx, task.URL, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	finalURL := task.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		// Not a page. Headers decide whether it is a file worth keeping.
		page := &pageContent{finalURL: finalURL, parsed: &ParseResult{}}
		if res, ok := f.classifier.ClassifyHeaders(resp.Header); ok && f.classifier.Enabled(res.Category) {
			page.selfCandidate = &model.FileCandidate{
				URL:        task.URL,
				Category:   string(res.Category),
				SourcePage: task.URL,
				Method:     res.Method,
			}
		}
		return page, nil
	}

	parser, err := NewParser(finalURL)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.Parse(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	f.logger.Debug("page crawled",
		"url", finalURL,
		"depth", task.Depth,
		"links", len(parsed.Links),
		"assets", len(parsed.Assets))

	return &pageContent{finalURL: finalURL, parsed: parsed}, nil
}

// siftLinks splits a page's discovered URLs into file candidates and
// crawlable page links. Every URL passes through the visited set once,
// so a URL is classified or enqueued at most once per crawl.
func (f *Frontier) siftLinks(ctx context.Context, task model.CrawlTask, page *pageContent) ([]model.FileCandidate, []string) {
	var (
		candidates []model.FileCandidate
		links      []string
	)

	if page.selfCandidate != nil {
		candidates = append(candidates, *page.selfCandidate)
	}

	consider := func(rawURL string, assetOnly bool) {
		if !f.markVisited(rawURL) {
			return
		}

		if res, ok := f.classifier.Classify(rawURL); ok {
			confirmed, keep := f.classifier.ConfirmCandidate(ctx, rawURL, res)
			if !keep {
				return
			}
			// A file of a disabled category is dropped entirely, not
			// recursed into as a page.
			if !f.classifier.Enabled(confirmed.Category) {
				return
			}
			candidates = append(candidates, model.FileCandidate{
				URL:        rawURL,
				Category:   string(confirmed.Category),
				SourcePage: page.finalURL,
				Method:     confirmed.Method,
			})
			return
		}

		if !assetOnly && f.inScope(task, rawURL) {
			links = append(links, rawURL)
		}
	}

	for _, link := range page.parsed.Links {
		consider(link, false)
	}
	for _, asset := range page.parsed.Assets {
		consider(asset, true)
	}

	return candidates, links
}

// inScope reports whether a URL may be crawled as a page.
func (f *Frontier) inScope(task model.CrawlTask, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	if !f.sameDomainOnly {
		return true
	}

	if _, ok := f.allowedHosts[host]; ok {
		return true
	}

	origin := strings.ToLower(task.OriginHost)
	if host == origin {
		return true
	}

	// Registrable-domain comparison so blog.example.com stays in scope
	// for a crawl seeded at example.com. Hosts without a public suffix
	// (onion services, bare hostnames) already failed the exact match.
	hostDomain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	originDomain, err := publicsuffix.EffectiveTLDPlusOne(origin)
	if err != nil {
		return false
	}
	return hostDomain == originDomain
}

// markVisited records a URL in the visited set. It returns true when
// the URL was not seen before.
func (f *Frontier) markVisited(rawURL string) bool {
	key := model.NormalizeURL(rawURL)

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if _, seen := f.visited[key]; seen {
		return false
	}
	f.visited[key] = struct{}{}
	return true
}

// reservePage claims one slot against maxPages. It returns false when
// the page budget is spent.
func (f *Frontier) reservePage() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.maxPages > 0 && f.pagesCount >= f.maxPages {
		return false
	}
	f.pagesCount++
	return true
}

// releasePage returns a slot claimed by reservePage after a fetch failure.
func (f *Frontier) releasePage() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.pagesCount--
}

// PagesVisited returns the number of pages fetched so far.
func (f *Frontier) PagesVisited() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.pagesCount
}

var _ Fetcher = (*transport.Router)(nil)

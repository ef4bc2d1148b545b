package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crawldl/crawldl/internal/classify"
)

// TestParser tests HTML link and asset extraction.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Test Page</title></head><body></body></html>`
		parser, err := NewParser("http://test.example/page")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(html), "text/html")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if result.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", result.Title)
		}
	})

	t.Run("resolves relative links against base URL", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<a href="/docs/report.pdf">Report</a>
			<a href="subpage.html">Sub</a>
			<a href="http://other.example/page">Other</a>
		</body></html>`

		parser, err := NewParser("http://test.example/dir/page.html")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(html), "")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		want := []string{
			"http://test.example/docs/report.pdf",
			"http://test.example/dir/subpage.html",
			"http://other.example/page",
		}
		if len(result.Links) != len(want) {
			t.Fatalf("expected %d links, got %d: %v", len(want), len(result.Links), result.Links)
		}
		for i, w := range want {
			if result.Links[i] != w {
				t.Errorf("link %d: expected %q, got %q", i, w, result.Links[i])
			}
		}
	})

	t.Run("skips non-web schemes and bare fragments", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<a href="javascript:void(0)">JS</a>
			<a href="mailto:someone@example.com">Mail</a>
			<a href="tel:+1234567890">Phone</a>
			<a href="data:text/plain;base64,aGk=">Data</a>
			<a href="#">Top</a>
			<a href="/real">Real</a>
		</body></html>`

		parser, err := NewParser("http://test.example/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(html), "")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Links) != 1 {
			t.Fatalf("expected 1 link, got %d: %v", len(result.Links), result.Links)
		}
		if result.Links[0] != "http://test.example/real" {
			t.Errorf("unexpected link: %q", result.Links[0])
		}
	})

	t.Run("extracts asset sources", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<img src="/images/photo.jpg">
			<script src="/js/app.js"></script>
			<video src="/media/clip.mp4"></video>
			<link rel="stylesheet" href="/css/site.css">
			<link rel="alternate" href="/feed.xml">
		</body></html>`

		parser, err := NewParser("http://test.example/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(html), "")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		// The alternate link element is not an asset.
		if len(result.Assets) != 4 {
			t.Errorf("expected 4 assets, got %d: %v", len(result.Assets), result.Assets)
		}
	})
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, rawURL, byteRange string) (*http.Response, error)

func (f fetcherFunc) Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error) {
	return f(ctx, rawURL, byteRange)
}

// directFetcher fetches without routing, for tests against httptest servers.
func directFetcher(t *testing.T) Fetcher {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	return fetcherFunc(func(ctx context.Context, rawURL, _ string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		return client.Do(req)
	})
}

// TestFrontierCrawl tests breadth-first crawling and candidate collection.
func TestFrontierCrawl(t *testing.T) {
	t.Parallel()

	t.Run("collects file candidates across depth levels", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body>
				<a href="/docs/manual.pdf">Manual</a>
				<a href="/level1">Deeper</a>
			</body></html>`)
		})
		mux.HandleFunc("/level1", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body>
				<a href="/music/track.mp3">Track</a>
				<img src="/images/logo.png">
			</body></html>`)
		})

		f := NewFrontier(directFetcher(t), classify.New(),
			WithMaxDepth(2),
			WithSameDomainOnly(true))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if result.PagesCrawled != 2 {
			t.Errorf("expected 2 pages crawled, got %d", result.PagesCrawled)
		}

		categories := make([]string, 0, len(result.Candidates))
		for _, c := range result.Candidates {
			categories = append(categories, c.Category)
		}
		sort.Strings(categories)
		want := []string{"audio", "documents", "images"}
		if len(categories) != len(want) {
			t.Fatalf("expected %d candidates, got %d: %v", len(want), len(categories), result.Candidates)
		}
		for i, w := range want {
			if categories[i] != w {
				t.Errorf("category %d: expected %q, got %q", i, w, categories[i])
			}
		}
	})

	t.Run("drops candidates of disabled categories", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body>
				<a href="/docs/report.pdf">Report</a>
				<img src="/images/photo.png">
				<a href="/music/song.mp3">Song</a>
			</body></html>`)
		})

		f := NewFrontier(directFetcher(t),
			classify.New(classify.WithEnabledCategories([]string{"images"})),
			WithMaxDepth(1),
			WithSameDomainOnly(true))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(result.Candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d: %v", len(result.Candidates), result.Candidates)
		}
		if got := result.Candidates[0].Category; got != "images" {
			t.Errorf("expected category %q, got %q", "images", got)
		}
	})

	t.Run("respects max depth", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", pageWithLink(t, "/a"))
		mux.HandleFunc("/a", pageWithLink(t, "/b"))
		mux.HandleFunc("/b", pageWithLink(t, "/c"))
		mux.HandleFunc("/c", func(w http.ResponseWriter, _ *http.Request) {
			t.Error("page beyond max depth was fetched")
		})

		f := NewFrontier(directFetcher(t), classify.New(), WithMaxDepth(2))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if result.PagesCrawled != 3 {
			t.Errorf("expected 3 pages crawled, got %d", result.PagesCrawled)
		}
	})

	t.Run("visits each URL once despite link cycles", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			fetches.Add(1)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="/loop">Loop</a></body></html>`)
		})
		mux.HandleFunc("/loop", func(w http.ResponseWriter, _ *http.Request) {
			fetches.Add(1)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="/">Back</a><a href="/loop">Self</a></body></html>`)
		})

		f := NewFrontier(directFetcher(t), classify.New(),
			WithMaxDepth(10),
			WithPageConcurrency(1))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if result.PagesCrawled != 2 {
			t.Errorf("expected 2 pages crawled, got %d", result.PagesCrawled)
		}
		if got := fetches.Load(); got != 2 {
			t.Errorf("expected 2 fetches, got %d", got)
		}
	})

	t.Run("stops at max pages", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			for i := range 20 {
				fmt.Fprintf(w, `<a href="/page%d">p</a>`, i)
			}
		})

		f := NewFrontier(directFetcher(t), classify.New(),
			WithMaxDepth(5),
			WithMaxPages(3))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if result.PagesCrawled > 3 {
			t.Errorf("expected at most 3 pages crawled, got %d", result.PagesCrawled)
		}
	})

	t.Run("keeps off-domain file candidates but not off-domain pages", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body>
				<a href="http://cdn.elsewhere.example/big.zip">Mirror</a>
				<a href="http://elsewhere.example/page">External page</a>
			</body></html>`)
		})

		f := NewFrontier(directFetcher(t), classify.New(),
			WithMaxDepth(2),
			WithSameDomainOnly(true))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if result.PagesCrawled != 1 {
			t.Errorf("expected 1 page crawled, got %d", result.PagesCrawled)
		}
		if len(result.Candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
		}
		if result.Candidates[0].URL != "http://cdn.elsewhere.example/big.zip" {
			t.Errorf("unexpected candidate: %q", result.Candidates[0].URL)
		}
	})

	t.Run("continues past failing pages", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body>
				<a href="/broken">Broken</a>
				<a href="/ok">OK</a>
			</body></html>`)
		})
		mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="/file.pdf">F</a></body></html>`)
		})

		f := NewFrontier(directFetcher(t), classify.New(), WithMaxDepth(2))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if result.PagesCrawled != 2 {
			t.Errorf("expected 2 pages crawled, got %d", result.PagesCrawled)
		}
		if len(result.Errors) != 1 {
			t.Errorf("expected 1 crawl error, got %d: %v", len(result.Errors), result.Errors)
		}
		if len(result.Candidates) != 1 {
			t.Errorf("expected 1 candidate, got %d", len(result.Candidates))
		}
	})

	t.Run("detects file by response headers when fetched as page", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="/get">Get</a></body></html>`)
		})
		mux.HandleFunc("/get", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		})

		f := NewFrontier(directFetcher(t), classify.New(), WithMaxDepth(2))

		result, err := f.Crawl(context.Background(), []string{server.URL})
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(result.Candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d: %v", len(result.Candidates), result.Candidates)
		}
		c := result.Candidates[0]
		if c.Category != "documents" {
			t.Errorf("expected category documents, got %q", c.Category)
		}
		if c.Method != "response-header" {
			t.Errorf("expected detection method response-header, got %q", c.Method)
		}
	})

	t.Run("cancellation returns partial results", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="/next">Next</a></body></html>`)
		})
		mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		f := NewFrontier(directFetcher(t), classify.New(), WithMaxDepth(2))

		result, err := f.Crawl(ctx, []string{server.URL})
		if err == nil {
			t.Fatal("expected context error")
		}
		if result.PagesCrawled != 1 {
			t.Errorf("expected 1 page crawled before cancellation, got %d", result.PagesCrawled)
		}
	})
}

// pageWithLink returns a handler serving a minimal page linking to next.
func pageWithLink(t *testing.T, next string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="%s">next</a></body></html>`, next)
	}
}

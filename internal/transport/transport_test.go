package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/crawldl/crawldl/internal/tor"
)

// TestDirectFetch tests GET requests through the direct transport.
func TestDirectFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("expected User-Agent test-agent, got %q", ua)
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	tr := NewDirect(5*time.Second, "test-agent")
	resp, err := tr.Fetch(context.Background(), server.URL, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("expected body 'hello', got %q", body)
	}
}

// TestDirectFetchRange tests the Range header pass-through.
func TestDirectFetchRange(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=0-3" {
			t.Errorf("expected Range bytes=0-3, got %q", got)
		}
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	tr := NewDirect(5*time.Second, "")
	resp, err := tr.Fetch(context.Background(), server.URL, "bytes=0-3")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("expected 206, got %d", resp.StatusCode)
	}
}

// TestDirectProbe tests HEAD requests.
func TestDirectProbe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/pdf")
	}))
	defer server.Close()

	tr := NewDirect(5*time.Second, "")
	resp, err := tr.Probe(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", got)
	}
}

// TestDirectRedirects tests the same-host redirect policy.
func TestDirectRedirects(t *testing.T) {
	t.Parallel()

	t.Run("follows redirects within the host", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("landed"))
		})

		tr := NewDirect(5*time.Second, "")
		resp, err := tr.Fetch(context.Background(), server.URL, "")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 after redirect, got %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(body) != "landed" {
			t.Errorf("expected redirect target body, got %q", body)
		}
	})

	t.Run("stops at cross-host redirects", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "http://elsewhere.invalid/file", http.StatusFound)
		}))
		defer server.Close()

		tr := NewDirect(5*time.Second, "")
		resp, err := tr.Fetch(context.Background(), server.URL, "")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected the redirect response back, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "http://elsewhere.invalid/file" {
			t.Errorf("expected off-host location preserved, got %q", loc)
		}
	})
}

// TestRouterRouteFor tests host-based transport selection.
func TestRouterRouteFor(t *testing.T) {
	t.Parallel()

	direct := NewDirect(time.Second, "")
	proxied := NewProxied(func(_ context.Context) (*tor.Client, error) {
		return tor.NewClient("127.0.0.1:9050", time.Second)
	}, "")

	t.Run("clearnet host routes direct", func(t *testing.T) {
		t.Parallel()

		r := NewRouter(direct, WithProxied(proxied))
		got, err := r.RouteFor("example.com")
		if err != nil {
			t.Fatalf("RouteFor failed: %v", err)
		}
		if got != direct {
			t.Error("expected direct transport")
		}
	})

	t.Run("onion host routes proxied", func(t *testing.T) {
		t.Parallel()

		r := NewRouter(direct, WithProxied(proxied))
		got, err := r.RouteFor("shortexample.onion")
		if err != nil {
			t.Fatalf("RouteFor failed: %v", err)
		}
		if got != Transport(proxied) {
			t.Error("expected proxied transport")
		}
	})

	t.Run("onion host with port routes proxied", func(t *testing.T) {
		t.Parallel()

		r := NewRouter(direct, WithProxied(proxied))
		got, err := r.RouteFor("shortexample.onion:8080")
		if err != nil {
			t.Fatalf("RouteFor failed: %v", err)
		}
		if got != Transport(proxied) {
			t.Error("expected proxied transport")
		}
	})

	t.Run("onion host without proxied transport is refused", func(t *testing.T) {
		t.Parallel()

		r := NewRouter(direct)
		_, err := r.RouteFor("shortexample.onion")
		if !errors.Is(err, ErrAnonymityDisabled) {
			t.Errorf("expected ErrAnonymityDisabled, got %v", err)
		}
	})

	t.Run("v3-length onion host with bad checksum is refused", func(t *testing.T) {
		t.Parallel()

		r := NewRouter(direct, WithProxied(proxied))
		bogus := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
		_, err := r.RouteFor(bogus)
		if !errors.Is(err, ErrInvalidOnionAddress) {
			t.Errorf("expected ErrInvalidOnionAddress, got %v", err)
		}
	})

	t.Run("custom suffix set", func(t *testing.T) {
		t.Parallel()

		r := NewRouter(direct, WithProxied(proxied), WithSuffixes([]string{".i2p"}))
		got, err := r.RouteFor("example.i2p")
		if err != nil {
			t.Fatalf("RouteFor failed: %v", err)
		}
		if got != Transport(proxied) {
			t.Error("expected proxied transport for .i2p host")
		}

		// Default .onion suffix is replaced, so onion now routes direct.
		got, err = r.RouteFor("shortexample.onion")
		if err != nil {
			t.Fatalf("RouteFor failed: %v", err)
		}
		if got != direct {
			t.Error("expected direct transport when .onion not in suffix set")
		}
	})
}

// TestProxiedLazyInit verifies the proxy session is only established on
// first use and its failure is reported as ErrProxyUnavailable.
func TestProxiedLazyInit(t *testing.T) {
	t.Parallel()

	calls := 0
	factory := func(_ context.Context) (*tor.Client, error) {
		calls++
		return nil, errors.New("no tor here")
	}

	p := NewProxied(factory, "")
	if calls != 0 {
		t.Fatal("factory must not run before first use")
	}

	for range 3 {
		_, err := p.Fetch(context.Background(), "http://shortexample.onion/", "")
		if !errors.Is(err, ErrProxyUnavailable) {
			t.Fatalf("expected ErrProxyUnavailable, got %v", err)
		}
	}

	if calls != 1 {
		t.Errorf("factory should run exactly once, ran %d times", calls)
	}
}

// TestRouterFetch tests the convenience routing wrapper end to end.
func TestRouterFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("routed"))
	}))
	defer server.Close()

	r := NewRouter(NewDirect(5*time.Second, ""))
	resp, err := r.Fetch(context.Background(), server.URL, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "routed" {
		t.Errorf("expected 'routed', got %q", body)
	}
}

// TestSiteHeaders tests per-host header injection.
func TestSiteHeaders(t *testing.T) {
	t.Parallel()

	var gotCookie, gotAuth, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAuth = r.Header.Get("Authorization")
		gotLang = r.Header.Get("Accept-Language")
	}))
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	serverHost := serverURL.Hostname()

	t.Run("host entry applied", func(t *testing.T) {
		tr := NewDirect(5*time.Second, "", WithSiteHeaders(map[string]map[string]string{
			serverHost: {"Cookie": "session=abc", "Authorization": "Bearer tok"},
		}))

		resp, err := tr.Fetch(context.Background(), server.URL, "")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		resp.Body.Close()

		if gotCookie != "session=abc" {
			t.Errorf("expected cookie header, got %q", gotCookie)
		}
		if gotAuth != "Bearer tok" {
			t.Errorf("expected auth header, got %q", gotAuth)
		}
	})

	t.Run("wildcard entry applies to unlisted hosts", func(t *testing.T) {
		tr := NewDirect(5*time.Second, "", WithSiteHeaders(map[string]map[string]string{
			"*": {"Accept-Language": "en-US"},
		}))

		resp, err := tr.Probe(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("probe failed: %v", err)
		}
		resp.Body.Close()

		if gotLang != "en-US" {
			t.Errorf("expected wildcard header, got %q", gotLang)
		}
	})
}

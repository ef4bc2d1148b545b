package transport

import (
	"context"
	"net/http"
	"time"
)

// Transport is a network path to a host. Both the direct and the
// proxied variant satisfy the same fetch/probe contract, including
// timeouts and bounded connection pools, so callers never need to know
// which path a request took.
type Transport interface {
	// Fetch issues a GET for the URL. byteRange, when non-empty, is
	// sent as the Range header value (e.g. "bytes=0-1023"). The caller
	// owns the response body.
	Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error)

	// Probe issues a HEAD for the URL, following redirects. Used for
	// the classifier's lightweight existence check. The caller owns
	// the response body (typically empty for HEAD).
	Probe(ctx context.Context, rawURL string) (*http.Response, error)
}

// maxRedirects caps redirect chains for the direct transport, matching
// the proxied transport's limit.
const maxRedirects = 10

// checkRedirect follows redirects up to maxRedirects, and only within
// the host of the original request. Cross-host redirects stop the
// chain; the redirect response itself is returned so the caller sees
// where the content moved. Scheme upgrades on the same host pass.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	if req.URL.Hostname() != via[0].URL.Hostname() {
		return http.ErrUseLastResponse
	}
	return nil
}

// httpTransport adapts an *http.Client to the Transport interface.
// It underlies both variants; they differ only in how the client's
// connections are dialed.
type httpTransport struct {
	client    *http.Client
	userAgent string

	// siteHeaders maps a hostname to extra request headers for that
	// host. The "*" key applies to hosts without their own entry.
	siteHeaders map[string]map[string]string
}

// HTTPOption configures the HTTP-backed transports.
type HTTPOption func(*httpTransport)

// WithSiteHeaders sets per-host extra request headers, keyed by
// hostname. An entry under "*" applies to every host that has no entry
// of its own. Used for config-file cookies and auth headers.
func WithSiteHeaders(headers map[string]map[string]string) HTTPOption {
	return func(t *httpTransport) {
		t.siteHeaders = headers
	}
}

// Fetch implements Transport.
func (t *httpTransport) Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	t.setHeaders(req)
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}
	return t.client.Do(req)
}

// Probe implements Transport.
func (t *httpTransport) Probe(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	t.setHeaders(req)
	return t.client.Do(req)
}

func (t *httpTransport) setHeaders(req *http.Request) {
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "*/*")

	extra, ok := t.siteHeaders[req.URL.Hostname()]
	if !ok {
		extra = t.siteHeaders["*"]
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

// NewDirect creates the direct transport with a bounded connection
// pool and fixed per-request timeout.
func NewDirect(timeout time.Duration, userAgent string, opts ...HTTPOption) Transport {
	t := &httpTransport{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     60 * time.Second,
			},
			Timeout:       timeout,
			CheckRedirect: checkRedirect,
		},
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromClient wraps an existing HTTP client as a Transport. Used for
// the proxied variant (whose client comes from the tor package) and in
// tests.
func NewFromClient(client *http.Client, userAgent string, opts ...HTTPOption) Transport {
	t := &httpTransport{client: client, userAgent: userAgent}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

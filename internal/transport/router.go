package transport

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/crawldl/crawldl/internal/tor"
)

// Router selects a Transport for a host. Routing is a pure function of
// the host string: hosts matching an anonymity-network suffix go to
// the proxied transport, everything else goes direct.
type Router struct {
	direct  Transport
	proxied Transport

	// suffixes are the anonymity-network host suffixes (e.g. ".onion").
	// Exposed as configuration rather than hardcoded so additional
	// networks or test hosts can be routed without code changes.
	suffixes []string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithProxied attaches the proxied transport. Without it, hosts
// matching an anonymity suffix are refused with ErrAnonymityDisabled.
func WithProxied(p Transport) RouterOption {
	return func(r *Router) {
		r.proxied = p
	}
}

// WithSuffixes overrides the anonymity suffix set. The default is
// {".onion"}.
func WithSuffixes(suffixes []string) RouterOption {
	return func(r *Router) {
		if len(suffixes) > 0 {
			r.suffixes = suffixes
		}
	}
}

// NewRouter creates a Router with the given direct transport.
func NewRouter(direct Transport, opts ...RouterOption) *Router {
	r := &Router{
		direct:   direct,
		suffixes: []string{tor.OnionSuffix},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RouteFor returns the transport for the given host (with or without
// port). A v3-length onion host with a bad checksum is refused before
// any proxy traffic is spent on it.
func (r *Router) RouteFor(host string) (Transport, error) {
	if !tor.IsOnionHost(host, r.suffixes) {
		return r.direct, nil
	}

	if r.proxied == nil {
		return nil, ErrAnonymityDisabled
	}

	bare := strings.ToLower(host)
	if h, _, err := net.SplitHostPort(bare); err == nil {
		bare = h
	}
	if strings.HasSuffix(bare, tor.OnionSuffix) && len(bare) == tor.OnionV3Length+len(tor.OnionSuffix) {
		if !tor.IsValidV3Address(bare) {
			return nil, ErrInvalidOnionAddress
		}
	}

	return r.proxied, nil
}

// Fetch routes the URL by host and fetches it. Convenience wrapper so
// callers holding only a Router never touch RouteFor directly.
func (r *Router) Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error) {
	t, err := r.routeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return t.Fetch(ctx, rawURL, byteRange)
}

// Probe routes the URL by host and issues a HEAD request.
func (r *Router) Probe(ctx context.Context, rawURL string) (*http.Response, error) {
	t, err := r.routeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return t.Probe(ctx, rawURL)
}

func (r *Router) routeURL(rawURL string) (Transport, error) {
	host := hostOf(rawURL)
	return r.RouteFor(host)
}

// hostOf extracts the host (with port, if any) from a URL string
// without a full parse failing the request; bad URLs surface as
// request errors downstream.
func hostOf(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx != -1 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx != -1 {
		rest = rest[:idx]
	}
	return rest
}

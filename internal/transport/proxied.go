package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/crawldl/crawldl/internal/tor"
)

// ClientFactory produces the SOCKS5 client backing the proxied
// transport. It is called at most once, on first use; this is where an
// embedded Tor daemon would be started or an external proxy verified.
type ClientFactory func(ctx context.Context) (*tor.Client, error)

// Proxied is the anonymity-network transport. The proxy session is
// established lazily on the first request, so runs that discover no
// onion links never pay the setup cost.
//
// Once establishment fails, every subsequent call fails fast with the
// same ErrProxyUnavailable-wrapped error instead of re-attempting the
// setup per request.
type Proxied struct {
	factory   ClientFactory
	userAgent string
	httpOpts  []HTTPOption

	once    sync.Once
	inner   Transport
	initErr error
}

// NewProxied creates the proxied transport. No connection is made
// until the first Fetch or Probe.
func NewProxied(factory ClientFactory, userAgent string, opts ...HTTPOption) *Proxied {
	return &Proxied{
		factory:   factory,
		userAgent: userAgent,
		httpOpts:  opts,
	}
}

// init establishes the proxy session exactly once.
func (p *Proxied) init(ctx context.Context) error {
	p.once.Do(func() {
		client, err := p.factory(ctx)
		if err != nil {
			p.initErr = fmt.Errorf("%w: %v", ErrProxyUnavailable, err)
			return
		}

		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			p.initErr = fmt.Errorf("%w: %s at %s", ErrProxyUnavailable, status, client.ProxyAddress())
			return
		}

		p.inner = NewFromClient(client.NewHTTPClient(), p.userAgent, p.httpOpts...)
	})
	return p.initErr
}

// Fetch implements Transport.
func (p *Proxied) Fetch(ctx context.Context, rawURL, byteRange string) (*http.Response, error) {
	if err := p.init(ctx); err != nil {
		return nil, err
	}
	return p.inner.Fetch(ctx, rawURL, byteRange)
}

// Probe implements Transport.
func (p *Proxied) Probe(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := p.init(ctx); err != nil {
		return nil, err
	}
	return p.inner.Probe(ctx, rawURL)
}

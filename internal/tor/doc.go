// Package tor provides connectivity to anonymity-network hosts through
// a SOCKS5 proxy, either an external Tor daemon or an embedded one.
//
// The package exposes three things: a Client wrapping a SOCKS5 dialer
// with an HTTP client factory, a proxy health check that speaks enough
// of the SOCKS5 protocol to distinguish "not running" from "not a
// SOCKS proxy", and v3 onion-address validation used by the transport
// router before sending work to the proxy.
package tor

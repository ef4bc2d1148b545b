// Package transport abstracts the network path used to reach a host.
//
// Two variants exist behind one interface: a direct HTTP transport for
// ordinary hosts and a SOCKS5-proxied transport for anonymity-network
// hosts. The Router picks between them with a pure host-suffix check,
// so everything downstream (page fetcher, download scheduler, header
// probes) is transport-agnostic.
package transport

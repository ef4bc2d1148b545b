// Package classify decides whether a URL refers to a downloadable file
// and, if so, which category it belongs to.
//
// Classification is two-phase. The syntactic pass inspects only the URL:
// a known path extension is authoritative, and a download-endpoint path
// pattern yields a tentative result. The confirmation pass inspects
// response headers (Content-Disposition, Content-Type) obtained from a
// lightweight probe, whose result is cached per URL for the run.
package classify

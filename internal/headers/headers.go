// Package headers implements the outbound (to upstream) and inbound (from
// upstream) header sanitization rules (spec §4.3): hop-by-hop, proxy-chain,
// and content-coding headers are stripped in both directions so the cached
// bytes equal the bytes a client sees, and so the proxy's own upstream
// connection never leaks trace headers across tenants.
package headers

import "net/http"

// outboundDrop lists headers removed before a request is sent upstream.
var outboundDrop = []string{
	"Connection",
	"Upgrade",
	"Transfer-Encoding",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Host",
	"X-Forwarded-For",
	"X-Forwarded-Proto",
	"X-Forwarded-Port",
}

// inboundDrop lists headers removed from an upstream response before it is
// cached or returned to the client.
var inboundDrop = []string{
	"Content-Encoding",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Upgrade",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Cache-Control",
}

// Outbound builds the header set sent to the upstream from the inbound
// client headers: hop-by-hop/proxy/forwarding headers are dropped, Host is
// overwritten with the upstream authority, and Accept-Encoding is forced to
// "identity" so the response body is never compressed on the wire (the
// cached bytes must equal the bytes ultimately served).
func Outbound(inbound http.Header, upstreamHost string) http.Header {
	out := cloneHeader(inbound)
	for _, h := range outboundDrop {
		out.Del(h)
	}
	out.Set("Host", upstreamHost)
	out.Set("Accept-Encoding", "identity")
	return out
}

// Inbound sanitizes an upstream response's headers before storage and before
// being written back to the client. Each surviving header keeps its values in
// their original order; http.Header is a map, so no order is kept across
// different header names.
func Inbound(upstream http.Header) http.Header {
	out := cloneHeader(upstream)
	for _, h := range inboundDrop {
		out.Del(h)
	}
	return out
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		cp := make([]string, len(vv))
		copy(cp, vv)
		out[k] = cp
	}
	return out
}

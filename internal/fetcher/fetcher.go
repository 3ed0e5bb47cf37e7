// Package fetcher performs the upstream HTTP fetch (spec §4.4): build, send,
// and fully read a request honoring a hard deadline, with transport settings
// grounded on the proxy's own outbound transport (HTTP/2 where available,
// connection reuse, and strict TLS verification).
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/camrail/dejafoo/internal/errs"
)

// Deadline is the hard wall-clock limit from connect to last byte (spec §4.4).
const Deadline = 30 * time.Second

// DefaultMaxBodyBytes is the body cap applied when a Fetcher is built with
// New. It mirrors the Lambda synchronous payload ceiling the reference
// implementation is measured against (spec §4.4 "Memory").
const DefaultMaxBodyBytes = 6 << 20

// Response is the upstream response fully read into memory.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher sends a single upstream request per call and reads the full body.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
}

// New builds a Fetcher with a transport tuned the way the proxy's own
// outbound connections are: HTTP/2 attempted opportunistically, connections
// kept alive and reused, and strict certificate validation (no downgrade).
func New() *Fetcher {
	return NewWithMaxBody(DefaultMaxBodyBytes)
}

// NewWithMaxBody builds a Fetcher that rejects upstream responses larger
// than maxBodyBytes with UpstreamPayloadTooLarge (spec §4.4, §7). A
// non-positive value disables the cap.
func NewWithMaxBody(maxBodyBytes int64) *Fetcher {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Fetcher{client: &http.Client{Transport: transport}, maxBodyBytes: maxBodyBytes}
}

// Fetch sends method/url with the given (already-sanitized) outbound headers
// and body, honoring Deadline from the moment it is called. A non-2xx status
// is not an error here; it is returned as a valid Response for the cache
// engine to store and serve as-is (spec §4.4).
func (f *Fetcher) Fetch(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, Deadline)
	defer cancel()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, errs.Wrap(errs.BadRequest, "could not construct upstream request", err)
	}
	req.Header = header

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.UpstreamTimeout, "upstream exceeded the 30s deadline", err)
		}
		return nil, errs.Wrap(errs.UpstreamUnreachable, "could not reach upstream", err)
	}
	defer resp.Body.Close()

	reader := resp.Body
	var limited io.Reader = reader
	if f.maxBodyBytes > 0 {
		limited = io.LimitReader(reader, f.maxBodyBytes+1)
	}

	data, err := io.ReadAll(limited)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.UpstreamTimeout, "upstream response read timed out", err)
		}
		return nil, errs.Wrap(errs.UpstreamUnreachable, "failed reading upstream response", err)
	}
	if f.maxBodyBytes > 0 && int64(len(data)) > f.maxBodyBytes {
		return nil, errs.New(errs.UpstreamPayloadTooLarge, "upstream response exceeds the configured body cap")
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

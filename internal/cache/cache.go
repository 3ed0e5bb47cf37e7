// Package cache implements the orchestration core (spec §4.6): given a
// request descriptor, consult the object store, serve a hit, or fetch
// upstream and fill the cache on a miss. This is the one place the strict
// happens-before edge get → (delete?) → fetch → put is enforced.
package cache

import (
	"context"
	"net/url"
	"time"

	"github.com/camrail/dejafoo/internal/errs"
	"github.com/camrail/dejafoo/internal/fetcher"
	"github.com/camrail/dejafoo/internal/fingerprint"
	"github.com/camrail/dejafoo/internal/headers"
	applog "github.com/camrail/dejafoo/internal/log"
	"github.com/camrail/dejafoo/internal/metrics"
	"github.com/camrail/dejafoo/internal/store"
	"github.com/camrail/dejafoo/internal/ttl"
)

// Status is the outcome reported alongside the served Response.
type Status string

const (
	Hit  Status = "HIT"
	Miss Status = "MISS"
)

// Request describes a single inbound call into the cache engine, already
// parsed by the request handler (spec §4.7 steps 1-3).
type Request struct {
	Tenant    string
	Method    string
	TargetURL string
	Body      string
	TTLRaw    string
	Header    map[string][]string // inbound client headers, forwarded outbound on a miss
}

// Result is what serve returns: the cache outcome, the entry to reply with,
// the fingerprint used as the cache key, and the TTL remaining at 'now'.
type Result struct {
	Status      Status
	Entry       *store.Entry
	Fingerprint string
	Remaining   time.Duration
}

// Engine wires the object store and upstream fetcher together.
type Engine struct {
	Store             store.Store
	Fetcher           *fetcher.Fetcher
	DefaultTTLSeconds int
	StoreBackendName  string // for metrics labels only
}

// New builds an Engine over the given store and fetcher.
func New(s store.Store, f *fetcher.Fetcher, defaultTTLSeconds int, backendName string) *Engine {
	return &Engine{Store: s, Fetcher: f, DefaultTTLSeconds: defaultTTLSeconds, StoreBackendName: backendName}
}

// Serve implements serve(request_descriptor, now) -> (cache_status,
// response) from spec §4.6. now is passed explicitly so TTL correctness is
// testable without wall-clock flakiness.
func (e *Engine) Serve(ctx context.Context, req Request, now time.Time, ev applog.Event) (*Result, error) {
	if ttl.IsExplicitZero(req.TTLRaw) {
		return nil, errs.New(errs.BadRequest, "ttl=0 is not a valid cache duration")
	}
	ttlSeconds := ttl.Parse(req.TTLRaw, e.DefaultTTLSeconds)

	key := fingerprint.Compute(req.Tenant, req.Method, req.TargetURL, req.Body, req.TTLRaw)
	ev.Fingerprint = key

	storeKey := store.Key(key)
	entry, err := e.Store.Get(ctx, storeKey)
	metrics.ObserveStoreOp(e.StoreBackendName, "get", storeOpErr(err))

	switch {
	case err == nil && entry.ExpiresAt.After(now):
		// Hit path (step 4).
		remaining := entry.ExpiresAt.Sub(now)
		ev.CacheHit(remaining)
		return &Result{Status: Hit, Entry: entry, Fingerprint: key, Remaining: remaining}, nil

	case err == nil:
		// Entry exists but has expired: lazy reap (step 5), fire-and-forget.
		delErr := e.Store.Delete(ctx, storeKey)
		if delErr != nil {
			ev.LazyReapFailed(delErr)
		}
		metrics.ObserveStoreOp(e.StoreBackendName, "delete", delErr)

	case err != store.ErrNotFound:
		// Any read failure other than a clean miss is logged and treated as
		// a miss; it must not abort the request (spec §4.6 fallback to fetch).
		ev.StoreGetFailed(err)
	}

	ev.CacheMiss()
	return e.fetchAndFill(ctx, req, key, storeKey, ttlSeconds, now, ev)
}

func (e *Engine) fetchAndFill(ctx context.Context, req Request, key, storeKey string, ttlSeconds int, now time.Time, ev applog.Event) (*Result, error) {
	outboundHeader := headers.Outbound(req.Header, targetAuthority(req.TargetURL))

	ev.UpstreamStart()
	start := time.Now()
	upstream, err := e.Fetcher.Fetch(ctx, req.Method, req.TargetURL, outboundHeader, []byte(req.Body))
	elapsed := time.Since(start)
	if err != nil {
		ev.UpstreamFinish(0, elapsed, err)
		metrics.ObserveUpstreamError(req.Method, string(errs.KindFor(err)))
		return nil, err
	}
	ev.UpstreamFinish(upstream.StatusCode, elapsed, nil)
	metrics.ObserveUpstreamResponse(req.Method, upstream.StatusCode, elapsed)

	sanitized := headers.Inbound(upstream.Header)
	entry := &store.Entry{
		StatusCode: upstream.StatusCode,
		Header:     sanitized,
		Body:       upstream.Body,
		CachedAt:   now,
		ExpiresAt:  now.Add(time.Duration(ttlSeconds) * time.Second),
		TTLSeconds: ttlSeconds,
	}

	putErr := e.Store.Put(ctx, storeKey, entry)
	ev.CacheWriteResult(putErr)
	metrics.ObserveStoreOp(e.StoreBackendName, "put", putErr)

	return &Result{
		Status:      Miss,
		Entry:       entry,
		Fingerprint: key,
		Remaining:   time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func storeOpErr(err error) error {
	if err == store.ErrNotFound {
		return nil
	}
	return err
}

// targetAuthority extracts the host[:port] portion of a target URL, used to
// set the outbound Host header (spec §4.3). The handler has already
// validated targetURL is an absolute http(s) URL, so a parse failure here
// just falls back to the raw string.
func targetAuthority(targetURL string) string {
	u, err := url.Parse(targetURL)
	if err != nil {
		return targetURL
	}
	return u.Host
}

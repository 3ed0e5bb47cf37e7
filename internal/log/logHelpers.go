package applog

import (
	"fmt"
	"time"
)

// Event is the fixed set of externally observable events a single request
// can produce (spec §4.9): request received, cache hit, cache miss, upstream
// start, upstream finish, cache write success/failure, reply emitted.
type Event struct {
	RequestID   string
	Tenant      string
	Method      string
	TargetURL   string
	Fingerprint string
}

func (e Event) labels(extra map[string]string) map[string]string {
	l := map[string]string{
		"request_id":  e.RequestID,
		"tenant":      e.Tenant,
		"method":      e.Method,
		"fingerprint": e.Fingerprint,
		"host":        MustHostname(),
	}
	for k, v := range extra {
		l[k] = v
	}
	return l
}

// RequestReceived logs the inbound request before any cache lookup.
func (e Event) RequestReceived() {
	line := fmt.Sprintf("REQ_RECEIVED req_id=%s tenant=%s method=%s target=%s fp=%s",
		e.RequestID, e.Tenant, e.Method, e.TargetURL, e.Fingerprint)
	Emit("info", "proxy", e.labels(nil), line)
}

// CacheHit logs a served cache hit with the remaining TTL.
func (e Event) CacheHit(remaining time.Duration) {
	line := fmt.Sprintf("CACHE_HIT req_id=%s tenant=%s fp=%s remaining=%s",
		e.RequestID, e.Tenant, e.Fingerprint, remaining)
	Emit("info", "proxy", e.labels(map[string]string{"cache": "HIT"}), line)
}

// CacheMiss logs a cache miss before the upstream fetch begins.
func (e Event) CacheMiss() {
	line := fmt.Sprintf("CACHE_MISS req_id=%s tenant=%s fp=%s", e.RequestID, e.Tenant, e.Fingerprint)
	Emit("info", "proxy", e.labels(map[string]string{"cache": "MISS"}), line)
}

// UpstreamStart logs the beginning of an upstream fetch.
func (e Event) UpstreamStart() {
	line := fmt.Sprintf("UPSTREAM_START req_id=%s method=%s target=%s", e.RequestID, e.Method, e.TargetURL)
	Emit("debug", "proxy", e.labels(nil), line)
}

// UpstreamFinish logs the completion of an upstream fetch with status and elapsed time.
func (e Event) UpstreamFinish(status int, elapsed time.Duration, err error) {
	if err != nil {
		line := fmt.Sprintf("UPSTREAM_FINISH req_id=%s target=%s elapsed=%s error=%v", e.RequestID, e.TargetURL, elapsed, err)
		Emit("error", "proxy", e.labels(map[string]string{"status": "error"}), line)
		return
	}
	line := fmt.Sprintf("UPSTREAM_FINISH req_id=%s target=%s status=%d elapsed=%s", e.RequestID, e.TargetURL, status, elapsed)
	Emit("info", "proxy", e.labels(map[string]string{"status": fmt.Sprint(status)}), line)
}

// CacheWriteResult logs whether the write-back of a fresh entry succeeded.
func (e Event) CacheWriteResult(err error) {
	if err != nil {
		line := fmt.Sprintf("CACHE_WRITE req_id=%s fp=%s ok=false error=%v", e.RequestID, e.Fingerprint, err)
		Emit("error", "proxy", e.labels(nil), line)
		return
	}
	line := fmt.Sprintf("CACHE_WRITE req_id=%s fp=%s ok=true", e.RequestID, e.Fingerprint)
	Emit("debug", "proxy", e.labels(nil), line)
}

// LazyReapFailed logs a failed best-effort delete of an expired entry.
func (e Event) LazyReapFailed(err error) {
	line := fmt.Sprintf("LAZY_REAP req_id=%s fp=%s error=%v", e.RequestID, e.Fingerprint, err)
	Emit("error", "proxy", e.labels(nil), line)
}

// StoreGetFailed logs a non-NotFound object-store read failure (treated as a miss).
func (e Event) StoreGetFailed(err error) {
	line := fmt.Sprintf("STORE_GET_FAILED req_id=%s fp=%s error=%v", e.RequestID, e.Fingerprint, err)
	Emit("error", "proxy", e.labels(nil), line)
}

// ReplyEmitted logs the final reply sent to the client.
func (e Event) ReplyEmitted(status int, cacheStatus string, bytes int, elapsed time.Duration) {
	line := fmt.Sprintf("REPLY req_id=%s status=%d cache=%s bytes=%d elapsed=%s",
		e.RequestID, status, cacheStatus, bytes, elapsed)
	Emit("info", "proxy", e.labels(map[string]string{"cache": cacheStatus, "status": fmt.Sprint(status)}), line)
}

// Package proxy implements the request handler (C7, spec §4.7): tenant/url/
// ttl extraction, invoking the cache engine, and formatting the outbound
// envelope including the anti-intermediary-cache header ensemble and CORS.
// The admission queue (queue.go, adapted from the teacher) wraps this
// handler at the server boundary.
package proxy

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/camrail/dejafoo/internal/cache"
	"github.com/camrail/dejafoo/internal/errs"
	applog "github.com/camrail/dejafoo/internal/log"
	"github.com/camrail/dejafoo/internal/metrics"
)

// Handler serves the multi-tenant caching proxy endpoint.
type Handler struct {
	Engine     *cache.Engine
	BaseDomain string
}

// New builds a Handler over the given cache engine.
func New(engine *cache.Engine, baseDomain string) *Handler {
	return &Handler{Engine: engine, BaseDomain: baseDomain}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := newRequestID()

	tenant := tenantFromHost(r.Host, h.BaseDomain)

	target := r.URL.Query().Get("url")
	if err := validateTargetURL(target); err != nil {
		writeError(w, err)
		return
	}
	ttlRaw := r.URL.Query().Get("ttl")

	var bodyText string
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err == nil {
			bodyText = string(b)
		}
	}

	ev := applog.Event{RequestID: reqID, Tenant: tenant, Method: r.Method, TargetURL: target}
	ev.RequestReceived()

	req := cache.Request{
		Tenant:    tenant,
		Method:    r.Method,
		TargetURL: target,
		Body:      bodyText,
		TTLRaw:    ttlRaw,
		Header:    r.Header,
	}

	result, err := h.Engine.Serve(r.Context(), req, time.Now().UTC(), ev)
	if err != nil {
		writeError(w, err)
		metrics.ObserveProxyResponse(tenant, r.Method, errs.StatusFor(err), "ERROR", time.Since(start))
		return
	}

	writeEnvelope(w, result, target)
	ev.Fingerprint = result.Fingerprint
	ev.ReplyEmitted(result.Entry.StatusCode, string(result.Status), len(result.Entry.Body), time.Since(start))
	metrics.ObserveProxyResponse(tenant, r.Method, result.Entry.StatusCode, string(result.Status), time.Since(start))
}

// writeEnvelope formats the outbound reply per spec §4.7: sanitized
// response headers from the entry plus the fixed cache-observability and
// anti-intermediary-cache ensemble.
func writeEnvelope(w http.ResponseWriter, result *cache.Result, target string) {
	wh := w.Header()
	for name, vals := range result.Entry.Header {
		for _, v := range vals {
			wh.Add(name, v)
		}
	}

	wh.Set("X-Cache", string(result.Status))
	wh.Set("X-Cache-Key", result.Fingerprint)
	wh.Set("X-Cache-Expires-In", strconv.Itoa(int(result.Remaining.Seconds()))+"s")
	if result.Status == cache.Miss {
		wh.Set("X-Target-URL", target)
	}
	wh.Set("X-Response-Time", time.Now().UTC().Format(time.RFC3339))

	wh.Set("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0, s-maxage=0")
	wh.Set("Pragma", "no-cache")
	wh.Set("Expires", "0")
	wh.Set("Surrogate-Control", "no-store")

	wh.Set("Access-Control-Allow-Origin", "*")
	wh.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	wh.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

	w.WriteHeader(result.Entry.StatusCode)
	_, _ = w.Write(result.Entry.Body)
}

// errorBody is the shared JSON shape for every error reply (spec §7).
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status := errs.StatusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   string(errs.KindFor(err)),
		Message: err.Error(),
	})
}

// tenantFromHost extracts the lowercased leftmost label of host (spec §4.7
// step 1). When host carries the proxy's own configured baseDomain as a
// suffix (e.g. "acme.dejafoo.io" under baseDomain "dejafoo.io"), that suffix
// is stripped first so the tenant label is whatever precedes it; a bare
// request to the apex domain itself (no tenant label) falls back to
// "default", same as an empty Host. Hosts that don't carry the configured
// base domain (local-dev fixtures, bare IPs, arbitrary test hosts) still
// resolve from the raw leftmost label, unvalidated.
func tenantFromHost(host, baseDomain string) string {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return "default"
	}

	baseDomain = strings.ToLower(baseDomain)
	if baseDomain != "" {
		if host == baseDomain {
			return "default"
		}
		if rest, ok := strings.CutSuffix(host, "."+baseDomain); ok {
			host = rest
		}
	}

	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "default"
	}
	return label
}

// validateTargetURL enforces the url= requirement from spec §6: required,
// absolute, http or https only.
func validateTargetURL(raw string) error {
	if raw == "" {
		return errs.New(errs.BadRequest, "missing url")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return errs.New(errs.BadRequest, "url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.New(errs.BadRequest, "url scheme must be http or https")
	}
	return nil
}

func newRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

package proxy_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/camrail/dejafoo/internal/cache"
	"github.com/camrail/dejafoo/internal/fetcher"
	"github.com/camrail/dejafoo/internal/proxy"
	"github.com/camrail/dejafoo/internal/store/memstore"
)

// S1: basic MISS then HIT with an identical cache key and body.
func TestScenario_S1_MissThenHit(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	reqURL := "http://t1.example/?url=" + up.URL + "&ttl=30s"

	recA := httptest.NewRecorder()
	h.ServeHTTP(recA, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if recA.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("A: X-Cache = %q, want MISS", recA.Header().Get("X-Cache"))
	}

	recB := httptest.NewRecorder()
	h.ServeHTTP(recB, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if recB.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("B: X-Cache = %q, want HIT", recB.Header().Get("X-Cache"))
	}
	if recB.Header().Get("X-Cache-Key") != recA.Header().Get("X-Cache-Key") {
		t.Error("B's cache key must equal A's")
	}
	if recB.Body.String() != recA.Body.String() {
		t.Error("B's body must be bitwise equal to A's")
	}
}

// S2: tenant isolation produces distinct keys and a MISS for the second tenant.
func TestScenario_S2_TenantIsolation(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	reqURL := "/?url=" + up.URL + "&ttl=1h"

	req1 := httptest.NewRequest(http.MethodGet, reqURL, nil)
	req1.Host = "t1.example"
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest(http.MethodGet, reqURL, nil)
	req2.Host = "t2.example"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if rec2.Header().Get("X-Cache") != "MISS" {
		t.Errorf("t2: X-Cache = %q, want MISS", rec2.Header().Get("X-Cache"))
	}
	if rec1.Header().Get("X-Cache-Key") == rec2.Header().Get("X-Cache-Key") {
		t.Error("distinct tenants must produce distinct cache keys")
	}
}

// S4: ttl alone varies the cache key; both requests are first-occurrence MISSes.
func TestScenario_S4_TTLVariesKey(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	h := newHandler()

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "http://t1.example/?url="+up.URL+"&ttl=10s", nil))

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "http://t1.example/?url="+up.URL+"&ttl=20s", nil))

	if rec1.Header().Get("X-Cache") != "MISS" || rec2.Header().Get("X-Cache") != "MISS" {
		t.Fatal("both requests must be first-occurrence MISSes")
	}
	if rec1.Header().Get("X-Cache-Key") == rec2.Header().Get("X-Cache-Key") {
		t.Error("different ttl values must produce distinct cache keys")
	}
}

// S5: request headers (e.g. Authorization) are irrelevant to the cache key.
func TestScenario_S5_HeaderIrrelevance(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	reqURL := "http://t1.example/?url=" + up.URL + "&ttl=1h"

	req1 := httptest.NewRequest(http.MethodGet, reqURL, nil)
	req1.Header.Set("Authorization", "Bearer a")
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest(http.MethodGet, reqURL, nil)
	req2.Header.Set("Authorization", "Bearer b")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("X-Cache = %q, want HIT", rec2.Header().Get("X-Cache"))
	}
	if rec2.Header().Get("X-Cache-Key") != rec1.Header().Get("X-Cache-Key") {
		t.Error("differing Authorization must not change the cache key")
	}
}

// S6: POST body discriminates the cache key; both bodies are first-occurrence MISSes.
func TestScenario_S6_PostBodyDiscriminates(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	reqURL := "http://t1.example/?url=" + up.URL + "&ttl=1h"

	req1 := httptest.NewRequest(http.MethodPost, reqURL, strings.NewReader(`{"a":1}`))
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest(http.MethodPost, reqURL, strings.NewReader(`{"a":2}`))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if rec1.Header().Get("X-Cache") != "MISS" || rec2.Header().Get("X-Cache") != "MISS" {
		t.Fatal("both distinct bodies must be first-occurrence MISSes")
	}
	if rec1.Header().Get("X-Cache-Key") == rec2.Header().Get("X-Cache-Key") {
		t.Error("different POST bodies must produce distinct cache keys")
	}
}

// Upstream404IsCachedVerbatim: a non-2xx upstream status is cached verbatim
// and served as a HIT on the next request, not treated as an error (boundary
// behavior from spec §8).
func TestScenario_Upstream404IsCachedVerbatim(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	reqURL := "http://t1.example/?url=" + up.URL + "&ttl=1h"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if rec2.Code != http.StatusNotFound {
		t.Fatalf("second request: status = %d, want cached 404", rec2.Code)
	}
	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second request: X-Cache = %q, want HIT", rec2.Header().Get("X-Cache"))
	}
}

func TestScenario_TTLExpiry(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	engine := cache.New(memstore.New(), fetcher.New(), 3600, "memory")
	h := proxy.New(engine, "dejafoo.io")

	reqURL := "http://t1.example/?url=" + up.URL + "&ttl=2s"
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if rec1.Header().Get("X-Cache") != "MISS" {
		t.Fatal("first request must be a MISS")
	}

	time.Sleep(1 * time.Second)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Fatal("second request within the TTL window must be a HIT")
	}

	time.Sleep(2 * time.Second)
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, httptest.NewRequest(http.MethodGet, reqURL, nil))
	if rec3.Header().Get("X-Cache") != "MISS" {
		t.Fatal("third request after expiry must be a MISS")
	}
	if rec3.Header().Get("X-Cache-Key") != rec1.Header().Get("X-Cache-Key") {
		t.Error("cache key must stay the same across the pre- and post-expiry MISS")
	}
}

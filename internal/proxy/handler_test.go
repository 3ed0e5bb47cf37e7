package proxy_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/camrail/dejafoo/internal/cache"
	"github.com/camrail/dejafoo/internal/fetcher"
	"github.com/camrail/dejafoo/internal/proxy"
	"github.com/camrail/dejafoo/internal/store/memstore"
)

func newHandler() *proxy.Handler {
	engine := cache.New(memstore.New(), fetcher.New(), 3600, "memory")
	return proxy.New(engine, "dejafoo.io")
}

func TestHandler_MissThenHit(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("body"))
	}))
	t.Cleanup(up.Close)

	h := newHandler()

	req := httptest.NewRequest(http.MethodGet, "http://acme.dejafoo.io/?url="+up.URL, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("expected the anti-intermediary-cache Cache-Control header")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}

	req2 := httptest.NewRequest(http.MethodGet, "http://acme.dejafoo.io/?url="+up.URL, nil)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", rec2.Header().Get("X-Cache"))
	}
}

func TestHandler_MissingURLIsBadRequest(t *testing.T) {
	h := newHandler()
	req := httptest.NewRequest(http.MethodGet, "http://acme.dejafoo.io/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_NonHTTPSchemeIsBadRequest(t *testing.T) {
	h := newHandler()
	req := httptest.NewRequest(http.MethodGet, "http://acme.dejafoo.io/?url=ftp://example.test/f", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_DefaultTenantWhenHostEmpty(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	req := httptest.NewRequest(http.MethodGet, "http://acme.dejafoo.io/?url="+up.URL, nil)
	req.Host = ""
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Cache-Key") == "" {
		t.Error("expected a fingerprint even with an empty Host")
	}
}

func TestHandler_BareApexDomainIsDefaultTenant(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	h := newHandler()
	reqApex := httptest.NewRequest(http.MethodGet, "http://dejafoo.io/?url="+up.URL, nil)
	recApex := httptest.NewRecorder()
	h.ServeHTTP(recApex, reqApex)

	reqDefault := httptest.NewRequest(http.MethodGet, "http://default.dejafoo.io/?url="+up.URL, nil)
	reqDefault.Host = ""
	recDefault := httptest.NewRecorder()
	h.ServeHTTP(recDefault, reqDefault)

	if recApex.Header().Get("X-Cache-Key") != recDefault.Header().Get("X-Cache-Key") {
		t.Error("a bare apex-domain request must resolve to the same tenant as an empty Host")
	}
}

func TestHandler_UpstreamUnreachableMapsTo502(t *testing.T) {
	h := newHandler()
	req := httptest.NewRequest(http.MethodGet, "http://acme.dejafoo.io/?url=http://127.0.0.1:1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

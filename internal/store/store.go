// Package store implements the object-store adapter (spec §4.5): a typed
// put/get/delete over an opaque blob store addressed by string keys, with
// three interchangeable backends (memory, filesystem, S3). Every backend
// stores and returns the same Entry shape so the cache engine (internal/cache)
// never needs to know which one is behind the interface.
package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned by Get when the key has no entry.
var ErrNotFound = errors.New("store: not found")

// Entry is a cached response (spec §4.5): status, sanitized headers, body,
// and the bookkeeping needed to decide hit vs. expired on the next read.
// Body is carried as raw bytes in memory; encoded as base64 text on the
// wire so one JSON document can hold binary bodies without a sibling file
// (spec §4.5, §9 Open Questions — decision recorded in DESIGN.md).
type Entry struct {
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CachedAt   time.Time   `json:"cachedAt"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	TTLSeconds int         `json:"ttl"`
}

// wireEntry is the JSON-on-disk shape: Body becomes a base64 string instead
// of json.Marshal's own []byte-as-base64 behavior, spelled out explicitly so
// the on-disk format is documented rather than incidental to encoding/json.
type wireEntry struct {
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"headers"`
	Body       string      `json:"body"`
	CachedAt   time.Time   `json:"cachedAt"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	TTLSeconds int         `json:"ttl"`
}

// Marshal encodes an Entry to the canonical JSON blob stored at
// cache/<key>/response.json.
func Marshal(e *Entry) ([]byte, error) {
	w := wireEntry{
		StatusCode: e.StatusCode,
		Header:     e.Header,
		Body:       base64.StdEncoding.EncodeToString(e.Body),
		CachedAt:   e.CachedAt,
		ExpiresAt:  e.ExpiresAt,
		TTLSeconds: e.TTLSeconds,
	}
	return json.Marshal(w)
}

// Unmarshal decodes a blob previously produced by Marshal.
func Unmarshal(data []byte) (*Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	body, err := base64.StdEncoding.DecodeString(w.Body)
	if err != nil {
		return nil, err
	}
	return &Entry{
		StatusCode: w.StatusCode,
		Header:     w.Header,
		Body:       body,
		CachedAt:   w.CachedAt,
		ExpiresAt:  w.ExpiresAt,
		TTLSeconds: w.TTLSeconds,
	}, nil
}

// Key returns the blob object path for a fingerprint (spec §4.5).
func Key(fingerprint string) string {
	return "cache/" + fingerprint + "/response.json"
}

// Store is the abstraction boundary C5 names: put/get/delete over string
// keys, each idempotent, each durable on success.
type Store interface {
	Put(ctx context.Context, key string, e *Entry) error
	Get(ctx context.Context, key string) (*Entry, error)
	Delete(ctx context.Context, key string) error
}

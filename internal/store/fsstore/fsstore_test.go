package fsstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/camrail/dejafoo/internal/store"
	"github.com/camrail/dejafoo/internal/store/fsstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := fsstore.New(t.TempDir())
	ctx := context.Background()
	e := &store.Entry{
		StatusCode: 200,
		Body:       []byte("hello"),
		CachedAt:   time.Unix(1000, 0).UTC(),
		ExpiresAt:  time.Unix(1060, 0).UTC(),
		TTLSeconds: 60,
	}
	key := store.Key("deadbeef")
	if err := s.Put(ctx, key, e); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Body) != "hello" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestGetMissing(t *testing.T) {
	s := fsstore.New(t.TempDir())
	_, err := s.Get(context.Background(), store.Key("missing"))
	if err != store.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := fsstore.New(t.TempDir())
	ctx := context.Background()
	key := store.Key("k")
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
	_ = s.Put(ctx, key, &store.Entry{})
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second delete should still succeed, got %v", err)
	}
}

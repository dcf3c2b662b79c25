package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, nil), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "knowledge:org-1:hours", "open 9-5", 0)

	got, ok := svc.Get(ctx, "knowledge:org-1:hours")
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if got != "open 9-5" {
		t.Fatalf("unexpected value: %q", got)
	}

	// Class TTL applied from the key prefix.
	ttl := mr.TTL("knowledge:org-1:hours")
	if ttl != time.Hour {
		t.Fatalf("expected knowledge class ttl, got %s", ttl)
	}
}

func TestGetAfterExpiryIsMiss(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "appointment:slots:org-1", "listing", 0)
	mr.FastForward(appointmentTTL + time.Second)

	if _, ok := svc.Get(ctx, "appointment:slots:org-1"); ok {
		t.Fatalf("expected miss after ttl expiry")
	}
}

func TestTTLHintOverridesClass(t *testing.T) {
	svc, mr := newTestService(t)
	svc.Set(context.Background(), "session:org-1:sess", "profile", 2*time.Minute)
	if ttl := mr.TTL("session:org-1:sess"); ttl != 2*time.Minute {
		t.Fatalf("expected hint ttl, got %s", ttl)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "conversation:org-1:a", "x", 0)
	svc.Set(ctx, "conversation:org-1:b", "y", 0)
	svc.Set(ctx, "conversation:org-2:a", "z", 0)

	if n := svc.DeleteByPrefix(ctx, "conversation:org-1:*"); n != 2 {
		t.Fatalf("expected 2 deletions, got %d", n)
	}
	if _, ok := svc.Get(ctx, "conversation:org-1:a"); ok {
		t.Fatalf("expected org-1 entries gone")
	}
	if _, ok := svc.Get(ctx, "conversation:org-2:a"); !ok {
		t.Fatalf("expected org-2 entry untouched")
	}
}

func TestDegradedBackendIsPassThrough(t *testing.T) {
	ctx := context.Background()

	// Nil client degrades to a no-op cache.
	svc := New(nil, nil)
	svc.Set(ctx, "session:org:sess", "v", 0)
	if _, ok := svc.Get(ctx, "session:org:sess"); ok {
		t.Fatalf("expected miss from nil-backed cache")
	}
	svc.Delete(ctx, "session:org:sess")
	if n := svc.DeleteByPrefix(ctx, "session:*"); n != 0 {
		t.Fatalf("expected no deletions, got %d", n)
	}

	// An unreachable backend behaves the same way.
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	down := New(client, nil)
	mr.Close()

	down.Set(ctx, "session:org:sess", "v", 0)
	if _, ok := down.Get(ctx, "session:org:sess"); ok {
		t.Fatalf("expected miss from unreachable backend")
	}
	if down.Available(ctx) {
		t.Fatalf("expected unavailable backend")
	}
}

package agent

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestModeStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewModeStore(client, nil)
	ctx := context.Background()

	if store.Active(ctx, "org-1", "sess-1") {
		t.Fatalf("fresh session must not be agent-controlled")
	}

	if err := store.Enable(ctx, "org-1", "sess-1"); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if !store.Active(ctx, "org-1", "sess-1") {
		t.Fatalf("expected takeover active")
	}
	if store.Active(ctx, "org-1", "sess-2") {
		t.Fatalf("takeover must be scoped to the session")
	}
	if store.Active(ctx, "org-2", "sess-1") {
		t.Fatalf("takeover must be scoped to the org")
	}

	if err := store.Disable(ctx, "org-1", "sess-1"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if store.Active(ctx, "org-1", "sess-1") {
		t.Fatalf("expected takeover released")
	}
}

func TestModeStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewModeStore(client, nil)
	ctx := context.Background()

	if err := store.Enable(ctx, "org-1", "sess-1"); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	mr.FastForward(DefaultTakeoverTTL + 1)
	if store.Active(ctx, "org-1", "sess-1") {
		t.Fatalf("takeover must expire back to the bot")
	}
}

func TestModeStoreDegradesToInactive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewModeStore(client, nil)
	mr.Close()

	if store.Active(context.Background(), "org-1", "sess-1") {
		t.Fatalf("backend failure must read as bot-controlled")
	}
	if NewModeStore(nil, nil).Active(context.Background(), "org-1", "sess-1") {
		t.Fatalf("nil client must read as bot-controlled")
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adboard/classifieds/internal/core/domain"
)

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	store := NewIdempotencyStore(time.Hour)
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, "k")
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	if _, _, err := store.Claim(ctx, "k"); !errors.Is(err, domain.ErrIdempotencyInProgress) {
		t.Fatalf("expected ErrIdempotencyInProgress, got %v", err)
	}

	if err := store.Complete(ctx, "k", 42); err != nil {
		t.Fatalf("complete: %v", err)
	}
	id, claimed, err := store.Claim(ctx, "k")
	if err != nil || claimed || id != 42 {
		t.Fatalf("replay: id=%d claimed=%v err=%v", id, claimed, err)
	}
}

func TestIdempotencyStore_ReleaseAndExpiry(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = store.Claim(ctx, "k")
	_ = store.Release(ctx, "k")
	if _, claimed, _ := store.Claim(ctx, "k"); !claimed {
		t.Fatalf("released key should be claimable again")
	}

	_ = store.Complete(ctx, "k", 7)
	now = now.Add(2 * time.Minute)
	if _, claimed, _ := store.Claim(ctx, "k"); !claimed {
		t.Fatalf("expired key should be claimable again")
	}
}

func TestIdempotencyStore_ClaimSweepsExpiredKeys(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = store.Claim(ctx, "abandoned")
	_, _, _ = store.Claim(ctx, "done")
	_ = store.Complete(ctx, "done", 9)

	now = now.Add(30 * time.Second)
	_, _, _ = store.Claim(ctx, "early")
	if len(store.entries) != 3 {
		t.Fatalf("nothing has expired yet, expected 3 entries, got %d", len(store.entries))
	}

	now = now.Add(2 * time.Minute)
	if _, claimed, _ := store.Claim(ctx, "fresh"); !claimed {
		t.Fatal("fresh key should be claimed")
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected expired keys to be swept, %d entries left", len(store.entries))
	}
	if _, ok := store.entries["fresh"]; !ok {
		t.Fatal("fresh key missing after sweep")
	}
}

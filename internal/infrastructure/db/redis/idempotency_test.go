package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adboard/classifieds/internal/core/domain"
)

// fakeRedis implements the handful of commands the idempotency store issues.
// Any other command panics through the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration

	// dropOnGet makes the next Gets find the key expired and removed.
	dropOnGet int
	// missOnGet makes the next Gets return redis.Nil while the key stays,
	// as if another client claimed it again in between.
	missOnGet int
	setNXErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if f.setNXErr != nil {
		return redis.NewBoolResult(false, f.setNXErr)
	}
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.dropOnGet > 0 {
		f.dropOnGet--
		delete(f.data, key)
		return redis.NewStringResult("", redis.Nil)
	}
	if f.missOnGet > 0 {
		f.missOnGet--
		return redis.NewStringResult("", redis.Nil)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	client := newFakeRedis()
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, "1:req")
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	if got := client.data[keyPrefix+"1:req"]; got != pendingValue {
		t.Fatalf("expected pending marker, got %q", got)
	}
	if client.ttls[keyPrefix+"1:req"] != time.Hour {
		t.Fatalf("claim should carry the ttl, got %v", client.ttls[keyPrefix+"1:req"])
	}

	if _, _, err := store.Claim(ctx, "1:req"); !errors.Is(err, domain.ErrIdempotencyInProgress) {
		t.Fatalf("expected ErrIdempotencyInProgress, got %v", err)
	}

	if err := store.Complete(ctx, "1:req", 42); err != nil {
		t.Fatalf("complete: %v", err)
	}
	id, claimed, err := store.Claim(ctx, "1:req")
	if err != nil || claimed || id != 42 {
		t.Fatalf("replay: id=%d claimed=%v err=%v", id, claimed, err)
	}
}

func TestIdempotencyStore_Release(t *testing.T) {
	client := newFakeRedis()
	store := NewIdempotencyStore(client, 0)
	ctx := context.Background()

	_, _, _ = store.Claim(ctx, "k")
	if client.ttls[keyPrefix+"k"] != defaultIdempotencyTTL {
		t.Fatalf("expected default ttl, got %v", client.ttls[keyPrefix+"k"])
	}
	if err := store.Release(ctx, "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, claimed, err := store.Claim(ctx, "k"); err != nil || !claimed {
		t.Fatalf("released key should be claimable again: claimed=%v err=%v", claimed, err)
	}
}

func TestIdempotencyStore_ClaimRetriesExpiredKey(t *testing.T) {
	client := newFakeRedis()
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	client.data[keyPrefix+"k"] = "7"
	client.dropOnGet = 1

	_, claimed, err := store.Claim(ctx, "k")
	if err != nil || !claimed {
		t.Fatalf("key gone before GET should be claimed on retry: claimed=%v err=%v", claimed, err)
	}
	if got := client.data[keyPrefix+"k"]; got != pendingValue {
		t.Fatalf("expected pending marker after retry, got %q", got)
	}
}

func TestIdempotencyStore_ClaimGivesUpAfterRetry(t *testing.T) {
	client := newFakeRedis()
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	client.data[keyPrefix+"k"] = "7"
	client.missOnGet = 2

	if _, _, err := store.Claim(ctx, "k"); !errors.Is(err, domain.ErrIdempotencyInProgress) {
		t.Fatalf("expected ErrIdempotencyInProgress, got %v", err)
	}
}

func TestIdempotencyStore_ClaimErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt stored id", func(t *testing.T) {
		client := newFakeRedis()
		client.data[keyPrefix+"k"] = "not-a-number"
		store := NewIdempotencyStore(client, time.Hour)
		if _, _, err := store.Claim(ctx, "k"); err == nil {
			t.Fatal("expected an error for a non-numeric stored id")
		}
	})

	t.Run("setnx failure", func(t *testing.T) {
		client := newFakeRedis()
		client.setNXErr = errors.New("connection refused")
		store := NewIdempotencyStore(client, time.Hour)
		_, claimed, err := store.Claim(ctx, "k")
		if err == nil || claimed || !errors.Is(err, client.setNXErr) {
			t.Fatalf("expected wrapped setnx error, got claimed=%v err=%v", claimed, err)
		}
	})
}

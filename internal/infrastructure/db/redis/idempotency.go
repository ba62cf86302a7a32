package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	keyPrefix             = "classifieds:idempotency:"
	pendingValue          = "0"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency keys in Redis so replays are detected
// across instances. A key holds "0" while its create is in flight and the
// advertisement id once it completed; Redis expires it after the TTL.
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string) (int64, bool, error) {
	k := keyPrefix + key

	// One retry covers a key that expires between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pendingValue, s.ttl).Result()
		if err != nil {
			return 0, false, fmt.Errorf("idempotency claim: %w", err)
		}
		if ok {
			return 0, true, nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if val == pendingValue {
			return 0, false, domain.ErrIdempotencyInProgress
		}
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("idempotency key %q holds %q: %w", key, val, err)
		}
		return id, false, nil
	}
	return 0, false, domain.ErrIdempotencyInProgress
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, id int64) error {
	if err := s.client.Set(ctx, keyPrefix+key, strconv.FormatInt(id, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

type idempotencyEntry struct {
	id        int64 // 0 while the create is in flight
	expiresAt time.Time
}

// IdempotencyStore keeps idempotency keys in process memory. Claim sweeps
// expired keys at most once per TTL.
type IdempotencyStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[string]idempotencyEntry
	nextSweep time.Time
	now       func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{ttl: ttl, entries: make(map[string]idempotencyEntry), now: time.Now}
}

func (s *IdempotencyStore) Claim(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.id == 0 {
			return 0, false, domain.ErrIdempotencyInProgress
		}
		return e.id, false, nil
	}
	s.entries[key] = idempotencyEntry{expiresAt: now.Add(s.ttl)}
	return 0, true, nil
}

// sweep must be called with mu held.
func (s *IdempotencyStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

func (s *IdempotencyStore) Complete(_ context.Context, key string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{id: id, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

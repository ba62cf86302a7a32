package ports

import "context"

// IdempotencyStore remembers which advertisement a client-supplied
// Idempotency-Key produced, so a retried create returns the original record.
type IdempotencyStore interface {
	// Claim reserves key. When the key already completed, it returns the
	// advertisement ID with claimed == false. When another request holds the
	// key and has not completed yet, it returns domain.ErrIdempotencyInProgress.
	Claim(ctx context.Context, key string) (existingID int64, claimed bool, err error)
	// Complete binds a claimed key to the created advertisement.
	Complete(ctx context.Context, key string, id int64) error
	// Release drops a claim whose create failed.
	Release(ctx context.Context, key string) error
}

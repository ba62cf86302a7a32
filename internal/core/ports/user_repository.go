package ports

import (
	"context"

	"github.com/adboard/classifieds/internal/core/domain"
)

// UserRepository persists user records. Implementations must make every
// check-and-write atomic: the username uniqueness check and the write that
// depends on it happen in one critical section.
type UserRepository interface {
	// Create assigns the next ID and stores u. Returns domain.ErrUsernameTaken
	// when the username already exists.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// List returns users in creation order and the total count.
	List(ctx context.Context, limit, offset int) ([]*domain.User, int, error)
	// Update runs mutate on a copy of the stored record and, when it returns
	// nil, replaces the record with the copy as a whole. A mutate error aborts
	// the update and is returned unchanged.
	Update(ctx context.Context, id int64, mutate func(u *domain.User) error) (*domain.User, error)
	// Delete removes the record when guard returns nil.
	Delete(ctx context.Context, id int64, guard func(u *domain.User) error) error
}

package ports

import (
	"context"

	"github.com/adboard/classifieds/internal/core/domain"
)

// SeedUser describes an account created by the bootstrap step. Unlike
// RegisterInput it may carry the admin role.
type SeedUser struct {
	Username string
	Password string
	Role     domain.Role
}

// ListUsersResult is a page of users.
type ListUsersResult struct {
	Items  []*domain.User
	Total  int
	Limit  int
	Offset int
}

// UserService owns user records and the role-change policy.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Seed(ctx context.Context, in SeedUser) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, actor domain.Identity, limit, offset int) (*ListUsersResult, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch, actor domain.Identity) (*domain.User, error)
	Delete(ctx context.Context, id int64, actor domain.Identity) error
}

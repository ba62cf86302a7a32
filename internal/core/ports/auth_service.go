package ports

import (
	"context"
	"time"

	"github.com/adboard/classifieds/internal/core/domain"
)

// RegisterInput is the self-service registration payload. It has no role:
// accounts created through it are always plain users.
type RegisterInput struct {
	Username string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Authenticate resolves a bearer token to the identity of a live user.
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

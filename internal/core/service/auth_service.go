package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.AuthService = (*AuthService)(nil)

// AuthService implements registration, login and bearer-token authentication.
type AuthService struct {
	users  ports.UserService
	hasher ports.PasswordHasher
	tokens ports.TokenService
	logger zerolog.Logger

	// decoy is verified against on unknown usernames so that a failed login
	// costs one hash comparison whether or not the account exists.
	decoy string
}

func NewAuthService(users ports.UserService, hasher ports.PasswordHasher, tokens ports.TokenService, logger zerolog.Logger) *AuthService {
	decoy, err := hasher.Hash("classifieds-login-decoy")
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build login decoy digest")
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, logger: logger, decoy: decoy}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.users.Register(ctx, in)
}

// Login checks the credentials and issues a session token. Unknown users and
// wrong passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(password, s.decoy)
			s.logger.Warn().Str("username", username).Msg("login failed: unknown user")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn().Str("username", username).Int64("user_id", user.ID).Msg("login failed: wrong password")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.IssueSession(user.Username, user.ID, user.SessionVersion)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user logged in")
	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate validates token and resolves its subject to a live user. The
// role comes from the stored record, not from the token. The token must name
// the same user record and session version as the store holds, so any
// username, password or role change ends older sessions and a reused
// username never inherits one.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, err
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("subject", claims.Subject).Msg("token subject no longer exists")
			return domain.Identity{}, domain.ErrInvalidToken
		}
		return domain.Identity{}, err
	}
	if claims.UserID != user.ID || claims.Version != user.SessionVersion {
		s.logger.Debug().Int64("user_id", user.ID).Int64("token_version", claims.Version).Msg("token predates account change")
		return domain.Identity{}, domain.ErrInvalidToken
	}

	return domain.IdentityOf(user), nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/policy"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.UserService = (*UserService)(nil)

// UserService owns user records. Username uniqueness is enforced by the
// repository; who may change what is decided by the policy package.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, logger zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a plain user account. RegisterInput carries no role, so
// self-service registration can never produce an admin.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.create(ctx, in.Username, in.Password, domain.RoleUser)
}

// Seed creates a bootstrap account with an explicit role. An account that
// already exists is returned as-is, so seeding is safe to repeat.
func (s *UserService) Seed(ctx context.Context, in ports.SeedUser) (*domain.User, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	u, err := s.create(ctx, in.Username, in.Password, in.Role)
	if errors.Is(err, domain.ErrUsernameTaken) {
		s.logger.Info().Str("username", in.Username).Msg("seed user already present")
		return s.repo.FindByUsername(ctx, in.Username)
	}
	return u, err
}

func (s *UserService) create(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUsernameTaken) {
			s.logger.Error().Err(err).Str("username", username).Msg("failed to create user")
		}
		return nil, err
	}

	s.logger.Info().Int64("user_id", created.ID).Str("username", created.Username).Str("role", string(created.Role)).Msg("user created")
	return created, nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// List returns a page of users. Admin only.
func (s *UserService) List(ctx context.Context, actor domain.Identity, limit, offset int) (*ports.ListUsersResult, error) {
	if !policy.MayAdminister(actor) {
		return nil, domain.ErrForbidden
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ports.ListUsersResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Update applies patch to the user identified by id on behalf of actor.
//
// The ownership check runs before any payload validation so a caller without
// rights always gets domain.ErrForbidden. It is repeated inside the
// repository's critical section because the target's username may change
// between the two reads.
func (s *UserService) Update(ctx context.Context, id int64, patch domain.UserPatch, actor domain.Identity) (*domain.User, error) {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeMutation(actor, target.Username); err != nil {
		s.logger.Warn().Str("actor", actor.Username).Int64("user_id", id).Msg("user update denied")
		return nil, err
	}
	if patch.Role != nil {
		if err := policy.AuthorizeRoleChange(actor); err != nil {
			s.logger.Warn().Str("actor", actor.Username).Int64("user_id", id).Msg("role change denied")
			return nil, err
		}
		if !patch.Role.Valid() {
			return nil, domain.ErrInvalidRole
		}
	}
	if patch.Username != nil && *patch.Username == "" {
		return nil, domain.ErrInvalidInput
	}

	// bcrypt is slow; hash outside the repository lock.
	var hash string
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, domain.ErrInvalidInput
		}
		if hash, err = s.hasher.Hash(*patch.Password); err != nil {
			return nil, err
		}
	}

	now := s.now()
	updated, err := s.repo.Update(ctx, id, func(u *domain.User) error {
		if err := policy.AuthorizeMutation(actor, u.Username); err != nil {
			return err
		}
		if patch.Role != nil {
			if err := policy.AuthorizeRoleChange(actor); err != nil {
				return err
			}
			u.Role = *patch.Role
		}
		if patch.Username != nil {
			u.Username = *patch.Username
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		if !patch.IsEmpty() {
			u.UpdatedAt = now
			u.SessionVersion++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("actor", actor.Username).Int64("user_id", updated.ID).Msg("user updated")
	return updated, nil
}

// Delete removes the user identified by id when actor is that user or an admin.
func (s *UserService) Delete(ctx context.Context, id int64, actor domain.Identity) error {
	err := s.repo.Delete(ctx, id, func(u *domain.User) error {
		return policy.AuthorizeMutation(actor, u.Username)
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.logger.Warn().Str("actor", actor.Username).Int64("user_id", id).Msg("user delete denied")
		}
		return err
	}

	s.logger.Info().Str("actor", actor.Username).Int64("user_id", id).Msg("user deleted")
	return nil
}

func validatePage(limit, offset int) error {
	if limit < 1 || limit > ports.MaxSearchLimit || offset < 0 {
		return domain.ErrInvalidPagination
	}
	return nil
}

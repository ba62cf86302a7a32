package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/policy"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.AdvertisementService = (*AdvertisementService)(nil)

// AdvertisementService owns advertisements. Mutations are allowed only to the
// author or an admin, as decided by the policy package.
type AdvertisementService struct {
	repo   ports.AdvertisementRepository
	idem   ports.IdempotencyStore // nil disables Idempotency-Key handling
	logger zerolog.Logger
	now    func() time.Time
}

func NewAdvertisementService(repo ports.AdvertisementRepository, idem ports.IdempotencyStore, logger zerolog.Logger) *AdvertisementService {
	return &AdvertisementService{
		repo:   repo,
		idem:   idem,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create publishes a new advertisement authored by author. If an idempotency
// key is provided and was already used by the same author, the advertisement
// created back then is returned without side effects.
func (s *AdvertisementService) Create(ctx context.Context, in ports.CreateAdvertisementInput, author domain.Identity) (*ports.CreateAdvertisementResult, error) {
	if author.Username == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.ErrTitleRequired
	}
	if !(in.Price > 0) {
		return nil, domain.ErrInvalidPrice
	}

	var idemKey string
	if in.IdempotencyKey != "" && s.idem != nil {
		idemKey = fmt.Sprintf("%d:%s", author.UserID, in.IdempotencyKey)
		existingID, claimed, err := s.idem.Claim(ctx, idemKey)
		if err != nil {
			return nil, err
		}
		if !claimed {
			existing, err := s.repo.FindByID(ctx, existingID)
			if err != nil {
				return nil, err
			}
			s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Int64("advertisement_id", existing.ID).Msg("idempotent replay")
			return &ports.CreateAdvertisementResult{Advertisement: existing, AlreadyExisted: true}, nil
		}
	}

	created, err := s.repo.Create(ctx, &domain.Advertisement{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Contacts:    in.Contacts,
		Author:      author.Username,
		CreatedAt:   s.now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("author", author.Username).Msg("failed to create advertisement")
		if idemKey != "" {
			if relErr := s.idem.Release(ctx, idemKey); relErr != nil {
				s.logger.Warn().Err(relErr).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	if idemKey != "" {
		if err := s.idem.Complete(ctx, idemKey, created.ID); err != nil {
			s.logger.Warn().Err(err).Int64("advertisement_id", created.ID).Msg("failed to complete idempotency key")
			// A pending key would block retries until it expires.
			if relErr := s.idem.Release(ctx, idemKey); relErr != nil {
				s.logger.Warn().Err(relErr).Msg("failed to release idempotency key")
			}
		}
	}

	s.logger.Info().Int64("advertisement_id", created.ID).Str("author", created.Author).Msg("advertisement created")
	return &ports.CreateAdvertisementResult{Advertisement: created}, nil
}

func (s *AdvertisementService) Get(ctx context.Context, id int64) (*domain.Advertisement, error) {
	return s.repo.FindByID(ctx, id)
}

// Search filters advertisements and returns one page of the matches in
// creation order. Out-of-range pagination is rejected, never clamped.
func (s *AdvertisementService) Search(ctx context.Context, in ports.SearchInput) (*ports.SearchResult, error) {
	if err := validatePage(in.Limit, in.Offset); err != nil {
		return nil, err
	}

	filter := domain.AdvertisementFilter{
		Title:    in.Title,
		Author:   in.Author,
		PriceMin: in.PriceMin,
		PriceMax: in.PriceMax,
	}
	items, total, err := s.repo.List(ctx, filter, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int("total", total).Int("returned", len(items)).Msg("advertisement search")
	return &ports.SearchResult{Items: items, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

// Update applies patch on behalf of actor. Authorization is decided before
// the patch is validated, so a non-owner always gets domain.ErrForbidden.
func (s *AdvertisementService) Update(ctx context.Context, id int64, patch domain.AdvertisementPatch, actor domain.Identity) (*domain.Advertisement, error) {
	updated, err := s.repo.Update(ctx, id, func(ad *domain.Advertisement) error {
		if err := policy.AuthorizeMutation(actor, ad.Author); err != nil {
			return err
		}
		if err := patch.Validate(); err != nil {
			return err
		}
		patch.Apply(ad)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.logger.Warn().Str("actor", actor.Username).Int64("advertisement_id", id).Msg("advertisement update denied")
		}
		return nil, err
	}

	s.logger.Info().Str("actor", actor.Username).Int64("advertisement_id", id).Msg("advertisement updated")
	return updated, nil
}

// Delete removes the advertisement when actor is its author or an admin.
func (s *AdvertisementService) Delete(ctx context.Context, id int64, actor domain.Identity) error {
	err := s.repo.Delete(ctx, id, func(ad *domain.Advertisement) error {
		return policy.AuthorizeMutation(actor, ad.Author)
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.logger.Warn().Str("actor", actor.Username).Int64("advertisement_id", id).Msg("advertisement delete denied")
		}
		return err
	}

	s.logger.Info().Str("actor", actor.Username).Int64("advertisement_id", id).Msg("advertisement deleted")
	return nil
}

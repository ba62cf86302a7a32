package ports

import (
	"context"

	"github.com/adboard/classifieds/internal/core/domain"
)

// AdvertisementRepository persists advertisements in creation order.
type AdvertisementRepository interface {
	// Create assigns the next ID and stores ad. IDs are never reused.
	Create(ctx context.Context, ad *domain.Advertisement) (*domain.Advertisement, error)
	FindByID(ctx context.Context, id int64) (*domain.Advertisement, error)
	// List filters first, then skips offset matches and returns at most limit
	// of the rest, together with the total number of matches.
	List(ctx context.Context, filter domain.AdvertisementFilter, limit, offset int) ([]*domain.Advertisement, int, error)
	// Update has the same copy-mutate-replace contract as UserRepository.Update.
	Update(ctx context.Context, id int64, mutate func(ad *domain.Advertisement) error) (*domain.Advertisement, error)
	Delete(ctx context.Context, id int64, guard func(ad *domain.Advertisement) error) error
}

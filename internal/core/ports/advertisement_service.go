package ports

import (
	"context"

	"github.com/adboard/classifieds/internal/core/domain"
)

// CreateAdvertisementInput carries the client-supplied fields of a new
// advertisement. The author always comes from the authenticated identity.
type CreateAdvertisementInput struct {
	Title          string
	Description    string
	Price          float64
	Contacts       string
	IdempotencyKey string // optional
}

// CreateAdvertisementResult is returned by Create.
type CreateAdvertisementResult struct {
	Advertisement *domain.Advertisement
	// AlreadyExisted is true when the Idempotency-Key matched an earlier create.
	AlreadyExisted bool
}

// SearchInput carries the search criteria and the page window.
type SearchInput struct {
	Title    *string
	Author   *string
	PriceMin *float64
	PriceMax *float64
	Limit    int // 1..MaxSearchLimit
	Offset   int // >= 0
}

// MaxSearchLimit bounds SearchInput.Limit.
const MaxSearchLimit = 100

// SearchResult is a page of matching advertisements in creation order.
type SearchResult struct {
	Items  []*domain.Advertisement
	Total  int
	Limit  int
	Offset int
}

// AdvertisementService defines use-case operations for advertisements.
type AdvertisementService interface {
	Create(ctx context.Context, in CreateAdvertisementInput, author domain.Identity) (*CreateAdvertisementResult, error)
	Get(ctx context.Context, id int64) (*domain.Advertisement, error)
	Search(ctx context.Context, in SearchInput) (*SearchResult, error)
	Update(ctx context.Context, id int64, patch domain.AdvertisementPatch, actor domain.Identity) (*domain.Advertisement, error)
	Delete(ctx context.Context, id int64, actor domain.Identity) error
}

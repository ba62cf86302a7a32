package memory

import (
	"context"
	"sync"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.AdvertisementRepository = (*AdvertisementRepository)(nil)

type AdvertisementRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]domain.Advertisement
	order  []int64
}

func NewAdvertisementRepository() *AdvertisementRepository {
	return &AdvertisementRepository{byID: make(map[int64]domain.Advertisement)}
}

func (r *AdvertisementRepository) Create(_ context.Context, ad *domain.Advertisement) (*domain.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rec := *ad
	rec.ID = r.nextID
	r.byID[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	return &rec, nil
}

func (r *AdvertisementRepository) FindByID(_ context.Context, id int64) (*domain.Advertisement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAdvertisementNotFound
	}
	return &rec, nil
}

// List filters in creation order, then applies offset and limit.
func (r *AdvertisementRepository) List(_ context.Context, filter domain.AdvertisementFilter, limit, offset int) ([]*domain.Advertisement, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]int64, 0, len(r.order))
	for _, id := range r.order {
		rec := r.byID[id]
		if filter.Matches(&rec) {
			matched = append(matched, id)
		}
	}

	out := []*domain.Advertisement{}
	for _, id := range window(matched, limit, offset) {
		rec := r.byID[id]
		out = append(out, &rec)
	}
	return out, len(matched), nil
}

func (r *AdvertisementRepository) Update(_ context.Context, id int64, mutate func(ad *domain.Advertisement) error) (*domain.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAdvertisementNotFound
	}

	next := current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	// Provenance is fixed at creation whatever mutate did.
	next.ID = current.ID
	next.Author = current.Author
	next.CreatedAt = current.CreatedAt

	r.byID[id] = next
	return &next, nil
}

func (r *AdvertisementRepository) Delete(_ context.Context, id int64, guard func(ad *domain.Advertisement) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return domain.ErrAdvertisementNotFound
	}
	if guard != nil {
		if err := guard(&current); err != nil {
			return err
		}
	}

	delete(r.byID, id)
	r.order = removeID(r.order, id)
	return nil
}

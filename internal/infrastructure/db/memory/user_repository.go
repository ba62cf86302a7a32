// Package memory provides process-local implementations of the repository
// ports. Records are kept as values behind a single RWMutex per store; every
// write, including the checks it depends on, happens under the write lock.
package memory

import (
	"context"
	"sync"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]domain.User
	byUsername map[string]int64
	order      []int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[int64]domain.User),
		byUsername: make(map[string]int64),
	}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[u.Username]; taken {
		return nil, domain.ErrUsernameTaken
	}

	r.nextID++
	rec := *u
	rec.ID = r.nextID
	r.byID[rec.ID] = rec
	r.byUsername[rec.Username] = rec.ID
	r.order = append(r.order, rec.ID)
	return &rec, nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &rec, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	rec := r.byID[id]
	return &rec, nil
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]*domain.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.order)
	out := []*domain.User{}
	for _, id := range window(r.order, limit, offset) {
		rec := r.byID[id]
		out = append(out, &rec)
	}
	return out, total, nil
}

func (r *UserRepository) Update(_ context.Context, id int64, mutate func(u *domain.User) error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	next := current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID

	if next.Username != current.Username {
		if _, taken := r.byUsername[next.Username]; taken {
			return nil, domain.ErrUsernameTaken
		}
		delete(r.byUsername, current.Username)
		r.byUsername[next.Username] = id
	}
	r.byID[id] = next
	return &next, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64, guard func(u *domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if guard != nil {
		if err := guard(&current); err != nil {
			return err
		}
	}

	delete(r.byID, id)
	delete(r.byUsername, current.Username)
	r.order = removeID(r.order, id)
	return nil
}

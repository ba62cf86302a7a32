package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/adboard/classifieds/internal/core/domain"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u, err := repo.Create(ctx, &domain.User{Username: "alice", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID != 1 {
		t.Fatalf("expected id 1, got %d", u.ID)
	}

	byID, err := repo.FindByID(ctx, u.ID)
	if err != nil || byID.Username != "alice" {
		t.Fatalf("find by id: %v %+v", err, byID)
	}
	byName, err := repo.FindByUsername(ctx, "alice")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("find by username: %v %+v", err, byName)
	}
	if _, err := repo.FindByUsername(ctx, "Alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("usernames are case-sensitive, expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u, _ := repo.Create(ctx, &domain.User{Username: "alice", Role: domain.RoleUser})
	u.Role = domain.RoleAdmin

	stored, _ := repo.FindByID(ctx, u.ID)
	if stored.Role != domain.RoleUser {
		t.Fatalf("caller mutation leaked into the store: %+v", stored)
	}
}

func TestUserRepository_ConcurrentDuplicateCreate(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	const workers = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &domain.User{Username: "alice", Role: domain.RoleUser})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrUsernameTaken) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful create, got %d", succeeded)
	}
}

func TestUserRepository_ConcurrentDistinctCreateAssignsUniqueIDs(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.Create(ctx, &domain.User{Username: fmt.Sprintf("user%d", i)}); err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	users, total, _ := repo.List(ctx, 100, 0)
	if total != workers {
		t.Fatalf("expected %d users, got %d", workers, total)
	}
	seen := make(map[int64]bool)
	for _, u := range users {
		if seen[u.ID] {
			t.Fatalf("duplicate id %d", u.ID)
		}
		seen[u.ID] = true
	}
}

func TestUserRepository_UpdateUsernameCollision(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	alice, _ := repo.Create(ctx, &domain.User{Username: "alice"})
	_, _ = repo.Create(ctx, &domain.User{Username: "bob"})

	_, err := repo.Update(ctx, alice.ID, func(u *domain.User) error {
		u.Username = "bob"
		return nil
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	// Renaming to the own current name is not a collision.
	if _, err := repo.Update(ctx, alice.ID, func(u *domain.User) error { return nil }); err != nil {
		t.Fatalf("no-op update: %v", err)
	}

	renamed, err := repo.Update(ctx, alice.ID, func(u *domain.User) error {
		u.Username = "alicia"
		return nil
	})
	if err != nil || renamed.Username != "alicia" {
		t.Fatalf("rename: %v %+v", err, renamed)
	}
	if _, err := repo.FindByUsername(ctx, "alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("old username must be released, got %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{Username: "alice"}); err != nil {
		t.Fatalf("old username should be reusable: %v", err)
	}
}

func TestUserRepository_UpdateMutateErrorLeavesRecord(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	alice, _ := repo.Create(ctx, &domain.User{Username: "alice", Role: domain.RoleUser})

	_, err := repo.Update(ctx, alice.ID, func(u *domain.User) error {
		u.Role = domain.RoleAdmin
		return domain.ErrForbidden
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	stored, _ := repo.FindByID(ctx, alice.ID)
	if stored.Role != domain.RoleUser {
		t.Fatalf("aborted update must not be stored: %+v", stored)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	alice, _ := repo.Create(ctx, &domain.User{Username: "alice"})

	if err := repo.Delete(ctx, alice.ID, func(*domain.User) error { return domain.ErrForbidden }); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected guard error, got %v", err)
	}
	if err := repo.Delete(ctx, alice.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, alice.ID, nil); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// IDs are not reused after a delete.
	bob, _ := repo.Create(ctx, &domain.User{Username: "bob"})
	if bob.ID != 2 {
		t.Fatalf("expected id 2, got %d", bob.ID)
	}
}

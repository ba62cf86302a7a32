package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
	"github.com/adboard/classifieds/internal/infrastructure/db/memory"
)

var (
	alice = domain.Identity{UserID: 1, Username: "alice", Role: domain.RoleUser}
	bob   = domain.Identity{UserID: 2, Username: "bob", Role: domain.RoleUser}
	root  = domain.Identity{UserID: 3, Username: "root", Role: domain.RoleAdmin}
)

func newTestAdvertisementService() *AdvertisementService {
	return NewAdvertisementService(memory.NewAdvertisementRepository(), memory.NewIdempotencyStore(0), zerolog.Nop())
}

func mustCreateAd(t *testing.T, svc *AdvertisementService, title string, price float64, author domain.Identity) *domain.Advertisement {
	t.Helper()
	res, err := svc.Create(context.Background(), ports.CreateAdvertisementInput{
		Title:       title,
		Description: title + " for sale",
		Price:       price,
		Contacts:    author.Username + "@example.com",
	}, author)
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return res.Advertisement
}

func floatPtr(f float64) *float64 { return &f }

func TestAdvertisementService_Create(t *testing.T) {
	svc := newTestAdvertisementService()
	ctx := context.Background()

	ad := mustCreateAd(t, svc, "Bike", 120, alice)
	if ad.ID != 1 || ad.Author != "alice" || ad.CreatedAt.IsZero() {
		t.Fatalf("unexpected advertisement %+v", ad)
	}

	tests := []struct {
		name string
		in   ports.CreateAdvertisementInput
		who  domain.Identity
		want error
	}{
		{"blank title", ports.CreateAdvertisementInput{Title: "  ", Price: 1}, alice, domain.ErrTitleRequired},
		{"zero price", ports.CreateAdvertisementInput{Title: "x", Price: 0}, alice, domain.ErrInvalidPrice},
		{"negative price", ports.CreateAdvertisementInput{Title: "x", Price: -5}, alice, domain.ErrInvalidPrice},
		{"anonymous", ports.CreateAdvertisementInput{Title: "x", Price: 1}, domain.Identity{}, domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in, tt.who); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAdvertisementService_OwnershipScenario(t *testing.T) {
	svc := newTestAdvertisementService()
	ctx := context.Background()

	ad := mustCreateAd(t, svc, "Bike", 120, alice)

	// Bob is forbidden whatever he sends, including an invalid payload.
	for _, p := range []domain.AdvertisementPatch{
		{Price: floatPtr(100)},
		{Price: floatPtr(-1)},
		{Title: strPtr("")},
		{},
	} {
		if _, err := svc.Update(ctx, ad.ID, p, bob); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden for bob, got %v", err)
		}
	}
	if err := svc.Delete(ctx, ad.ID, bob); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for bob delete, got %v", err)
	}

	updated, err := svc.Update(ctx, ad.ID, domain.AdvertisementPatch{Price: floatPtr(100)}, alice)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Price != 100 || updated.Title != "Bike" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if _, err := svc.Update(ctx, ad.ID, domain.AdvertisementPatch{Price: floatPtr(0)}, alice); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for owner, got %v", err)
	}

	if _, err := svc.Update(ctx, ad.ID, domain.AdvertisementPatch{Title: strPtr("Road bike")}, root); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if err := svc.Delete(ctx, ad.ID, root); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := svc.Get(ctx, ad.ID); !errors.Is(err, domain.ErrAdvertisementNotFound) {
		t.Fatalf("expected ErrAdvertisementNotFound, got %v", err)
	}
}

func TestAdvertisementService_UpdateKeepsProvenance(t *testing.T) {
	svc := newTestAdvertisementService()
	ctx := context.Background()

	ad := mustCreateAd(t, svc, "Bike", 120, alice)

	same, err := svc.Update(ctx, ad.ID, domain.AdvertisementPatch{}, alice)
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if *same != *ad {
		t.Fatalf("empty patch changed the record:\n got %+v\nwant %+v", same, ad)
	}

	updated, err := svc.Update(ctx, ad.ID, domain.AdvertisementPatch{
		Title:       strPtr("Road bike"),
		Description: strPtr("barely used"),
		Contacts:    strPtr("555-0100"),
	}, root)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != ad.ID || updated.Author != "alice" || !updated.CreatedAt.Equal(ad.CreatedAt) {
		t.Fatalf("provenance changed: %+v", updated)
	}
	if updated.Price != ad.Price {
		t.Fatalf("unpatched field changed: %+v", updated)
	}
}

func TestAdvertisementService_Search(t *testing.T) {
	svc := newTestAdvertisementService()
	ctx := context.Background()

	mustCreateAd(t, svc, "Lamp", 15, alice)
	mustCreateAd(t, svc, "Chair", 25, bob)
	mustCreateAd(t, svc, "Table", 12, alice)
	mustCreateAd(t, svc, "Sofa", 18, bob)
	mustCreateAd(t, svc, "Desk", 9, alice)

	t.Run("filters are a conjunction", func(t *testing.T) {
		res, err := svc.Search(ctx, ports.SearchInput{
			Title:    strPtr("a"),
			PriceMin: floatPtr(10),
			PriceMax: floatPtr(20),
			Limit:    20,
		})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		got := titles(res.Items)
		want := []string{"Lamp", "Table", "Sofa"}
		if !equalStrings(got, want) || res.Total != 3 {
			t.Fatalf("expected %v, got %v (total %d)", want, got, res.Total)
		}
	})

	t.Run("author filter is exact", func(t *testing.T) {
		res, _ := svc.Search(ctx, ports.SearchInput{Author: strPtr("bob"), Limit: 20})
		if !equalStrings(titles(res.Items), []string{"Chair", "Sofa"}) {
			t.Fatalf("unexpected result %v", titles(res.Items))
		}
		res, _ = svc.Search(ctx, ports.SearchInput{Author: strPtr("bo"), Limit: 20})
		if res.Total != 0 {
			t.Fatalf("author must match exactly, got %v", titles(res.Items))
		}
	})

	t.Run("pagination window", func(t *testing.T) {
		res, err := svc.Search(ctx, ports.SearchInput{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !equalStrings(titles(res.Items), []string{"Chair", "Table"}) || res.Total != 5 {
			t.Fatalf("unexpected page %v (total %d)", titles(res.Items), res.Total)
		}
		res, _ = svc.Search(ctx, ports.SearchInput{Limit: 10, Offset: 50})
		if len(res.Items) != 0 || res.Items == nil {
			t.Fatalf("offset past the end should return an empty, non-nil page")
		}
	})

	t.Run("invalid pagination", func(t *testing.T) {
		for _, in := range []ports.SearchInput{{Limit: 0}, {Limit: 101}, {Limit: 10, Offset: -1}} {
			if _, err := svc.Search(ctx, in); !errors.Is(err, domain.ErrInvalidPagination) {
				t.Fatalf("expected ErrInvalidPagination for %+v, got %v", in, err)
			}
		}
	})
}

func TestAdvertisementService_IdempotentCreate(t *testing.T) {
	svc := newTestAdvertisementService()
	ctx := context.Background()
	in := ports.CreateAdvertisementInput{Title: "Bike", Price: 120, IdempotencyKey: "req-1"}

	first, err := svc.Create(ctx, in, alice)
	if err != nil || first.AlreadyExisted {
		t.Fatalf("first create: %+v %v", first, err)
	}
	second, err := svc.Create(ctx, in, alice)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.AlreadyExisted || second.Advertisement.ID != first.Advertisement.ID {
		t.Fatalf("expected replay of %d, got %+v", first.Advertisement.ID, second)
	}

	// Keys are scoped per author.
	other, err := svc.Create(ctx, in, bob)
	if err != nil || other.AlreadyExisted || other.Advertisement.Author != "bob" {
		t.Fatalf("bob's create should be independent: %+v %v", other, err)
	}

	res, _ := svc.Search(ctx, ports.SearchInput{Limit: 20})
	if res.Total != 2 {
		t.Fatalf("expected 2 advertisements, got %d", res.Total)
	}
}

func TestAdvertisementService_ConcurrentIdempotentCreate(t *testing.T) {
	svc := newTestAdvertisementService()
	ctx := context.Background()
	in := ports.CreateAdvertisementInput{Title: "Bike", Price: 120, IdempotencyKey: "req-1"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, in, alice)
			if err != nil && !errors.Is(err, domain.ErrIdempotencyInProgress) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	res, _ := svc.Search(ctx, ports.SearchInput{Limit: 20})
	if res.Total != 1 {
		t.Fatalf("expected exactly one advertisement, got %d", res.Total)
	}
}

type failingCompleteStore struct {
	*memory.IdempotencyStore
	released []string
}

func (s *failingCompleteStore) Complete(context.Context, string, int64) error {
	return errors.New("store unavailable")
}

func (s *failingCompleteStore) Release(ctx context.Context, key string) error {
	s.released = append(s.released, key)
	return s.IdempotencyStore.Release(ctx, key)
}

func TestAdvertisementService_FailedCompleteReleasesKey(t *testing.T) {
	store := &failingCompleteStore{IdempotencyStore: memory.NewIdempotencyStore(0)}
	svc := NewAdvertisementService(memory.NewAdvertisementRepository(), store, zerolog.Nop())
	ctx := context.Background()
	in := ports.CreateAdvertisementInput{Title: "Bike", Price: 120, IdempotencyKey: "req-1"}

	first, err := svc.Create(ctx, in, alice)
	if err != nil || first.Advertisement == nil {
		t.Fatalf("create should still succeed: %+v %v", first, err)
	}
	if len(store.released) != 1 || store.released[0] != "1:req-1" {
		t.Fatalf("expected the key to be released, got %v", store.released)
	}

	// The key is free again, so a retry is not stuck behind a pending claim.
	if _, err := svc.Create(ctx, in, alice); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func titles(ads []*domain.Advertisement) []string {
	out := make([]string, 0, len(ads))
	for _, ad := range ads {
		out = append(out, ad.Title)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

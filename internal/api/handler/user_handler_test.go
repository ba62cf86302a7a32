package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/adboard/classifieds/internal/api/middleware"
	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

type stubUserAdmin struct {
	ports.UserService
	listFn   func(ctx context.Context, actor domain.Identity, limit, offset int) (*ports.ListUsersResult, error)
	updateFn func(ctx context.Context, id int64, patch domain.UserPatch, actor domain.Identity) (*domain.User, error)
	deleteFn func(ctx context.Context, id int64, actor domain.Identity) error
}

func (s *stubUserAdmin) List(ctx context.Context, actor domain.Identity, limit, offset int) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, actor, limit, offset)
}

func (s *stubUserAdmin) Update(ctx context.Context, id int64, patch domain.UserPatch, actor domain.Identity) (*domain.User, error) {
	return s.updateFn(ctx, id, patch, actor)
}

func (s *stubUserAdmin) Delete(ctx context.Context, id int64, actor domain.Identity) error {
	return s.deleteFn(ctx, id, actor)
}

func TestUserHandler_List(t *testing.T) {
	e := newTestEcho()
	admin := domain.Identity{UserID: 1, Username: "root", Role: domain.RoleAdmin}
	stub := &stubUserAdmin{
		listFn: func(ctx context.Context, actor domain.Identity, limit, offset int) (*ports.ListUsersResult, error) {
			if actor != admin || limit != 2 || offset != 0 {
				t.Fatalf("unexpected call %+v %d %d", actor, limit, offset)
			}
			return &ports.ListUsersResult{
				Items: []*domain.User{{ID: 1, Username: "root", Role: domain.RoleAdmin}, {ID: 2, Username: "alice", Role: domain.RoleUser}},
				Total: 3, Limit: limit, Offset: offset,
			}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newJSONContext(e, http.MethodGet, "/v1/users?limit=2", "")
	middleware.SetIdentity(c, admin)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Items) != 2 || resp.Total != 3 || resp.Items[1].Username != "alice" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestUserHandler_Update_MapsRole(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserAdmin{
		updateFn: func(ctx context.Context, id int64, patch domain.UserPatch, actor domain.Identity) (*domain.User, error) {
			if patch.Role == nil || *patch.Role != domain.RoleAdmin || patch.Username != nil || patch.Password != nil {
				t.Fatalf("unexpected patch %+v", patch)
			}
			return nil, domain.ErrForbidden
		},
	}
	h := NewUserHandler(stub)

	c, _ := newJSONContext(e, http.MethodPatch, "/v1/users/2", `{"role":"admin"}`)
	c.SetParamNames("id")
	c.SetParamValues("2")
	middleware.SetIdentity(c, testAlice)
	if err := h.Update(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	e := newTestEcho()
	var deleted int64
	stub := &stubUserAdmin{
		deleteFn: func(ctx context.Context, id int64, actor domain.Identity) error {
			deleted = id
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newJSONContext(e, http.MethodDelete, "/v1/users/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	middleware.SetIdentity(c, testAlice)
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || deleted != 1 {
		t.Fatalf("expected 204 for id 1, got %d for id %d", rec.Code, deleted)
	}
}

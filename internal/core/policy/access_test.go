package policy

import (
	"errors"
	"testing"

	"github.com/adboard/classifieds/internal/core/domain"
)

func TestMayMutate(t *testing.T) {
	alice := domain.Identity{UserID: 1, Username: "alice", Role: domain.RoleUser}
	admin := domain.Identity{UserID: 2, Username: "root", Role: domain.RoleAdmin}

	cases := []struct {
		name  string
		actor domain.Identity
		owner string
		want  bool
	}{
		{"owner", alice, "alice", true},
		{"other user", alice, "bob", false},
		{"owner name differs only by case", alice, "Alice", false},
		{"admin on foreign resource", admin, "bob", true},
		{"admin on own resource", admin, "root", true},
		{"anonymous", domain.Identity{}, "alice", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MayMutate(tc.actor, tc.owner); got != tc.want {
				t.Fatalf("MayMutate(%+v, %q) = %v, want %v", tc.actor, tc.owner, got, tc.want)
			}
		})
	}
}

func TestMayChangeRole_NoOwnershipException(t *testing.T) {
	self := domain.Identity{UserID: 1, Username: "alice", Role: domain.RoleUser}
	if MayChangeRole(self) {
		t.Fatalf("non-admin must not change roles, not even their own")
	}
	if !MayChangeRole(domain.Identity{Username: "root", Role: domain.RoleAdmin}) {
		t.Fatalf("admin must be allowed to change roles")
	}
}

func TestAuthorizeMutation(t *testing.T) {
	bob := domain.Identity{UserID: 3, Username: "bob", Role: domain.RoleUser}
	if err := AuthorizeMutation(bob, "alice"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := AuthorizeMutation(bob, "bob"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := AuthorizeRoleChange(bob); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

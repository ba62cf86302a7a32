// Package policy holds the authorization rules shared by the user and
// advertisement directories. Both directories call these functions and never
// evaluate roles or ownership on their own.
package policy

import "github.com/adboard/classifieds/internal/core/domain"

// MayMutate reports whether actor may modify or delete a resource owned by
// ownerUsername: admins may touch anything, everyone else only their own.
func MayMutate(actor domain.Identity, ownerUsername string) bool {
	return actor.Role == domain.RoleAdmin || actor.Username == ownerUsername
}

// MayChangeRole reports whether actor may change any user's role, including
// their own. Ownership grants nothing here.
func MayChangeRole(actor domain.Identity) bool {
	return actor.Role == domain.RoleAdmin
}

// MayAdminister reports whether actor may use admin-only reads such as
// enumerating every user.
func MayAdminister(actor domain.Identity) bool {
	return actor.Role == domain.RoleAdmin
}

// AuthorizeMutation returns domain.ErrForbidden unless MayMutate holds.
func AuthorizeMutation(actor domain.Identity, ownerUsername string) error {
	if !MayMutate(actor, ownerUsername) {
		return domain.ErrForbidden
	}
	return nil
}

// AuthorizeRoleChange returns domain.ErrForbidden unless MayChangeRole holds.
func AuthorizeRoleChange(actor domain.Identity) error {
	if !MayChangeRole(actor) {
		return domain.ErrForbidden
	}
	return nil
}

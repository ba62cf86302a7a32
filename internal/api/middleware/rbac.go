package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/adboard/classifieds/internal/core/domain"
)

// RBAC admits only callers whose role is one of allowedRoles. It must run
// after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return errMissingToken
			}
			if _, ok := allowed[id.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

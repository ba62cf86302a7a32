package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/adboard/classifieds/internal/api/metrics"
	"github.com/adboard/classifieds/internal/core/domain"
)

const identityKey = "identity"

var errMissingToken = fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)

// Authenticator resolves a bearer token to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// Auth requires a valid bearer token and stores the caller's identity in the
// request context. Failures are returned as domain errors for the error handler.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.TokenValidationsTotal.WithLabelValues("missing").Inc()
				return errMissingToken
			}

			id, err := authn.Authenticate(c.Request().Context(), token)
			if err != nil {
				result := "invalid"
				if errors.Is(err, domain.ErrExpiredToken) {
					result = "expired"
				}
				metrics.TokenValidationsTotal.WithLabelValues(result).Inc()
				return err
			}

			metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// SetIdentity stores id as the authenticated caller of c.
func SetIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the identity stored by Auth.
func CurrentIdentity(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok && id.Username != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

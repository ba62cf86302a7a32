package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/adboard/classifieds/internal/api/metrics"
	"github.com/adboard/classifieds/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain error
// kinds to status codes, logs unexpected errors without leaking them, and
// renders {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		switch code {
		case http.StatusUnauthorized:
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, challenge(err))
			metrics.AccessDeniedTotal.WithLabelValues(c.Path(), "unauthorized").Inc()
		case http.StatusForbidden:
			metrics.AccessDeniedTotal.WithLabelValues(c.Path(), "forbidden").Inc()
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	code := statusCode(err)
	switch code {
	case http.StatusForbidden:
		return code, domain.ErrForbidden.Error()
	case http.StatusInternalServerError:
		// Unexpected error: log the real cause, return a generic message.
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("unhandled error")
		return code, "internal server error"
	default:
		return code, err.Error()
	}
}

// statusCode maps err to the HTTP status of its kind.
func statusCode(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// challenge builds the WWW-Authenticate value for a 401 response.
func challenge(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		return `Bearer error="invalid_token", error_description="token has expired"`
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrMissingSubject):
		return `Bearer error="invalid_token"`
	default:
		return "Bearer"
	}
}

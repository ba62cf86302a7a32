package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of these so the
// transport layer can classify failures with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("access forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrAdvertisementNotFound = fmt.Errorf("advertisement %w", ErrNotFound)

	ErrUsernameTaken         = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrIdempotencyInProgress = fmt.Errorf("%w: request with this idempotency key is still in progress", ErrConflict)
	ErrStaleRecord           = fmt.Errorf("%w: record was modified concurrently", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrExpiredToken       = fmt.Errorf("%w: token has expired", ErrUnauthorized)
	ErrMissingSubject     = fmt.Errorf("%w: token has no subject", ErrUnauthorized)

	ErrInvalidPrice      = fmt.Errorf("%w: price must be greater than 0", ErrValidation)
	ErrTitleRequired     = fmt.Errorf("%w: title is required", ErrValidation)
	ErrInvalidPagination = fmt.Errorf("%w: limit must be between 1 and 100 and offset must not be negative", ErrValidation)
	ErrInvalidInput      = fmt.Errorf("%w: username and password are required", ErrValidation)
	ErrInvalidRole       = fmt.Errorf("%w: unknown role", ErrValidation)
)

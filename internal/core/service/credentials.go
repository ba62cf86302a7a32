package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.PasswordHasher = (*BcryptHasher)(nil)

// BcryptHasher hashes passwords with bcrypt. When a pepper is configured the
// plaintext is first run through HMAC-SHA256 keyed by the pepper, which also
// lifts bcrypt's 72-byte input limit.
type BcryptHasher struct {
	cost   int
	pepper []byte
}

// NewBcryptHasher returns a hasher using cost, falling back to
// bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int, pepper string) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, pepper: []byte(pepper)}
}

// Hash returns a salted bcrypt digest of plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(h.prepare(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", domain.ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext produced digest. bcrypt compares the
// derived hashes in constant time; a malformed digest never matches.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), h.prepare(plaintext)) == nil
}

func (h *BcryptHasher) prepare(plaintext string) []byte {
	if len(h.pepper) == 0 {
		return []byte(plaintext)
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)
}

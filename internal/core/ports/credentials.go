package ports

import "time"

// PasswordHasher turns plaintext passwords into salted digests and checks them.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	Subject   string
	UserID    int64 // 0 for tokens issued without a session binding
	Version   int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and validates self-contained session tokens.
type TokenService interface {
	Issue(subject string) (token string, expiresAt time.Time, err error)
	// IssueSession is Issue bound to one user record and its session version.
	IssueSession(subject string, userID, version int64) (token string, expiresAt time.Time, err error)
	// Validate returns the token subject, or one of domain.ErrInvalidToken,
	// domain.ErrExpiredToken, domain.ErrMissingSubject.
	Validate(token string) (string, error)
	// Parse is Validate returning every verified claim.
	Parse(token string) (*TokenClaims, error)
}

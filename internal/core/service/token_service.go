package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

const defaultTokenTTL = 30 * time.Minute

var _ ports.TokenService = (*TokenService)(nil)

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret    string
	Algorithm string // HS256 (default), HS384 or HS512
	Issuer    string
	TTL       time.Duration
}

// TokenService signs and verifies stateless session tokens. The secret is
// fixed at construction and only read afterwards, so no locking is needed.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token service: secret is empty")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token service: unsupported signing algorithm %q", alg)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	s := &TokenService{
		secret: []byte(cfg.Secret),
		method: method,
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// sessionClaims are the registered claims plus the user binding checked by
// AuthService.Authenticate.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID  int64 `json:"uid,omitempty"`
	Version int64 `json:"ver,omitempty"`
}

// Issue signs a token for subject that expires after the configured TTL.
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	return s.IssueSession(subject, 0, 0)
}

// IssueSession signs a token for subject that also names the user record and
// the session version it was issued for.
func (s *TokenService) IssueSession(subject string, userID, version int64) (string, time.Time, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		UserID:  userID,
		Version: version,
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Validate checks signature, algorithm, issuer and expiry and returns the subject.
func (s *TokenService) Validate(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse verifies token and returns its claims.
func (s *TokenService) Parse(token string) (*ports.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, domain.ErrMissingSubject
	}

	out := &ports.TokenClaims{Subject: claims.Subject, UserID: claims.UserID, Version: claims.Version}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	out.ExpiresAt = claims.ExpiresAt.Time
	return out, nil
}

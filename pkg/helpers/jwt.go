package helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
)

// DefaultAccessTTL is used when the manager is built with a non-positive TTL.
const DefaultAccessTTL = 30 * time.Minute

// JWTManager issues and verifies stateless HMAC-signed access tokens.
// It holds no mutable state after construction and is safe for concurrent use.
type JWTManager struct {
	secret    []byte
	method    *jwt.SigningMethodHMAC
	accessTTL time.Duration
	now       func() time.Time
}

type JWTOption func(*JWTManager)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) JWTOption {
	return func(m *JWTManager) { m.now = now }
}

// NewJWTManager builds a manager for the named HMAC algorithm (HS256, HS384 or HS512).
func NewJWTManager(secret, algorithm string, accessTTL time.Duration, opts ...JWTOption) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	m := &JWTManager{
		secret:    []byte(secret),
		method:    method,
		accessTTL: accessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Claims is the token payload. Unknown claims are ignored on decode.
type Claims struct {
	jwt.RegisteredClaims
}

func (m *JWTManager) AccessTTL() time.Duration { return m.accessTTL }

func (m *JWTManager) Algorithm() string { return m.method.Alg() }

// Issue signs a token for subject that expires after the default access TTL.
func (m *JWTManager) Issue(subject string) (string, time.Time, error) {
	return m.IssueWithTTL(subject, m.accessTTL)
}

// IssueWithTTL signs a token for subject that expires ttl from now. A zero or
// negative ttl yields a token that is already expired.
func (m *JWTManager) IssueWithTTL(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("jwt subject must not be empty")
	}
	now := m.now()
	exp := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(m.method, claims)
	s, err := t.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify checks signature, algorithm and expiry and returns the token subject.
// It fails with ErrExpiredToken or ErrInvalidToken.
func (m *JWTManager) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

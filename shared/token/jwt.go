// Package token issues and verifies the HS256 access tokens that carry a
// user's email as the identity claim.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/fintrack/shared/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access"

// Claims is the JWT payload. Subject holds the user's email.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Email returns the identity claim.
func (c *Claims) Email() string {
	return c.Subject
}

// Manager signs and verifies tokens with a single process-wide secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	m := &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue returns a signed access token for email.
func (m *Manager) Issue(email string) (string, error) {
	now := m.now()
	claims := Claims{
		Type: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns its claims. Failures are *apperr.Error:
// expiry is an Authentication error, everything else is TokenMalformed.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Type != accessTokenType {
		return nil, apperr.NewTokenMalformed("Only access tokens are allowed")
	}
	if claims.Subject == "" {
		return nil, apperr.NewTokenMalformed("Missing claim: sub")
	}
	return claims, nil
}

func classify(err error) *apperr.Error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperr.NewTokenMalformed("Token is malformed")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.NewTokenMalformed("Signature verification failed")
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.NewAuthentication("Token has expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return apperr.NewTokenMalformed("Token is not yet valid")
	default:
		return apperr.NewTokenMalformed("Invalid token")
	}
}

// Package auth issues and verifies the bearer tokens that guard the AJAX
// endpoints when a signing secret is configured.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is the iss claim of tokens issued by dispatch
const DefaultIssuer = "dispatch"

var (
	// ErrUnauthorized is returned for missing, malformed or invalid tokens
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a valid token does not grant a module
	ErrForbidden = errors.New("forbidden")
)

// Claims are the JWT claims of a dispatch token. An empty Modules list
// grants every module.
type Claims struct {
	jwt.RegisteredClaims
	Modules []string `json:"modules,omitempty"`
}

// Allows reports whether the claims grant access to module
func (c *Claims) Allows(module string) bool {
	if c == nil {
		return false
	}
	return len(c.Modules) == 0 || slices.Contains(c.Modules, "*") || slices.Contains(c.Modules, module)
}

// TokenService signs and validates HS256 tokens
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A zero ttl issues tokens
// without an expiry.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret cannot be empty")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL is the lifetime of issued tokens, zero when they never expire
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject limited to modules
func (s *TokenService) Issue(subject string, modules ...string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject cannot be empty")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Modules: modules,
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString and returns its claims. Every failure wraps
// ErrUnauthorized.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	return claims, nil
}

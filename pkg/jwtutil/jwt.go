package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"projecthub/internal/model"
	"projecthub/pkg/config"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong algorithm, malformed input or past expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims is the payload encoded into a session token. TenantID
// is nil for super admins.
type SessionClaims struct {
	UserID   uint       `json:"user_id"`
	TenantID *uint      `json:"tenant_id,omitempty"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWT issues and verifies signed session tokens. The signing key and
// lifetime are injected at construction and never read from ambient
// state.
type JWT struct {
	signingKey []byte
	lifetime   time.Duration
}

// New creates a token codec from configuration. A zero or negative
// expiration falls back to 24 hours.
func New(cfg *config.JWTConfig) *JWT {
	hours := cfg.ExpirationHours
	if hours <= 0 {
		hours = 24
	}
	return &JWT{
		signingKey: []byte(cfg.SigningKey),
		lifetime:   time.Duration(hours) * time.Hour,
	}
}

// Issue creates a signed session token for the given subject.
func (j *JWT) Issue(userID uint, tenantID *uint, role model.Role) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.signingKey)
}

// Verify validates the token signature and expiry and returns the
// decoded claims. Every failure mode collapses into ErrInvalidToken.
func (j *JWT) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return j.signingKey, nil
		},
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Lifetime reports the configured token lifetime. Exposed so login
// responses can tell clients when to expect expiry.
func (j *JWT) Lifetime() time.Duration {
	return j.lifetime
}

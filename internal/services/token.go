package services

import (
	"fmt"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the access token claims the client reads for display and expiry checks.
type SessionClaims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
}

// Expired reports whether the token's exp has passed at now.
func (c *SessionClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseSessionClaims decodes an access token's claims without verifying its signature.
//
// Verification belongs to the backend; the client only inspects sub and exp.
func ParseSessionClaims(token string) (*SessionClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed access token: %v", shared.ErrInvalidInput, err)
	}

	sc := &SessionClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		sc.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sc.ExpiresAt = exp.Time
	}
	return sc, nil
}

// TokenExpired reports whether token is a JWT whose exp has passed.
// Opaque (non-JWT) tokens are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	claims, err := ParseSessionClaims(token)
	if err != nil {
		return false
	}
	return claims.Expired(now)
}

// Package token signs and verifies the compact session tokens that assert
// a user's identity and role for a bounded time window. The codec is pure:
// no I/O beyond the signing secret and the clock.
package token

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tesfahiwot/portal/internal/authz"
)

// Claims is the signed payload of a session token. Identity and role travel
// inside the signature; anything read from a token that failed verification
// must be treated as absent, never partially trusted.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HS256-signed session tokens with a fixed secret.
// Safe for concurrent use; the secret is read-only after construction.
type Codec struct {
	secret []byte

	// now is replaceable in tests to exercise expiry without sleeping.
	now func() time.Time
}

// NewCodec creates a codec with the given signing secret. Secret strength
// is enforced by config at startup, not re-checked here.
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Mint produces a signed token for the given identity, expiring ttl from
// now. The subject, email, display name, and role are embedded as claims.
func (c *Codec) Mint(subject, email, name string, role authz.Role, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %v", ttl)
	}

	now := c.now()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token. It returns (claims, true) only when
// the signature, structure, and expiry all check out. Every failure --
// forged signature, garbage input, wrong algorithm, expired exp -- collapses
// to (nil, false): callers must not be able to distinguish an expired token
// from a forged one, since both must produce identical access denial. The
// cause is logged at debug level only.
func (c *Codec) Verify(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		slog.Debug("token rejected", slog.Any("reason", err))
		return nil, false
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		slog.Debug("token rejected", slog.String("reason", "invalid claims"))
		return nil, false
	}

	return claims, true
}

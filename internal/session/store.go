// Package session persists and publishes the authenticated session. A
// session lives in two places at once: a Redis record holding the user
// snapshot (the durable store) and the auth_token cookie carrying the
// signed token (visible to every request). The Store is the only writer
// for both, so they cannot drift apart through independent call sites.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tesfahiwot/portal/internal/authz"
)

// CookieName is the session cookie. The value is the signed token string;
// no other cookie is part of the access-control core.
const CookieName = "auth_token"

// sessionKeyPrefix is the Redis key prefix for session snapshots.
const sessionKeyPrefix = "session:"

// User is the cached snapshot of an account carried by a session. Owned by
// the accounts backend; the session layer only caches it for the lifetime
// of the token and never mutates it in place.
type User struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  authz.Role `json:"role"`
}

// HasRole reports whether this user's role satisfies min. A nil user holds
// no privilege. This is the only role comparison handlers should ever use.
func (u *User) HasRole(min authz.Role) bool {
	if u == nil {
		return false
	}
	return authz.HasRole(u.Role, min)
}

// Store writes and reads the two session locations. All methods are safe
// for concurrent use.
type Store struct {
	redis *redis.Client

	// secure controls the cookie's Secure attribute (production only).
	secure bool
}

// NewStore creates a session store on the given Redis client.
func NewStore(rdb *redis.Client, secureCookies bool) *Store {
	return &Store{redis: rdb, secure: secureCookies}
}

// Save establishes a session: the snapshot goes to Redis first, and only
// on success is the cookie set. If the Redis write fails, no cookie is
// written and the session is not established -- callers never observe a
// half-written session.
func (s *Store) Save(c echo.Context, rawToken string, user *User, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshaling session snapshot: %w", err)
	}

	key := sessionKeyPrefix + rawToken
	if err := s.redis.Set(c.Request().Context(), key, data, ttl).Err(); err != nil {
		return fmt.Errorf("storing session in redis: %w", err)
	}

	s.setCookie(c, rawToken, int(ttl.Seconds()))
	return nil
}

// Load returns the raw token from the request cookie, or "" when absent.
// Presence of a token is not a session: it still has to verify and match
// the durable record.
func (s *Store) Load(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// CurrentUser reads the cached snapshot for a token. Returns (nil, nil)
// when no record exists. This is a cache read, not an authorization
// decision -- only the route gate's verified-token path is authoritative.
func (s *Store) CurrentUser(ctx context.Context, rawToken string) (*User, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+rawToken).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from redis: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("unmarshaling session snapshot: %w", err)
	}
	return &user, nil
}

// Clear removes both session locations: the Redis record is deleted and
// the cookie expired immediately. Idempotent -- clearing an absent session
// is a no-op, not an error.
func (s *Store) Clear(c echo.Context, rawToken string) error {
	if rawToken != "" {
		if err := s.redis.Del(c.Request().Context(), sessionKeyPrefix+rawToken).Err(); err != nil {
			// The cookie is expired regardless; an unreachable Redis must not
			// leave the browser holding a live-looking session.
			slog.Warn("failed to delete session record",
				slog.Any("error", err),
			)
		}
	}

	s.setCookie(c, "", -1)
	return nil
}

// setCookie writes the auth_token cookie. SameSite=Strict keeps the token
// off cross-site requests entirely; Secure is set in production where TLS
// terminates upstream.
func (s *Store) setCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

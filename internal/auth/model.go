// Package auth implements the login flow for the portal: credential
// verification against the accounts table, session minting, and the HTTP
// handlers for login/logout/me. Route enforcement itself lives in the
// middleware package; this package only establishes and tears down sessions.
package auth

import (
	"time"

	"github.com/tesfahiwot/portal/internal/authz"
	"github.com/tesfahiwot/portal/internal/session"
)

// Account is an administrative account as stored in MariaDB. This is the
// system of record; sessions only carry a snapshot of it.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	Role         authz.Role `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Snapshot converts the account to the session-cached user record.
func (a *Account) Snapshot() *session.User {
	return &session.User{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.DisplayName,
		Role:  a.Role,
	}
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
}

// CreateAccountRequest holds the data submitted to the accounts API.
type CreateAccountRequest struct {
	Email       string `json:"email" form:"email"`
	DisplayName string `json:"display_name" form:"display_name"`
	Password    string `json:"password" form:"password"`
	Role        string `json:"role" form:"role"`
}

// --- Service Input DTOs (passed from handler to service) ---

// LoginInput is the validated input for authenticating an account.
// Remember only stretches the session lifetime; it never changes what is
// validated.
type LoginInput struct {
	Email     string
	Password  string
	Remember  bool
	IPAddress string
	UserAgent string
}

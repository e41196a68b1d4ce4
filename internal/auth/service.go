package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesfahiwot/portal/internal/apperror"
	"github.com/tesfahiwot/portal/internal/audit"
	"github.com/tesfahiwot/portal/internal/authz"
	"github.com/tesfahiwot/portal/internal/session"
	"github.com/tesfahiwot/portal/internal/token"
)

// Service defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	RecordLogout(ctx context.Context, user *session.User, ip, userAgent string)
	CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
}

// LoginResult is what a successful authentication yields: the minted token,
// the user snapshot to cache, and the lifetime both must share.
type LoginResult struct {
	Token string
	User  *session.User
	TTL   time.Duration
}

// CreateAccountInput is the validated input for provisioning an account.
type CreateAccountInput struct {
	Email       string
	DisplayName string
	Password    string
	Role        string
}

// service implements Service with argon2id hashing and JWT session tokens.
type service struct {
	repo        AccountRepository
	codec       *token.Codec
	audit       audit.Recorder
	sessionTTL  time.Duration
	rememberTTL time.Duration
}

// NewService creates the auth service with the given dependencies. The
// audit recorder may be nil; events are then dropped.
func NewService(repo AccountRepository, codec *token.Codec, rec audit.Recorder, sessionTTL, rememberTTL time.Duration) Service {
	return &service{
		repo:        repo,
		codec:       codec,
		audit:       rec,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
	}
}

// Login authenticates an account by email and password and mints a session
// token. Every rejection -- unknown email, wrong password, deactivated
// account -- returns the identical apperror.NewInvalidCredentials() so the
// response can't be used to probe which emails have accounts. The real
// reason goes to the audit log only.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	// Cheap local check before touching the database.
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, apperror.NewValidation("email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			// Burn the same argon2 cost as a real verification so response
			// timing doesn't reveal whether the email has an account.
			verifyPassword(input.Password, timingDummyHash)
			s.recordFailure(ctx, input, email, "unknown email")
			return nil, apperror.NewInvalidCredentials()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	if !verifyPassword(input.Password, acct.PasswordHash) {
		s.recordFailure(ctx, input, email, "wrong password")
		return nil, apperror.NewInvalidCredentials()
	}

	if !acct.IsActive {
		s.recordFailure(ctx, input, email, "account deactivated")
		return nil, apperror.NewInvalidCredentials()
	}

	ttl := s.sessionTTL
	if input.Remember {
		ttl = s.rememberTTL
	}

	raw, err := s.codec.Mint(acct.ID, acct.Email, acct.DisplayName, acct.Role, ttl)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("minting session token: %w", err))
	}

	// Update the last login timestamp (fire-and-forget, non-critical).
	if err := s.repo.UpdateLastLogin(ctx, acct.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("account_id", acct.ID),
			slog.Any("error", err),
		)
	}

	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			EventType: audit.EventLoginSuccess,
			AccountID: acct.ID,
			Email:     acct.Email,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		})
	}

	slog.Info("login succeeded",
		slog.String("account_id", acct.ID),
		slog.String("email", acct.Email),
	)

	return &LoginResult{
		Token: raw,
		User:  acct.Snapshot(),
		TTL:   ttl,
	}, nil
}

// RecordLogout notes a logout in the audit log. Tolerates a nil user: a
// logout without a session is a no-op worth nothing in the log.
func (s *service) RecordLogout(ctx context.Context, user *session.User, ip, userAgent string) {
	if user == nil || s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventLogout,
		AccountID: user.ID,
		Email:     user.Email,
		IPAddress: ip,
		UserAgent: userAgent,
	})
}

// CreateAccount provisions a new administrative account. Called from the
// seed command (cmd/seed) and the superadmin-gated accounts API.
func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, apperror.NewValidation("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperror.NewValidation("password must be at least 8 characters")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	acct := &Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hash,
		Role:         parseRequestedRole(input.Role),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating account: %w", err))
	}

	slog.Info("account created",
		slog.String("account_id", acct.ID),
		slog.String("email", acct.Email),
		slog.String("role", acct.Role.String()),
	)

	return acct, nil
}

// GetAccount returns a single account by ID for the accounts API.
func (s *service) GetAccount(ctx context.Context, id string) (*Account, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}
	return acct, nil
}

// parseRequestedRole maps the requested role string to the typed hierarchy.
// An unrecognized role falls back to the least-privileged one rather than
// failing the whole account creation.
func parseRequestedRole(s string) authz.Role {
	if r := authz.ParseRole(s); r != authz.RoleUnknown {
		return r
	}
	return authz.RoleVolunteer
}

// recordFailure logs a rejected login with its real reason. The reason
// stays internal; the caller sees only the generic credentials error.
func (s *service) recordFailure(ctx context.Context, input LoginInput, email, reason string) {
	slog.Warn("login rejected",
		slog.String("email", email),
		slog.String("reason", reason),
	)
	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			EventType: audit.EventLoginFailed,
			Email:     email,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			Detail:    reason,
		})
	}
}

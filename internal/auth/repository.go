package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tesfahiwot/portal/internal/apperror"
	"github.com/tesfahiwot/portal/internal/authz"
)

// AccountRepository defines the data access contract for account lookups.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type AccountRepository interface {
	Create(ctx context.Context, acct *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// accountRepository implements AccountRepository with hand-written MariaDB
// queries.
type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates an account repository backed by the given DB pool.
func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts a new account row. Used by the seed command and by
// superadmin account management.
func (r *accountRepository) Create(ctx context.Context, acct *Account) error {
	query := `INSERT INTO accounts (id, email, display_name, password_hash, role, is_active, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		acct.ID,
		acct.Email,
		acct.DisplayName,
		acct.PasswordHash,
		acct.Role.String(),
		acct.IsActive,
		acct.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}

	return nil
}

// FindByID retrieves an account by its UUID.
// Returns apperror.NotFound if no account exists with this ID.
func (r *accountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	return r.findBy(ctx, "id", id)
}

// FindByEmail retrieves an account by its email address.
// Returns apperror.NotFound if no account exists with this email.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findBy(ctx, "email", email)
}

func (r *accountRepository) findBy(ctx context.Context, column, value string) (*Account, error) {
	query := `SELECT id, email, display_name, password_hash, role, is_active, created_at, last_login_at
	          FROM accounts WHERE ` + column + ` = ?`

	acct := &Account{}
	var role string
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&acct.ID,
		&acct.Email,
		&acct.DisplayName,
		&acct.PasswordHash,
		&role,
		&acct.IsActive,
		&acct.CreatedAt,
		&acct.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by %s: %w", column, err)
	}

	// Role strings never escape this scan; everything downstream works with
	// the typed hierarchy. A corrupted role column degrades to RoleUnknown,
	// which holds no privilege.
	acct.Role = authz.ParseRole(role)

	return acct, nil
}

// UpdateLastLogin sets the last_login_at timestamp to now for the given account.
func (r *accountRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE accounts SET last_login_at = NOW() WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}

	return nil
}

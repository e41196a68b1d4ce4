package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tesfahiwot/portal/internal/apperror"
	"github.com/tesfahiwot/portal/internal/audit"
	"github.com/tesfahiwot/portal/internal/authz"
	"github.com/tesfahiwot/portal/internal/token"
)

// --- Mock Repository ---

// mockAccountRepo implements AccountRepository for testing.
type mockAccountRepo struct {
	createFn          func(ctx context.Context, acct *Account) error
	findByIDFn        func(ctx context.Context, id string) (*Account, error)
	findByEmailFn     func(ctx context.Context, email string) (*Account, error)
	updateLastLoginFn func(ctx context.Context, id string) error
}

func (m *mockAccountRepo) Create(ctx context.Context, acct *Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, acct)
	}
	return nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*Account, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("account not found")
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("account not found")
}

func (m *mockAccountRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

// --- Mock Audit Recorder ---

// recorderSpy captures recorded events for assertions.
type recorderSpy struct {
	events []audit.Event
}

func (r *recorderSpy) Record(_ context.Context, ev audit.Event) {
	r.events = append(r.events, ev)
}

// --- Helpers ---

const (
	testSessionTTL  = time.Hour
	testRememberTTL = 30 * 24 * time.Hour
)

func newTestService(repo AccountRepository, rec audit.Recorder) (Service, *token.Codec) {
	codec := token.NewCodec("test-secret-key-for-service-tests")
	return NewService(repo, codec, rec, testSessionTTL, testRememberTTL), codec
}

// testAccount returns an active account whose password is "correct-password".
func testAccount(t *testing.T) *Account {
	t.Helper()
	hash, err := hashPassword("correct-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	return &Account{
		ID:           "acct-1",
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: hash,
		Role:         authz.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

func credentialsError(t *testing.T, err error) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	acct := testAccount(t)
	lastLoginUpdated := false
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized email, got %s", email)
			}
			return acct, nil
		},
		updateLastLoginFn: func(ctx context.Context, id string) error {
			lastLoginUpdated = true
			return nil
		},
	}
	rec := &recorderSpy{}

	svc, codec := newTestService(repo, rec)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "  Alice@Example.COM  ",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.User == nil || result.User.ID != "acct-1" {
		t.Fatalf("expected user snapshot for acct-1, got %+v", result.User)
	}
	if result.User.Role != authz.RoleAdmin {
		t.Errorf("expected ADMIN role, got %s", result.User.Role)
	}
	if result.TTL != testSessionTTL {
		t.Errorf("expected session TTL %v, got %v", testSessionTTL, result.TTL)
	}

	// The minted token must verify and carry the account's identity.
	claims, ok := codec.Verify(result.Token)
	if !ok {
		t.Fatal("expected minted token to verify")
	}
	if claims.Subject != "acct-1" {
		t.Errorf("expected subject acct-1, got %s", claims.Subject)
	}

	if !lastLoginUpdated {
		t.Error("expected last login timestamp to be updated")
	}
	if len(rec.events) != 1 || rec.events[0].EventType != audit.EventLoginSuccess {
		t.Errorf("expected one login.success event, got %+v", rec.events)
	}
}

func TestLogin_RememberExtendsTTL(t *testing.T) {
	acct := testAccount(t)
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return acct, nil
		},
	}

	svc, _ := newTestService(repo, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
		Remember: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TTL != testRememberTTL {
		t.Errorf("expected remember TTL %v, got %v", testRememberTTL, result.TTL)
	}
}

func TestLogin_EmptyCredentials(t *testing.T) {
	svc, _ := newTestService(&mockAccountRepo{}, nil)

	for _, input := range []LoginInput{
		{Email: "", Password: "something"},
		{Email: "alice@example.com", Password: ""},
		{Email: "   ", Password: "something"},
	} {
		_, err := svc.Login(context.Background(), input)
		appErr := credentialsError(t, err)
		if appErr.Type != "validation_error" {
			t.Errorf("expected validation error for %+v, got %v", input, appErr)
		}
	}
}

// The rejection for unknown email, wrong password, and a deactivated
// account must be byte-identical, otherwise responses leak which emails
// have accounts.
func TestLogin_RejectionsAreIndistinguishable(t *testing.T) {
	acct := testAccount(t)
	inactive := testAccount(t)
	inactive.IsActive = false

	cases := []struct {
		name string
		repo *mockAccountRepo
		in   LoginInput
	}{
		{
			name: "unknown email",
			repo: &mockAccountRepo{}, // FindByEmail defaults to not found.
			in:   LoginInput{Email: "nobody@example.com", Password: "whatever"},
		},
		{
			name: "wrong password",
			repo: &mockAccountRepo{
				findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
					return acct, nil
				},
			},
			in: LoginInput{Email: "alice@example.com", Password: "wrong-password"},
		},
		{
			name: "deactivated account",
			repo: &mockAccountRepo{
				findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
					return inactive, nil
				},
			},
			in: LoginInput{Email: "alice@example.com", Password: "correct-password"},
		},
	}

	var messages []string
	var codes []int
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(tc.repo, nil)
			_, err := svc.Login(context.Background(), tc.in)
			appErr := credentialsError(t, err)
			messages = append(messages, appErr.Message)
			codes = append(codes, appErr.Code)
		})
	}

	for i := 1; i < len(messages); i++ {
		if messages[i] != messages[0] || codes[i] != codes[0] {
			t.Errorf("rejection %d differs from rejection 0: %q/%d vs %q/%d",
				i, messages[i], codes[i], messages[0], codes[0])
		}
	}
}

func TestLogin_FailuresAreAudited(t *testing.T) {
	acct := testAccount(t)
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return acct, nil
		},
	}
	rec := &recorderSpy{}

	svc, _ := newTestService(repo, rec)
	_, err := svc.Login(context.Background(), LoginInput{
		Email:     "alice@example.com",
		Password:  "wrong-password",
		IPAddress: "203.0.113.9",
	})
	credentialsError(t, err)

	if len(rec.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.EventType != audit.EventLoginFailed {
		t.Errorf("expected login.failed event, got %s", ev.EventType)
	}
	if ev.IPAddress != "203.0.113.9" {
		t.Errorf("expected IP to be recorded, got %q", ev.IPAddress)
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc, _ := newTestService(repo, nil)
	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	appErr := credentialsError(t, err)
	if appErr.Type != "internal_error" {
		t.Errorf("expected internal error for repo failure, got %v", appErr)
	}
}

func TestLogin_LastLoginFailureDoesNotBlock(t *testing.T) {
	acct := testAccount(t)
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return acct, nil
		},
		updateLastLoginFn: func(ctx context.Context, id string) error {
			return errors.New("deadlock")
		},
	}

	svc, _ := newTestService(repo, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("expected login to succeed despite last-login failure, got %v", err)
	}
	if result.Token == "" {
		t.Error("expected a minted token")
	}
}

// Both rejection branches must pay the argon2 cost: if the unknown-email
// path skipped hashing, its response would return orders of magnitude
// faster than a wrong-password rejection and timing alone would reveal
// which emails have accounts. The hash work (64 MB, 3 passes) dwarfs
// everything else in either path, so the comparison is stable.
func TestLogin_UnknownEmailPaysHashCost(t *testing.T) {
	acct := testAccount(t)
	knownRepo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return acct, nil
		},
	}
	svcKnown, _ := newTestService(knownRepo, nil)
	svcUnknown, _ := newTestService(&mockAccountRepo{}, nil)

	// Warm up allocators and caches before measuring.
	_, _ = svcKnown.Login(context.Background(), LoginInput{
		Email: "alice@example.com", Password: "wrong-password",
	})

	start := time.Now()
	_, err := svcKnown.Login(context.Background(), LoginInput{
		Email: "alice@example.com", Password: "wrong-password",
	})
	wrongDur := time.Since(start)
	credentialsError(t, err)

	start = time.Now()
	_, err = svcUnknown.Login(context.Background(), LoginInput{
		Email: "nobody@example.com", Password: "wrong-password",
	})
	unknownDur := time.Since(start)
	credentialsError(t, err)

	if unknownDur < wrongDur/3 {
		t.Errorf("unknown-email rejection returned in %v vs %v for wrong password; timing reveals account existence", unknownDur, wrongDur)
	}
}

// --- Account Lookup ---

func TestGetAccount(t *testing.T) {
	acct := testAccount(t)
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			if id != "acct-1" {
				t.Errorf("expected lookup for acct-1, got %s", id)
			}
			return acct, nil
		},
	}

	svc, _ := newTestService(repo, nil)
	got, err := svc.GetAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("expected alice@example.com, got %s", got.Email)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	svc, _ := newTestService(&mockAccountRepo{}, nil)

	_, err := svc.GetAccount(context.Background(), "missing")
	appErr := credentialsError(t, err)
	if appErr.Code != 404 {
		t.Errorf("expected 404 for unknown account, got %d", appErr.Code)
	}
}

// --- Logout ---

func TestRecordLogout(t *testing.T) {
	rec := &recorderSpy{}
	svc, _ := newTestService(&mockAccountRepo{}, rec)

	svc.RecordLogout(context.Background(), testAccount(t).Snapshot(), "203.0.113.9", "curl/8")
	if len(rec.events) != 1 || rec.events[0].EventType != audit.EventLogout {
		t.Fatalf("expected one logout event, got %+v", rec.events)
	}

	// A nil user records nothing.
	svc.RecordLogout(context.Background(), nil, "", "")
	if len(rec.events) != 1 {
		t.Error("expected nil-user logout to record nothing")
	}
}

// --- Account Creation ---

func TestCreateAccount_Success(t *testing.T) {
	var created *Account
	repo := &mockAccountRepo{
		createFn: func(ctx context.Context, acct *Account) error {
			created = acct
			return nil
		},
	}

	svc, _ := newTestService(repo, nil)
	acct, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Email:       "Bob@Example.com",
		DisplayName: "Bob",
		Password:    "secure-password-123",
		Role:        "superadmin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected account to be persisted")
	}
	if acct.Email != "bob@example.com" {
		t.Errorf("expected normalized email, got %s", acct.Email)
	}
	if acct.Role != authz.RoleSuperAdmin {
		t.Errorf("expected SUPERADMIN role, got %s", acct.Role)
	}
	if !verifyPassword("secure-password-123", acct.PasswordHash) {
		t.Error("expected stored hash to verify the password")
	}
}

func TestCreateAccount_ShortPassword(t *testing.T) {
	svc, _ := newTestService(&mockAccountRepo{}, nil)
	_, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Email:    "bob@example.com",
		Password: "short",
	})
	appErr := credentialsError(t, err)
	if appErr.Type != "validation_error" {
		t.Errorf("expected validation error, got %v", appErr)
	}
}

func TestCreateAccount_UnknownRoleFallsBack(t *testing.T) {
	svc, _ := newTestService(&mockAccountRepo{}, nil)
	acct, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Email:    "carol@example.com",
		Password: "secure-password-123",
		Role:     "overlord",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Role != authz.RoleVolunteer {
		t.Errorf("expected fallback to VOLUNTEER, got %s", acct.Role)
	}
}

// --- Password Hashing ---

func TestHashAndVerifyPassword(t *testing.T) {
	password := "my-secret-password-123"

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}

	// Correct password should verify.
	if !verifyPassword(password, hash) {
		t.Error("expected correct password to verify")
	}

	// Wrong password should not verify.
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random text", "not-a-hash"},
		{"too few parts", "$argon2id$v=19$m=65536"},
		{"corrupted salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!invalid$aGFzaA"},
		{"corrupted hash", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyPassword("password", tt.hash) {
				t.Error("expected invalid hash to fail verification")
			}
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	hash2, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("expected different salts to produce different hashes")
	}
}

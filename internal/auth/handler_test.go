package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tesfahiwot/portal/internal/apperror"
	"github.com/tesfahiwot/portal/internal/authz"
	"github.com/tesfahiwot/portal/internal/session"
)

// --- Mock Service ---

// mockService implements Service for handler tests.
type mockService struct {
	loginFn         func(ctx context.Context, input LoginInput) (*LoginResult, error)
	createAccountFn func(ctx context.Context, input CreateAccountInput) (*Account, error)
	getAccountFn    func(ctx context.Context, id string) (*Account, error)
}

func (m *mockService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, input)
	}
	return nil, apperror.NewInvalidCredentials()
}

func (m *mockService) RecordLogout(context.Context, *session.User, string, string) {}

func (m *mockService) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, input)
	}
	return nil, apperror.NewInternal(nil)
}

func (m *mockService) GetAccount(ctx context.Context, id string) (*Account, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(ctx, id)
	}
	return nil, apperror.NewNotFound("account not found")
}

// jsonRequest builds an Echo context carrying a JSON body.
func jsonRequest(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// --- Accounts API ---

func TestHandler_CreateAccount(t *testing.T) {
	var created CreateAccountInput
	svc := &mockService{
		createAccountFn: func(ctx context.Context, input CreateAccountInput) (*Account, error) {
			created = input
			return &Account{
				ID:           "acct-new",
				Email:        "bob@example.com",
				DisplayName:  "Bob",
				PasswordHash: "$argon2id$...",
				Role:         authz.RoleAdmin,
				IsActive:     true,
			}, nil
		},
	}
	h := NewHandler(svc, nil)

	c, rec := jsonRequest(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"Bob@Example.com","display_name":"Bob","password":"secure-password-123","role":"admin"}`)
	if err := h.CreateAccount(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if created.Email != "Bob@Example.com" || created.Role != "admin" {
		t.Errorf("service received unexpected input: %+v", created)
	}

	// The stored hash must never appear in the response.
	if strings.Contains(rec.Body.String(), "argon2id") {
		t.Error("response leaked the password hash")
	}

	var body struct {
		Account *Account `json:"account"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Account == nil || body.Account.ID != "acct-new" {
		t.Errorf("expected created account in body, got %+v", body.Account)
	}
}

func TestHandler_CreateAccount_ServiceErrorPassesThrough(t *testing.T) {
	svc := &mockService{
		createAccountFn: func(ctx context.Context, input CreateAccountInput) (*Account, error) {
			return nil, apperror.NewValidation("password must be at least 8 characters")
		},
	}
	h := NewHandler(svc, nil)

	c, _ := jsonRequest(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"bob@example.com","password":"short"}`)
	err := h.CreateAccount(c)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if apperror.SafeCode(err) != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", apperror.SafeCode(err))
	}
}

func TestHandler_GetAccount(t *testing.T) {
	svc := &mockService{
		getAccountFn: func(ctx context.Context, id string) (*Account, error) {
			if id != "acct-1" {
				t.Errorf("expected lookup for acct-1, got %s", id)
			}
			return &Account{ID: "acct-1", Email: "alice@example.com", Role: authz.RoleAdmin}, nil
		},
	}
	h := NewHandler(svc, nil)

	c, rec := jsonRequest(t, http.MethodGet, "/api/v1/accounts/acct-1", "")
	c.SetParamNames("id")
	c.SetParamValues("acct-1")
	if err := h.GetAccount(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Account *Account `json:"account"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Account == nil || body.Account.Email != "alice@example.com" {
		t.Errorf("expected account in body, got %+v", body.Account)
	}
}

func TestHandler_GetAccount_NotFound(t *testing.T) {
	h := NewHandler(&mockService{}, nil)

	c, _ := jsonRequest(t, http.MethodGet, "/api/v1/accounts/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.GetAccount(c)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if apperror.SafeCode(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %d", apperror.SafeCode(err))
	}
}

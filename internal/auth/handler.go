package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tesfahiwot/portal/internal/apperror"
	"github.com/tesfahiwot/portal/internal/session"
)

// Handler handles HTTP requests for authentication (login, logout, me).
// Handlers are thin: they bind the request, call the service, and render the
// response. No business logic lives here.
type Handler struct {
	service Service
	store   *session.Store
}

// NewHandler creates a new auth handler with the given service and session store.
func NewHandler(service Service, store *session.Store) *Handler {
	return &Handler{service: service, store: store}
}

// Login processes a login submission (POST /auth/login). On success it
// persists the session snapshot and sets the cookie in one step, so the two
// locations can't drift apart, then announces the user to the request's
// session context.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	input := LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		Remember:  req.Remember,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}

	result, err := h.service.Login(c.Request().Context(), input)
	if err != nil {
		return err
	}

	// Store snapshot first, cookie second. If the snapshot write fails the
	// browser never learns the token, so there is no half-established session
	// to clean up.
	if err := h.store.Save(c, result.Token, result.User, result.TTL); err != nil {
		return apperror.NewInternal(err)
	}

	if sc := session.FromEcho(c); sc != nil {
		sc.Publish(result.Token, result.User)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user": result.User,
	})
}

// Logout tears down the session (POST /auth/logout). Idempotent: logging out
// without a session succeeds with the same response.
func (h *Handler) Logout(c echo.Context) error {
	sc := session.FromEcho(c)
	if sc != nil {
		user := sc.Current()
		if err := sc.Logout(c); err != nil {
			return apperror.NewInternal(err)
		}
		h.service.RecordLogout(c.Request().Context(), user, c.RealIP(), c.Request().UserAgent())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"logged_out": true,
	})
}

// CreateAccount provisions an account (POST /api/v1/accounts). The route
// table declares this prefix superadmin-only; the gate enforces it before
// the handler runs.
func (h *Handler) CreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	acct, err := h.service.CreateAccount(c.Request().Context(), CreateAccountInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"account": acct,
	})
}

// GetAccount returns one account (GET /api/v1/accounts/:id).
func (h *Handler) GetAccount(c echo.Context) error {
	acct, err := h.service.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"account": acct,
	})
}

// Me returns the authenticated user's snapshot (GET /auth/me). The route
// table declares this prefix authenticated, so a missing user here means the
// gate let something through it should not have.
func (h *Handler) Me(c echo.Context) error {
	sc := session.FromEcho(c)
	if sc == nil || sc.Current() == nil {
		return apperror.NewUnauthorized("not authenticated")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user": sc.Current(),
	})
}

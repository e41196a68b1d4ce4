package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tesfahiwot/portal/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// The login endpoint is public; /auth/me is declared authenticated in the
// route table. Enforcement happens in the gate, not here.
//
// The login endpoint is rate-limited to slow brute-force and credential
// stuffing attacks: 10 attempts per IP per minute.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/auth/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.POST("/auth/logout", h.Logout)
	e.GET("/auth/me", h.Me)

	// Account management. The route table declares /api/v1/accounts
	// superadmin-only.
	e.POST("/api/v1/accounts", h.CreateAccount)
	e.GET("/api/v1/accounts/:id", h.GetAccount)
}

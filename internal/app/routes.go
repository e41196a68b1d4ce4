package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tesfahiwot/portal/internal/audit"
	"github.com/tesfahiwot/portal/internal/auth"
	"github.com/tesfahiwot/portal/internal/authz"
	"github.com/tesfahiwot/portal/internal/middleware"
	"github.com/tesfahiwot/portal/internal/session"
	"github.com/tesfahiwot/portal/internal/token"
)

// RegisterRoutes builds the access-control core (codec, store, gate) and
// mounts every route. This is the single place where the route table is
// declared, so a reviewer can read the whole access policy in one screen.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Access-control core ---

	codec := token.NewCodec(a.Config.Auth.SecretKey)
	store := session.NewStore(a.Redis, a.Config.IsProduction())

	auditRepo := audit.NewEventRepository(a.DB)
	auditService := audit.NewService(auditRepo)

	accountRepo := auth.NewAccountRepository(a.DB)
	authService := auth.NewService(accountRepo, codec, auditService,
		a.Config.Auth.SessionTTL, a.Config.Auth.RememberTTL)

	// The route table is ordered: first matching prefix wins, so the more
	// specific rule must precede the broader one. Anything unlisted is
	// public by default -- the marketing site is the default surface.
	routes := authz.NewRouteTable(
		authz.MinRole("/dashboard/admins", authz.RoleSuperAdmin),
		authz.Authenticated("/dashboard"),
		authz.Authenticated("/portal"),
		authz.Authenticated("/auth/me"),
		authz.MinRole("/api/v1/accounts", authz.RoleSuperAdmin),
		authz.MinRole("/api/v1/security/events", authz.RoleSuperAdmin),
	)

	e.Use(middleware.Gate(middleware.GateConfig{
		Codec:     codec,
		Store:     store,
		Routes:    routes,
		LoginPath: a.Config.Auth.LoginPath,
		HomePath:  a.Config.Auth.DashboardPath,
		Audit:     auditService,
	}))

	// --- Public routes ---

	// Marketing landing payload. The real pages are rendered elsewhere;
	// these endpoints exist so every route class has a live surface.
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"organization": "Tesfa",
			"tagline":      "Community support for families in need",
		})
	})

	// Login landing for redirected browsers. Authentication itself is
	// POST /auth/login.
	e.GET(a.Config.Auth.LoginPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"login": "POST /auth/login with email, password, remember",
		})
	})

	// Health check endpoint for Docker health monitoring. Verifies both
	// backing stores, since the portal is useless without either.
	e.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := a.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unreachable"})
		}
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "session store unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Auth routes (login/logout/me) ---

	authHandler := auth.NewHandler(authService, store)
	auth.RegisterRoutes(e, authHandler)

	// --- Protected dashboard surface ---

	e.GET("/dashboard", func(c echo.Context) error {
		sc := session.FromEcho(c)
		return c.JSON(http.StatusOK, map[string]any{
			"page": "dashboard",
			"user": sc.Current(),
		})
	})

	e.GET("/dashboard/admins", func(c echo.Context) error {
		sc := session.FromEcho(c)
		return c.JSON(http.StatusOK, map[string]any{
			"page": "admin management",
			"user": sc.Current(),
		})
	})

	e.GET("/portal", func(c echo.Context) error {
		sc := session.FromEcho(c)
		return c.JSON(http.StatusOK, map[string]any{
			"page": "volunteer portal",
			"user": sc.Current(),
		})
	})

	// --- API routes ---

	auditHandler := audit.NewHandler(auditService)
	audit.RegisterRoutes(e, auditHandler)
}

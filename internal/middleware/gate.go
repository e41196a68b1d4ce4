// gate.go enforces the route access table on every request. The gate is the
// only place that decides whether a request proceeds, and it fails closed:
// any doubt about the session resolves to "unauthenticated".
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tesfahiwot/portal/internal/apperror"
	"github.com/tesfahiwot/portal/internal/audit"
	"github.com/tesfahiwot/portal/internal/authz"
	"github.com/tesfahiwot/portal/internal/session"
	"github.com/tesfahiwot/portal/internal/token"
)

// GateConfig wires the gate's collaborators. All fields except Audit are
// required.
type GateConfig struct {
	Codec  *token.Codec
	Store  *session.Store
	Routes *authz.RouteTable

	// LoginPath is where browsers without a session are sent (e.g. "/login").
	LoginPath string

	// HomePath is where authenticated browsers are sent when a page is not
	// for them: the login page, or a page above their role. Sending an
	// under-privileged user to HomePath instead of LoginPath matters --
	// bouncing an authenticated user to the login page would loop.
	HomePath string

	// Audit, when set, receives an event for every denied access.
	Audit audit.Recorder
}

// Gate returns the global enforcement middleware. For every request it
// resolves the session once, attaches a session context for downstream
// handlers, classifies the path against the route table, and either passes
// the request through or ends it with a redirect (browser) or a JSON error
// (API).
func Gate(cfg GateConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, user := resolveSession(c, cfg)

			// Every request gets a session context, even anonymous ones.
			// Handlers read the current user from here, never from the
			// cookie or Redis directly.
			sc := session.NewContext(cfg.Store)
			sc.Publish(raw, user)
			session.Attach(c, sc)

			path := c.Request().URL.Path

			// An authenticated user has no business on the login page.
			if user != nil && path == cfg.LoginPath {
				return c.Redirect(http.StatusSeeOther, cfg.HomePath)
			}

			rule := cfg.Routes.Classify(path)

			switch rule.Access {
			case authz.AccessPublic:
				return next(c)

			case authz.AccessAuthenticated, authz.AccessRole:
				if user == nil {
					if isAPIPath(path) {
						return apperror.NewTokenInvalid()
					}
					return c.Redirect(http.StatusSeeOther, cfg.LoginPath)
				}

				if rule.Access == authz.AccessRole && !user.HasRole(rule.MinRole) {
					cfg.recordDenied(c, user, path)
					if isAPIPath(path) {
						return apperror.NewInsufficientRole()
					}
					// Authenticated but under-privileged: back to home, not
					// to login.
					return c.Redirect(http.StatusSeeOther, cfg.HomePath)
				}

				return next(c)

			default:
				// Unknown access class in the table. Fail closed.
				slog.Error("route table produced unknown access class",
					slog.String("path", path),
					slog.Int("access", int(rule.Access)),
				)
				return apperror.NewTokenInvalid()
			}
		}
	}
}

// resolveSession turns the request's cookie into a verified user, or nil.
// Nothing here returns an error: every failure mode -- missing cookie,
// forged or expired token, lost Redis record, even a panic in a parser --
// collapses to an anonymous request.
func resolveSession(c echo.Context, cfg GateConfig) (raw string, user *session.User) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while resolving session, treating as anonymous",
				slog.Any("panic", r),
			)
			raw, user = "", nil
		}
	}()

	raw = cfg.Store.Load(c)
	if raw == "" {
		return "", nil
	}

	claims, ok := cfg.Codec.Verify(raw)
	if !ok {
		// Forged, malformed, or expired. Drop the cookie so the browser
		// stops sending it.
		if err := cfg.Store.Clear(c, raw); err != nil {
			slog.Warn("failed to clear invalid session", slog.Any("error", err))
		}
		return "", nil
	}

	snapshot, err := cfg.Store.CurrentUser(c.Request().Context(), raw)
	if err != nil {
		// Redis trouble. Fail closed for this request but keep the cookie:
		// the token is still valid and the store may recover.
		slog.Error("session store unavailable, treating request as anonymous",
			slog.Any("error", err),
		)
		return "", nil
	}
	if snapshot == nil {
		// Valid token but no durable record: the two locations disagree.
		// Treat as logged out and clear the cookie so the state converges.
		desync := apperror.NewStorageDesync(nil)
		slog.Warn("session cookie without durable record, clearing",
			slog.String("type", desync.Type),
			slog.String("subject", claims.Subject),
		)
		if err := cfg.Store.Clear(c, raw); err != nil {
			slog.Warn("failed to clear desynced session", slog.Any("error", err))
		}
		return "", nil
	}

	// The signed claims are the authority on identity and role; the Redis
	// snapshot only proves the session is still live.
	return raw, &session.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  authz.ParseRole(claims.Role),
	}
}

// isAPIPath reports whether a denial should be a JSON error rather than a
// redirect. API clients can't follow a redirect to an HTML login page.
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func (cfg GateConfig) recordDenied(c echo.Context, user *session.User, path string) {
	if cfg.Audit == nil {
		return
	}
	cfg.Audit.Record(c.Request().Context(), audit.Event{
		EventType: audit.EventAccessDenied,
		AccountID: user.ID,
		Email:     user.Email,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Detail:    path,
	})
}

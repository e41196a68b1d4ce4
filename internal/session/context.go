package session

import (
	"sync"

	"github.com/labstack/echo/v4"
)

// contextKey is where the route gate stashes the session Context in Echo's
// per-request storage.
const contextKey = "session_context"

// Context is the observable holding the resolved user for one request
// pipeline. The route gate constructs it empty, publishes the verified
// user into it, and attaches it to the request; handlers and widgets read
// Current() instead of re-deriving the session themselves. It is always
// constructor-injected -- there is no package-level current user.
type Context struct {
	mu    sync.Mutex
	store *Store
	token string
	user  *User
	subs  []func(*User)
}

// NewContext creates an empty session context bound to the given store.
func NewContext(store *Store) *Context {
	return &Context{store: store}
}

// Publish sets the resolved user and raw token, then notifies subscribers.
// Publishing nil announces "no session".
func (sc *Context) Publish(rawToken string, user *User) {
	sc.mu.Lock()
	sc.token = rawToken
	sc.user = user
	subs := make([]func(*User), len(sc.subs))
	copy(subs, sc.subs)
	sc.mu.Unlock()

	for _, fn := range subs {
		fn(user)
	}
}

// Current returns the resolved user, or nil when unauthenticated. This is
// a snapshot read; it is never re-verified against the backend within a
// request.
func (sc *Context) Current() *User {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.user
}

// Token returns the raw token backing the current session, or "".
func (sc *Context) Token() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.token
}

// Subscribe registers a callback invoked on every Publish, including the
// nil publish from Logout.
func (sc *Context) Subscribe(fn func(*User)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.subs = append(sc.subs, fn)
}

// Logout tears the session down: both store locations are cleared and nil
// is published. Calling it with no session held is a no-op, so a double
// logout (stale tab, double-clicked button) never errors.
func (sc *Context) Logout(c echo.Context) error {
	sc.mu.Lock()
	token := sc.token
	hadSession := sc.user != nil || sc.token != ""
	sc.mu.Unlock()

	if !hadSession {
		return nil
	}

	if err := sc.store.Clear(c, token); err != nil {
		return err
	}

	sc.Publish("", nil)
	return nil
}

// Attach stores the session context in Echo's request-scoped storage.
func Attach(c echo.Context, sc *Context) {
	c.Set(contextKey, sc)
}

// FromEcho retrieves the session context attached by the route gate.
// Returns nil if the gate has not run for this request.
func FromEcho(c echo.Context) *Context {
	sc, ok := c.Get(contextKey).(*Context)
	if !ok {
		return nil
	}
	return sc
}

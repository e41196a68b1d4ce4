// Package audit records site-wide security events: logins, logouts, and
// denied access attempts. Recording is fire-and-forget -- a failed insert
// is logged and swallowed, never surfaced to the request that triggered it.
package audit

import "time"

// Security event type constants follow the "resource.verb" pattern for
// consistent filtering and grouping in the security dashboard.
const (
	EventLoginSuccess = "login.success"
	EventLoginFailed  = "login.failed"
	EventLogout       = "logout"
	EventAccessDenied = "access.denied"
)

// Event represents a single security event across the whole portal.
type Event struct {
	ID        int64     `json:"id"`
	EventType string    `json:"eventType"`
	AccountID string    `json:"accountId,omitempty"`
	Email     string    `json:"email,omitempty"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

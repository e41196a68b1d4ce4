package authz

import "strings"

// Access classifies what a route demands of the requester.
type Access int

const (
	// AccessPublic routes are reachable with no session at all.
	AccessPublic Access = iota

	// AccessAuthenticated routes require any valid session, regardless of role.
	AccessAuthenticated

	// AccessRole routes require a valid session whose role satisfies the
	// rule's minimum via HasRole.
	AccessRole
)

// Rule pairs a path prefix with the access it demands. A rule matches the
// prefix itself and everything beneath it ("/dashboard" matches
// "/dashboard" and "/dashboard/regions" but not "/dashboards").
type Rule struct {
	Prefix  string
	Access  Access
	MinRole Role
}

// RouteTable is the ordered route classification consulted by the route
// gate. First match wins, so more specific prefixes must be registered
// before their parents. Built once at startup; read-only afterwards.
type RouteTable struct {
	rules []Rule
}

// NewRouteTable builds a table from the given rules in priority order.
func NewRouteTable(rules ...Rule) *RouteTable {
	return &RouteTable{rules: rules}
}

// Public declares a prefix reachable without a session.
func Public(prefix string) Rule {
	return Rule{Prefix: prefix, Access: AccessPublic}
}

// Authenticated declares a prefix that requires any valid session.
func Authenticated(prefix string) Rule {
	return Rule{Prefix: prefix, Access: AccessAuthenticated}
}

// MinRole declares a prefix that requires a session with at least the
// given role.
func MinRole(prefix string, role Role) Rule {
	return Rule{Prefix: prefix, Access: AccessRole, MinRole: role}
}

// Classify returns the first rule matching the path. Paths matching no
// rule are public: the marketing site is the default surface, and every
// protected area is expected to be declared explicitly.
func (t *RouteTable) Classify(path string) Rule {
	for _, r := range t.rules {
		if matches(path, r.Prefix) {
			return r
		}
	}
	return Rule{Prefix: "", Access: AccessPublic}
}

// matches reports whether path falls under prefix on path-segment
// boundaries.
func matches(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

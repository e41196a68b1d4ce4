// Package authz defines the role hierarchy and the authorization policy
// used everywhere a privilege decision is made. Role values form a strict
// total order; HasRole is the single comparison primitive. Comparing role
// strings directly anywhere else in the codebase is a bug.
package authz

import (
	"encoding/json"
	"strings"
)

// Role is a privilege level in the portal's role hierarchy. The numeric
// value encodes seniority: a higher value satisfies every check a lower
// value satisfies, never the reverse.
type Role int

const (
	// RoleUnknown is any role string not present in the hierarchy. It holds
	// no privilege and fails every check -- never a wildcard-allow.
	RoleUnknown Role = iota

	// RoleVolunteer can access the volunteer portal area only.
	RoleVolunteer

	// RoleAdmin manages foundations, orphanages, volunteers, and regions.
	RoleAdmin

	// RoleSuperAdmin additionally manages admin accounts and security settings.
	RoleSuperAdmin
)

// roleNames is the wire/storage representation of each role. Matches the
// values the backend stores in the accounts table and embeds in tokens.
var roleNames = map[Role]string{
	RoleVolunteer:  "VOLUNTEER",
	RoleAdmin:      "ADMIN",
	RoleSuperAdmin: "SUPERADMIN",
}

// ParseRole maps a role string to its Role value, case-insensitively.
// Anything unrecognized maps to RoleUnknown.
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}
	return RoleUnknown
}

// String returns the canonical wire form of the role, or "UNKNOWN".
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON serializes the role as its canonical string so session
// snapshots and API responses carry "ADMIN", not an opaque integer.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses the string form; unrecognized values decode to
// RoleUnknown rather than failing, so a stale snapshot degrades to
// no-privilege instead of an error.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

// HasRole reports whether role r is equal to or strictly senior to min in
// the hierarchy. RoleUnknown on either side fails the check: an unknown
// subject has no privilege, and an unknown requirement cannot be satisfied.
func HasRole(r, min Role) bool {
	if r == RoleUnknown || min == RoleUnknown {
		return false
	}
	return r >= min
}

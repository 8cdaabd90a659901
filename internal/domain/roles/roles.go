package roles

import "strings"

// Role is an organization-scoped role. The set is closed: every permission
// check enumerates the exact roles it accepts, there is no implicit
// hierarchy between them.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleFinance Role = "finance"
)

// All lists every valid role.
func All() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleStaff, RoleFinance}
}

// Parse normalizes a raw role string. The second return is false when the
// value is not a known role.
func Parse(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStaff:
		return RoleStaff, true
	case RoleFinance:
		return RoleFinance, true
	default:
		return "", false
	}
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, ok := Parse(string(r))
	return ok
}

// In reports whether r is one of the allowed roles.
func (r Role) In(allowed ...Role) bool {
	for _, candidate := range allowed {
		if r == candidate {
			return true
		}
	}
	return false
}

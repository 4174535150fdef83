package domain

// Role is the sole authorization axis for principals.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Principal represents the authenticated caller of a single request.
// Immutable per request; supplied by the authentication layer.
type Principal struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsAgent reports whether the principal holds the agent role.
func (p Principal) IsAgent() bool {
	return p.Role == RoleAgent
}

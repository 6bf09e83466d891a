package domain

// Role enumerates the fixed set of role names known to the service.
type Role string

const (
	RoleUser      Role = "ROLE_USER"
	RoleModerator Role = "ROLE_MODERATOR"
	RoleAdmin     Role = "ROLE_ADMIN"
)

// AllRoles lists every role the bootstrap must ensure exists.
func AllRoles() []Role {
	return []Role{RoleUser, RoleModerator, RoleAdmin}
}

// RoleFromAlias maps the short aliases accepted at signup to role names.
// Unknown aliases fall back to the regular user role.
func RoleFromAlias(alias string) Role {
	switch alias {
	case "admin":
		return RoleAdmin
	case "mod":
		return RoleModerator
	default:
		return RoleUser
	}
}

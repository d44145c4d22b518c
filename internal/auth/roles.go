package auth

const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleViewer    = "viewer"
)

const (
	PermissionRead       = "read"
	PermissionWrite      = "write"
	PermissionDelete     = "delete"
	PermissionManageKeys = "manage_keys"
)

// Role bundles a permission set with an hourly request ceiling.
// A RateLimit of 0 means unlimited.
type Role struct {
	Permissions []string
	RateLimit   int
}

// Roles is the fixed role table. Keys carry exactly one of these roles.
var Roles = map[string]Role{
	RoleAdmin: {
		Permissions: []string{PermissionRead, PermissionWrite, PermissionDelete, PermissionManageKeys},
		RateLimit:   0,
	},
	RoleDeveloper: {
		Permissions: []string{PermissionRead, PermissionWrite},
		RateLimit:   1000,
	},
	RoleViewer: {
		Permissions: []string{PermissionRead},
		RateLimit:   100,
	},
}

func ValidRole(name string) bool {
	_, ok := Roles[name]
	return ok
}

func HasPermission(role, permission string) bool {
	r, ok := Roles[role]
	if !ok {
		return false
	}
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

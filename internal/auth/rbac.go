package auth

import "strings"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// NormalizeRole maps unknown roles to viewer, which has no console access.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleEditor):
		return RoleEditor
	default:
		return RoleViewer
	}
}

// ValidRole reports whether role names one of the known roles exactly.
func ValidRole(role string) bool {
	switch Role(role) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

func HasRole(role string, allowed ...Role) bool {
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

// CanEdit reports whether role may use the admin console.
func CanEdit(role string) bool {
	return HasRole(role, RoleAdmin, RoleEditor)
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}

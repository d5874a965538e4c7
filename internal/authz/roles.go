package authz

import "strings"

const (
	RoleStudent = 10
	RoleOwner   = 20
	RoleAdmin   = 50
)

func IsStudent(roleID int) bool {
	return roleID == RoleStudent
}

// IsOwner reports whether the role may publish listings.
func IsOwner(roleID int) bool {
	return roleID == RoleOwner || roleID == RoleAdmin
}

func IsAdmin(roleID int) bool {
	return roleID == RoleAdmin
}

// RoleFromName maps the public registration names to role ids.
func RoleFromName(name string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "student":
		return RoleStudent, true
	case "owner":
		return RoleOwner, true
	}
	return 0, false
}

func RoleName(roleID int) string {
	switch roleID {
	case RoleStudent:
		return "student"
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

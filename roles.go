package identity

import "fmt"

// AccountRole names a platform role. Roles are ordered; a larger level
// includes the capabilities of the smaller ones.
type AccountRole = string

const (
	// RoleCasualUser is the default role for self-registered accounts
	RoleCasualUser AccountRole = "casual_user"
	// RoleAdmin is a tenant operator
	RoleAdmin AccountRole = "admin"
	// RoleSuperUser is a platform operator
	RoleSuperUser AccountRole = "super_user"
)

var roleLevels = map[AccountRole]int{
	RoleCasualUser: 1,
	RoleAdmin:      2,
	RoleSuperUser:  3,
}

// IsValidRole reports whether the value names a known role.
func IsValidRole(role AccountRole) bool {
	_, ok := roleLevels[role]
	return ok
}

// RoleAtLeast reports whether role carries at least the capabilities of min.
// Unknown roles never satisfy any requirement.
func RoleAtLeast(role, min AccountRole) bool {
	have, ok := roleLevels[role]
	if !ok {
		return false
	}

	want, ok := roleLevels[min]
	if !ok {
		return false
	}

	return have >= want
}

// ParseRole validates a raw role value.
func ParseRole(raw string) (AccountRole, error) {
	if IsValidRole(raw) {
		return raw, nil
	}
	return "", fmt.Errorf("invalid role: %q", raw)
}

// AllRoles returns the known roles in ascending capability order.
func AllRoles() []AccountRole {
	return []AccountRole{RoleCasualUser, RoleAdmin, RoleSuperUser}
}

// Package identity provides the role and permission model used to
// authorize privileged operations. Roles carry enumerated permissions
// instead of string checks.
package identity

// Role is an enumerated user role.
type Role string

const (
	RoleMember  Role = "member"
	RoleSupport Role = "support"
	RoleFinance Role = "finance"
	RoleAdmin   Role = "admin"
)

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleSupport, RoleFinance, RoleAdmin:
		return true
	default:
		return false
	}
}

// Permission is a capability a role grants.
type Permission string

const (
	PermissionVerifyPayments      Permission = "payments:verify"
	PermissionManageSubscriptions Permission = "subscriptions:manage"
	PermissionViewAllUsage        Permission = "usage:view_all"
)

var rolePermissions = map[Role][]Permission{
	RoleMember:  {},
	RoleSupport: {PermissionViewAllUsage},
	RoleFinance: {PermissionVerifyPayments, PermissionViewAllUsage},
	RoleAdmin: {
		PermissionVerifyPayments,
		PermissionManageSubscriptions,
		PermissionViewAllUsage,
	},
}

// Permissions returns the permissions granted by the role.
func (r Role) Permissions() []Permission {
	perms, ok := rolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission checks whether the role grants a permission.
func (r Role) HasPermission(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

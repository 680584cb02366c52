package access

import "github.com/esora/officine/internal/identity"

// Decision is the outcome of an access check.
type Decision int

const (
	// Deny refuses access.
	Deny Decision = iota
	// Allow grants access.
	Allow
	// Pending means the employee profile has not loaded yet.
	Pending
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Pending:
		return "pending"
	default:
		return "deny"
	}
}

// Requirement declares who may reach a route or menu entry.
type Requirement struct {
	AllowedRoles        []identity.Role
	RequiredPermissions []PermissionKey
}

// Staff allows owners and employees; employees need any of perms.
func Staff(perms ...PermissionKey) Requirement {
	return Requirement{
		AllowedRoles:        []identity.Role{identity.RoleOwner, identity.RoleEmployee},
		RequiredPermissions: perms,
	}
}

// OwnerOnly allows owners only.
func OwnerOnly() Requirement {
	return Requirement{AllowedRoles: []identity.Role{identity.RoleOwner}}
}

func (r Requirement) allows(role identity.Role) bool {
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Resolve decides access for user against req.
//
// A nil profile for an employee means the profile is still loading and
// yields Pending for permission-gated requirements. A requirement without
// allowed roles is a configuration error and is denied.
func Resolve(req Requirement, user *identity.User, profile *Profile) Decision {
	if user == nil {
		return Deny
	}
	if len(req.AllowedRoles) == 0 || !req.allows(user.Role) {
		return Deny
	}
	if user.Role == identity.RoleOwner {
		return Allow
	}
	if len(req.RequiredPermissions) == 0 {
		return Allow
	}
	if user.Role != identity.RoleEmployee {
		return Deny
	}
	if profile == nil {
		return Pending
	}
	for _, k := range req.RequiredPermissions {
		if profile.Has(k) {
			return Allow
		}
	}
	return Deny
}

// CanAccess reports whether Resolve allows access.
func CanAccess(req Requirement, user *identity.User, profile *Profile) bool {
	return Resolve(req, user, profile) == Allow
}

// NeedsProfile reports whether resolving req for user depends on the
// employee profile.
func NeedsProfile(req Requirement, user *identity.User) bool {
	return user.IsEmployee() && len(req.RequiredPermissions) > 0 && req.allows(user.Role)
}

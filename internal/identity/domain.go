package identity

import "strings"

// Role identifies the kind of staff account signed in.
type Role string

const (
	// RoleOwner is the pharmacist owning the pharmacy. Owners have full access.
	RoleOwner Role = "pharmacien"
	// RoleEmployee is a pharmacy employee gated by a permission profile.
	RoleEmployee Role = "employe_pharmacie"
)

// IsStaff reports whether the role may use the console at all.
func (r Role) IsStaff() bool {
	return r == RoleOwner || r == RoleEmployee
}

// Label returns a display label for the role.
func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Pharmacien"
	case RoleEmployee:
		return "Employé"
	default:
		return string(r)
	}
}

// User is the authenticated account as returned by the remote API.
type User struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"nom"`
	Role   Role   `json:"role"`
	Active bool   `json:"actif"`
}

// IsOwner reports whether the user owns the pharmacy.
func (u *User) IsOwner() bool {
	return u != nil && u.Role == RoleOwner
}

// IsEmployee reports whether the user is an employee.
func (u *User) IsEmployee() bool {
	return u != nil && u.Role == RoleEmployee
}

// Initials returns up to two upper-case initials for the avatar.
func (u *User) Initials() string {
	if u == nil {
		return ""
	}
	var out []rune
	for _, part := range strings.Fields(u.Name) {
		for _, r := range part {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}

// Package domain contains core types for admin API authentication.
package domain

// Role is the privilege level granted by an admin API token.
type Role string

const (
	// RoleAdmin may change every setting, Stripe credentials included.
	RoleAdmin Role = "admin"
	// RoleStaff may price tiers, toggle inactive tiers and read the history.
	RoleStaff Role = "staff"
)

func (r Role) String() string { return string(r) }

// Principal is the authenticated caller of the admin API.
type Principal struct {
	Role Role
	// TokenID is a short fingerprint of the presented token, safe to log.
	TokenID string
}

// Subject is the casbin subject for the principal.
func (p Principal) Subject() string {
	return "token:" + p.TokenID
}

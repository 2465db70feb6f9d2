package domain

import "time"

// Role is an authorization label attached to a user.
type Role string

const (
	RoleCustomer   Role = "Customer"
	RolePharmacist Role = "Pharmacist"
)

// User is an identity able to authenticate against the service.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Roles        []Role
	Deleted      bool
	CreatedAt    time.Time
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// Package identity describes who is making a request.
//
// An Identity is either Guest or User. Workflows that need an account take a
// User directly; workflows that allow anonymous callers take an Identity.
package identity

import "strconv"

const RoleAdmin = "admin"

type Identity interface {
	isIdentity()
}

type Guest struct{}

type User struct {
	ID       uint
	Username string
	Role     string
}

func (Guest) isIdentity() {}
func (User) isIdentity()  {}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u User) Subject() string { return strconv.FormatUint(uint64(u.ID), 10) }

// UserID returns nil for guests.
func UserID(i Identity) *uint {
	if u, ok := i.(User); ok {
		id := u.ID
		return &id
	}
	return nil
}

func Authenticated(i Identity) (User, bool) {
	u, ok := i.(User)
	return u, ok
}

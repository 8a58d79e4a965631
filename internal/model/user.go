package model

import (
	"strings"
	"time"
)

// Role is the authorization level attached to a user account and embedded
// in every access token.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleViewer   Role = "VIEWER"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleAdmin, RoleManager, RoleViewer:
		return r, true
	}
	return "", false
}

// User represents an account record as stored in the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address, always stored lowercased.
//	PasswordHash – bcrypt hashed password.
//	Role         – one of CUSTOMER, ADMIN, MANAGER, VIEWER.
//	Blocked      – blocked users may never obtain a new session.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	Blocked      bool      // users.is_blocked
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Identity is the minimal user projection needed to mint an access token.
// Blocked is read from the store but never written into a token.
type Identity struct {
	ID      uint64
	Email   string
	Role    Role
	Blocked bool
}

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

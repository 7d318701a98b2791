package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Role enumerates the administrative roles known to the platform.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// ValidateUsername checks the username against the platform's identity rules.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username must be 3-50 characters of letters, digits, or underscore")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	PasswordChangedAt time.Time
	Role              Role
	Permissions       PermissionMatrix
	IsActive          bool
	LoginAttempts     int
	LockUntil         *time.Time
	LastLogin         *time.Time
	CreatedAt         time.Time
}

// IsLocked derives the lockout state at the supplied moment.
// The lock is never cached: callers must re-evaluate on every read.
func (u User) IsLocked(at time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(at)
}

// PasswordChangedAfter reports whether the password hash was replaced after
// the supplied token issuance time. Tokens minted before a password change
// must be treated as stale even when unexpired.
func (u User) PasswordChangedAfter(issuedAt time.Time) bool {
	return u.PasswordChangedAt.After(issuedAt)
}

// Sanitized returns a copy safe for serialization to clients.
func (u User) Sanitized() User {
	copy := u
	copy.PasswordHash = ""
	return copy
}

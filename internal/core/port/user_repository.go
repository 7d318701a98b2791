package port

import (
	"context"
	"time"

	"github.com/liftline/platform-auth/internal/core/domain"
)

// UserRepository abstracts persistence for user records.
//
// Lockout counters use dedicated atomic operations rather than read-modify-write
// on the whole row: concurrent failed logins may race, but increments never
// clobber each other.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIdentifier resolves a user by username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)

	// IncrementLoginAttempts atomically bumps the failed-attempt counter and
	// returns the new value.
	IncrementLoginAttempts(ctx context.Context, id string) (int, error)
	// SetLoginAttempts overwrites the counter and lock timestamp, used when a
	// stale lock window is reset.
	SetLoginAttempts(ctx context.Context, id string, attempts int, lockUntil *time.Time) error
	// SetLock installs the lockout timestamp.
	SetLock(ctx context.Context, id string, until time.Time) error
	// RecordLogin clears the lockout state and stamps last_login.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	// UpdatePassword replaces the hash and password_changed_at stamp.
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	// UpdatePermissions replaces the role and permission matrix.
	UpdatePermissions(ctx context.Context, id string, role domain.Role, permissions domain.PermissionMatrix) error
	// SetActive toggles the soft-disable flag.
	SetActive(ctx context.Context, id string, active bool) error
}

package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided identifier or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account has been disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrAccountLocked indicates the account is under a temporary lockout.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidRefreshToken indicates the refresh token does not match a live session.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token or its session has expired.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrSessionNotFound indicates the referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates the username or email is already taken.
	ErrUserExists = errors.New("username or email already in use")
)

// LockedError carries the lockout deadline so callers can report when the
// account becomes available again. It matches ErrAccountLocked under errors.Is.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

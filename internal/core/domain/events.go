package domain

import "time"

// LoginSucceededEvent is published after a successful credential exchange.
type LoginSucceededEvent struct {
	EventID   string
	UserID    string
	Username  string
	IPAddress string
	UserAgent string
	LoginAt   time.Time
	Metadata  map[string]any
}

// LoginFailedEvent is published after a rejected login attempt.
type LoginFailedEvent struct {
	EventID       string
	UserID        string
	Username      string
	IPAddress     string
	LoginAttempts int
	FailedAt      time.Time
	Metadata      map[string]any
}

// AccountLockedEvent is published when repeated failures trip the lockout.
type AccountLockedEvent struct {
	EventID   string
	UserID    string
	Username  string
	LockedAt  time.Time
	LockUntil time.Time
	Metadata  map[string]any
}

// PasswordChangedEvent is published after a successful password change.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	SessionsRevoked int
	Metadata        map[string]any
}

// SessionRevokedEvent is published when one or more refresh sessions are revoked.
type SessionRevokedEvent struct {
	EventID   string
	UserID    string
	SessionID string
	Reason    string
	RevokedAt time.Time
	Revoked   int
	Metadata  map[string]any
}

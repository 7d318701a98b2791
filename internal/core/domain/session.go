package domain

import "time"

// MaxSessionsPerUser caps the refresh-session list; inserting beyond the cap
// evicts the oldest record.
const MaxSessionsPerUser = 5

// RefreshSession is the server-side bookkeeping entry for one issued refresh
// token. Only a SHA-256 hash of the token value is persisted.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent string
	IPAddress string
}

// IsExpired reports whether the session has elapsed its validity window.
func (s RefreshSession) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

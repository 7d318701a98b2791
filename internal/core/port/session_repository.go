package port

import (
	"context"
	"time"

	"github.com/liftline/platform-auth/internal/core/domain"
)

// SessionRepository abstracts persistence for refresh sessions.
type SessionRepository interface {
	// Insert stores a new session and evicts the oldest records beyond cap
	// within the same transaction.
	Insert(ctx context.Context, session domain.RefreshSession, cap int) error
	GetByTokenHash(ctx context.Context, userID, tokenHash string) (*domain.RefreshSession, error)
	ListByUser(ctx context.Context, userID string) ([]domain.RefreshSession, error)
	// DeleteByTokenHash removes the matching record(s), returning how many were removed.
	DeleteByTokenHash(ctx context.Context, userID, tokenHash string) (int, error)
	DeleteByID(ctx context.Context, userID, sessionID string) (int, error)
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	// DeleteExpired prunes records whose expiry has passed.
	DeleteExpired(ctx context.Context, userID string, before time.Time) (int, error)
}

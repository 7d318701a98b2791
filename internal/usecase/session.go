package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
	"github.com/liftline/platform-auth/internal/infra/security"
)

// SessionService manages the per-user refresh session registry.
type SessionService struct {
	sessions  port.SessionRepository
	publisher port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions port.SessionRepository, publisher port.EventPublisher, log *zap.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// List returns the user's live sessions, newest first. Expired records are
// pruned as housekeeping before the read.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.RefreshSession, error) {
	now := s.now()

	if _, err := s.sessions.DeleteExpired(ctx, userID, now); err != nil {
		s.logger.Warn("failed to prune expired sessions",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// Logout revokes the session matching the presented refresh token. A token
// with no matching session is not an error: logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	count, err := s.sessions.DeleteByTokenHash(ctx, userID, security.HashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if count > 0 {
		s.publishRevoked(ctx, userID, "", "logout", count)
	}

	return nil
}

// LogoutAll revokes every session for the user and returns how many were
// removed. Calling it with nothing to revoke succeeds with zero.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}

	if count > 0 {
		s.publishRevoked(ctx, userID, "", "logout_all", count)
	}

	return count, nil
}

// RevokeByID removes one session by identifier, scoped to its owner.
func (s *SessionService) RevokeByID(ctx context.Context, userID, sessionID string) error {
	count, err := s.sessions.DeleteByID(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session by id: %w", err)
	}
	if count == 0 {
		return ErrSessionNotFound
	}

	s.publishRevoked(ctx, userID, sessionID, "revoked_by_user", count)
	return nil
}

func (s *SessionService) publishRevoked(ctx context.Context, userID, sessionID, reason string, count int) {
	if err := s.publisher.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Reason:    reason,
		RevokedAt: s.now(),
		Revoked:   count,
	}); err != nil {
		s.logger.Warn("failed to publish session revoked event",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// IsCurrent reports whether the stored session matches the presented refresh
// token.
func IsCurrent(session domain.RefreshSession, refreshToken string) bool {
	if refreshToken == "" {
		return false
	}
	return session.TokenHash == security.HashToken(refreshToken)
}

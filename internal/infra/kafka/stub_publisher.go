package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"username":   event.Username,
		"ip_address": event.IPAddress,
		"user_agent": event.UserAgent,
		"login_at":   event.LoginAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventLoginSucceeded, event.UserID, event.LoginAt, payload)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	payload := map[string]any{
		"user_id":        event.UserID,
		"username":       event.Username,
		"ip_address":     event.IPAddress,
		"login_attempts": event.LoginAttempts,
		"failed_at":      event.FailedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent(eventLoginFailed, event.UserID, event.FailedAt, payload)
	return nil
}

// PublishAccountLocked logs auth.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"username":   event.Username,
		"locked_at":  event.LockedAt,
		"lock_until": event.LockUntil,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventAccountLocked, event.UserID, event.LockedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":          event.UserID,
		"changed_at":       event.ChangedAt,
		"sessions_revoked": event.SessionsRevoked,
		"metadata":         event.Metadata,
	}
	p.logEvent(eventPasswordChanged, event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"session_id": event.SessionID,
		"reason":     event.Reason,
		"revoked_at": event.RevokedAt,
		"revoked":    event.Revoked,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventSessionRevoked, event.UserID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

package port

import (
	"context"

	"github.com/liftline/platform-auth/internal/core/domain"
)

// EventPublisher delivers authentication lifecycle events to downstream
// consumers. Publish failures are housekeeping: callers log and continue.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
}

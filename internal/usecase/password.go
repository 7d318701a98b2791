package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
	"github.com/liftline/platform-auth/internal/infra/security"
	"github.com/liftline/platform-auth/internal/repository"
)

// passwordChangeBackdate shifts password_changed_at slightly into the past so
// an access token minted within the same second as the change still compares
// as stale.
const passwordChangeBackdate = time.Second

// PasswordService changes account passwords and revokes the sessions that
// were minted under the old one.
type PasswordService struct {
	users     port.UserRepository
	sessions  port.SessionRepository
	publisher port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewPasswordService constructs a PasswordService.
func NewPasswordService(
	users port.UserRepository,
	sessions port.SessionRepository,
	publisher port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	return &PasswordService{
		users:     users,
		sessions:  sessions,
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *PasswordService) WithClock(clock func() time.Time) *PasswordService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// ChangePassword verifies the current password, applies the password policy
// to the replacement, installs the new hash, and revokes every refresh
// session. The caller must re-authenticate afterwards.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	validator := security.NewPasswordValidator(
		security.MinLengthRule(10),
		security.RequireCharacterClassesRule(3),
		security.RequireDifferentFrom(currentPassword),
		security.RequirePasswordStrengthRule(3, user.Username, user.Email),
	)
	if err := validator.Validate(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	changedAt := s.now().Add(-passwordChangeBackdate)
	if err := s.users.UpdatePassword(ctx, userID, hash, changedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		// The hash is already replaced; surviving sessions die at the
		// password_changed_at check on their next refresh.
		s.logger.Warn("failed to revoke sessions after password change",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	if err := s.publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          userID,
		ChangedAt:       changedAt,
		SessionsRevoked: revoked,
	}); err != nil {
		s.logger.Warn("failed to publish password changed event",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
	"github.com/liftline/platform-auth/internal/infra/logger"
	"github.com/liftline/platform-auth/internal/infra/security"
	"github.com/liftline/platform-auth/internal/repository"
)

// LockoutPolicy configures the failed-login lockout machine.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// AuthService coordinates the login flow: credential verification, the
// lockout state machine, and token issuance.
type AuthService struct {
	users     port.UserRepository
	tokens    *TokenService
	publisher port.EventPublisher
	logger    *zap.Logger
	policy    LockoutPolicy
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	tokens *TokenService,
	publisher port.EventPublisher,
	policy LockoutPolicy,
	log *zap.Logger,
) *AuthService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	if policy.LockDuration <= 0 {
		policy.LockDuration = 2 * time.Hour
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		publisher: publisher,
		logger:    log,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login verifies credentials and issues a token pair.
//
// The lockout check runs strictly before password verification: a locked
// account rejects even the correct password, and the attempt does not touch
// the counter. A lock whose deadline has passed is cleared before this
// attempt is evaluated, so the first failure after an elapsed lock counts as
// attempt one.
func (s *AuthService) Login(ctx context.Context, identifier, password string, client ClientInfo) (domain.User, TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.User{}, TokenPair{}, fmt.Errorf("identifier is required")
	}
	if password == "" {
		return domain.User{}, TokenPair{}, fmt.Errorf("password is required")
	}

	now := s.now()

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publishLoginFailed(ctx, "", identifier, 0, client, now)
			return domain.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return domain.User{}, TokenPair{}, ErrInactiveAccount
	}

	if user.IsLocked(now) {
		return domain.User{}, TokenPair{}, &LockedError{Until: *user.LockUntil}
	}

	if user.LockUntil != nil {
		// Lock deadline has passed: clear the stale counter before this
		// attempt is evaluated.
		if err := s.users.SetLoginAttempts(ctx, user.ID, 0, nil); err != nil {
			return domain.User{}, TokenPair{}, fmt.Errorf("reset stale lock: %w", err)
		}
		user.LoginAttempts = 0
		user.LockUntil = nil
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return domain.User{}, TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		lockErr, err := s.registerFailure(ctx, user, client, now)
		if err != nil {
			s.logger.Warn("failed to register login failure",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
		if lockErr != nil {
			// The attempt that reaches the maximum surfaces the lockout, not
			// invalid credentials, so the client learns the deadline at once.
			return domain.User{}, TokenPair{}, lockErr
		}
		return domain.User{}, TokenPair{}, ErrInvalidCredentials
	}

	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return domain.User{}, TokenPair{}, fmt.Errorf("record login: %w", err)
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	lastLogin := now
	user.LastLogin = &lastLogin

	pair, err := s.tokens.Issue(ctx, *user, client)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	if err := s.publisher.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: logger.MaskIP(client.IPAddress),
		UserAgent: client.UserAgent,
		LoginAt:   now,
	}); err != nil {
		s.logger.Warn("failed to publish login succeeded event",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return user.Sanitized(), pair, nil
}

// registerFailure bumps the counter and installs the lock when the attempt
// that just failed reaches the configured maximum. A non-nil LockedError
// means this attempt installed the lock.
func (s *AuthService) registerFailure(ctx context.Context, user *domain.User, client ClientInfo, now time.Time) (*LockedError, error) {
	attempts, err := s.users.IncrementLoginAttempts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("increment login attempts: %w", err)
	}

	s.publishLoginFailed(ctx, user.ID, user.Username, attempts, client, now)

	if attempts < s.policy.MaxAttempts {
		return nil, nil
	}

	until := now.Add(s.policy.LockDuration)
	if err := s.users.SetLock(ctx, user.ID, until); err != nil {
		return nil, fmt.Errorf("install lock: %w", err)
	}

	if err := s.publisher.PublishAccountLocked(ctx, domain.AccountLockedEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		LockedAt:  now,
		LockUntil: until,
	}); err != nil {
		s.logger.Warn("failed to publish account locked event",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return &LockedError{Until: until}, nil
}

func (s *AuthService) publishLoginFailed(ctx context.Context, userID, username string, attempts int, client ClientInfo, now time.Time) {
	if err := s.publisher.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:       uuid.NewString(),
		UserID:        userID,
		Username:      username,
		IPAddress:     logger.MaskIP(client.IPAddress),
		LoginAttempts: attempts,
		FailedAt:      now,
	}); err != nil {
		s.logger.Warn("failed to publish login failed event", zap.Error(err))
	}
}

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

// TokenPair is the result of a successful credential exchange.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
	// RefreshExpiresAt bounds the refresh cookie lifetime.
	RefreshExpiresAt time.Time
}

// ClientInfo carries per-request metadata recorded on the session entry.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// TokenService mints token pairs and exchanges refresh tokens for new access
// tokens. Refresh tokens are not rotated on exchange: the original stays valid
// until its own expiry or revocation.
type TokenService struct {
	codec       *security.TokenCodec
	users       port.UserRepository
	sessions    port.SessionRepository
	logger      *zap.Logger
	maxSessions int
	now         func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(
	codec *security.TokenCodec,
	users port.UserRepository,
	sessions port.SessionRepository,
	maxSessions int,
	logger *zap.Logger,
) *TokenService {
	if maxSessions <= 0 {
		maxSessions = domain.MaxSessionsPerUser
	}
	return &TokenService{
		codec:       codec,
		users:       users,
		sessions:    sessions,
		logger:      logger,
		maxSessions: maxSessions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *TokenService) WithClock(clock func() time.Time) *TokenService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Issue mints an access/refresh pair and registers the refresh session. The
// session row is written before the pair is returned, so a token the client
// holds always has a matching registry entry.
func (s *TokenService) Issue(ctx context.Context, user domain.User, client ClientInfo) (TokenPair, error) {
	access, accessClaims, err := s.codec.SignAccess(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshClaims, err := s.codec.SignRefresh(user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	session := domain.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refresh),
		CreatedAt: s.now(),
		ExpiresAt: refreshClaims.ExpiresAt.Time,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}

	if err := s.sessions.Insert(ctx, session, s.maxSessions); err != nil {
		return TokenPair{}, fmt.Errorf("register refresh session: %w", err)
	}

	expiresIn := int64(accessClaims.ExpiresAt.Time.Sub(accessClaims.IssuedAt.Time).Seconds())

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        expiresIn,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// Refresh exchanges a live refresh token for a fresh access token. The
// token must verify, match a registered session, and belong to an account
// that is still active, unlocked, and has not changed its password since the
// token was minted.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.codec.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return "", 0, ErrExpiredRefreshToken
		}
		return "", 0, ErrInvalidRefreshToken
	}

	now := s.now()
	tokenHash := security.HashToken(refreshToken)

	session, err := s.sessions.GetByTokenHash(ctx, claims.UserID, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", 0, ErrInvalidRefreshToken
		}
		return "", 0, fmt.Errorf("lookup refresh session: %w", err)
	}

	if session.IsExpired(now) {
		if _, err := s.sessions.DeleteByTokenHash(ctx, claims.UserID, tokenHash); err != nil {
			s.logger.Warn("failed to prune expired session",
				zap.String("user_id", claims.UserID),
				zap.Error(err),
			)
		}
		return "", 0, ErrExpiredRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", 0, ErrInvalidRefreshToken
		}
		return "", 0, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return "", 0, ErrInactiveAccount
	}
	if user.IsLocked(now) {
		return "", 0, &LockedError{Until: *user.LockUntil}
	}
	if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return "", 0, ErrInvalidRefreshToken
	}

	access, accessClaims, err := s.codec.SignAccess(*user)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}

	expiresIn := int64(accessClaims.ExpiresAt.Time.Sub(accessClaims.IssuedAt.Time).Seconds())

	return access, expiresIn, nil
}

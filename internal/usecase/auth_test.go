package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/infra/security"
)

const testPassword = "C0rrect-horse#battery"

func testTokenCodec(t *testing.T) *security.TokenCodec {
	t.Helper()

	codec, err := security.NewTokenCodec(security.TokenCodecConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		Issuer:        "platform-auth",
		Audience:      "liftline",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}
	return codec
}

type authFixture struct {
	auth      *AuthService
	tokens    *TokenService
	users     *stubUserRepo
	sessions  *stubSessionRepo
	publisher *stubPublisher
	codec     *security.TokenCodec
	user      *domain.User
	now       time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	user := &domain.User{
		ID:                "user-1",
		Username:          "warehouse_admin",
		Email:             "admin@liftline.test",
		PasswordHash:      hash,
		PasswordChangedAt: now.Add(-30 * 24 * time.Hour),
		Role:              domain.RoleAdmin,
		Permissions:       domain.DefaultPermissions(domain.RoleAdmin),
		IsActive:          true,
		CreatedAt:         now.Add(-60 * 24 * time.Hour),
	}

	users := newStubUserRepo(user)
	sessions := &stubSessionRepo{}
	publisher := &stubPublisher{}
	codec := testTokenCodec(t)
	clock := func() time.Time { return now }
	codec.WithClock(clock)

	tokens := NewTokenService(codec, users, sessions, 5, zap.NewNop()).WithClock(clock)
	auth := NewAuthService(users, tokens, publisher, LockoutPolicy{
		MaxAttempts:  5,
		LockDuration: 2 * time.Hour,
	}, zap.NewNop()).WithClock(clock)

	return &authFixture{
		auth:      auth,
		tokens:    tokens,
		users:     users,
		sessions:  sessions,
		publisher: publisher,
		codec:     codec,
		user:      user,
		now:       now,
	}
}

func (f *authFixture) setClock(at time.Time) {
	clock := func() time.Time { return at }
	f.codec.WithClock(clock)
	f.tokens.WithClock(clock)
	f.auth.WithClock(clock)
}

func TestLoginSuccessIssuesPairAndRegistersSession(t *testing.T) {
	f := newAuthFixture(t)

	user, pair, err := f.auth.Login(context.Background(), "warehouse_admin", testPassword, ClientInfo{
		UserAgent: "forklift-storefront/2.1",
		IPAddress: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if user.PasswordHash != "" {
		t.Fatal("returned user must not carry the password hash")
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(f.now) {
		t.Fatalf("expected last login stamped at %v, got %v", f.now, user.LastLogin)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens in the pair")
	}
	if pair.ExpiresIn != 3600 {
		t.Fatalf("expected 3600s access lifetime, got %d", pair.ExpiresIn)
	}

	if len(f.sessions.sessions) != 1 {
		t.Fatalf("expected 1 registered session, got %d", len(f.sessions.sessions))
	}
	if f.sessions.sessions[0].TokenHash != security.HashToken(pair.RefreshToken) {
		t.Fatal("session must store the hash of the issued refresh token")
	}

	if len(f.publisher.loginSucceeded) != 1 {
		t.Fatalf("expected 1 login succeeded event, got %d", len(f.publisher.loginSucceeded))
	}
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.auth.Login(context.Background(), "warehouse_admin", "wrong-password", ClientInfo{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if f.user.LoginAttempts != 1 {
		t.Fatalf("expected 1 failed attempt recorded, got %d", f.user.LoginAttempts)
	}
	if f.user.LockUntil != nil {
		t.Fatal("single failure must not install a lock")
	}
	if len(f.publisher.loginFailed) != 1 {
		t.Fatalf("expected 1 login failed event, got %d", len(f.publisher.loginFailed))
	}
}

func TestLoginFifthFailureLocksAccount(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 4; i++ {
		if _, _, err := f.auth.Login(context.Background(), "warehouse_admin", "wrong-password", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The attempt that reaches the maximum surfaces the lockout itself, with
	// the deadline attached.
	_, _, err := f.auth.Login(context.Background(), "warehouse_admin", "wrong-password", ClientInfo{})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected the locking attempt to return ErrAccountLocked, got %v", err)
	}

	wantUntil := f.now.Add(2 * time.Hour)

	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError, got %T", err)
	}
	if !locked.Until.Equal(wantUntil) {
		t.Fatalf("expected lock deadline %v, got %v", wantUntil, locked.Until)
	}

	if f.user.LockUntil == nil {
		t.Fatal("expected fifth failure to install a lock")
	}
	if !f.user.LockUntil.Equal(wantUntil) {
		t.Fatalf("expected lock until %v, got %v", wantUntil, f.user.LockUntil)
	}
	if f.user.LoginAttempts != 5 {
		t.Fatalf("expected 5 recorded attempts, got %d", f.user.LoginAttempts)
	}
	if len(f.publisher.accountLocked) != 1 {
		t.Fatalf("expected 1 account locked event, got %d", len(f.publisher.accountLocked))
	}
}

func TestLoginLockedRejectsCorrectPassword(t *testing.T) {
	f := newAuthFixture(t)

	until := f.now.Add(time.Hour)
	f.user.LockUntil = &until
	f.user.LoginAttempts = 5

	_, _, err := f.auth.Login(context.Background(), "warehouse_admin", testPassword, ClientInfo{})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError, got %T", err)
	}
	if !locked.Until.Equal(until) {
		t.Fatalf("expected lock deadline %v, got %v", until, locked.Until)
	}

	// The attempt must not touch the counter while the lock holds.
	if f.user.LoginAttempts != 5 {
		t.Fatalf("expected counter untouched at 5, got %d", f.user.LoginAttempts)
	}
}

func TestLoginStaleLockResetsCounter(t *testing.T) {
	f := newAuthFixture(t)

	expired := f.now.Add(-time.Minute)
	f.user.LockUntil = &expired
	f.user.LoginAttempts = 5

	_, _, err := f.auth.Login(context.Background(), "warehouse_admin", "wrong-password", ClientInfo{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// The stale window is discarded first, so this failure counts as attempt
	// one and must not re-lock.
	if f.user.LoginAttempts != 1 {
		t.Fatalf("expected counter reset to 1, got %d", f.user.LoginAttempts)
	}
	if f.user.LockUntil != nil {
		t.Fatal("expected stale lock cleared")
	}
}

func TestLoginSuccessResetsCounterAfterFailures(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 4; i++ {
		if _, _, err := f.auth.Login(context.Background(), "warehouse_admin", "wrong-password", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if f.user.LoginAttempts != 4 {
		t.Fatalf("expected 4 failures recorded, got %d", f.user.LoginAttempts)
	}

	if _, _, err := f.auth.Login(context.Background(), "warehouse_admin", testPassword, ClientInfo{}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if f.user.LoginAttempts != 0 {
		t.Fatalf("expected counter reset on success, got %d", f.user.LoginAttempts)
	}
	if f.user.LockUntil != nil {
		t.Fatal("expected no lock after successful login")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.user.IsActive = false

	_, _, err := f.auth.Login(context.Background(), "warehouse_admin", testPassword, ClientInfo{})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.auth.Login(context.Background(), "nobody", testPassword, ClientInfo{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginByEmail(t *testing.T) {
	f := newAuthFixture(t)

	user, _, err := f.auth.Login(context.Background(), "admin@liftline.test", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != f.user.ID {
		t.Fatalf("expected user %s, got %s", f.user.ID, user.ID)
	}
}

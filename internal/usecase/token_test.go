package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/infra/security"
)

func TestIssueEvictsOldestBeyondCap(t *testing.T) {
	f := newAuthFixture(t)

	var firstRefresh string
	for i := 0; i < 6; i++ {
		f.setClock(f.now.Add(time.Duration(i) * time.Minute))
		pair, err := f.tokens.Issue(context.Background(), *f.user, ClientInfo{
			UserAgent: fmt.Sprintf("device-%d", i),
		})
		if err != nil {
			t.Fatalf("Issue %d returned error: %v", i, err)
		}
		if i == 0 {
			firstRefresh = pair.RefreshToken
		}
	}

	if len(f.sessions.sessions) != 5 {
		t.Fatalf("expected 5 sessions after 6 issuances, got %d", len(f.sessions.sessions))
	}

	oldestHash := security.HashToken(firstRefresh)
	for _, session := range f.sessions.sessions {
		if session.TokenHash == oldestHash {
			t.Fatal("expected the oldest session to be evicted")
		}
	}
}

func TestRefreshReturnsNewAccessWithoutRotation(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.tokens.Issue(context.Background(), *f.user, ClientInfo{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	f.setClock(f.now.Add(30 * time.Minute))

	access, expiresIn, err := f.tokens.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s lifetime, got %d", expiresIn)
	}

	claims, err := f.codec.ParseAccess(access)
	if err != nil {
		t.Fatalf("refreshed access token failed to parse: %v", err)
	}
	if claims.UserID != f.user.ID {
		t.Fatalf("expected uid %s, got %s", f.user.ID, claims.UserID)
	}

	// No rotation: the registry is untouched and the same refresh token
	// exchanges again.
	if len(f.sessions.sessions) != 1 {
		t.Fatalf("expected session registry untouched, got %d sessions", len(f.sessions.sessions))
	}
	if _, _, err := f.tokens.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("second Refresh returned error: %v", err)
	}
}

func TestRefreshUnregisteredToken(t *testing.T) {
	f := newAuthFixture(t)

	// A validly signed refresh token with no session entry must be rejected.
	orphan, _, err := f.codec.SignRefresh(f.user.ID)
	if err != nil {
		t.Fatalf("SignRefresh returned error: %v", err)
	}

	if _, _, err := f.tokens.Refresh(context.Background(), orphan); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	f := newAuthFixture(t)

	if _, _, err := f.tokens.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshExpiredSessionIsPruned(t *testing.T) {
	f := newAuthFixture(t)

	refresh, _, err := f.codec.SignRefresh(f.user.ID)
	if err != nil {
		t.Fatalf("SignRefresh returned error: %v", err)
	}

	// Registry entry already past its expiry even though the JWT itself is
	// still inside its validity window.
	f.sessions.sessions = append(f.sessions.sessions, domain.RefreshSession{
		ID:        "session-stale",
		UserID:    f.user.ID,
		TokenHash: security.HashToken(refresh),
		CreatedAt: f.now.Add(-48 * time.Hour),
		ExpiresAt: f.now.Add(-time.Hour),
	})

	if _, _, err := f.tokens.Refresh(context.Background(), refresh); !errors.Is(err, ErrExpiredRefreshToken) {
		t.Fatalf("expected ErrExpiredRefreshToken, got %v", err)
	}

	if len(f.sessions.sessions) != 0 {
		t.Fatal("expected the stale session to be pruned")
	}
}

func TestRefreshRejectedAfterPasswordChange(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.tokens.Issue(context.Background(), *f.user, ClientInfo{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	f.user.PasswordChangedAt = f.now.Add(time.Hour)
	f.setClock(f.now.Add(2 * time.Hour))

	if _, _, err := f.tokens.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshLockedAccount(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.tokens.Issue(context.Background(), *f.user, ClientInfo{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	until := f.now.Add(2 * time.Hour)
	f.user.LockUntil = &until

	if _, _, err := f.tokens.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestRefreshInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.tokens.Issue(context.Background(), *f.user, ClientInfo{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	f.user.IsActive = false

	if _, _, err := f.tokens.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/repository"
)

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *stubUserRepo) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	r.users[user.ID] = &user
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (r *stubUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Username == identifier || user.Email == identifier {
			copy := *user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) IncrementLoginAttempts(_ context.Context, id string) (int, error) {
	user, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.LoginAttempts++
	return user.LoginAttempts, nil
}

func (r *stubUserRepo) SetLoginAttempts(_ context.Context, id string, attempts int, lockUntil *time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LoginAttempts = attempts
	user.LockUntil = lockUntil
	return nil
}

func (r *stubUserRepo) SetLock(_ context.Context, id string, until time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	lockUntil := until
	user.LockUntil = &lockUntil
	return nil
}

func (r *stubUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	lastLogin := at
	user.LastLogin = &lastLogin
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = changedAt
	return nil
}

func (r *stubUserRepo) UpdatePermissions(_ context.Context, id string, role domain.Role, permissions domain.PermissionMatrix) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	user.Permissions = permissions
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id string, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	return nil
}

type stubSessionRepo struct {
	sessions  []domain.RefreshSession
	insertErr error
}

func (r *stubSessionRepo) Insert(_ context.Context, session domain.RefreshSession, cap int) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.sessions = append(r.sessions, session)
	if cap > 0 && len(r.sessions) > cap {
		sort.Slice(r.sessions, func(i, j int) bool {
			return r.sessions[i].CreatedAt.Before(r.sessions[j].CreatedAt)
		})
		r.sessions = r.sessions[len(r.sessions)-cap:]
	}
	return nil
}

func (r *stubSessionRepo) GetByTokenHash(_ context.Context, userID, tokenHash string) (*domain.RefreshSession, error) {
	for _, session := range r.sessions {
		if session.UserID == userID && session.TokenHash == tokenHash {
			copy := session
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.RefreshSession, error) {
	var result []domain.RefreshSession
	for _, session := range r.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *stubSessionRepo) DeleteByTokenHash(_ context.Context, userID, tokenHash string) (int, error) {
	return r.deleteWhere(func(s domain.RefreshSession) bool {
		return s.UserID == userID && s.TokenHash == tokenHash
	}), nil
}

func (r *stubSessionRepo) DeleteByID(_ context.Context, userID, sessionID string) (int, error) {
	return r.deleteWhere(func(s domain.RefreshSession) bool {
		return s.UserID == userID && s.ID == sessionID
	}), nil
}

func (r *stubSessionRepo) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	return r.deleteWhere(func(s domain.RefreshSession) bool {
		return s.UserID == userID
	}), nil
}

func (r *stubSessionRepo) DeleteExpired(_ context.Context, userID string, before time.Time) (int, error) {
	return r.deleteWhere(func(s domain.RefreshSession) bool {
		return s.UserID == userID && !s.ExpiresAt.After(before)
	}), nil
}

func (r *stubSessionRepo) deleteWhere(match func(domain.RefreshSession) bool) int {
	kept := r.sessions[:0]
	deleted := 0
	for _, session := range r.sessions {
		if match(session) {
			deleted++
			continue
		}
		kept = append(kept, session)
	}
	r.sessions = kept
	return deleted
}

type stubPublisher struct {
	loginSucceeded  []domain.LoginSucceededEvent
	loginFailed     []domain.LoginFailedEvent
	accountLocked   []domain.AccountLockedEvent
	passwordChanged []domain.PasswordChangedEvent
	sessionRevoked  []domain.SessionRevokedEvent
}

func (p *stubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.loginSucceeded = append(p.loginSucceeded, event)
	return nil
}

func (p *stubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.loginFailed = append(p.loginFailed, event)
	return nil
}

func (p *stubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.accountLocked = append(p.accountLocked, event)
	return nil
}

func (p *stubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.passwordChanged = append(p.passwordChanged, event)
	return nil
}

func (p *stubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.sessionRevoked = append(p.sessionRevoked, event)
	return nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
	"github.com/liftline/platform-auth/internal/infra/security"
	"github.com/liftline/platform-auth/internal/repository"
)

// CreateUserInput is the payload for administrative user provisioning.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// UserService provisions accounts and manages their permission grants.
type UserService struct {
	users port.UserRepository
	now   func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(users port.UserRepository) *UserService {
	return &UserService{
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *UserService) WithClock(clock func() time.Time) *UserService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Create provisions a new account with the role's default permission matrix.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (domain.User, error) {
	if err := domain.ValidateUsername(input.Username); err != nil {
		return domain.User{}, err
	}

	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return domain.User{}, fmt.Errorf("email is required")
	}

	role := input.Role
	if role == "" {
		role = domain.RoleAdmin
	}
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("unknown role %q", role)
	}

	validator := security.NewPasswordValidatorWithContext(input.Username, email)
	if err := validator.Validate(input.Password); err != nil {
		return domain.User{}, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:                uuid.NewString(),
		Username:          input.Username,
		Email:             email,
		PasswordHash:      hash,
		PasswordChangedAt: now,
		Role:              role,
		Permissions:       domain.DefaultPermissions(role),
		IsActive:          true,
		CreatedAt:         now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return user.Sanitized(), nil
}

// UpdatePermissions replaces a user's role and permission matrix. Grants take
// effect on the next token issuance: outstanding access tokens keep the
// snapshot they were minted with.
func (s *UserService) UpdatePermissions(ctx context.Context, userID string, role domain.Role, permissions domain.PermissionMatrix) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("unknown role %q", role)
	}

	if err := s.users.UpdatePermissions(ctx, userID, role, permissions); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update permissions: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}

	return user.Sanitized(), nil
}

// SetActive toggles the account's soft-disable flag.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

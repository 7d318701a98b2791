package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserPayload is the client-safe view of an account.
type UserPayload struct {
	ID          string                  `json:"id"`
	Username    string                  `json:"username"`
	Email       string                  `json:"email"`
	Role        domain.Role             `json:"role"`
	Permissions domain.PermissionMatrix `json:"permissions"`
	IsActive    bool                    `json:"is_active"`
	LastLogin   *time.Time              `json:"last_login,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
// The refresh token travels only in the HTTP-only cookie.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UserPayload `json:"user"`
}

// LockedResponse is returned when the account is under a lockout window.
type LockedResponse struct {
	Error       string    `json:"error"`
	LockedUntil time.Time `json:"locked_until"`
	TraceID     string    `json:"trace_id,omitempty"`
}

// RefreshResponse contains the access token minted by the refresh endpoint.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LogoutAllResponse summarises a bulk session revocation.
type LogoutAllResponse struct {
	RevokedCount int `json:"revoked_count"`
}

// SessionPayload describes a refresh session in API responses.
type SessionPayload struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	IsCurrent bool      `json:"is_current"`
}

// SessionListResponse wraps a user's refresh sessions.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// ChangePasswordRequest captures a password change request body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// CreateUserRequest defines the administrative provisioning payload.
type CreateUserRequest struct {
	Username string      `json:"username" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required"`
	Role     domain.Role `json:"role"`
}

// UpdatePermissionsRequest replaces a user's role and permission matrix.
type UpdatePermissionsRequest struct {
	Role        domain.Role             `json:"role" binding:"required"`
	Permissions domain.PermissionMatrix `json:"permissions"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// newUserPayload converts a domain user to its API representation.
func newUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: user.Permissions,
		IsActive:    user.IsActive,
		LastLogin:   user.LastLogin,
		CreatedAt:   user.CreatedAt,
	}
}

// newSessionPayload converts a refresh session to its API representation.
func newSessionPayload(session domain.RefreshSession, isCurrent bool) SessionPayload {
	return SessionPayload{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		IsCurrent: isCurrent,
	}
}

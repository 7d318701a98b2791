package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liftline/platform-auth/internal/infra/security"
	"github.com/liftline/platform-auth/internal/transport/http/middleware"
	"github.com/liftline/platform-auth/internal/usecase"
)

const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth          *usecase.AuthService
	tokens        *usecase.TokenService
	passwords     *usecase.PasswordService
	sessions      *usecase.SessionService
	secureCookies bool
}

// NewAuthHandler constructs AuthHandler. secureCookies marks the refresh
// cookie Secure; enable it in production deployments.
func NewAuthHandler(
	auth *usecase.AuthService,
	tokens *usecase.TokenService,
	passwords *usecase.PasswordService,
	sessions *usecase.SessionService,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		tokens:        tokens,
		passwords:     passwords,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// setRefreshCookie installs the refresh token as an HTTP-only cookie scoped to
// the auth routes. The raw token never appears in a response body.
func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, maxAge, refreshCookiePath, "", h.secureCookies, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secureCookies, true)
}

func refreshTokenFromCookie(c *gin.Context) string {
	token, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

// Login godoc
// @Summary Authenticate with credentials
// @Description Validates the identifier and password, returning an access token and setting the refresh cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	client := usecase.ClientInfo{
		UserAgent: strings.TrimSpace(c.Request.UserAgent()),
		IPAddress: strings.TrimSpace(c.ClientIP()),
	}

	user, pair, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password, client)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.ExpiresIn,
		User:        newUserPayload(user),
	})
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var locked *usecase.LockedError
	if errors.As(err, &locked) {
		c.JSON(http.StatusUnauthorized, LockedResponse{
			Error:       "account locked, try again later",
			LockedUntil: locked.Until.UTC(),
			TraceID:     middleware.GetTraceID(c),
		})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	case errors.Is(err, usecase.ErrAccountLocked):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account locked, try again later"))
	case errors.Is(err, usecase.ErrInactiveAccount):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is not active"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
	}
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Mints a new access token from the refresh cookie. The refresh token itself is not rotated.
// @Tags Authentication
// @Produce json
// @Success 200 {object} RefreshResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := refreshTokenFromCookie(c)
	if refreshToken == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "refresh token required"))
		return
	}

	accessToken, expiresIn, err := h.tokens.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrExpiredRefreshToken):
			h.clearRefreshCookie(c)
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "refresh token expired"))
		case errors.Is(err, usecase.ErrInvalidRefreshToken):
			h.clearRefreshCookie(c)
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid refresh token"))
		case errors.Is(err, usecase.ErrAccountLocked):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account locked, try again later"))
		case errors.Is(err, usecase.ErrInactiveAccount):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is not active"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to refresh token"))
		}
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	})
}

// Logout godoc
// @Summary Logout the current session
// @Description Revokes the session behind the refresh cookie and clears the cookie. Idempotent.
// @Tags Authentication
// @Security Bearer
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	refreshToken := refreshTokenFromCookie(c)
	h.clearRefreshCookie(c)

	if err := h.sessions.Logout(c.Request.Context(), userID, refreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to logout"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// LogoutAll godoc
// @Summary Logout every session
// @Description Revokes all refresh sessions for the authenticated user and clears the cookie.
// @Tags Authentication
// @Security Bearer
// @Produce json
// @Success 200 {object} LogoutAllResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	h.clearRefreshCookie(c)

	count, err := h.sessions.LogoutAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to logout"))
		return
	}

	c.JSON(http.StatusOK, LogoutAllResponse{RevokedCount: count})
}

// Me godoc
// @Summary Current account profile
// @Description Returns the authenticated user's record, including the live permission matrix.
// @Tags Authentication
// @Security Bearer
// @Produce json
// @Success 200 {object} UserPayload
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user.Sanitized()))
}

// ChangePassword godoc
// @Summary Change the account password
// @Description Verifies the current password, installs the new one, and revokes every refresh session.
// @Tags Authentication
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Password change request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current_password and new_password are required"))
		return
	}

	if err := h.passwords.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}

		cases := []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "authentication required"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to change password")
		return
	}

	// Every session is gone, including the caller's.
	h.clearRefreshCookie(c)

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed, please log in again"})
}

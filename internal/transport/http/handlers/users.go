package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liftline/platform-auth/internal/infra/security"
	"github.com/liftline/platform-auth/internal/usecase"
)

// UserHandler exposes administrative account provisioning endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Create godoc
// @Summary Provision a new account
// @Description Creates an account with the role's default permission matrix. Restricted to super_admin.
// @Tags Users
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "User creation payload"
// @Success 201 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	user, err := h.users.Create(c.Request.Context(), usecase.CreateUserInput{
		Username: strings.TrimSpace(req.Username),
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrUserExists) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "username or email already in use"))
			return
		}

		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}

		// Username and role validation failures carry their reason.
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, newUserPayload(user))
}

// UpdatePermissions godoc
// @Summary Replace a user's role and grants
// @Description Updates the stored role and permission matrix. Outstanding access tokens keep their minted snapshot.
// @Tags Users
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "User identifier"
// @Param request body UpdatePermissionsRequest true "Permissions payload"
// @Success 200 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/auth/users/{id}/permissions [put]
func (h *UserHandler) UpdatePermissions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user id is required"))
		return
	}

	var req UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permissions payload"))
		return
	}

	user, err := h.users.UpdatePermissions(c.Request.Context(), userID, req.Role, req.Permissions)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "user not found"))
			return
		}
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

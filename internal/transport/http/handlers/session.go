package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liftline/platform-auth/internal/transport/http/middleware"
	"github.com/liftline/platform-auth/internal/usecase"
)

// SessionHandler exposes refresh-session management endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List active sessions
// @Description Returns the caller's refresh sessions, flagging the one behind the presented cookie.
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Success 200 {object} SessionListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	currentToken := refreshTokenFromCookie(c)

	payload := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		isCurrent := currentToken != "" && usecase.IsCurrent(session, currentToken)
		payload = append(payload, newSessionPayload(session, isCurrent))
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: payload, Total: len(payload)})
}

// Revoke godoc
// @Summary Revoke a specific session
// @Description Deletes one of the caller's refresh sessions by identifier.
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Param sessionId path string true "Session identifier"
// @Success 204 "Session revoked"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/sessions/{sessionId} [delete]
func (h *SessionHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("sessionId"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "sessionId is required"))
		return
	}

	if err := h.sessions.RevokeByID(c.Request.Context(), userID, sessionID); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.Status(http.StatusNoContent)
}

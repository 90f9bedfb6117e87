package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/internal/middleware"
	"github.com/skillforge/platform/internal/service"
)

// SessionHandler lists and terminates the caller's sessions.
type SessionHandler struct {
	auth *service.AuthService
}

func NewSessionHandler(auth *service.AuthService) *SessionHandler {
	return &SessionHandler{auth: auth}
}

// List handles GET /me/sessions
func (h *SessionHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.GinKeyUserID)

	sessions, err := h.auth.ListSessions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse("Active sessions", sessions))
}

// Terminate handles DELETE /me/sessions/:id
func (h *SessionHandler) Terminate(c *gin.Context) {
	userID := c.GetString(middleware.GinKeyUserID)
	sessionID := c.Param("id")

	if err := h.auth.TerminateSession(c.Request.Context(), userID, sessionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgSessionTerminated))
}

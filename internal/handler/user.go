package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/internal/dto"
	"github.com/skillforge/platform/internal/middleware"
	"github.com/skillforge/platform/internal/service"
)

// UserHandler exposes profile endpoints for the authenticated user.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles GET /me
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.GinKeyUserID)

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse("Profile", user))
}

// UpdateProfile handles PATCH /me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := c.GetString(middleware.GinKeyUserID)

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse("Profile updated", user))
}

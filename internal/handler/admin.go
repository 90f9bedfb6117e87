package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/internal/service"
)

// AdminHandler exposes operational endpoints restricted to admins.
type AdminHandler struct {
	tokens *service.TokenService
}

func NewAdminHandler(tokens *service.TokenService) *AdminHandler {
	return &AdminHandler{tokens: tokens}
}

// CleanupTokens handles POST /admin/cleanup-tokens, pruning ledger rows
// expired for longer than the grace period. The background ticker does the
// same on a schedule; this is the on-demand variant.
func (h *AdminHandler) CleanupTokens(c *gin.Context) {
	deleted, err := h.tokens.CleanupExpired(c.Request.Context(), 24*time.Hour)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse("Cleanup completed", gin.H{
		"deleted": deleted,
	}))
}

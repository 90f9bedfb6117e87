package router

import (
	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/middleware"
	"github.com/skillforge/platform/internal/model"
)

// registerAdminRoutes wires the admin-only operational endpoints.
func registerAdminRoutes(engine *gin.Engine, deps Dependencies) {
	admin := engine.Group("/api/v1/admin",
		middleware.Auth(deps.Tokens),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		admin.POST("/cleanup-tokens", deps.AdminHandler.CleanupTokens)
	}
}

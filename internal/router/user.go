package router

import (
	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/middleware"
)

// registerUserRoutes wires the authenticated profile and session endpoints.
func registerUserRoutes(engine *gin.Engine, deps Dependencies) {
	me := engine.Group("/api/v1/me", middleware.Auth(deps.Tokens))
	{
		me.GET("", deps.UserHandler.Me)
		me.PATCH("", deps.UserHandler.UpdateProfile)

		me.GET("/sessions", deps.SessionHandler.List)
		me.DELETE("/sessions/:id", deps.SessionHandler.Terminate)
	}
}

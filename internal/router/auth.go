package router

import (
	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/middleware"
)

// registerAuthRoutes wires the credential and token lifecycle endpoints.
// The unauthenticated endpoints sit behind the rate limiter since they are
// the brute-force and enumeration surface.
func registerAuthRoutes(engine *gin.Engine, deps Dependencies) {
	limited := middleware.RateLimit(deps.Redis, deps.AuthRateLimit, deps.AuthRateWindow)

	auth := engine.Group("/api/v1/auth")
	{
		auth.POST("/register", limited, deps.AuthHandler.Register)
		auth.POST("/login", limited, deps.AuthHandler.Login)
		auth.POST("/oauth", limited, deps.AuthHandler.OAuthLogin)
		auth.POST("/refresh", deps.AuthHandler.Refresh)
		auth.POST("/logout", deps.AuthHandler.Logout)
		auth.POST("/forgot-password", limited, deps.AuthHandler.ForgotPassword)
		auth.POST("/reset-password", limited, deps.AuthHandler.ResetPassword)
		auth.POST("/verify-email", limited, deps.AuthHandler.VerifyEmail)
	}

	authed := engine.Group("/api/v1/auth", middleware.Auth(deps.Tokens))
	{
		authed.POST("/logout-all", deps.AuthHandler.LogoutAll)
		authed.POST("/resend-verification", deps.AuthHandler.ResendVerification)
		authed.POST("/change-password", deps.AuthHandler.ChangePassword)
	}
}

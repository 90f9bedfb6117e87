package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/internal/model"
)

// RequireRole allows only the listed roles past. It composes with Auth
// rather than extending it, so route groups mix and match:
//
//	admin := api.Group("/admin", middleware.Auth(tokens), middleware.RequireRole(model.RoleAdmin))
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[string(role)] = true
	}

	return func(c *gin.Context) {
		role := c.GetString(GinKeyUserRole)
		if !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden,
				constants.BuildErrorResponse(constants.MsgForbidden, nil))
			return
		}

		c.Next()
	}
}

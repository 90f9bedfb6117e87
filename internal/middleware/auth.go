package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/service"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
)

// Gin context keys set by Auth for handlers to read.
const (
	GinKeyUserID    = "user_id"
	GinKeyUserEmail = "user_email"
	GinKeyUserRole  = "user_role"
)

// Auth requires a valid bearer access token. Verification re-checks the
// live account: a suspended account or a bumped token version rejects a
// token that still has wall-clock lifetime left.
func Auth(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(
				apperrors.ToHTTPStatus(apperrors.ErrUnauthorized),
				constants.BuildErrorResponse(constants.MsgUnauthorized, nil),
			)
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		user, claims, err := tokens.VerifyAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.DebugWithContext(c.Request.Context(), "Access token rejected").
				Err(err).
				Log()
			c.AbortWithStatusJSON(
				apperrors.ToHTTPStatus(err),
				constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil),
			)
			return
		}

		c.Set(GinKeyUserID, user.ID)
		c.Set(GinKeyUserEmail, user.Email)
		c.Set(GinKeyUserRole, claims.Role)

		ctx := ctxutil.WithUserID(c.Request.Context(), user.ID)
		ctx = context.WithValue(ctx, ctxutil.UserRoleKey, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/pkg/logger"
)

// Logging writes one structured entry per request after the handler chain
// completes.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.LogRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.ClientIP(),
			c.Request.UserAgent(),
		)
	}
}

// Recovery converts panics into a 500 response instead of killing the
// worker, logging the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.LogPanic(recovered)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					constants.BuildErrorResponse(constants.MsgInternalError, nil))
			}
		}()

		c.Next()
	}
}

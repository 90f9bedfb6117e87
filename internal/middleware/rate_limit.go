package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/pkg/logger"
	"github.com/skillforge/platform/pkg/redisclient"
)

// RateLimit applies a fixed-window per-IP limit backed by Redis, keyed by
// client IP and route path so login and reset flows get separate budgets.
// If Redis is down the request is allowed; auth availability beats strict
// limiting.
func RateLimit(client *redisclient.Client, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.IsEnabled() {
			c.Next()
			return
		}

		key := constants.RedisKeyRateLimit + c.ClientIP() + ":" + c.FullPath()

		count, err := client.IncrWindow(c.Request.Context(), key, window)
		if err != nil {
			logger.WarnWithContext(c.Request.Context(), "Rate limit check failed, allowing request").
				Err(err).
				Log()
			c.Next()
			return
		}

		if count > limit {
			logger.WarnWithContext(c.Request.Context(), "Rate limit exceeded").
				String("client_ip", c.ClientIP()).
				String("path", c.FullPath()).
				Int64("count", count).
				Log()
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				constants.BuildErrorResponse("Too many requests, try again later", nil))
			return
		}

		c.Next()
	}
}

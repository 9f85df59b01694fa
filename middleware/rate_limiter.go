// middleware/rate_limiter.go

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

// LimitFunc reports whether key may issue another request in the window
type LimitFunc func(ctx context.Context, key string, limit int, per time.Duration) (bool, error)

// RateLimiter throttles each originator, or each client IP for anonymous
// requests, to limit requests per window
func RateLimiter(allow LimitFunc, limit int, per time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := util.GetOriginatorFromContext(c)
		if key == "" {
			key = c.ClientIP()
		}
		allowed, err := allow(c.Request.Context(), key, limit, per)
		if err != nil {
			logger.Error("Rate limiting failed", zap.Error(err), zap.String("key", key))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting failed"})
			c.Abort()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Duration", per.String())

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", limit),
				zap.Duration("per", per))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

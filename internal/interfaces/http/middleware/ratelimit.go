package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/infrastructure/cache"
	"github.com/mpp365/backend/internal/interfaces/http/dto"
)

// RateLimitConfig holds one rate limit bucket
type RateLimitConfig struct {
	Name    string // key namespace, e.g. "api" or "auth"
	Limit   int
	Window  time.Duration
	Counter cache.WindowCounter
	Logger  *zap.Logger
	// KeyFunc picks the client key; defaults to the client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimitWithConfig limits each client to Limit requests per Window.
// Counter errors fail open so a Redis outage does not take the site down.
func RateLimitWithConfig(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		if cfg.Limit <= 0 || cfg.Counter == nil {
			c.Next()
			return
		}

		key := cfg.Name + ":" + cfg.KeyFunc(c)
		count, resetAt, err := cfg.Counter.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			cfg.Logger.Warn("Rate limit counter unavailable", zap.String("bucket", cfg.Name), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				c.GetString(RequestIDKey),
			))
			return
		}
		c.Next()
	}
}

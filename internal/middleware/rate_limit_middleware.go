package middleware

import (
	"fmt"
	"net/http"
	"time"

	"ridemarket/internal/utils"
	"ridemarket/pkg/cache"

	"github.com/gin-gonic/gin"
)

// RateLimit enforces a fixed per-minute request budget per client IP,
// counted in Redis. Without Redis the middleware waves everything
// through; the limiter is protection, not a dependency.
func RateLimit(redisCache *cache.RedisCache, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisCache == nil || perMinute <= 0 {
			c.Next()
			return
		}

		key := utils.CacheRateLimitPrefix + c.ClientIP()
		count, err := redisCache.Increment(c.Request.Context(), key)
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			redisCache.SetExpire(c.Request.Context(), key, time.Minute)
		}

		if count > int64(perMinute) {
			c.Header("Retry-After", "60")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED",
				fmt.Sprintf("rate limit of %d requests per minute exceeded", perMinute))
			c.Abort()
			return
		}

		c.Next()
	}
}

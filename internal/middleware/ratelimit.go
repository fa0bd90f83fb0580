package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proxylogs/proxylogs/internal/ratelimit"
)

// RateLimit throttles admin traffic per client IP. Limiter errors fail
// open: an unreachable Redis must not take the admin API down with it.
func RateLimit(limiter ratelimit.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("Rate limiter error (%s): %v", limiter.Name(), err)
			c.Next()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

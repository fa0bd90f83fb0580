package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request once the handler chain has
// finished. Proxied traffic is tagged apart from the local admin and
// health endpoints so the two are easy to separate when tailing logs.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		kind := "proxy"
		if path == "/health" || strings.HasPrefix(path, "/admin") {
			kind = "local"
		}

		log.Printf("[%s] %s %s %s -> %d (%dms, %dB) %s",
			c.GetString("request_id"),
			kind,
			method,
			path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.Writer.Size(),
			c.ClientIP(),
		)
	}
}

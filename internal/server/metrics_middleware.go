package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/promptlyai/loglens/internal/observability"
)

// metricsMiddleware records per-route request counts, latencies and the
// in-flight gauge. A nil metrics registry makes every call a no-op.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics := observability.Current()
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		metrics.ApiInflightInc()
		c.Next()
		metrics.ApiInflightDec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveAPI(
			c.Request.Method,
			route,
			observability.StatusCodeString(c.Writer.Status()),
			time.Since(start),
		)
	}
}

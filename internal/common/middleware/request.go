package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/common/metrics"
)

const HeaderRequestID = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// AccessLog logs every request and feeds the latency histogram.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), elapsed.Seconds())

		fields := map[string]any{
			"method":      c.Request.Method,
			"route":       route,
			"status":      c.Writer.Status(),
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  c.GetString("request_id"),
		}
		if len(c.Errors) > 0 {
			log.Error("http_request", c.Errors.Last(), fields)
			return
		}
		log.Debug("http_request", fields)
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// Logger logs one structured line per request. Paths in skip are not logged.
func Logger(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipped[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency_ms", latency.Milliseconds(),
		}
		if requestID := c.GetString(response.RequestIDKey); requestID != "" {
			fields = append(fields, "request_id", requestID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		if c.Writer.Status() >= 500 {
			logger.Warnw("HTTP Request", fields...)
			return
		}
		logger.Infow("HTTP Request", fields...)
	}
}

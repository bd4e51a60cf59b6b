package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// Recovery recovers from panics, logs the stack and answers with ErrInternal.
// If the handler already started streaming, the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", c.GetString(response.RequestIDKey),
				)

				if c.Writer.Written() {
					c.Abort()
					return
				}
				response.Fail(c, errors.ErrInternal.WithCause(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}

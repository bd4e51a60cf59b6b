// Package middleware provides the gin middleware chain of the tutor HTTP server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/tutor-x/pkg/utils/id"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// HeaderXRequestID is the header carrying the request ID.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID reuses an incoming X-Request-ID or generates a ULID, echoes it in
// the response header and stores it in both the gin and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = id.NewULID()
		}

		c.Header(HeaderXRequestID, requestID)
		c.Set(response.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

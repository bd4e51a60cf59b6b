package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// BodyLimit rejects requests whose body exceeds maxSize bytes. Bodies with an
// unknown length are cut off by http.MaxBytesReader while being read.
func BodyLimit(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = 1 << 20
	}

	return func(c *gin.Context) {
		req := c.Request
		if req.ContentLength > maxSize {
			logger.Warnw("request body too large",
				"path", req.URL.Path,
				"content_length", req.ContentLength,
				"max_size", maxSize,
			)
			response.Fail(c, errors.ErrRequestTooLarge)
			return
		}

		req.Body = http.MaxBytesReader(c.Writer, req.Body, maxSize)
		c.Next()
	}
}

package response

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/tutor-x/pkg/utils/errors"
)

// RequestIDKey is the gin context key the request ID middleware stores the ID under.
const RequestIDKey = "request_id"

// JSON writes r with its HTTP status, attaching the request ID when present.
func JSON(c *gin.Context, r *Response) {
	if id := c.GetString(RequestIDKey); id != "" {
		r.WithRequestID(id)
	}
	c.JSON(r.HTTPStatus(), r)
}

// OK writes a success envelope.
func OK(c *gin.Context, data interface{}) {
	JSON(c, Success(data))
}

// Fail writes the error envelope for err and aborts the handler chain.
// Errors that are not *errors.Errno are reported as internal errors.
func Fail(c *gin.Context, err error) {
	JSON(c, Err(errors.FromError(err)))
	c.Abort()
}

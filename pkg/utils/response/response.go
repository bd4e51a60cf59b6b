// Package response provides the JSON envelope used by the tutor HTTP API.
package response

import (
	"net/http"

	"github.com/kart-io/tutor-x/pkg/utils/errors"
)

// Response is the envelope every non-streaming endpoint writes.
//
// Code is 0 on success and the errno code otherwise. Data is omitted on
// errors unless a handler attaches diagnostics (health checks do).
type Response struct {
	Code      int         `json:"code"`
	HTTPCode  int         `json:"http_code,omitempty"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		HTTPCode: http.StatusOK,
		Message:  "success",
		Data:     data,
	}
}

// Err creates an error response from e. A nil errno yields a success envelope.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.MessageEN,
	}
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// HTTPStatus resolves the status to write: the explicit HTTPCode, then the
// registered errno, then the default of the code's category.
func (r *Response) HTTPStatus() int {
	switch {
	case r.HTTPCode != 0:
		return r.HTTPCode
	case r.Code == 0:
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	return errors.CategoryHTTPStatus(errors.GetCategory(r.Code))
}

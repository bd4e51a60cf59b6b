package errors

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

type transportStatus struct {
	http int
	grpc codes.Code
}

// categoryStatus maps each category to its default transport status.
var categoryStatus = map[int]transportStatus{
	CategorySuccess:    {http.StatusOK, codes.OK},
	CategoryRequest:    {http.StatusBadRequest, codes.InvalidArgument},
	CategoryAuth:       {http.StatusUnauthorized, codes.Unauthenticated},
	CategoryPermission: {http.StatusForbidden, codes.PermissionDenied},
	CategoryResource:   {http.StatusNotFound, codes.NotFound},
	CategoryConflict:   {http.StatusConflict, codes.AlreadyExists},
	CategoryRateLimit:  {http.StatusTooManyRequests, codes.ResourceExhausted},
	CategoryInternal:   {http.StatusInternalServerError, codes.Internal},
	CategoryDatabase:   {http.StatusInternalServerError, codes.Internal},
	CategoryCache:      {http.StatusInternalServerError, codes.Internal},
	CategoryNetwork:    {http.StatusServiceUnavailable, codes.Unavailable},
	CategoryTimeout:    {http.StatusGatewayTimeout, codes.DeadlineExceeded},
	CategoryConfig:     {http.StatusInternalServerError, codes.Internal},
}

// CategoryHTTPStatus returns the default HTTP status of an error category.
// Unknown categories map to 500.
func CategoryHTTPStatus(category int) int {
	if s, ok := categoryStatus[category]; ok {
		return s.http
	}
	return http.StatusInternalServerError
}

// NewError creates and registers a new Errno with explicit transport statuses.
// Panics on out-of-range parts, a duplicate code or an empty English message.
//
// Example:
//
//	var ErrCustom = errors.NewError(errors.ServiceTutor, errors.CategoryRequest, 9,
//	    http.StatusBadRequest, codes.InvalidArgument,
//	    "Custom error", "自定义错误")
func NewError(service, category, sequence int, httpStatus int, grpcCode codes.Code, messageEN, messageZH string) *Errno {
	switch {
	case service < 0 || service > 99:
		panic(fmt.Sprintf("errors: service code must be 0-99, got %d", service))
	case category < 0 || category > 99:
		panic(fmt.Sprintf("errors: category code must be 0-99, got %d", category))
	case sequence < 0 || sequence > 999:
		panic(fmt.Sprintf("errors: sequence must be 0-999, got %d", sequence))
	case messageEN == "":
		panic("errors: english message is required")
	}
	return Register(New(MakeCode(service, category, sequence), httpStatus, grpcCode, messageEN, messageZH))
}

// newInCategory registers an Errno using the category's default statuses.
func newInCategory(service, category, sequence int, en, zh string) *Errno {
	s := categoryStatus[category]
	return NewError(service, category, sequence, s.http, s.grpc, en, zh)
}

// NewRequestErr registers a request/validation error (HTTP 400).
func NewRequestErr(service, sequence int, en, zh string) *Errno {
	return newInCategory(service, CategoryRequest, sequence, en, zh)
}

// NewNotFoundErr registers a not found error (HTTP 404).
func NewNotFoundErr(service, sequence int, en, zh string) *Errno {
	return newInCategory(service, CategoryResource, sequence, en, zh)
}

// NewInternalErr registers an internal error (HTTP 500).
func NewInternalErr(service, sequence int, en, zh string) *Errno {
	return newInCategory(service, CategoryInternal, sequence, en, zh)
}

// NewDatabaseErr registers a database error (HTTP 500).
func NewDatabaseErr(service, sequence int, en, zh string) *Errno {
	return newInCategory(service, CategoryDatabase, sequence, en, zh)
}

// NewNetworkErr registers an upstream availability error (HTTP 503).
func NewNetworkErr(service, sequence int, en, zh string) *Errno {
	return newInCategory(service, CategoryNetwork, sequence, en, zh)
}

// NewTimeoutErr registers a timeout error (HTTP 504).
func NewTimeoutErr(service, sequence int, en, zh string) *Errno {
	return newInCategory(service, CategoryTimeout, sequence, en, zh)
}

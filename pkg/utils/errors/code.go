// Package errors provides the structured error codes used across tutor-x.
//
// Error Code Format: AABBCCC (7 digits)
//
//   - AA:  Service/Module code (00-99)
//   - BB:  Category code (00-99)
//   - CCC: Sequence number (000-999)
//
// Service Codes (AA):
//
//   - 00: Common/Base errors
//   - 10: Database infrastructure
//   - 11: Cache infrastructure
//   - 20: Tutor (RAG context builder and embedding pipeline)
//   - 90: Model providers (embedding, chat, rerank)
//
// Category Codes (BB):
//
//   - 00: Success
//   - 01: Request/Validation errors (400)
//   - 02: Authentication errors (401)
//   - 03: Authorization errors (403)
//   - 04: Resource errors (404)
//   - 05: Conflict errors (409)
//   - 06: Rate limiting errors (429)
//   - 07: Internal errors (500)
//   - 08: Database errors (500)
//   - 09: Cache errors (500)
//   - 10: Network errors (502/503)
//   - 11: Timeout errors (504)
//   - 12: Configuration errors (500)
package errors

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all modules.
	ServiceCommon = 0

	// ServiceInfraDB is for database infrastructure.
	ServiceInfraDB = 10

	// ServiceInfraCache is for cache infrastructure.
	ServiceInfraCache = 11

	// ServiceTutor is for the tutor context builder and embedding pipeline.
	ServiceTutor = 20

	// ServiceProvider is for external model providers.
	ServiceProvider = 90
)

// Category codes (BB)
const (
	CategorySuccess    = 0
	CategoryRequest    = 1
	CategoryAuth       = 2
	CategoryPermission = 3
	CategoryResource   = 4
	CategoryConflict   = 5
	CategoryRateLimit  = 6
	CategoryInternal   = 7
	CategoryDatabase   = 8
	CategoryCache      = 9
	CategoryNetwork    = 10
	CategoryTimeout    = 11
	CategoryConfig     = 12
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	return GetService(code), GetCategory(code), GetSequence(code)
}

// GetService returns the service code from an error code.
func GetService(code int) int {
	return code / 100000
}

// GetCategory returns the category code from an error code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// GetSequence returns the sequence number from an error code.
func GetSequence(code int) int {
	return code % 1000
}

// IsClientError checks if the error code indicates a client error (4xx).
func IsClientError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}

// IsServerError checks if the error code indicates a server error (5xx).
func IsServerError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryInternal && category <= CategoryConfig
}

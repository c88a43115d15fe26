package dto

import "net/http"

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the request body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInsufficientStock is used when available stock cannot cover a request
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeOverFulfillment is used when draining more than is committed
	ErrCodeOverFulfillment = "ERR_OVER_FULFILLMENT"
	// ErrCodeAlreadyReversed is used when reversing a movement twice
	ErrCodeAlreadyReversed = "ERR_ALREADY_REVERSED"
	// ErrCodeInvariantViolation is used when a delta would break a stock invariant
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"
	// ErrCodeReconciliationRequired is used when automated compensation failed
	// and an operator must intervene
	ErrCodeReconciliationRequired = "ERR_RECONCILIATION_REQUIRED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation and input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,
	ErrCodeOverFulfillment:    http.StatusUnprocessableEntity,
	ErrCodeAlreadyReversed:    http.StatusUnprocessableEntity,
	ErrCodeInvariantViolation: http.StatusUnprocessableEntity,

	// Reconciliation is an operational failure, not a caller mistake
	ErrCodeReconciliationRequired: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code, defaulting
// to 500 for codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_STATE":           ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":    ErrCodeConcurrencyConflict,
	"CONFLICT":                ErrCodeConflict,
	"INVALID_QUANTITY":        ErrCodeInvalidInput,
	"INVALID_PRODUCT":         ErrCodeInvalidInput,
	"INVALID_LOCATION":        ErrCodeInvalidInput,
	"INVALID_COST":            ErrCodeInvalidInput,
	"INVALID_CORRELATION":     ErrCodeInvalidInput,
	"INVALID_ACTOR":           ErrCodeInvalidInput,
	"INVALID_THRESHOLD":       ErrCodeInvalidInput,
	"RECORD_NOT_FOUND":        ErrCodeNotFound,
	"PRODUCT_NOT_FOUND":       ErrCodeNotFound,
	"RESERVATION_NOT_FOUND":   ErrCodeNotFound,
	"MOVEMENT_NOT_FOUND":      ErrCodeNotFound,
	"RESERVATION_NOT_ACTIVE":  ErrCodeInvalidState,
	"HAS_COMMITTED_STOCK":     ErrCodeBusinessRule,
	"ALREADY_REVERSED":        ErrCodeAlreadyReversed,
	"CANNOT_REVERSE_REVERSAL": ErrCodeAlreadyReversed,
	"INSUFFICIENT_STOCK":      ErrCodeInsufficientStock,
	"OVER_FULFILLMENT":        ErrCodeOverFulfillment,
	"INVARIANT_VIOLATION":     ErrCodeInvariantViolation,
	"RECONCILIATION_REQUIRED": ErrCodeReconciliationRequired,
	"INTERNAL_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

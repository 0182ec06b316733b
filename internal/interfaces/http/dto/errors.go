package dto

import "net/http"

// API error codes, shaped ERR_<CATEGORY>[_<DETAIL>]. Handlers emit
// these; clients branch on them instead of parsing messages.

const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
)

const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule violations. Requests are well-formed but the aggregate
// refuses them, e.g. closing an instance that still carries a balance.
const (
	ErrCodeInvalidStateTransition = "ERR_INVALID_STATE_TRANSITION"
	ErrCodeBusinessRule           = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientBalance    = "ERR_INSUFFICIENT_BALANCE"
)

// Upstream failures cover the ledger and the scheduler.
const (
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     = "ERR_UPSTREAM_TIMEOUT"
)

const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus is the single source of truth for the status each
// code travels with.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidStateTransition: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:           http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance:    http.StatusUnprocessableEntity,

	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamTimeout:     http.StatusGatewayTimeout,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus resolves a code to its status, defaulting to 500 for
// codes the catalog does not know.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping translates domain-layer codes, which carry no
// prefix, into the API catalog.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"CONFLICT":                 ErrCodeConflict,
	"VALIDATION_ERROR":         ErrCodeValidation,
	"INVALID_STATE_TRANSITION": ErrCodeInvalidStateTransition,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"UPSTREAM_UNAVAILABLE":     ErrCodeUpstreamUnavailable,
	"UPSTREAM_TIMEOUT":         ErrCodeUpstreamTimeout,
	"INSUFFICIENT_BALANCE":     ErrCodeInsufficientBalance,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"BAD_REQUEST":              ErrCodeBadRequest,
	"INTERNAL_ERROR":           ErrCodeInternal,
}

// NormalizeErrorCode maps a domain code into the catalog. Codes already
// in catalog form, and unknown codes, pass through untouched.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

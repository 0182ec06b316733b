package shared

import "errors"

// DomainError pairs a stable machine code with a human message.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the module. Handlers map these to HTTP status codes.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeConflict               = "CONFLICT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeUpstreamUnavailable    = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamTimeout        = "UPSTREAM_TIMEOUT"
	CodeInsufficientBalance    = "INSUFFICIENT_BALANCE"
)

// Sentinel errors shared across the domain packages.
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrConflict               = NewDomainError(CodeConflict, "Operation conflicts with current resource state")
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUpstreamUnavailable    = NewDomainError(CodeUpstreamUnavailable, "Upstream collaborator is unavailable")
	ErrUpstreamTimeout        = NewDomainError(CodeUpstreamTimeout, "Upstream collaborator did not respond in time")
	ErrInsufficientBalance    = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Command not allowed in current state")
)

// NewValidationError creates a VALIDATION_ERROR with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewInvalidStateTransitionError creates an INVALID_STATE_TRANSITION error
// naming the attempted command and the current state. Tests assert on this
// code distinctly from generic validation failures.
func NewInvalidStateTransitionError(command, currentState string) *DomainError {
	return NewDomainError(CodeInvalidStateTransition,
		"Command "+command+" is not allowed in state "+currentState)
}

// HasCode reports whether err is a DomainError carrying the given code
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND domain error
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsInvalidStateTransition reports whether err is an INVALID_STATE_TRANSITION domain error
func IsInvalidStateTransition(err error) bool {
	return HasCode(err, CodeInvalidStateTransition)
}

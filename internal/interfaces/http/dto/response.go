package dto

import "time"

// Response is the envelope returned by every API endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo carries a machine-readable code and a human-readable message.
// RequestID lets clients quote the failing request when reporting issues.
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
	Help      string             `json:"help,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// ValidationDetail describes a single field-level validation failure.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries pagination metadata for list responses.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// pageCount rounds up to the number of pages needed for total rows.
func pageCount(total int64, pageSize int) int {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return totalPages
}

// NewSuccessResponseWithMeta wraps a page of data together with
// pagination meta. Non-positive page sizes fall back to 20.
func NewSuccessResponseWithMeta(data interface{}, total int64, page, pageSize int) Response {
	if pageSize <= 0 {
		pageSize = 20
	}
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: pageCount(total, pageSize),
		},
	}
}

// newErrorInfo stamps the error with the normalized code and the time
// it was produced.
func newErrorInfo(code, message string) *ErrorInfo {
	return &ErrorInfo{
		Code:      NormalizeErrorCode(code),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewErrorResponse builds an error envelope from a code and message.
// Domain-layer codes are normalized to the API's ERR_ form.
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error:   newErrorInfo(code, message),
	}
}

// NewErrorResponseWithRequestID builds an error envelope carrying the
// request correlation ID.
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	info := newErrorInfo(code, message)
	info.RequestID = requestID
	return Response{
		Success: false,
		Error:   info,
	}
}

// NewErrorResponseWithHelp builds an error envelope pointing at
// documentation for the failure.
func NewErrorResponseWithHelp(code, message, requestID, help string) Response {
	info := newErrorInfo(code, message)
	info.RequestID = requestID
	info.Help = help
	return Response{
		Success: false,
		Error:   info,
	}
}

// NewValidationErrorResponse builds a validation error envelope with
// per-field details.
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	info := newErrorInfo(ErrCodeValidation, message)
	info.RequestID = requestID
	info.Details = details
	return Response{
		Success: false,
		Error:   info,
	}
}

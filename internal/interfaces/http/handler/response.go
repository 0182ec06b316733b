package handler

import "github.com/corebank/backend/internal/interfaces/http/dto"

// APIResponse mirrors dto.Response with a typed data field so the
// generated OpenAPI schema names the payload type.
// @Description Envelope wrapping a typed payload
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the documented shape of every failed request.
// @Description Envelope describing a failed request
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse is the documented shape of a bare success.
// @Description Acknowledgement carrying no payload
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

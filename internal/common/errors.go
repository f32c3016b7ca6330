package common

import "errors"

// Error codes returned in the "code" field of error responses.
const (
	CodeInternal             = "INTERNAL"
	CodeBadRequest           = "BAD_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidEvent         = "INVALID_EVENT"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeSessionBusy          = "SESSION_BUSY"
	CodeSessionCorrupt       = "SESSION_CORRUPT"
	CodeQuoteIncomplete      = "QUOTE_INCOMPLETE"
	CodeCatalogUnavailable   = "CATALOG_UNAVAILABLE"
	CodeCatalogRefreshFailed = "CATALOG_REFRESH_FAILED"
	CodeRateLimited          = "RATE_LIMITED"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeIdempotentReplay     = "IDEMPOTENT_REPLAY"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails returns a copy of e carrying details for the response body.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Details = details
	return &cp
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError unwraps err to an AppError if it carries one.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

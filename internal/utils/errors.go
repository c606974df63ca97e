package utils

import (
	"errors"
	"net/http"
)

// Domain-level error codes surfaced to API callers.
const (
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeValidation     = "validation_error"
	ErrCodeInternal       = "internal_server_error"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeDate           = "date_error"
	ErrCodeRemoteSync     = "remote_sync_error"
)

// AppError is the structured error passed from services to controllers.
// Field names the offending input (or entity) so callers can attach the
// message to it.
type AppError struct {
	StatusCode int
	Code       string
	Field      string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// FieldError is the per-field payload rendered in ErrorResponse.Details.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

func NewNotFoundError(field, msg string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Code: ErrCodeNotFound, Field: field, Message: msg}
}

func NewConflictError(field, msg string) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeConflict, Field: field, Message: msg}
}

func NewDateError(field, msg string) *AppError {
	return &AppError{StatusCode: http.StatusUnprocessableEntity, Code: ErrCodeDate, Field: field, Message: msg}
}

func NewRemoteSyncError(field, msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusBadGateway, Code: ErrCodeRemoteSync, Field: field, Message: msg, Err: err}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: ErrCodeInternal, Message: msg, Err: err}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		var details any
		if appErr.Field != "" {
			details = []FieldError{{Field: appErr.Field, Messages: []string{appErr.Message}}}
		}
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, details, appErr.Err)
		return
	}
	// Fallback for unexpected error types
	RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
}

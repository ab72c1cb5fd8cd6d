package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes for the analysis pipeline (store/log these exact strings).
const (
	CodeUnsupportedExtension = "UNSUPPORTED_EXTENSION" // upload extension outside the allow-list
	CodeEngineTimeout        = "ENGINE_TIMEOUT"        // engine process killed after the wall-clock bound
	CodeEngineFailure        = "ENGINE_FAILURE"        // engine exited non-zero
	CodeOutputUnreadable     = "OUTPUT_UNREADABLE"     // engine reported success but wrote nothing readable
	CodeMalformedResult      = "MALFORMED_RESULT"      // engine output does not match the result schema
	CodePersistenceFailure   = "PERSISTENCE_FAILURE"   // database write failed (logged, response unaffected)
	CodeConfigError          = "CONFIG_ERROR"          // missing or invalid startup configuration
	CodeInternal             = "INTERNAL_ERROR"        // unexpected local failure
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code onto the inbound HTTP contract.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeUnsupportedExtension:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// UnsupportedExtension builds the 400 rejection for an upload whose extension
// is outside the allow-list. The message is part of the API contract.
func UnsupportedExtension(ext string) *AppError {
	return NewAppError(CodeUnsupportedExtension, fmt.Sprintf("Extension '%s' non supportée.", ext), nil)
}

// AsAppError unwraps err to the nearest AppError, if any.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

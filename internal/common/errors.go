package common

import (
	"errors"
	"net/http"
)

// AppError carries an error code and the HTTP status it should surface as.
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
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError reports malformed or missing caller input. Never retried.
func ValidationError(message string) *AppError {
	return NewAppError("VALIDATION_ERROR", message, http.StatusBadRequest, nil)
}

// ConfigError reports a required credential or setting missing at request time.
// Fatal for the request, not for the process.
func ConfigError(message string) *AppError {
	return NewAppError("CONFIG_ERROR", message, http.StatusInternalServerError, nil)
}

// AuthenticityError reports a callback that failed merchant or signature checks.
func AuthenticityError(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadRequest, nil)
}

// AsAppError extracts an AppError from err when present.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

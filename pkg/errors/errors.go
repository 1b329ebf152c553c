package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Validation covers problems caught before any I/O happens: an empty
// message, an oversized attachment, a malformed request.
func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Network covers connectivity and timeout failures talking to the
// messaging backend or blob storage.
func Network(message string, err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// Auth covers 401/403 responses: an expired or invalid session.
func Auth(message string, err error) *AppError {
	return &AppError{
		Code:    "AUTH_ERROR",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// Server covers remaining 4xx/5xx responses from the messaging API.
func Server(message string, err error) *AppError {
	return &AppError{
		Code:    "SERVER_ERROR",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

// Canceled marks an operation whose result was deliberately discarded,
// e.g. an upload abandoned by the user before completion.
func Canceled(message string) *AppError {
	return &AppError{
		Code:    "CANCELED",
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// FromStatusCode classifies a messaging backend HTTP status into the
// error taxonomy the store exposes to its callers.
func FromStatusCode(status int, message string, err error) *AppError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Auth(message, err)
	case status == http.StatusNotFound:
		return NotFound(message, err)
	case status >= 400:
		return Server(message, err)
	default:
		return Internal(message, err)
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From returns the AppError inside err, wrapping unclassified errors as
// internal so no caller ever sees a bare error from the store.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err.Error(), err)
}

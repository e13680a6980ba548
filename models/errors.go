package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies application errors so handlers can translate them
// to client-facing responses without inspecting message text.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindIllegalTransition ErrorKind = "illegal_transition"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindForbidden         ErrorKind = "forbidden"
	KindStorage           ErrorKind = "storage"
)

// AppError is the recoverable error type returned by the service layer.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFoundf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func IllegalTransitionf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindIllegalTransition, Message: fmt.Sprintf(format, args...)}
}

func InvalidInputf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps an unexpected storage-layer failure. The original error
// is preserved for logging; callers must not retry non-idempotent writes.
func StorageError(op string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: "storage failure during " + op, Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// HTTPStatus maps an error to the HTTP status code handlers should return.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindIllegalTransition:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

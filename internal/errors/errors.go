// Package errors defines structured application errors raised by the data
// adapters and rendered by the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the category of an application error.
type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeConflict    ErrorCode = "conflict"
	ErrCodeValidation  ErrorCode = "validation"
	ErrCodeUnavailable ErrorCode = "unavailable"
	ErrCodeInternal    ErrorCode = "internal"
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
)

// httpStatus maps each code to the status the API answers with.
var httpStatus = map[ErrorCode]int{
	ErrCodeNotFound:    http.StatusNotFound,
	ErrCodeConflict:    http.StatusConflict,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeTimeout:     http.StatusGatewayTimeout,
	// 499 is the de facto "client closed request" status.
	ErrCodeCanceled: 499,
}

// AppError carries a code, a client-safe message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending column or input field, when known.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap attaches code and message to err. It returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// As returns the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the code of the AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the AppError in err's chain, or "".
func GetField(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Field
	}
	return ""
}

// HTTPStatus returns the response status for err and whether err carried a
// known code.
func HTTPStatus(err error) (int, bool) {
	status, ok := httpStatus[GetCode(err)]
	return status, ok
}

// IsCode reports whether err carries code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

func IsNotFound(err error) bool { return IsCode(err, ErrCodeNotFound) }

func IsConflict(err error) bool { return IsCode(err, ErrCodeConflict) }

func IsUnavailable(err error) bool { return IsCode(err, ErrCodeUnavailable) }

package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hallchat/internal/pkg/logx"
)

// CustomError is the error shape sent to clients over HTTP and WebSocket.
type CustomError struct {
	// Code is the business error code (see error_codes.go).
	Code int

	// Message is the user-facing description.
	Message string

	// Status is the HTTP status used when the error is written as an HTTP response.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code.
// details are printf arguments for messages that contain verbs; for ErrUnknown an error
// in details[0] is logged instead. Unregistered codes collapse to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	customErr, ok := errorMap[code]
	if !ok {
		logx.Warn("Unknown error code requested", "requested_code", code)
		customErr = errorMap[ErrUnknown]
	}

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case customErr.Code == ErrUnknown:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Handling ErrUnknown with underlying error")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Error details ignored: message template has no placeholders", "code", code)
	}

	return &customErr
}

// From converts any error into a *CustomError. CustomErrors pass through unchanged,
// everything else becomes ErrUnknown with the cause logged.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}

// Package errors provides error types and handling for opsbook.
// It classifies failures of backend calls and turns any of them into a
// message fit for showing to the user.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents a failed backend interaction.
type AppError struct {
	// Code is the failure class, see the ErrCode constants
	Code string
	// Message is a user-friendly error message
	Message string
	// StatusCode is the HTTP status code returned by the backend, 0 when no response was received
	StatusCode int
	// Cause is the underlying error (for error wrapping)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to work with AppError.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// Failure classes.
const (
	// ErrCodeTransport means the request never produced a response (network, DNS, timeout).
	ErrCodeTransport = "TRANSPORT"
	// ErrCodeBackend means the backend answered with a status >= 400.
	ErrCodeBackend = "BACKEND"
	// ErrCodeDecode means a response arrived but could not be parsed.
	ErrCodeDecode = "DECODE"
	// ErrCodeUnauthorized is a backend failure caused by a missing or invalid API key.
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeNotFound is a backend failure for a missing resource.
	ErrCodeNotFound = "NOT_FOUND"
)

// GenericMessage is shown when nothing more specific is known about a failure.
const GenericMessage = "An unexpected error occurred"

// Sentinel values usable with errors.Is.
var (
	ErrTransport    = &AppError{Code: ErrCodeTransport}
	ErrBackend      = &AppError{Code: ErrCodeBackend}
	ErrDecode       = &AppError{Code: ErrCodeDecode}
	ErrUnauthorized = &AppError{Code: ErrCodeUnauthorized}
	ErrNotFound     = &AppError{Code: ErrCodeNotFound}
)

// NewTransportError wraps a failure that happened before any response was received.
func NewTransportError(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: message,
		Cause:   cause,
	}
}

// NewDecodeError wraps a failure to parse a backend response.
func NewDecodeError(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeDecode,
		Message: message,
		Cause:   cause,
	}
}

// NewBackendError creates an error from a backend response with status >= 400.
// The message is the backend-provided detail, or the HTTP status text when the
// backend did not provide one.
func NewBackendError(statusCode int, detail string) *AppError {
	if statusCode < http.StatusBadRequest {
		panic(fmt.Sprintf("NewBackendError called with non-error status code: %d", statusCode))
	}

	code := ErrCodeBackend
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrCodeUnauthorized
	case http.StatusNotFound:
		code = ErrCodeNotFound
	}

	message := strings.TrimSpace(detail)
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// ParseDetail extracts a human-readable detail from an error response body.
// The backend sends {"detail": "..."} for most failures and
// {"detail": [{"loc": [...], "msg": "..."}]} for request validation failures.
func ParseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if len(item.Loc) == 0 {
				parts = append(parts, item.Msg)
				continue
			}
			loc := make([]string, 0, len(item.Loc))
			for _, l := range item.Loc {
				loc = append(loc, fmt.Sprint(l))
			}
			parts = append(parts, strings.Join(loc, ".")+": "+item.Msg)
		}
		return strings.Join(parts, "; ")
	}

	return string(envelope.Detail)
}

// GetStatusCode extracts the HTTP status code from an error.
// Returns 0 if the error did not come from a backend response.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

// GetErrorCode extracts the failure class from an error.
// Returns empty string if the error is not an AppError.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Message normalizes any error into a message for display: the
// backend-provided detail when there is one, the transport or decode
// description otherwise, and GenericMessage as the last resort.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Message != "" {
			if appErr.Code == ErrCodeTransport && appErr.Cause != nil {
				return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
			}
			return appErr.Message
		}
		return GenericMessage
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericMessage
}

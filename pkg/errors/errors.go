// Package errors provides structured error types for docktree.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - NETWORK_*: Network-related errors
//   - INTERNAL_*: Unexpected internal errors
//
// Forest construction failures have their own codes
// (DUPLICATE_IDENTIFIER, DANGLING_PARENT_REFERENCE) so callers can tell
// inconsistent engine data apart from user mistakes.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSelector, "selector cannot be empty")
//	if errors.Is(err, errors.ErrCodeInvalidSelector) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to reach %s", addr)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidPath         Code = "INVALID_PATH"
	ErrCodeInvalidSelector     Code = "INVALID_SELECTOR"
	ErrCodeInvalidOutputFormat Code = "INVALID_OUTPUT_FORMAT"

	// Forest construction errors
	ErrCodeDuplicateIdentifier Code = "DUPLICATE_IDENTIFIER"
	ErrCodeDanglingParent      Code = "DANGLING_PARENT_REFERENCE"

	// Lookup errors
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeAmbiguousSelector Code = "AMBIGUOUS_SELECTOR"
	ErrCodeSnapshotNotFound  Code = "SNAPSHOT_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the HTTP status the API responds with.
// Unknown and empty codes map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeInvalidPath, ErrCodeInvalidSelector, ErrCodeInvalidOutputFormat:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeSnapshotNotFound:
		return http.StatusNotFound
	case ErrCodeAmbiguousSelector:
		return http.StatusConflict
	case ErrCodeDuplicateIdentifier, ErrCodeDanglingParent:
		return http.StatusUnprocessableEntity
	case ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

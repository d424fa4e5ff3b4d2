// Package errors provides structured error types for fieldbook.
//
// Every failure the library reports to a caller carries a machine-readable
// [Code] so the CLI and the HTTP API can react without parsing messages:
//   - Configuration errors (INVALID_*, CAPACITY_MISMATCH, ...) are raised
//     before any random assignment takes place
//   - Lookup failures (NOT_FOUND, FILE_NOT_FOUND)
//   - Internal and unsupported operations
//
// Data-quality findings in a field book are not errors; they are reported
// by package verify.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidBlocks, "at least 2 blocks required, got %d", nb)
//	if errors.Is(err, errors.ErrCodeInvalidBlocks) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileNotFound, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Layout configuration errors
	ErrCodeInvalidInput         Code = "INVALID_INPUT"
	ErrCodeInvalidBlocks        Code = "INVALID_BLOCKS"
	ErrCodeInvalidGenotypes     Code = "INVALID_GENOTYPES"
	ErrCodeDuplicateGenotype    Code = "DUPLICATE_GENOTYPE"
	ErrCodeCapacityMismatch     Code = "CAPACITY_MISMATCH"
	ErrCodeInsufficientCapacity Code = "INSUFFICIENT_CAPACITY"
	ErrCodeInvalidAlongside     Code = "INVALID_ALONGSIDE"
	ErrCodeInvalidSerpentine    Code = "INVALID_SERPENTINE"

	// Output and table errors
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidVizType Code = "INVALID_VIZ_TYPE"
	ErrCodeInvalidColumn  Code = "INVALID_COLUMN"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Backend errors
	ErrCodeStorage Code = "STORAGE_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

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

// IsConfiguration reports whether err rejects a layout request before
// generation, as opposed to a backend or internal failure.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidBlocks, ErrCodeInvalidGenotypes,
		ErrCodeDuplicateGenotype, ErrCodeCapacityMismatch, ErrCodeInsufficientCapacity,
		ErrCodeInvalidAlongside, ErrCodeInvalidSerpentine, ErrCodeInvalidFormat,
		ErrCodeInvalidVizType, ErrCodeInvalidColumn, ErrCodeInvalidPath:
		return true
	}
	return false
}

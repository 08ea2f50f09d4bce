// Package errors provides standardized error types for ranking operations.
// This package defines RankingError for consistent error handling across
// the engine, its validators and the public API, with operation context,
// an error kind and error wrapping support.
package errors

import (
	"fmt"
)

// Kind classifies a RankingError so callers can react without string matching
type Kind int

const (
	// KindInvalidArgument marks a caller contract violation (bad limit, unknown field)
	KindInvalidArgument Kind = iota + 1
	// KindInternal marks a failure inside the engine that is not the caller's fault
	KindInternal
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// RankingError represents standardized errors across all ranking operations
type RankingError struct {
	Op      string // Operation name (e.g., "Aggregate", "CompareAndRank")
	Field   string // Field name if applicable
	Kind    Kind   // Error classification
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *RankingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s failed on field '%s': %s", e.Op, e.Field, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *RankingError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind matches every error of that kind.
func (e *RankingError) Is(target error) bool {
	re, ok := target.(*RankingError)
	if !ok {
		return false
	}
	if re.Op == "" && re.Field == "" && re.Message == "" {
		return e.Kind == re.Kind
	}
	return e.Op == re.Op && e.Field == re.Field && e.Message == re.Message
}

// Common error constructors for consistent error creation

// NewUnknownFieldError creates an error for a field that the row source does not provide
func NewUnknownFieldError(op, field string) *RankingError {
	return &RankingError{
		Op:      op,
		Field:   field,
		Kind:    KindInvalidArgument,
		Message: "field does not exist",
	}
}

// NewInvalidArgumentError creates an error for invalid operation inputs
func NewInvalidArgumentError(op, message string) *RankingError {
	return &RankingError{
		Op:      op,
		Kind:    KindInvalidArgument,
		Message: message,
	}
}

// NewInvalidLimitError creates an error for a non-positive top-N limit
func NewInvalidLimitError(op string, limit int) *RankingError {
	return &RankingError{
		Op:      op,
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf("limit must be positive, got %d", limit),
	}
}

// NewUnsupportedTypeError creates an error for a metric field that is not numeric
func NewUnsupportedTypeError(op, field, typeName string) *RankingError {
	return &RankingError{
		Op:      op,
		Field:   field,
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, field, message string) *RankingError {
	return &RankingError{
		Op:      op,
		Field:   field,
		Kind:    KindInvalidArgument,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *RankingError {
	return &RankingError{
		Op:      op,
		Kind:    KindInternal,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// Kind sentinels for errors.Is
var (
	// ErrInvalidArgument matches every KindInvalidArgument error
	ErrInvalidArgument = &RankingError{Kind: KindInvalidArgument}

	// ErrInternal matches every KindInternal error
	ErrInternal = &RankingError{Kind: KindInternal}
)

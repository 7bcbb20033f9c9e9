// Package errors provides structured error handling for AsciiDataFile.
//
// Every failure surfaced by the data-curve core, the unit context, the
// file readers and writers carries one of the ErrorType kinds below so that
// callers can branch with IsType instead of matching message text.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeSchemaMismatch reports columns of unequal length, wrong row
	// arity or mismatched column sets.
	ErrorTypeSchemaMismatch ErrorType = "schema_mismatch"
	// ErrorTypeUnknownColumn reports a column name absent from the table.
	ErrorTypeUnknownColumn ErrorType = "unknown_column"
	// ErrorTypeAmbiguousGrid reports symmetrization called with both or
	// neither of an explicit grid and a grid step.
	ErrorTypeAmbiguousGrid ErrorType = "ambiguous_grid"
	// ErrorTypeMalformedRow reports a data line that could not be parsed.
	ErrorTypeMalformedRow ErrorType = "malformed_row"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeValidation represents argument validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeUnit represents unknown units or incompatible conversions
	ErrorTypeUnit ErrorType = "unit"
	// ErrorTypeCapability represents capability/feature not supported errors
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
// It returns nil when err is nil; callers returning the result as an
// error must check err first to avoid a typed nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost structured error in err's
// chain, or ErrorTypeInternal for plain errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}

// IsSchemaMismatch reports whether err is a schema mismatch.
func IsSchemaMismatch(err error) bool { return IsType(err, ErrorTypeSchemaMismatch) }

// IsUnknownColumn reports whether err is an unknown column lookup.
func IsUnknownColumn(err error) bool { return IsType(err, ErrorTypeUnknownColumn) }

// IsAmbiguousGrid reports whether err is an ambiguous symmetrization grid.
func IsAmbiguousGrid(err error) bool { return IsType(err, ErrorTypeAmbiguousGrid) }

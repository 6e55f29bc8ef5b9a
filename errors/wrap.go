package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a ProtocolError, it wraps it with the new message.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a ProtocolError, preserve its properties
	var protoErr *Error
	if errors.As(err, &protoErr) {
		wrapped := &Error{
			code:        protoErr.code,
			category:    protoErr.category,
			message:     message,
			cause:       err,
			metadata:    protoErr.Metadata(),
			recoverable: protoErr.recoverable,
			namespace:   protoErr.namespace,
			frameKind:   protoErr.frameKind,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsProtocolError attempts to extract a ProtocolError from an error chain.
// Returns nil if no ProtocolError is found.
func AsProtocolError(err error) ProtocolError {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.category == category
	}
	return false
}

// IsRecoverable checks if the session remains usable after the error.
func IsRecoverable(err error) bool {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.Recoverable()
	}
	// Default to not recoverable for unknown errors
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a ProtocolError.
func Code(err error) ErrorCode {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err is not a ProtocolError.
func Category(err error) ErrorCategory {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.category
	}
	return ""
}

// GetMetadata extracts metadata from an error.
// Returns nil if err is not a ProtocolError.
func GetMetadata(err error) map[string]string {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.Metadata()
	}
	return nil
}

// FrameKind extracts the offending frame kind from an error.
// Returns empty string if err is not a ProtocolError or carries no kind.
func FrameKind(err error) string {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr.frameKind
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Join combines multiple errors into a single error.
// If all errors are nil, returns nil.
// Uses errors.Join from the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}

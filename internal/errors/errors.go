package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates the requested variable does not exist
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeInvalidInput indicates a malformed request or batch
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"
	// ErrorTypeUnauthorized indicates a missing or incorrect credential
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	// ErrorTypeUnknownOperation indicates a request for an operation the server does not have
	ErrorTypeUnknownOperation ErrorType = "UNKNOWN_OPERATION"
	// ErrorTypeStorage indicates the snapshot could not be persisted or loaded
	ErrorTypeStorage ErrorType = "STORAGE"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// GenvError represents a typed error with additional context
type GenvError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   string
}

// Error implements the error interface
func (e *GenvError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *GenvError) Unwrap() error {
	return e.Err
}

// New creates a new GenvError
func New(errType ErrorType, message string, err error) *GenvError {
	_, file, line, _ := runtime.Caller(1)
	stack := fmt.Sprintf("%s:%d", file, line)

	return &GenvError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// TypeOf returns the ErrorType of the first GenvError in err's chain,
// or ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var gErr *GenvError
	if stderrors.As(err, &gErr) {
		return gErr.Type
	}
	return ErrorTypeInternal
}

func is(err error, errType ErrorType) bool {
	var gErr *GenvError
	if stderrors.As(err, &gErr) {
		return gErr.Type == errType
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return is(err, ErrorTypeNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return is(err, ErrorTypeInvalidInput)
}

// IsUnauthorized checks if the error is an authorization error
func IsUnauthorized(err error) bool {
	return is(err, ErrorTypeUnauthorized)
}

// IsUnknownOperation checks if the error is an unknown operation error
func IsUnknownOperation(err error) bool {
	return is(err, ErrorTypeUnknownOperation)
}

// IsStorage checks if the error is a storage error
func IsStorage(err error) bool {
	return is(err, ErrorTypeStorage)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return is(err, ErrorTypeInternal)
}

// RecoverError recovers from a panic and converts it to a GenvError
func RecoverError(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("%v", v)
	}

	return New(ErrorTypeInternal, "recovered from panic", err)
}

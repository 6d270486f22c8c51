package exec

import (
	"errors"
	"fmt"

	"github.com/roach88/cachequery/internal/query"
)

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeInvalidDescriptor indicates the descriptor failed query.Check.
	ErrCodeInvalidDescriptor ErrorCode = "INVALID_DESCRIPTOR"

	// ErrCodeWrongKind indicates the descriptor kind does not fit the entry point.
	ErrCodeWrongKind ErrorCode = "WRONG_KIND"

	// ErrCodeNoProvider indicates no indexing provider is registered for the cache.
	ErrCodeNoProvider ErrorCode = "NO_INDEXING_PROVIDER"

	// ErrCodeProviderResult indicates the provider failed or returned rows of the wrong type.
	ErrCodeProviderResult ErrorCode = "PROVIDER_RESULT"

	// ErrCodeStore indicates the store rejected the statement.
	ErrCodeStore ErrorCode = "STORE"

	// ErrCodeDecode indicates a stored key or value could not be decoded.
	ErrCodeDecode ErrorCode = "DECODE"
)

// Error is returned by every engine entry point.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Kind is the kind of the descriptor being executed.
	Kind query.Kind

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode returns true if err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func newError(code ErrorCode, kind query.Kind, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

package query

import (
	"errors"
	"fmt"
)

// Parameter names reported by InvalidArgumentError.
const (
	ParamQuery      = "query"
	ParamClassName  = "className"
	ParamSearch     = "search"
	ParamKind       = "kind"
	ParamCache      = "cache"
	ParamDescriptor = "descriptor"
)

// ErrInvalidArgument is the sentinel matched by every InvalidArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError reports a missing or malformed construction argument.
// It is the only error kind the facade produces.
type InvalidArgumentError struct {
	// Param names the offending parameter (one of the Param constants).
	Param string

	// Reason describes what is wrong with it.
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidArgument) match.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// IsInvalidArgument returns true if err is or wraps an InvalidArgumentError.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var ie *InvalidArgumentError
	return errors.As(err, &ie)
}

// InvalidParam returns the offending parameter name of an invalid-argument
// error, or "" if err is not one.
func InvalidParam(err error) string {
	var ie *InvalidArgumentError
	if errors.As(err, &ie) {
		return ie.Param
	}
	return ""
}

func missing(param string) *InvalidArgumentError {
	return &InvalidArgumentError{Param: param, Reason: "must not be empty"}
}

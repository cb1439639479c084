// Package errors wraps pkg/errors and adds error codes so callers can tell a
// configuration problem from an exhausted value domain without string matching.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies a class of failure. See Is.
type Code string

const (
	// ErrConfiguration is raised when a property or provider is configured in a
	// way that can never produce valid rows (min > max, empty domain list, ...).
	ErrConfiguration Code = "ConfigurationError"
	// ErrUnsupportedOperation is raised by providers whose value domain has no
	// order or no natural string identity.
	ErrUnsupportedOperation Code = "UnsupportedOperationError"
	// ErrExhausted is raised when a provider cannot produce a value outside the
	// excluded set within its retry budget.
	ErrExhausted Code = "ExhaustionError"
	// ErrArgumentResolution is raised when an upstream argument value is missing
	// or has the wrong shape at generation time.
	ErrArgumentResolution Code = "ArgumentResolutionError"
	// ErrNotLoaded is raised when a provider is asked for values before Load.
	ErrNotLoaded Code = "NotLoadedError"
	// ErrDependencyCycle is raised when property arguments or entity foreign
	// keys form a cycle.
	ErrDependencyCycle Code = "DependencyCycleError"
	ErrNotFound        Code = "NotFoundError"
)

func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

func Newf(code Code, format string, args ...interface{}) error {
	return New(code, fmt.Sprintf(format, args...))
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Cause(err error) error {
	return errors.Cause(err)
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Is reports whether any error in err's chain carries the target code.
func Is(err error, target Code) bool {
	return errors.Is(err, codedError{Code: target})
}

// CodeOf returns the code of the first coded error in err's chain, or "" when
// there is none.
func CodeOf(err error) Code {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func WithMessagef(err error, format string, args ...interface{}) error {
	return errors.WithMessagef(err, format, args...)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// codedError is the fundamental type used by this package to provide coded
// errors.
type codedError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (ce codedError) Error() string {
	return string(ce.Code) + ": " + ce.Message
}

// Is matches on code only so that wrapped messages do not affect comparison.
func (ce codedError) Is(target error) bool {
	tce, ok := target.(codedError)
	if !ok {
		return false
	}
	return tce.Code == ce.Code
}

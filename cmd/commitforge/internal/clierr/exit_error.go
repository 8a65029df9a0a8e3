// Package clierr carries process exit codes on errors so
// main can stay dumb: commands return an ExitError where
// a specific code matters and main extracts it with
// ExitCodeOf.
package clierr

import (
	"errors"
	"fmt"
)

// ExitCoder is an error carrying an explicit process
// exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError is an error that carries an explicit process
// exit code. It supports wrapping via Unwrap so
// errors.Is/As work as expected.
type ExitError struct {
	code  int
	msg   string
	cause error
}

// Error keeps the message user-facing; the code never
// appears in the text.
func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

// ExitCode returns the carried process exit code.
func (e *ExitError) ExitCode() int { return e.code }

// Unwrap enables errors.Is/As to traverse the underlying
// cause.
func (e *ExitError) Unwrap() error { return e.cause }

// New creates an ExitError with a message.
func New(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

// Wrap creates an ExitError that wraps an underlying
// cause.
func Wrap(code int, msg string, cause error) error {
	if cause == nil {
		return New(code, msg)
	}

	return &ExitError{
		code:  normalize(code),
		msg:   msg,
		cause: cause,
	}
}

// ExitCodeOf extracts an exit code from any error,
// defaulting to 1 for errors without one and 0 for nil.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}

	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}

	return 1
}

// normalize keeps 0 reserved for success; errors never
// carry it.
func normalize(code int) int {
	if code <= 0 {
		return 1
	}

	return code
}

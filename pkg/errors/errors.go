// Package errors defines the coded errors returned by lpatch packages.
//
// Every failure carries a [Code] that callers branch on, a message for the
// user and, where the fix is known, remediation hints. The CLI prints the
// message followed by the hints of every error in the chain:
//
//	err := errors.Wrap(errors.ErrCodeGitAuth, cause, "authentication failed for %s", url).
//	    WithHints("Check if ssh-agent is running: 'ssh-add -l'")
//
//	if errors.Is(err, errors.ErrCodeGitAuth) { ... }
//
// Codes are grouped by prefix: INVALID_* for rejected input, *NOT_FOUND* and
// NO_REPOSITORY for missing resources, GIT_* for clone and pull failures.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code string

const (
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidPackage    Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath       Code = "INVALID_PATH"
	ErrCodeInvalidURL        Code = "INVALID_URL"
	ErrCodeInvalidRepository Code = "INVALID_REPOSITORY"
	ErrCodeInvalidManifest   Code = "INVALID_MANIFEST"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeNoRepository    Code = "NO_REPOSITORY"
	ErrCodeCrateNotInRepo  Code = "CRATE_NOT_IN_REPOSITORY"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	ErrCodeAlreadyLocal Code = "ALREADY_LOCAL"

	ErrCodeNetwork Code = "NETWORK_ERROR"

	ErrCodeGit            Code = "GIT_ERROR"
	ErrCodeGitAuth        Code = "GIT_AUTH"
	ErrCodeGitNotFound    Code = "GIT_REPOSITORY_NOT_FOUND"
	ErrCodeGitCertificate Code = "GIT_CERTIFICATE"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Hints   []string // shown below the message, one per line
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithHints appends remediation hints and returns e for chaining.
func (e *Error) WithHints(hints ...string) *Error {
	e.Hints = append(e.Hints, hints...)
	return e
}

func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches code and message to cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage renders err without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Hints collects remediation hints from every *Error in the chain,
// outermost first.
func Hints(err error) []string {
	var hints []string
	for err != nil {
		if e, ok := err.(*Error); ok {
			hints = append(hints, e.Hints...)
		}
		err = errors.Unwrap(err)
	}
	return hints
}

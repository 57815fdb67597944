// ABOUTME: Sentinel errors and the transport-facing status error for the catalog.
// ABOUTME: The dispatcher maps sentinels to HTTP-equivalent status codes.

package catalog

import (
	"errors"
	"fmt"
)

// ErrDuplicateTool indicates a tool with the same name@version identifier is
// already registered.
var ErrDuplicateTool = errors.New("tool already exists")

// ErrToolNotFound indicates the requested tool identifier is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrMalformedID indicates a caller-supplied tool identifier that is not of
// the form name or name@version.
var ErrMalformedID = errors.New("malformed tool identifier")

// StatusError is a dispatcher-level failure carrying an HTTP-equivalent
// status code. Tool-level failures never use it; they travel inside the call
// envelope as output.error.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// statusError builds a StatusError.
func statusError(code int, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// deniedMessage is the uniform denial used for both "does not exist" and
// "insufficient permission" when authorization is enabled, so callers cannot
// enumerate tools they are not allowed to see.
const deniedMessage = "tool either does not exist or insufficient permissions"

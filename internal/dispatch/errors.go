package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrActionNotFound indicates the module or action is not registered
	ErrActionNotFound = errors.New("action not found")

	// ErrDuplicateAction indicates a module/action pair was registered twice
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrBadRequest indicates the request parameters are invalid
	ErrBadRequest = errors.New("bad request")

	// ErrTooLarge indicates the request body exceeds the configured limit
	ErrTooLarge = errors.New("request body too large")
)

// NotFoundError reports an unknown module or action
type NotFoundError struct {
	Module string
	Action string
}

func (e *NotFoundError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("unknown module %q", e.Module)
	}
	return fmt.Sprintf("unknown action %q in module %q", e.Action, e.Module)
}

// Is reports whether target matches this error type.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrActionNotFound
}

// BadRequestError reports an invalid or missing parameter
type BadRequestError struct {
	Param   string
	Message string
	Cause   error
}

func (e *BadRequestError) Error() string {
	msg := "bad request"
	if e.Param != "" {
		msg += ": " + e.Param
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *BadRequestError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *BadRequestError) Is(target error) bool {
	return target == ErrBadRequest
}

// TooLargeError reports a request body over Limit bytes
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// Is reports whether target matches this error type.
func (e *TooLargeError) Is(target error) bool {
	return target == ErrTooLarge
}

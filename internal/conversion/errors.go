package conversion

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNoConversionPath matches both UnknownFormatError and NoPathError.
	// Callers that only care whether a chain exists should test for this.
	ErrNoConversionPath = errors.New("no conversion path")

	// ErrUnknownFormat indicates no converter accepts the source format.
	ErrUnknownFormat = errors.New("unknown source format")

	// ErrNoPath indicates the source format is known but the target is unreachable.
	ErrNoPath = errors.New("target format unreachable")

	// ErrStepFailed indicates a converter in a resolved chain returned an error.
	ErrStepFailed = errors.New("conversion step failed")

	// ErrConfig indicates an invalid converter registration.
	ErrConfig = errors.New("invalid converter")
)

// UnknownFormatError is returned when no registered converter declares
// Format as its input.
type UnknownFormatError struct {
	// Format is the source format nobody understands
	Format string
	// To is the requested target format
	To string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("no converter accepts format %q (requested %q)", e.Format, e.To)
}

// Is reports whether target matches this error type.
func (e *UnknownFormatError) Is(target error) bool {
	return target == ErrUnknownFormat || target == ErrNoConversionPath
}

// NoPathError is returned when the search is exhausted without reaching To.
type NoPathError struct {
	From string
	To   string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no conversion path from %q to %q", e.From, e.To)
}

// Is reports whether target matches this error type.
func (e *NoPathError) Is(target error) bool {
	return target == ErrNoPath || target == ErrNoConversionPath
}

// StepError reports the converter that failed in the middle of a chain.
// The result passed to Convert reflects every step before Index.
type StepError struct {
	// Index is the zero-based position of the failing step
	Index int
	// Input and Output are the failing converter's declared formats
	Input  string
	Output string
	// Cause is the error returned by the converter
	Cause error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("conversion step %d (%s -> %s) failed", e.Index, e.Input, e.Output)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

// ConfigError represents a rejected converter registration.
type ConfigError struct {
	Field   string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	msg := "invalid converter"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ConversionError wraps a resolution failure raised by Registry.Convert
// with the operation that requested it.
type ConversionError struct {
	// Operation is the label attached with WithOperation, if any
	Operation string
	From      string
	To        string
	Cause     error
}

func (e *ConversionError) Error() string {
	msg := "conversion failed"
	if e.Operation != "" {
		msg += " for " + e.Operation
	}
	msg += fmt.Sprintf(" (%s -> %s)", e.From, e.To)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConversionError) Unwrap() error {
	return e.Cause
}

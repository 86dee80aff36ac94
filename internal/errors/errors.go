// Package errors provides structured error types and exit codes for patcheval.
package errors

import (
	"fmt"
)

// Exit codes reported by the CLI.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (command failed, evaluation aborted, etc.)
	ExitConfigError      = 2 // Configuration error (bad dataset, bad flags, etc.)
	ExitEnvironmentError = 3 // Environment error (container runtime not available, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
)

// HarnessError is the base error type for patcheval.
type HarnessError struct {
	Kind     ErrorKind
	Message  string
	Instance string // Task instance identifier if applicable
	Op       string // Operation name if applicable
	Cause    error  // Underlying error
}

func (e *HarnessError) Error() string {
	if e.Instance != "" && e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Instance, e.Op, e.Message)
	}
	if e.Instance != "" {
		return fmt.Sprintf("[%s] %s", e.Instance, e.Message)
	}
	return e.Message
}

func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *HarnessError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *HarnessError {
	return &HarnessError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *HarnessError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *HarnessError {
	return &HarnessError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *HarnessError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *HarnessError {
	return &HarnessError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *HarnessError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *HarnessError {
	return &HarnessError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// InstanceError creates an error scoped to a task instance operation.
func InstanceError(instance, op, message string) *HarnessError {
	return &HarnessError{
		Kind:     KindRuntime,
		Instance: instance,
		Op:       op,
		Message:  message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *HarnessError {
	return &HarnessError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if he, ok := err.(*HarnessError); ok {
		return he.ExitCode()
	}
	return ExitRuntimeError
}

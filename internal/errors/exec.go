package errors

import (
	"errors"
	"fmt"
	"time"
)

// CommandError indicates a subprocess completed with a non-zero exit code.
// It is returned only when the caller asked for non-zero exits to be raised;
// in non-raising mode the caller receives the completed result and inspects
// the exit code itself.
type CommandError struct {
	ExitCode int
	Output   string // Captured stdout (stderr merged)
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.ExitCode)
}

// TimeoutError indicates a subprocess exceeded its configured timeout and
// was terminated. Distinct from CommandError: the process did not complete.
type TimeoutError struct {
	Seconds int           // Configured timeout
	Elapsed time.Duration // Wall time until termination
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %d seconds", e.Seconds)
}

// LaunchError indicates a subprocess could not be started at all
// (executable missing, fork failure, and similar).
type LaunchError struct {
	Cause error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("command could not be launched: %v", e.Cause)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCommandFailure reports whether err is or wraps a CommandError.
func IsCommandFailure(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

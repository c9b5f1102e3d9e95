package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrSchedulerNotFound indicates the submit binary was not found
	ErrSchedulerNotFound = errors.New("scheduler binary not found in PATH")

	// ErrJobSubmissionFailed indicates job submission failed
	ErrJobSubmissionFailed = errors.New("job submission failed")

	// ErrJobIDParseFailed indicates parsing job ID from output failed
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")

	// ErrMarkerNotFound indicates the scheduler never reported a submitted job
	ErrMarkerNotFound = errors.New("submission marker not found in scheduler output")

	// ErrEmptyScriptPath indicates a script without a target path
	ErrEmptyScriptPath = errors.New("control file path is empty")

	// ErrUnknownDialect indicates an unsupported directive dialect
	ErrUnknownDialect = errors.New("unknown scheduler dialect")
)

// SubmissionFailedError represents a failed run of the submit command.
type SubmissionFailedError struct {
	Binary   string // Submit command
	Script   string // Control file path
	ExitCode int    // Exit status, -1 when the process did not run
	Output   string // Captured standard output
	Err      error  // Underlying error
}

func (e *SubmissionFailedError) Error() string {
	msg := fmt.Sprintf("%s submission failed for %s", e.Binary, e.Script)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\nOutput: " + out
	}
	return msg
}

func (e *SubmissionFailedError) Unwrap() error {
	if e.Err == nil {
		return ErrJobSubmissionFailed
	}
	return e.Err
}

// SubmissionParseError is returned when the scheduler accepted the job but
// its identifier could not be read. The submission itself stands.
type SubmissionParseError struct {
	Line   string // The marker line
	Output string // Full captured output
}

func (e *SubmissionParseError) Error() string {
	return fmt.Sprintf("%v: %q", ErrJobIDParseFailed, e.Line)
}

func (e *SubmissionParseError) Unwrap() error {
	return ErrJobIDParseFailed
}

// ScriptWriteError represents an error writing a control file
type ScriptWriteError struct {
	Path string // Script path
	Err  error  // Underlying error
}

func (e *ScriptWriteError) Error() string {
	return fmt.Sprintf("failed to write control file %s: %v", e.Path, e.Err)
}

func (e *ScriptWriteError) Unwrap() error {
	return e.Err
}

// IsSubmissionFailedError checks if an error is a SubmissionFailedError
func IsSubmissionFailedError(err error) bool {
	var se *SubmissionFailedError
	return errors.As(err, &se)
}

// IsSubmissionParseError checks if an error is a SubmissionParseError
func IsSubmissionParseError(err error) bool {
	var pe *SubmissionParseError
	return errors.As(err, &pe)
}

// IsScriptWriteError checks if an error is a ScriptWriteError
func IsScriptWriteError(err error) bool {
	var we *ScriptWriteError
	return errors.As(err, &we)
}

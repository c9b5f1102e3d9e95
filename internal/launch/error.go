package launch

import (
	"errors"
	"fmt"
)

// ErrCommandFileNotFound indicates the command list file does not exist
var ErrCommandFileNotFound = errors.New("command file not found")

// InvalidRequestError reports a request that cannot be planned at all.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// MalformedCommandFileError reports an empty command file or one with blank lines.
type MalformedCommandFileError struct {
	Path   string
	Line   int // 1-based line number, 0 when the whole file is at fault
	Reason string
}

func (e *MalformedCommandFileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("command file %s: line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("command file %s: %s", e.Path, e.Reason)
}

// UnderspecifiedAllocationError is returned for a parametric job with
// neither tasks per node nor a node count.
type UnderspecifiedAllocationError struct {
	CommandCount int
}

func (e *UnderspecifiedAllocationError) Error() string {
	return fmt.Sprintf("parametric job with %d commands needs --tasks-per-node or --nodes", e.CommandCount)
}

// CapacityExceededError is returned by StrictPolicy.
type CapacityExceededError struct {
	Queue     string
	Field     string // "nodes" or "cores"
	Requested int
	Limit     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("queue %s: requested %d %s exceeds limit %d", e.Queue, e.Requested, e.Field, e.Limit)
}

// IsInvalidRequestError checks if an error is an InvalidRequestError
func IsInvalidRequestError(err error) bool {
	var ie *InvalidRequestError
	return errors.As(err, &ie)
}

// IsMalformedCommandFileError checks if an error is a MalformedCommandFileError
func IsMalformedCommandFileError(err error) bool {
	var me *MalformedCommandFileError
	return errors.As(err, &me)
}

// IsUnderspecifiedAllocationError checks if an error is an UnderspecifiedAllocationError
func IsUnderspecifiedAllocationError(err error) bool {
	var ue *UnderspecifiedAllocationError
	return errors.As(err, &ue)
}

// IsCapacityExceededError checks if an error is a CapacityExceededError
func IsCapacityExceededError(err error) bool {
	var ce *CapacityExceededError
	return errors.As(err, &ce)
}

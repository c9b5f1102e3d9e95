// Package launch decides how a job request maps onto nodes and tasks.
package launch

import (
	"github.com/atakaragoz/launch/internal/queue"
)

// Mode is the execution mode of a job.
type Mode int

const (
	// ModeSerial runs a single command on a single node.
	ModeSerial Mode = iota
	// ModeParametric distributes many commands through the parametric launcher.
	ModeParametric
)

func (m Mode) String() string {
	switch m {
	case ModeSerial:
		return "serial"
	case ModeParametric:
		return "parametric"
	default:
		return "unknown"
	}
}

// Compiler names with special handling in the control file.
const (
	CompilerIntel = "intel"
	CompilerGCC   = "gcc"
)

// JobRequest is everything the user asked for, before planning.
// Exactly one of CommandText and CommandListPath must be set.
type JobRequest struct {
	CommandText     string // Literal command (serial)
	CommandListPath string // File with one command per line

	Runtime string // Walltime, HH:MM:SS
	JobName string
	Queue   queue.Spec

	NodesRequested *int
	TasksPerNode   *int

	WorkingDir  string // Optional, becomes a working-directory directive
	SubmitDir   string // Directory the launcher ran in
	OutputFile  string
	NotifyEmail string
	ProjectName string
	HoldOnJobID *int

	ScheduleStrategy string
	Compiler         string
}

// EffectiveWorkDir is the directory the job reports and hands to the launcher.
func (r *JobRequest) EffectiveWorkDir() string {
	if r.WorkingDir != "" {
		return r.WorkingDir
	}
	return r.SubmitDir
}

// Allocation is the result of planning. It is not modified after Plan returns.
type Allocation struct {
	Mode         Mode
	NodeCount    int
	TasksPerNode *int // nil unless the user fixed tasks per node
	TotalTasks   *int // nil in serial mode

	Command      string // Serial command; empty in parametric mode
	CommandCount int

	Estimated bool     // TotalTasks derived from the queue's cores per node
	Warnings  []string // Capacity diagnostics for the caller
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

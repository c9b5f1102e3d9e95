package launch

import (
	"github.com/atakaragoz/launch/internal/utils"
)

// Planner turns a JobRequest into an Allocation.
type Planner struct {
	policy CapacityPolicy
}

// NewPlanner returns a planner using policy for capacity checks.
// A nil policy means AdvisoryPolicy.
func NewPlanner(policy CapacityPolicy) *Planner {
	if policy == nil {
		policy = AdvisoryPolicy{}
	}
	return &Planner{policy: policy}
}

// Policy returns the capacity policy in use.
func (p *Planner) Policy() CapacityPolicy {
	return p.policy
}

// Plan validates req and computes its allocation. The only I/O is reading
// the command file; nothing is written.
func (p *Planner) Plan(req *JobRequest) (*Allocation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var alloc Allocation
	if req.CommandText != "" {
		alloc = serialAllocation(req.CommandText)
	} else {
		cmds, err := ReadCommandFile(req.CommandListPath)
		if err != nil {
			return nil, err
		}
		utils.PrintDebug("Found %d commands in %s", len(cmds), req.CommandListPath)

		// The parametric launcher is unreliable for a single task.
		if len(cmds) == 1 {
			alloc = serialAllocation(cmds[0])
		} else {
			alloc, err = parametricAllocation(req, len(cmds))
			if err != nil {
				return nil, err
			}
		}
	}

	if alloc.Mode == ModeSerial {
		return &alloc, nil
	}

	alloc, err := p.policy.Apply(req.Queue, alloc)
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

func serialAllocation(cmd string) Allocation {
	return Allocation{
		Mode:         ModeSerial,
		NodeCount:    1,
		Command:      cmd,
		CommandCount: 1,
	}
}

func parametricAllocation(req *JobRequest, ncmds int) (Allocation, error) {
	alloc := Allocation{
		Mode:         ModeParametric,
		CommandCount: ncmds,
	}

	switch {
	case req.TasksPerNode != nil:
		tpn := *req.TasksPerNode
		alloc.NodeCount = (ncmds + tpn - 1) / tpn
		alloc.TasksPerNode = IntPtr(tpn)
		alloc.TotalTasks = IntPtr(alloc.NodeCount * tpn)
	case req.NodesRequested != nil:
		alloc.NodeCount = *req.NodesRequested
		alloc.TotalTasks = IntPtr(alloc.NodeCount * req.Queue.CoresPerNode)
		alloc.Estimated = true
	default:
		return Allocation{}, &UnderspecifiedAllocationError{CommandCount: ncmds}
	}
	return alloc, nil
}

func validateRequest(req *JobRequest) error {
	if req == nil {
		return &InvalidRequestError{Reason: "nil request"}
	}
	hasText := req.CommandText != ""
	hasFile := req.CommandListPath != ""
	switch {
	case hasText && hasFile:
		return &InvalidRequestError{Reason: "specify either a command or a command file (-s), not both"}
	case !hasText && !hasFile:
		return &InvalidRequestError{Reason: "you must either specify a command file (-s) or a command to run"}
	}
	if _, err := utils.ParseWalltime(req.Runtime); err != nil {
		return &InvalidRequestError{Field: "runtime", Reason: err.Error()}
	}
	if req.Queue.Name == "" {
		return &InvalidRequestError{Field: "queue", Reason: "no queue selected"}
	}
	if req.NodesRequested != nil && *req.NodesRequested < 1 {
		return &InvalidRequestError{Field: "nodes", Reason: "must be at least 1"}
	}
	if req.TasksPerNode != nil && *req.TasksPerNode < 1 {
		return &InvalidRequestError{Field: "tasks-per-node", Reason: "must be at least 1"}
	}
	if req.HoldOnJobID != nil && *req.HoldOnJobID < 1 {
		return &InvalidRequestError{Field: "hold_jid", Reason: "must be a positive job ID"}
	}
	if req.JobName == "" {
		return &InvalidRequestError{Field: "jobname", Reason: "must not be empty"}
	}
	return nil
}

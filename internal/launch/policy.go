package launch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atakaragoz/launch/internal/queue"
)

// CapacityPolicy decides what happens when an allocation exceeds the
// queue's node or core ceilings. It returns the (possibly adjusted)
// allocation or an error.
type CapacityPolicy interface {
	Name() string
	Apply(q queue.Spec, a Allocation) (Allocation, error)
}

// Policy names accepted by PolicyByName.
const (
	PolicyAdvisory = "advisory"
	PolicyClamp    = "clamp"
	PolicyStrict   = "strict"
)

var policies = map[string]CapacityPolicy{
	PolicyAdvisory: AdvisoryPolicy{},
	PolicyClamp:    ClampPolicy{},
	PolicyStrict:   StrictPolicy{},
}

// PolicyByName returns the capacity policy registered under name.
// An empty name selects the advisory policy.
func PolicyByName(name string) (CapacityPolicy, error) {
	if name == "" {
		return AdvisoryPolicy{}, nil
	}
	p, ok := policies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown capacity policy %q (available: %s)", name, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// PolicyNames lists the registered policy names.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AdvisoryPolicy leaves the allocation alone and only reports overruns.
type AdvisoryPolicy struct{}

func (AdvisoryPolicy) Name() string { return PolicyAdvisory }

func (AdvisoryPolicy) Apply(q queue.Spec, a Allocation) (Allocation, error) {
	if a.NodeCount > q.MaxNodes {
		a.Warnings = append(a.Warnings, fmt.Sprintf("requested %d nodes exceeds queue %s limit of %d nodes", a.NodeCount, q.Name, q.MaxNodes))
	}
	if a.TotalTasks != nil && *a.TotalTasks > q.MaxCoresPerJob {
		a.Warnings = append(a.Warnings, fmt.Sprintf("requested %d tasks exceeds queue %s limit of %d cores per job", *a.TotalTasks, q.Name, q.MaxCoresPerJob))
	}
	return a, nil
}

// ClampPolicy lowers the node count and total tasks to the queue ceilings.
// The total stays a whole number of nodes times the tasks on each node.
type ClampPolicy struct{}

func (ClampPolicy) Name() string { return PolicyClamp }

func (ClampPolicy) Apply(q queue.Spec, a Allocation) (Allocation, error) {
	perNode := tasksOnEachNode(q, a)
	if a.NodeCount > q.MaxNodes {
		a.Warnings = append(a.Warnings, fmt.Sprintf("clamping nodes from %d to queue %s limit %d", a.NodeCount, q.Name, q.MaxNodes))
		a.NodeCount = q.MaxNodes
		if perNode > 0 {
			a.TotalTasks = IntPtr(a.NodeCount * perNode)
		}
	}
	if a.TotalTasks != nil && *a.TotalTasks > q.MaxCoresPerJob {
		a.Warnings = append(a.Warnings, fmt.Sprintf("clamping tasks from %d to queue %s limit %d", *a.TotalTasks, q.Name, q.MaxCoresPerJob))
		if perNode > 0 {
			a.NodeCount = max(q.MaxCoresPerJob/perNode, 1)
			a.TotalTasks = IntPtr(a.NodeCount * perNode)
		} else {
			a.TotalTasks = IntPtr(q.MaxCoresPerJob)
		}
	}
	return a, nil
}

// tasksOnEachNode returns how many tasks the allocation places per node,
// or 0 when the total is not tied to the node count.
func tasksOnEachNode(q queue.Spec, a Allocation) int {
	switch {
	case a.TasksPerNode != nil:
		return *a.TasksPerNode
	case a.Estimated:
		return q.CoresPerNode
	}
	return 0
}

// StrictPolicy rejects any allocation over the ceilings.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return PolicyStrict }

func (StrictPolicy) Apply(q queue.Spec, a Allocation) (Allocation, error) {
	if a.NodeCount > q.MaxNodes {
		return a, &CapacityExceededError{Queue: q.Name, Field: "nodes", Requested: a.NodeCount, Limit: q.MaxNodes}
	}
	if a.TotalTasks != nil && *a.TotalTasks > q.MaxCoresPerJob {
		return a, &CapacityExceededError{Queue: q.Name, Field: "cores", Requested: *a.TotalTasks, Limit: q.MaxCoresPerJob}
	}
	return a, nil
}

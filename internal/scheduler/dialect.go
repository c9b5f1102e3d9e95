// Package scheduler renders batch control files and submits them.
package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

// JobEnv holds the shell references a scheduler exposes inside a running job.
// They are written verbatim and expanded by the shell at run time.
type JobEnv struct {
	JobID    string
	JobName  string
	NodeList string
	NumNodes string
	NumTasks string
}

// Dialect formats scheduler directives for one batch system.
type Dialect interface {
	Name() string
	// Banner is the comment line naming the kind of control file.
	Banner() string
	// Resources returns the resource request lines. tasksPerNode may be nil.
	Resources(nodes int, tasksPerNode *int, runtime string) []string
	WorkDir(dir string) string
	JobName(name string) string
	Output(path string) string
	Hold(jobID int) string
	Project(name string) string
	Email(addr string) string
	Env() JobEnv
}

// Dialect names accepted by DialectByName.
const (
	DialectPBS   = "pbs"
	DialectSLURM = "slurm"
)

var dialects = map[string]Dialect{
	DialectPBS:   PbsDialect{},
	DialectSLURM: SlurmDialect{},
}

// DialectByName returns the named dialect. An empty name selects PBS.
func DialectByName(name string) (Dialect, error) {
	if name == "" {
		return PbsDialect{}, nil
	}
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownDialect, name, strings.Join(DialectNames(), ", "))
	}
	return d, nil
}

// DialectNames lists the registered dialects.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PbsDialect writes PBS/Torque directives.
type PbsDialect struct{}

func (PbsDialect) Name() string { return DialectPBS }

func (PbsDialect) Banner() string { return "# TORQUE control file automatically created by launch" }

func (PbsDialect) Resources(nodes int, tasksPerNode *int, runtime string) []string {
	if tasksPerNode == nil {
		return []string{fmt.Sprintf("#PBS -l nodes=%d,walltime=%s", nodes, runtime)}
	}
	return []string{fmt.Sprintf("#PBS -l nodes=%d:ppn=%d,walltime=%s", nodes, *tasksPerNode, runtime)}
}

func (PbsDialect) WorkDir(dir string) string { return "#PBS -d " + dir }

func (PbsDialect) JobName(name string) string { return "#PBS -N " + name }

func (PbsDialect) Output(path string) string { return "#PBS -j oe " + path }

func (PbsDialect) Hold(jobID int) string { return fmt.Sprintf("#PBS -W depend=afterok:%d", jobID) }

func (PbsDialect) Project(name string) string { return "#PBS -A " + name }

func (PbsDialect) Email(addr string) string { return "#PBS -M " + addr }

func (PbsDialect) Env() JobEnv {
	return JobEnv{
		JobID:    "$PBS_JOBID",
		JobName:  "$PBS_JOBNAME",
		NodeList: "$PBS_NODEFILE",
		NumNodes: "$PBS_NUM_NODES",
		NumTasks: "$PBS_NUM_PPN",
	}
}

// SlurmDialect writes SLURM directives.
type SlurmDialect struct{}

func (SlurmDialect) Name() string { return DialectSLURM }

func (SlurmDialect) Banner() string { return "# SLURM control file automatically created by launch" }

func (SlurmDialect) Resources(nodes int, tasksPerNode *int, runtime string) []string {
	lines := []string{fmt.Sprintf("#SBATCH -N %d", nodes)}
	if tasksPerNode != nil {
		lines = append(lines, fmt.Sprintf("#SBATCH --ntasks-per-node=%d", *tasksPerNode))
	}
	return append(lines, "#SBATCH -t "+runtime)
}

func (SlurmDialect) WorkDir(dir string) string { return "#SBATCH -D " + dir }

func (SlurmDialect) JobName(name string) string { return "#SBATCH -J " + name }

func (SlurmDialect) Output(path string) string { return "#SBATCH -o " + path }

func (SlurmDialect) Hold(jobID int) string { return fmt.Sprintf("#SBATCH -d afterok:%d", jobID) }

func (SlurmDialect) Project(name string) string { return "#SBATCH -A " + name }

func (SlurmDialect) Email(addr string) string { return "#SBATCH --mail-user=" + addr }

func (SlurmDialect) Env() JobEnv {
	return JobEnv{
		JobID:    "$SLURM_JOB_ID",
		JobName:  "$SLURM_JOB_NAME",
		NodeList: "$SLURM_JOB_NODELIST",
		NumNodes: "$SLURM_JOB_NUM_NODES",
		NumTasks: "$SLURM_NTASKS",
	}
}

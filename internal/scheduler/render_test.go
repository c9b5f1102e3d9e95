package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atakaragoz/launch/internal/launch"
	"github.com/atakaragoz/launch/internal/queue"
)

var fixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestRenderer(d Dialect) *Renderer {
	r := NewRenderer(d)
	r.Now = func() time.Time { return fixedTime }
	return r
}

func testRequest(t *testing.T) *launch.JobRequest {
	t.Helper()
	q, err := queue.Default().Lookup("normal")
	require.NoError(t, err)
	return &launch.JobRequest{
		Runtime:          "00:30:00",
		JobName:          "launch",
		Queue:            q,
		SubmitDir:        "/home/user/work",
		ScheduleStrategy: "interleaved",
		Compiler:         launch.CompilerIntel,
	}
}

func serialAlloc(cmd string) *launch.Allocation {
	return &launch.Allocation{Mode: launch.ModeSerial, NodeCount: 1, Command: cmd, CommandCount: 1}
}

func TestRenderSerialPbs(t *testing.T) {
	req := testRequest(t)
	req.CommandText = "echo hi"

	script := newTestRenderer(PbsDialect{}).Render(req, serialAlloc("echo hi"), "/tmp/launch_1.slurm")

	want := `#!/bin/bash
#
# TORQUE control file automatically created by launch
#
# Created on: 2024-03-01 09:30:00.000000
# Launching single command: echo hi
#
#PBS -l nodes=1,walltime=00:30:00
#PBS -N launch
#PBS -j oe launch.o%j

umask 2

echo " Starting at $(date)"
start=$(date +%s)
echo " WORKING DIR: /home/user/work/"
echo " JOB ID:      $PBS_JOBID"
echo " JOB NAME:    $PBS_JOBNAME"
echo " NODES:       $PBS_NODEFILE"
echo " N NODES:     $PBS_NUM_NODES"
echo " N TASKS:     $PBS_NUM_PPN"
export LAUNCHER_SCHED=interleaved
export LAUNCHER_JOB_FILE=
export LAUNCHER_WORKDIR=/home/user/work
$LAUNCHER_DIR/paramrun
echo " "
echo " Job complete at $(date)"
echo " "
finish=$(date +%s)
printf "Job duration: %02d:%02d:%02d (%d s)\n" $(((finish-start)/3600)) $(((finish-start)%3600/60)) $(((finish-start)%60)) $((finish-start))
`
	assert.Equal(t, want, script.Text)
	assert.Equal(t, "/tmp/launch_1.slurm", script.Path)
}

func TestRenderSerialDoesNotEmbedCommandInBody(t *testing.T) {
	req := testRequest(t)
	req.CommandText = "python train.py --epochs 3"

	text := newTestRenderer(nil).Render(req, serialAlloc(req.CommandText), "x").Text

	assert.Equal(t, 1, strings.Count(text, "python train.py --epochs 3"))
	assert.Contains(t, text, "# Launching single command: python train.py --epochs 3\n")
	assert.Contains(t, text, "$LAUNCHER_DIR/paramrun\n")
}

func TestRenderParametricPbs(t *testing.T) {
	req := testRequest(t)
	req.CommandListPath = "cmds.txt"
	req.Runtime = "02:00:00"
	req.WorkingDir = "/scratch/run"
	req.OutputFile = "run.log"
	req.HoldOnJobID = launch.IntPtr(4821)
	req.ProjectName = "ANTS"
	req.NotifyEmail = "me@example.org"

	alloc := &launch.Allocation{
		Mode:         launch.ModeParametric,
		NodeCount:    2,
		TasksPerNode: launch.IntPtr(2),
		TotalTasks:   launch.IntPtr(4),
		CommandCount: 3,
	}

	text := newTestRenderer(PbsDialect{}).Render(req, alloc, "x").Text
	lines := strings.Split(text, "\n")

	wantHead := []string{
		"#!/bin/bash",
		"#",
		"# TORQUE control file automatically created by launch",
		"#",
		"# Created on: 2024-03-01 09:30:00.000000",
		"# Using parametric launcher with control file: cmds.txt",
		"#",
		"#PBS -l nodes=2:ppn=2,walltime=02:00:00",
		"#PBS -d /scratch/run",
		"#PBS -N launch",
		"#PBS -j oe run.log",
		"#PBS -W depend=afterok:4821",
		"#PBS -A ANTS",
		"#PBS -M me@example.org",
		"",
		"umask 2",
		"",
	}
	require.GreaterOrEqual(t, len(lines), len(wantHead))
	assert.Equal(t, wantHead, lines[:len(wantHead)])

	assert.Contains(t, text, "echo \" WORKING DIR: /scratch/run/\"\n")
	assert.Contains(t, text, "export LAUNCHER_JOB_FILE=cmds.txt\n")
	assert.Contains(t, text, "export LAUNCHER_WORKDIR=/scratch/run\n")
}

func TestRenderParametricWithoutTasksPerNode(t *testing.T) {
	req := testRequest(t)
	req.CommandListPath = "cmds.txt"
	alloc := &launch.Allocation{
		Mode:       launch.ModeParametric,
		NodeCount:  3,
		TotalTasks: launch.IntPtr(144),
		Estimated:  true,
	}

	text := newTestRenderer(PbsDialect{}).Render(req, alloc, "x").Text
	assert.Contains(t, text, "#PBS -l nodes=3,walltime=00:30:00\n")
	assert.NotContains(t, text, "ppn=")
}

func TestRenderScenarioC(t *testing.T) {
	req := testRequest(t)
	req.CommandText = "echo hi"

	text := newTestRenderer(nil).Render(req, serialAlloc("echo hi"), "x").Text

	var resources []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#PBS -l ") {
			resources = append(resources, line)
		}
	}
	assert.Equal(t, []string{"#PBS -l nodes=1,walltime=00:30:00"}, resources)
	assert.Contains(t, text, "#PBS -N launch\n")
}

func TestRenderGccSkipsLaunch(t *testing.T) {
	req := testRequest(t)
	req.CommandListPath = "cmds.txt"
	req.Compiler = launch.CompilerGCC
	alloc := &launch.Allocation{Mode: launch.ModeParametric, NodeCount: 1, TasksPerNode: launch.IntPtr(4), TotalTasks: launch.IntPtr(4)}

	text := newTestRenderer(nil).Render(req, alloc, "x").Text

	assert.Contains(t, text, "module swap intel gcc\n")
	assert.NotContains(t, text, "LAUNCHER_SCHED")
	assert.NotContains(t, text, "LAUNCHER_JOB_FILE")
	assert.NotContains(t, text, "LAUNCHER_WORKDIR")
	assert.NotContains(t, text, "paramrun")
	assert.Contains(t, text, "finish=$(date +%s)\n")
}

func TestRenderHoldReferencesJobID(t *testing.T) {
	req := testRequest(t)
	req.CommandText = "echo hi"
	req.HoldOnJobID = launch.IntPtr(4821)

	text := newTestRenderer(nil).Render(req, serialAlloc("echo hi"), "x").Text

	var holds []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "afterok") {
			holds = append(holds, line)
		}
	}
	require.Len(t, holds, 1)
	assert.True(t, strings.HasSuffix(holds[0], ":4821"), holds[0])
}

func TestRenderIsDeterministic(t *testing.T) {
	req := testRequest(t)
	req.CommandText = "echo hi"
	alloc := serialAlloc("echo hi")

	r := NewRenderer(PbsDialect{})
	first := r.Render(req, alloc, "x").Text
	r.Now = func() time.Time { return fixedTime.Add(36 * time.Hour) }
	second := r.Render(req, alloc, "x").Text

	assert.NotEqual(t, first, second)
	assert.Equal(t, MaskTimestamp(first), MaskTimestamp(second))
	assert.Contains(t, MaskTimestamp(first), "# Created on: <timestamp>\n")
}

func TestRenderFallsBackToPwd(t *testing.T) {
	req := testRequest(t)
	req.CommandText = "echo hi"
	req.SubmitDir = ""

	text := newTestRenderer(nil).Render(req, serialAlloc("echo hi"), "x").Text
	assert.Contains(t, text, "echo \" WORKING DIR: $(pwd)/\"\n")
	assert.Contains(t, text, "export LAUNCHER_WORKDIR=$(pwd)\n")
}

func TestRenderSlurmDialect(t *testing.T) {
	req := testRequest(t)
	req.CommandListPath = "cmds.txt"
	req.WorkingDir = "/scratch"
	req.HoldOnJobID = launch.IntPtr(77)
	req.ProjectName = "proj"
	req.NotifyEmail = "a@b.c"
	alloc := &launch.Allocation{Mode: launch.ModeParametric, NodeCount: 2, TasksPerNode: launch.IntPtr(8), TotalTasks: launch.IntPtr(16)}

	text := newTestRenderer(SlurmDialect{}).Render(req, alloc, "x").Text

	for _, want := range []string{
		"# SLURM control file automatically created by launch\n",
		"#SBATCH -N 2\n#SBATCH --ntasks-per-node=8\n#SBATCH -t 00:30:00\n",
		"#SBATCH -D /scratch\n",
		"#SBATCH -J launch\n",
		"#SBATCH -o launch.o%j\n",
		"#SBATCH -d afterok:77\n",
		"#SBATCH -A proj\n",
		"#SBATCH --mail-user=a@b.c\n",
		"echo \" JOB ID:      $SLURM_JOB_ID\"\n",
		"echo \" N TASKS:     $SLURM_NTASKS\"\n",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "#PBS")
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("")
	require.NoError(t, err)
	assert.Equal(t, DialectPBS, d.Name())

	d, err = DialectByName("SLURM")
	require.NoError(t, err)
	assert.Equal(t, DialectSLURM, d.Name())

	_, err = DialectByName("lsf")
	assert.ErrorIs(t, err, ErrUnknownDialect)
	assert.Equal(t, []string{"pbs", "slurm"}, DialectNames())
}

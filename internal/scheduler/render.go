package scheduler

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/atakaragoz/launch/internal/launch"
)

const (
	createdOnPrefix = "# Created on: "
	timestampLayout = "2006-01-02 15:04:05.000000"

	// MaskedTimestamp replaces the creation time in MaskTimestamp output.
	MaskedTimestamp = "<timestamp>"
)

var createdOnRe = regexp.MustCompile(`(?m)^# Created on: .*$`)

// Script is a rendered control file and the path it will be written to.
type Script struct {
	Path string
	Text string
}

// Renderer produces control files. Apart from the timestamp taken from
// Now, the output depends only on its inputs.
type Renderer struct {
	Dialect Dialect
	Now     func() time.Time
}

// NewRenderer returns a renderer for d using the wall clock.
// A nil dialect means PBS.
func NewRenderer(d Dialect) *Renderer {
	if d == nil {
		d = PbsDialect{}
	}
	return &Renderer{Dialect: d, Now: time.Now}
}

// Render builds the control file for req and alloc, to be written at path.
func (r *Renderer) Render(req *launch.JobRequest, alloc *launch.Allocation, path string) *Script {
	var b strings.Builder
	r.write(&b, req, alloc)
	return &Script{Path: path, Text: b.String()}
}

// MaskTimestamp replaces the creation time line so two renders can be compared.
func MaskTimestamp(text string) string {
	return createdOnRe.ReplaceAllString(text, createdOnPrefix+MaskedTimestamp)
}

// DefaultOutputFile is the output path used when none is given: the job
// name plus the scheduler's job-id placeholder.
func DefaultOutputFile(jobName string) string {
	return jobName + ".o%j"
}

func (r *Renderer) write(w io.Writer, req *launch.JobRequest, alloc *launch.Allocation) {
	d := r.Dialect
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	fmt.Fprintln(w, "#!/bin/bash")
	fmt.Fprintln(w, "#")
	fmt.Fprintln(w, d.Banner())
	fmt.Fprintln(w, "#")
	fmt.Fprintf(w, "%s%s\n", createdOnPrefix, now().Format(timestampLayout))

	// Resource block
	if alloc.Mode == launch.ModeParametric {
		fmt.Fprintf(w, "# Using parametric launcher with control file: %s\n#\n", req.CommandListPath)
		for _, line := range d.Resources(alloc.NodeCount, alloc.TasksPerNode, req.Runtime) {
			fmt.Fprintln(w, line)
		}
	} else {
		fmt.Fprintf(w, "# Launching single command: %s\n#\n", alloc.Command)
		for _, line := range d.Resources(1, nil, req.Runtime) {
			fmt.Fprintln(w, line)
		}
	}

	if req.WorkingDir != "" {
		fmt.Fprintln(w, d.WorkDir(req.WorkingDir))
	}
	fmt.Fprintln(w, d.JobName(req.JobName))
	if req.OutputFile != "" {
		fmt.Fprintln(w, d.Output(req.OutputFile))
	} else {
		fmt.Fprintln(w, d.Output(DefaultOutputFile(req.JobName)))
	}
	if req.HoldOnJobID != nil {
		fmt.Fprintln(w, d.Hold(*req.HoldOnJobID))
	}
	if req.ProjectName != "" {
		fmt.Fprintln(w, d.Project(req.ProjectName))
	}
	if req.NotifyEmail != "" {
		fmt.Fprintln(w, d.Email(req.NotifyEmail))
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "umask 2")
	fmt.Fprintln(w, "")

	workDir := req.EffectiveWorkDir()
	if workDir == "" {
		workDir = "$(pwd)"
	}

	// Prologue
	env := d.Env()
	fmt.Fprintln(w, `echo " Starting at $(date)"`)
	fmt.Fprintf(w, "%s\n", "start=$(date +%s)")
	fmt.Fprintf(w, "echo \" WORKING DIR: %s/\"\n", workDir)
	fmt.Fprintf(w, "echo \" JOB ID:      %s\"\n", env.JobID)
	fmt.Fprintf(w, "echo \" JOB NAME:    %s\"\n", env.JobName)
	fmt.Fprintf(w, "echo \" NODES:       %s\"\n", env.NodeList)
	fmt.Fprintf(w, "echo \" N NODES:     %s\"\n", env.NumNodes)
	fmt.Fprintf(w, "echo \" N TASKS:     %s\"\n", env.NumTasks)

	// Body. With gcc selected only the module swap is written and nothing
	// is run; serial jobs share the launcher block and never embed their
	// command.
	if req.Compiler == launch.CompilerGCC {
		fmt.Fprintln(w, "module swap intel gcc")
	} else {
		fmt.Fprintf(w, "export LAUNCHER_SCHED=%s\n", req.ScheduleStrategy)
		fmt.Fprintf(w, "export LAUNCHER_JOB_FILE=%s\n", req.CommandListPath)
		fmt.Fprintf(w, "export LAUNCHER_WORKDIR=%s\n", workDir)
		fmt.Fprintln(w, "$LAUNCHER_DIR/paramrun")
	}

	// Epilogue
	fmt.Fprintln(w, `echo " "`)
	fmt.Fprintln(w, `echo " Job complete at $(date)"`)
	fmt.Fprintln(w, `echo " "`)
	fmt.Fprintf(w, "%s\n", "finish=$(date +%s)")
	fmt.Fprintf(w, "%s\n", `printf "Job duration: %02d:%02d:%02d (%d s)\n" $(((finish-start)/3600)) $(((finish-start)%3600/60)) $(((finish-start)%60)) $((finish-start))`)
}

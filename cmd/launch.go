package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/atakaragoz/launch/internal/config"
	"github.com/atakaragoz/launch/internal/launch"
	"github.com/atakaragoz/launch/internal/queue"
	"github.com/atakaragoz/launch/internal/scheduler"
	"github.com/atakaragoz/launch/internal/utils"
)

// launchOptions holds the root command's job flags.
type launchOptions struct {
	nodes        int
	tasksPerNode int
	holdJobID    int

	script   string
	runtime  string
	jobName  string
	outFile  string
	queue    string
	project  string
	email    string
	cwd      string
	qsubFile string
	compiler string
	schedule string

	keep bool
	test bool

	capacityPolicy string
	dialect        string
	submitBin      string
}

var launchOpts launchOptions

func registerLaunchFlags(cmd *cobra.Command, opts *launchOptions) {
	f := cmd.Flags()
	f.IntVarP(&opts.nodes, "nodes", "N", 0, "Number of nodes to request")
	f.IntVarP(&opts.tasksPerNode, "tasks-per-node", "e", 0, "Tasks per node for parametric jobs")
	f.StringVarP(&opts.script, "script", "s", "", "File of commands to run, one per line")
	f.StringVarP(&opts.runtime, "runtime", "l", "01:00:00", "Maximum runtime (HH:MM:SS)")
	f.StringVarP(&opts.jobName, "jobname", "J", "launch", "Job name")
	f.StringVarP(&opts.outFile, "outfile", "o", "", "Output file (default <jobname>.o%j)")
	f.StringVarP(&opts.queue, "queue", "q", "normal", "Queue to submit to")
	f.StringVarP(&opts.project, "projname", "A", "", "Project to charge the job to")
	f.StringVarP(&opts.email, "email", "m", "", "Email address for job notifications")
	f.StringVarP(&opts.cwd, "cwd", "D", "", "Working directory for the job")
	f.StringVarP(&opts.qsubFile, "qsubfile", "f", "", "Name of the control file (default: a unique temp file)")
	f.IntVarP(&opts.holdJobID, "hold_jid", "d", 0, "Hold the job until this job ID completes successfully")
	f.BoolVarP(&opts.keep, "keepqsubfile", "k", false, "Keep the control file after submission")
	f.BoolVarP(&opts.test, "test", "t", false, "Write the control file but do not submit it")
	f.StringVarP(&opts.compiler, "compiler", "c", launch.CompilerIntel, "Compiler environment (intel or gcc)")
	f.StringVarP(&opts.schedule, "schedule", "b", "interleaved", "Parametric launcher scheduling strategy")
	f.StringVar(&opts.capacityPolicy, "capacity-policy", launch.PolicyAdvisory, "What to do when a job exceeds queue limits: "+strings.Join(launch.PolicyNames(), ", "))
	f.StringVar(&opts.dialect, "dialect", scheduler.DialectPBS, "Directive dialect: "+strings.Join(scheduler.DialectNames(), ", "))
	f.StringVar(&opts.submitBin, "submit-bin", "sbatch", "Executable used to submit the control file")

	_ = cmd.RegisterFlagCompletionFunc("queue", queueCompletion)
	_ = cmd.RegisterFlagCompletionFunc("capacity-policy", fixedCompletion(launch.PolicyNames()))
	_ = cmd.RegisterFlagCompletionFunc("dialect", fixedCompletion(scheduler.DialectNames()))
	_ = cmd.RegisterFlagCompletionFunc("compiler", fixedCompletion([]string{launch.CompilerIntel, launch.CompilerGCC}))
}

// resolveOptions fills every flag the user did not set from the loaded config.
func resolveOptions(fs *pflag.FlagSet, opts launchOptions, cfg config.Config) launchOptions {
	fromConfig := func(name string, dst *string, value string) {
		if !fs.Changed(name) && value != "" {
			*dst = value
		}
	}
	fromConfig("runtime", &opts.runtime, cfg.Defaults.Runtime)
	fromConfig("jobname", &opts.jobName, cfg.Defaults.JobName)
	fromConfig("queue", &opts.queue, cfg.Defaults.Queue)
	fromConfig("projname", &opts.project, cfg.Defaults.Project)
	fromConfig("compiler", &opts.compiler, cfg.Defaults.Compiler)
	fromConfig("schedule", &opts.schedule, cfg.Defaults.Schedule)
	fromConfig("capacity-policy", &opts.capacityPolicy, cfg.CapacityPolicy)
	fromConfig("dialect", &opts.dialect, cfg.Dialect)
	fromConfig("submit-bin", &opts.submitBin, cfg.SubmitBin)
	return opts
}

// changedInt returns a pointer to v only if the flag was given.
func changedInt(fs *pflag.FlagSet, name string, v int) *int {
	if !fs.Changed(name) {
		return nil
	}
	return launch.IntPtr(v)
}

// buildRequest turns parsed flags and trailing arguments into a JobRequest.
func buildRequest(fs *pflag.FlagSet, opts launchOptions, args []string, q queue.Spec, submitDir string) *launch.JobRequest {
	return &launch.JobRequest{
		CommandText:      strings.Join(args, " "),
		CommandListPath:  opts.script,
		Runtime:          opts.runtime,
		JobName:          opts.jobName,
		Queue:            q,
		NodesRequested:   changedInt(fs, "nodes", opts.nodes),
		TasksPerNode:     changedInt(fs, "tasks-per-node", opts.tasksPerNode),
		WorkingDir:       opts.cwd,
		SubmitDir:        submitDir,
		OutputFile:       opts.outFile,
		NotifyEmail:      opts.email,
		ProjectName:      opts.project,
		HoldOnJobID:      changedInt(fs, "hold_jid", opts.holdJobID),
		ScheduleStrategy: opts.schedule,
		Compiler:         opts.compiler,
	}
}

func runLaunch(cmd *cobra.Command, args []string) error {
	opts := resolveOptions(cmd.Flags(), launchOpts, config.Global)

	catalog, err := config.LoadQueueCatalog()
	if err != nil {
		return fmt.Errorf("invalid queue configuration: %w", err)
	}
	q, err := catalog.Lookup(opts.queue)
	if err != nil {
		utils.PrintHint("Run %s to list the available queues", utils.StyleCommand("launch queues"))
		return err
	}

	policy, err := launch.PolicyByName(opts.capacityPolicy)
	if err != nil {
		return err
	}
	dialect, err := scheduler.DialectByName(opts.dialect)
	if err != nil {
		return err
	}

	submitDir, err := os.Getwd()
	if err != nil {
		utils.PrintDebug("Cannot determine current directory, using $(pwd): %v", err)
		submitDir = ""
	}
	req := buildRequest(cmd.Flags(), opts, args, q, submitDir)

	// Plan before touching the filesystem so a bad request leaves nothing behind.
	alloc, err := launch.NewPlanner(policy).Plan(req)
	if err != nil {
		if launch.IsUnderspecifiedAllocationError(err) {
			utils.PrintHint("Use %s or %s", utils.StyleCommand("-e <tasks-per-node>"), utils.StyleCommand("-N <nodes>"))
		}
		return err
	}
	for _, w := range alloc.Warnings {
		utils.PrintWarning("%s", w)
	}
	printAllocation(req, alloc)

	var runner scheduler.Runner
	if !opts.test {
		er, err := scheduler.NewExecRunner(opts.submitBin, config.Global.SubmitArgs...)
		if err != nil {
			utils.PrintHint("Set %s or pass %s", utils.StyleCommand("submit_bin"), utils.StyleCommand("--submit-bin"))
			return err
		}
		runner = er
	}

	path := opts.qsubFile
	if path == "" {
		path, err = scheduler.NewScriptPath(config.Global.ScriptDir, req.JobName, config.Global.ScriptExt)
		if err != nil {
			return err
		}
	}
	utils.PrintDebug("Control file: %s", path)

	script := scheduler.NewRenderer(dialect).Render(req, alloc, path)

	if scheduler.IsInsideJob() {
		utils.PrintWarning("Submitting from inside a running job")
	}

	submitter := scheduler.NewSubmitter(runner)
	submitter.Marker = config.Global.SubmitMarker
	res, err := submitScript(cmd.Context(), submitter, script, opts)
	if err != nil {
		if scheduler.IsSubmissionParseError(err) {
			// The job was accepted; only the ID is unknown.
			utils.PrintWarning("%v", err)
			return nil
		}
		return err
	}

	switch {
	case res.DryRun:
		utils.PrintSuccess("Test mode: control file generated, not submitted")
	case res.JobID != nil:
		if utils.QuietMode {
			fmt.Fprintln(cmd.OutOrStdout(), *res.JobID)
		} else {
			utils.PrintSuccess("Submitted job %s", utils.StyleNumber(*res.JobID))
		}
	}
	return nil
}

// submitScript runs Submit and removes the reserved control file when it
// could not be written, since Submit only cleans up files it wrote.
func submitScript(ctx context.Context, s *scheduler.Submitter, script *scheduler.Script, opts launchOptions) (*scheduler.SubmissionResult, error) {
	res, err := s.Submit(ctx, script, opts.keep, opts.test)
	if err != nil && scheduler.IsScriptWriteError(err) && opts.qsubFile == "" {
		if rmErr := os.Remove(script.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			utils.PrintWarning("failed to delete control file %s: %v", script.Path, rmErr)
		}
	}
	return res, err
}

func printAllocation(req *launch.JobRequest, alloc *launch.Allocation) {
	utils.PrintMessage("Queue: %s, runtime: %s, job name: %s",
		utils.StyleName(req.Queue.Name), req.Runtime, utils.StyleName(req.JobName))

	if alloc.Mode == launch.ModeSerial {
		utils.PrintMessage("Serial job on %s node: %s", utils.StyleNumber(alloc.NodeCount), utils.StyleCommand(alloc.Command))
		return
	}

	utils.PrintMessage("Parametric job: %s commands on %s nodes",
		utils.StyleNumber(alloc.CommandCount), utils.StyleNumber(alloc.NodeCount))
	if alloc.TotalTasks != nil {
		if alloc.Estimated {
			utils.PrintNote("Estimated %s total tasks from %d cores per node",
				utils.StyleNumber(*alloc.TotalTasks), req.Queue.CoresPerNode)
		} else {
			utils.PrintMessage("Total tasks: %s", utils.StyleNumber(*alloc.TotalTasks))
		}
	}
}

func queueCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return defaultQueueNames(), cobra.ShellCompDirectiveNoFileComp
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

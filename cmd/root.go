package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atakaragoz/launch/internal/config"
	"github.com/atakaragoz/launch/internal/utils"
)

var (
	debugMode bool
	quietMode bool
)

var rootCmd = &cobra.Command{
	Use:   "launch [flags] [command...]",
	Short: "Launch: generate and submit batch control files for serial and parametric jobs.",
	Long: `Launch builds a batch control file for a single command or for a file of
commands (one per line) and submits it to the scheduler.

A single command runs serially on one node. A command file with two or more
lines runs through the parametric launcher; give --tasks-per-node to size the
job from the number of commands, or --nodes to fix the node count.

A command whose first word matches a launch subcommand (queues, config,
scheduler, completion, help) must follow "--" to run as a job.`,
	Example: `  launch -q development -l 00:10:00 ./a.out input.dat
  launch -s commands.txt -e 12 -J sweep
  launch -s commands.txt -N 4 -d 4821 -k -t
  launch -q normal -- config --check input.dat`,
	Version:       config.VERSION,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Built-in defaults
		config.LoadDefaults()

		// Step 2: Config file and environment
		if err := config.InitViper(); err != nil {
			utils.PrintWarning("Error reading config file: %v", err)
		}
		if err := config.LoadFromViper(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// Step 3: Command-line flags (highest priority)
		if quietMode {
			utils.QuietMode = true
			config.Global.Quiet = true
		}
		if debugMode {
			utils.DebugMode = true
			config.Global.Debug = true
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("Launch Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("Submit Binary: %s", config.Global.SubmitBin)
			utils.PrintDebug("Dialect: %s", config.Global.Dialect)
			utils.PrintDebug("Capacity Policy: %s", config.Global.CapacityPolicy)
		}
		return nil
	},

	RunE: runLaunch,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command tree with args and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra's automatic error printing is silenced.
		utils.PrintError("%v", err)
		return 1
	}
	return 0
}

func init() {
	// Trailing commands keep their own flags: "launch -q gpu mpirun -np 4 ./a.out"
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Only print warnings and errors")

	registerLaunchFlags(rootCmd, &launchOpts)
}

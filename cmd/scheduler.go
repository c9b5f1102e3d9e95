package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atakaragoz/launch/internal/config"
	"github.com/atakaragoz/launch/internal/scheduler"
	"github.com/atakaragoz/launch/internal/utils"
)

var schedulerCmd = &cobra.Command{
	Use:     "scheduler",
	Aliases: []string{"sched"},
	Short:   "Display scheduler information",
	Long: `Display the submit binary and directive dialect launch will use, whether the
binary can be found, and whether this shell is already inside a batch job.`,
	Example: `  launch scheduler           # Show scheduler information
  launch sched               # Short alias`,
	Args: cobra.NoArgs,
	Run:  runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) {
	bin := config.Global.SubmitBin

	fmt.Println("Scheduler Information:")
	fmt.Printf("  Dialect:   %s\n", utils.StyleInfo(config.Global.Dialect))
	fmt.Printf("  Binary:    %s\n", utils.StylePath(bin))
	fmt.Printf("  Marker:    %q\n", config.Global.SubmitMarker)
	if len(config.Global.SubmitArgs) > 0 {
		fmt.Printf("  Args:      %v\n", config.Global.SubmitArgs)
	}

	switch {
	case scheduler.IsInsideJob():
		fmt.Printf("  Status:    %s (inside job)\n", utils.StyleWarning("Available"))
		fmt.Println()
		fmt.Println("You are currently inside a scheduled job (detected via environment).")
		fmt.Println("Submitting from here creates a nested job.")
	case config.ValidateBinary(bin):
		fmt.Printf("  Status:    %s\n", utils.StyleSuccess("Available"))
	default:
		fmt.Printf("  Status:    %s\n", utils.StyleError("Not Found"))
		fmt.Println()
		if detected, dialect := scheduler.DetectSubmitBin(); detected != "" {
			utils.PrintHint("Found %s (%s) on PATH; run %s to use it",
				utils.StylePath(detected), dialect, utils.StyleCommand("launch config init"))
		} else {
			fmt.Println("Neither sbatch nor qsub was found on PATH. Use --test to only generate control files.")
		}
	}
}

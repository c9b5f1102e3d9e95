package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atakaragoz/launch/internal/config"
	"github.com/atakaragoz/launch/internal/queue"
	"github.com/atakaragoz/launch/internal/utils"
)

var queuesCmd = &cobra.Command{
	Use:   "queues",
	Short: "List known queues and their limits",
	Long: `List the queues launch knows about with their cores per node, maximum node
count and maximum cores per job. Entries under "queues" in the config file
replace or extend the built-in table. Names from the config file are stored
in lower case; -q matches queue names case-insensitively.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := config.LoadQueueCatalog()
		if err != nil {
			return fmt.Errorf("invalid queue configuration: %w", err)
		}
		printQueues(catalog)
		return nil
	},
}

func printQueues(catalog *queue.Catalog) {
	w := tabwriter.NewWriter(utils.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUE\tCORES/NODE\tMAX NODES\tMAX CORES/JOB")
	for _, s := range catalog.Specs() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Name, s.CoresPerNode, s.MaxNodes, s.MaxCoresPerJob)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func init() {
	rootCmd.AddCommand(queuesCmd)
}

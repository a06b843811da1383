package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hhkbp2/kvbench"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transaction phase of the workload",
	Long: "run drives the configured operation mix against the database " +
		"until operationcount operations complete or maxexecutiontime " +
		"elapses, then reports throughput and latency per operation kind.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPhase(cmd, func(client *kvbench.Client, ctx context.Context) (*kvbench.Report, error) {
			return client.RunTransactions(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hhkbp2/kvbench"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Insert the initial records into the database",
	Long: "load inserts the keys [insertstart, insertstart+insertcount) " +
		"into the database, retrying failed inserts per the " +
		"insertionretry* properties.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPhase(cmd, func(client *kvbench.Client, ctx context.Context) (*kvbench.Report, error) {
			return client.RunLoad(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

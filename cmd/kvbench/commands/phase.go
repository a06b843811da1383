package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hhkbp2/kvbench"
	"github.com/hhkbp2/kvbench/binding"
)

type runPhaseFunc func(client *kvbench.Client, ctx context.Context) (*kvbench.Report, error)

// runPhase builds the workload and client from the merged properties,
// runs one benchmark phase until it finishes or the process is
// interrupted, and exports the report.
func runPhase(cmd *cobra.Command, phase runPhaseFunc) error {
	props, err := buildProperties(cmd)
	if err != nil {
		return err
	}
	dbName := props.GetDefault(kvbench.PropertyDB, kvbench.PropertyDBDefault)
	if _, ok := binding.Databases[dbName]; !ok {
		return kvbench.NewConfigError(
			kvbench.PropertyDB, "unsupported database %q", dbName)
	}
	client := kvbench.NewClient(
		props,
		kvbench.NewCoreWorkload(),
		func() (kvbench.DB, error) {
			return binding.NewDB(dbName, props)
		})

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := phase(client, ctx)
	if report != nil {
		exporter, err := kvbench.NewReportExporter(props)
		if err != nil {
			return err
		}
		if err := report.Export(exporter); err != nil {
			exporter.Close()
			return err
		}
		if err := exporter.Close(); err != nil {
			return err
		}
	}
	return runErr
}

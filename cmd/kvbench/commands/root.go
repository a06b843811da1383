// Package commands wires the benchmark phases into a command line tool.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hhkbp2/kvbench"
)

var (
	propertyFiles  []string
	propertyFlags  []string
	flagDB         string
	flagTable      string
	flagThreads    int64
	flagTarget     int64
	flagSeed       int64
	flagStatusEach float64
	flagLogLevel   string
)

// flagToProperty maps a bound flag name to the property it overrides.
var flagToProperty = map[string]string{
	"db":              kvbench.PropertyDB,
	"table":           kvbench.PropertyTableName,
	"threads":         kvbench.PropertyThreadCount,
	"target":          kvbench.PropertyTarget,
	"seed":            kvbench.PropertySeed,
	"status-interval": kvbench.PropertyStatusInterval,
	"log-level":       kvbench.PropertyLogLevel,
}

var rootCmd = &cobra.Command{
	Use:   "kvbench",
	Short: "Synthetic key/value workload benchmark",
	Long: "kvbench loads a key/value store with synthetic records and then " +
		"drives a configurable mix of operations against it, reporting " +
		"throughput and latency per operation kind.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&propertyFiles, "property-file", "P", nil,
		"workload property file, may be given multiple times")
	flags.StringArrayVarP(&propertyFlags, "property", "p", nil,
		"property override as key=value, may be given multiple times")
	flags.StringVar(&flagDB, "db", kvbench.PropertyDBDefault,
		"database adapter to drive")
	flags.StringVar(&flagTable, "table", kvbench.PropertyTableNameDefault,
		"table to run against")
	flags.Int64Var(&flagThreads, "threads", 1, "number of client goroutines")
	flags.Int64Var(&flagTarget, "target", 0,
		"target operations per second, 0 for unthrottled")
	flags.Int64Var(&flagSeed, "seed", 0,
		"seed for all random draws, 0 seeds from the clock")
	flags.Float64Var(&flagStatusEach, "status-interval", 10,
		"seconds between status lines, 0 disables them")
	flags.StringVar(&flagLogLevel, "log-level", kvbench.PropertyLogLevelDefault,
		"log level: debug, verbose, info, warning, error")

	viper.SetEnvPrefix("KVBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for name := range flagToProperty {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// buildProperties merges property files, KVBENCH_* environment values
// and command line flags, later sources overriding earlier ones.
func buildProperties(cmd *cobra.Command) (kvbench.Properties, error) {
	props := kvbench.NewProperties()
	for _, path := range propertyFiles {
		p, err := kvbench.LoadProperties(path)
		if err != nil {
			return nil, err
		}
		props.Merge(p)
	}
	for _, kv := range propertyFlags {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed property %q, expected key=value", kv)
		}
		props.Add(parts[0], parts[1])
	}
	for name, property := range flagToProperty {
		if cmd.Flags().Changed(name) {
			props.Add(property, viper.GetString(name))
		} else if viper.IsSet(name) {
			props.Add(property, viper.GetString(name))
		}
	}
	if err := kvbench.SetLogLevel(
		props.GetDefault(kvbench.PropertyLogLevel,
			kvbench.PropertyLogLevelDefault)); err != nil {
		return nil, err
	}
	return props, nil
}

/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
	rootCmd.Version = Version
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/queryiq/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:          "queryiq",
	SilenceUsage: true,
	Short:        "Analyze PostgreSQL queries and suggest optimizations",
	Long: `queryiq analyzes SQL queries together with their PostgreSQL EXPLAIN plans
and produces ranked optimization suggestions.

It combines heuristic rules with a hot-swappable learned latency model,
can poll pg_stat_statements continuously, and serves the same analysis
over HTTP.`,
	Example: `  # Analyze a query against a live database
  queryiq analyze "SELECT * FROM users WHERE age > 25" --profile prod

  # Compare two plans
  queryiq compare before.json after.json

  # Run the HTTP service with background collection
  queryiq serve --profile prod`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger from --log-level. Logs go to stderr as
// logfmt so stdout stays clean for command output.
func newLogger(cmd *cobra.Command) (log.Logger, error) {
	lvl, _ := cmd.Flags().GetString("log-level")

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	switch lvl {
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		return nil, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", lvl)
	}
	return logger, nil
}

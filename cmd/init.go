/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simplyadil/QueryIQ/internal/collector"
	"github.com/simplyadil/QueryIQ/internal/engine"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write ~/.config/queryiq/config.yml populated with the built-in defaults,
ready to edit. An existing config file will not be overwritten unless
--force is given.`,
	Example: `  # Create default config
  queryiq init

  # Overwrite existing config
  queryiq init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		dir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, "queryiq", "config.yml")

		if !force {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(starterConfig()), 0o644); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

// starterConfig renders the built-in defaults, so a fresh file changes
// nothing until edited.
func starterConfig() string {
	eng := engine.DefaultConfig()
	col := collector.DefaultConfig()
	return fmt.Sprintf(`engine:
  slow_query_threshold_ms: %v
  large_relation_row_threshold: %d
  complexity_weights:
    join: %v
    subquery: %v
    depth: %v
    length: %v
  max_suggestions: %d
  deviation_ratio_threshold: %v
  base_latency_ms: %v
  scaling_factor: %v

collector:
  interval: %s
  limit: %d
  min_mean_time_ms: %v
  cache_size: %d

store:
  path: %s

# Uncomment to load a trained model artifact. serve and collect watch the
# file and hot-reload it on change.
# model:
#   path: /path/to/model.json

server:
  listen: %q
`,
		eng.SlowQueryThresholdMs,
		eng.LargeRelationRowThreshold,
		eng.ComplexityWeights.Join,
		eng.ComplexityWeights.Subquery,
		eng.ComplexityWeights.Depth,
		eng.ComplexityWeights.Length,
		eng.MaxSuggestions,
		eng.DeviationRatioThreshold,
		eng.BaseLatencyMs,
		eng.ScalingFactor,
		col.Interval,
		col.Limit,
		col.MinMeanTimeMs,
		col.CacheSize,
		defaultStoreFile,
		defaultListen,
	)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
}

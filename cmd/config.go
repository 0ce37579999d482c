/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simplyadil/QueryIQ/internal/collector"
	"github.com/simplyadil/QueryIQ/internal/engine"
)

// appConfig is the file-backed configuration shared by all commands. Every
// key can also come from the environment as QUERYIQ_* with dots replaced by
// underscores (QUERYIQ_SERVER_LISTEN, QUERYIQ_ENGINE_MAX_SUGGESTIONS, ...).
type appConfig struct {
	Engine    engine.Config    `mapstructure:"engine"`
	Collector collector.Config `mapstructure:"collector"`
	Store     storeConfig      `mapstructure:"store"`
	Model     modelConfig      `mapstructure:"model"`
	Server    serverConfig     `mapstructure:"server"`
}

type storeConfig struct {
	// Path of the SQLite database holding collected queries and analyses.
	Path string `mapstructure:"path"`
}

type modelConfig struct {
	// Path of the model artifact to load. Empty means no model; predictions
	// use the heuristic fallback. Long-running commands watch this file and
	// hot-reload it on change.
	Path string `mapstructure:"path"`
}

type serverConfig struct {
	Listen string `mapstructure:"listen"`
}

const (
	defaultStoreFile = "queryiq.db"
	defaultListen    = ":8080"
)

// loadConfig reads ~/.config/queryiq/config.yml (or the --config override),
// layers QUERYIQ_* environment variables on top, and fills everything else
// from built-in defaults. A missing config file is not an error; a missing
// --config file is.
func loadConfig(cmd *cobra.Command) (appConfig, error) {
	v := viper.New()

	eng := engine.DefaultConfig()
	col := collector.DefaultConfig()
	v.SetDefault("engine.slow_query_threshold_ms", eng.SlowQueryThresholdMs)
	v.SetDefault("engine.large_relation_row_threshold", eng.LargeRelationRowThreshold)
	v.SetDefault("engine.complexity_weights.join", eng.ComplexityWeights.Join)
	v.SetDefault("engine.complexity_weights.subquery", eng.ComplexityWeights.Subquery)
	v.SetDefault("engine.complexity_weights.depth", eng.ComplexityWeights.Depth)
	v.SetDefault("engine.complexity_weights.length", eng.ComplexityWeights.Length)
	v.SetDefault("engine.max_suggestions", eng.MaxSuggestions)
	v.SetDefault("engine.deviation_ratio_threshold", eng.DeviationRatioThreshold)
	v.SetDefault("engine.base_latency_ms", eng.BaseLatencyMs)
	v.SetDefault("engine.scaling_factor", eng.ScalingFactor)
	v.SetDefault("collector.interval", col.Interval)
	v.SetDefault("collector.limit", col.Limit)
	v.SetDefault("collector.min_mean_time_ms", col.MinMeanTimeMs)
	v.SetDefault("collector.cache_size", col.CacheSize)
	v.SetDefault("store.path", defaultStoreFile)
	v.SetDefault("model.path", "")
	v.SetDefault("server.listen", defaultListen)

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "queryiq"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QUERYIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return appConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return appConfig{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}

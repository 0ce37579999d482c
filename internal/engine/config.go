package engine

import (
	"fmt"

	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/predict"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

// Config carries every tunable the analysis core consumes. The zero value is
// not usable; start from DefaultConfig and override fields.
type Config struct {
	// SlowQueryThresholdMs marks a query slow when its observed mean
	// execution time exceeds this value.
	SlowQueryThresholdMs float64 `json:"slow_query_threshold_ms" yaml:"slow_query_threshold_ms" mapstructure:"slow_query_threshold_ms"`

	// LargeRelationRowThreshold is the row count above which a scanned
	// relation counts as large.
	LargeRelationRowThreshold int64 `json:"large_relation_row_threshold" yaml:"large_relation_row_threshold" mapstructure:"large_relation_row_threshold"`

	// ComplexityWeights shape the complexity score's linear terms.
	ComplexityWeights feature.Weights `json:"complexity_weights" yaml:"complexity_weights" mapstructure:"complexity_weights"`

	// MaxSuggestions caps the final ranked list per analysis.
	MaxSuggestions int `json:"max_suggestions" yaml:"max_suggestions" mapstructure:"max_suggestions"`

	// DeviationRatioThreshold is how far prediction and observed mean may
	// drift apart, as a ratio, before a deviation suggestion fires.
	DeviationRatioThreshold float64 `json:"deviation_ratio_threshold" yaml:"deviation_ratio_threshold" mapstructure:"deviation_ratio_threshold"`

	// BaseLatencyMs and ScalingFactor parameterize the fallback estimator
	// used when no trained model is loaded.
	BaseLatencyMs float64 `json:"base_latency_ms" yaml:"base_latency_ms" mapstructure:"base_latency_ms"`
	ScalingFactor float64 `json:"scaling_factor" yaml:"scaling_factor" mapstructure:"scaling_factor"`
}

func DefaultConfig() Config {
	return Config{
		SlowQueryThresholdMs:      1000,
		LargeRelationRowThreshold: 10000,
		ComplexityWeights:         feature.DefaultWeights(),
		MaxSuggestions:            suggest.DefaultMaxSuggestions,
		DeviationRatioThreshold:   predict.DefaultDeviationRatio,
		BaseLatencyMs:             predict.DefaultBaseLatencyMs,
		ScalingFactor:             predict.DefaultScalingFactor,
	}
}

func (c Config) Validate() error {
	if c.SlowQueryThresholdMs < 0 {
		return fmt.Errorf("slow_query_threshold_ms must be non-negative, got %v", c.SlowQueryThresholdMs)
	}
	if c.LargeRelationRowThreshold < 0 {
		return fmt.Errorf("large_relation_row_threshold must be non-negative, got %d", c.LargeRelationRowThreshold)
	}
	if c.MaxSuggestions < 0 {
		return fmt.Errorf("max_suggestions must be non-negative, got %d", c.MaxSuggestions)
	}
	if c.DeviationRatioThreshold < 1 {
		return fmt.Errorf("deviation_ratio_threshold must be at least 1, got %v", c.DeviationRatioThreshold)
	}
	if c.BaseLatencyMs < 0 {
		return fmt.Errorf("base_latency_ms must be non-negative, got %v", c.BaseLatencyMs)
	}
	if c.ScalingFactor < 0 {
		return fmt.Errorf("scaling_factor must be non-negative, got %v", c.ScalingFactor)
	}
	return nil
}

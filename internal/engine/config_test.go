package engine

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative slow threshold", func(c *Config) { c.SlowQueryThresholdMs = -1 }},
		{"negative row threshold", func(c *Config) { c.LargeRelationRowThreshold = -1 }},
		{"negative max suggestions", func(c *Config) { c.MaxSuggestions = -1 }},
		{"deviation ratio below one", func(c *Config) { c.DeviationRatioThreshold = 0.5 }},
		{"negative base latency", func(c *Config) { c.BaseLatencyMs = -1 }},
		{"negative scaling factor", func(c *Config) { c.ScalingFactor = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SlowQueryThresholdMs != 1000 {
		t.Errorf("SlowQueryThresholdMs = %v, want 1000", cfg.SlowQueryThresholdMs)
	}
	if cfg.LargeRelationRowThreshold != 10000 {
		t.Errorf("LargeRelationRowThreshold = %v, want 10000", cfg.LargeRelationRowThreshold)
	}
	if cfg.MaxSuggestions != 10 {
		t.Errorf("MaxSuggestions = %v, want 10", cfg.MaxSuggestions)
	}
	if cfg.DeviationRatioThreshold != 2.0 {
		t.Errorf("DeviationRatioThreshold = %v, want 2.0", cfg.DeviationRatioThreshold)
	}
}

package predict

import (
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

// FallbackVersion tags predictions produced without a trained artifact.
const FallbackVersion = "heuristic-fallback"

const (
	// DefaultBaseLatencyMs anchors the fallback estimate at the floor cost
	// of a trivial statement.
	DefaultBaseLatencyMs = 50.0
	// DefaultScalingFactor converts complexity-score points to
	// milliseconds in the fallback estimate.
	DefaultScalingFactor = 10.0
	// DefaultDeviationRatio is how far prediction and observed mean may
	// drift apart before a deviation suggestion fires.
	DefaultDeviationRatio = 2.0

	fallbackConfidence = 0.25
)

// Result is one execution-time estimate for a single query.
type Result struct {
	PredictedTimeMs float64 `json:"predicted_time_ms"`
	Confidence      float64 `json:"confidence"`
	ModelVersion    string  `json:"model_version"`
}

// Predictor estimates execution time from a feature vector. When no
// artifact is loaded, or the loaded artifact fails to evaluate, it degrades
// to baseLatency + complexityScore*scalingFactor at low confidence.
type Predictor struct {
	Registry       *Registry
	BaseLatencyMs  float64
	ScalingFactor  float64
	DeviationRatio float64
	Logger         log.Logger
}

func NewPredictor(reg *Registry, logger log.Logger) *Predictor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Predictor{
		Registry:       reg,
		BaseLatencyMs:  DefaultBaseLatencyMs,
		ScalingFactor:  DefaultScalingFactor,
		DeviationRatio: DefaultDeviationRatio,
		Logger:         logger,
	}
}

// Predict never fails. Every path out of here carries a usable estimate.
func (p *Predictor) Predict(v feature.Vector) Result {
	if p.Registry != nil {
		if a := p.Registry.Current(); a != nil {
			ms, err := a.Evaluate(v)
			if err == nil {
				return Result{PredictedTimeMs: ms, Confidence: a.Confidence, ModelVersion: a.Version}
			}
			level.Warn(p.logger()).Log("msg", "model evaluation failed, using fallback", "version", a.Version, "err", err)
		}
	}
	return p.fallback(v)
}

func (p *Predictor) fallback(v feature.Vector) Result {
	ms := p.BaseLatencyMs + v.ComplexityScore*p.ScalingFactor
	if ms < 0 || math.IsNaN(ms) {
		ms = 0
	}
	return Result{PredictedTimeMs: ms, Confidence: fallbackConfidence, ModelVersion: FallbackVersion}
}

// Deviation compares a prediction against the observed mean and, when the
// two disagree by more than the configured ratio in either direction, emits
// a performance-deviation suggestion carrying the prediction's own
// confidence. Queries with no execution history produce nothing.
func (p *Predictor) Deviation(queryID string, res Result, stats *feature.Stats) *suggest.Suggestion {
	if stats == nil || stats.MeanExecTimeMs <= 0 {
		return nil
	}
	threshold := p.DeviationRatio
	if threshold <= 0 {
		threshold = DefaultDeviationRatio
	}

	ratio := math.Inf(1)
	if res.PredictedTimeMs > 0 {
		ratio = stats.MeanExecTimeMs / res.PredictedTimeMs
		if ratio < 1 {
			ratio = 1 / ratio
		}
	}
	if ratio <= threshold {
		return nil
	}

	s := &suggest.Suggestion{
		QueryID: queryID,
		Type:    suggest.PerformanceDeviation,
		Message: fmt.Sprintf(
			"Observed mean execution time %.1fms deviates from the predicted %.1fms (model %s) by more than %.1fx",
			stats.MeanExecTimeMs, res.PredictedTimeMs, res.ModelVersion, threshold),
		Confidence:         res.Confidence,
		Source:             suggest.Model,
		ImplementationCost: suggest.Medium,
	}
	if gap := stats.MeanExecTimeMs - res.PredictedTimeMs; gap > 0 {
		s.EstimatedImprovementMs = &gap
	}
	return s
}

func (p *Predictor) logger() log.Logger {
	if p.Logger == nil {
		return log.NewNopLogger()
	}
	return p.Logger
}

package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/plan"
	"github.com/simplyadil/QueryIQ/internal/predict"
	"github.com/simplyadil/QueryIQ/internal/rules"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

// ErrEmptyQuery is the only hard failure Analyze can return: with no query
// text there is nothing to analyze.
var ErrEmptyQuery = errors.New("query text is empty")

// Engine runs the full analysis pipeline for one query at a time. It holds
// no per-query state, so concurrent Analyze calls are independent; the only
// shared data is read access to the model registry.
type Engine struct {
	cfg       Config
	extractor feature.Extractor
	rules     *rules.Engine
	predictor *predict.Predictor
	logger    log.Logger
	metrics   *Metrics
}

// New wires the pipeline under one configuration. registry may be nil, which
// sends every prediction through the fallback estimator; metrics may be nil
// to disable instrumentation.
func New(cfg Config, registry *predict.Registry, logger log.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	re := rules.NewEngine(log.With(logger, "component", "rules"))
	if metrics != nil {
		re.OnFailure = func(rule string) {
			metrics.RuleFailures.WithLabelValues(rule).Inc()
		}
	}

	p := predict.NewPredictor(registry, log.With(logger, "component", "predict"))
	p.BaseLatencyMs = cfg.BaseLatencyMs
	p.ScalingFactor = cfg.ScalingFactor
	p.DeviationRatio = cfg.DeviationRatioThreshold

	return &Engine{
		cfg: cfg,
		extractor: feature.Extractor{
			SlowQueryThresholdMs: cfg.SlowQueryThresholdMs,
			Weights:              cfg.ComplexityWeights,
		},
		rules:     re,
		predictor: p,
		logger:    logger,
		metrics:   metrics,
	}
}

// Analysis is the full outcome for one query.
type Analysis struct {
	QueryID     string               `json:"query_id"`
	Query       string               `json:"query"`
	Vector      feature.Vector       `json:"features"`
	PlanMetrics *plan.Metrics        `json:"plan_metrics,omitempty"`
	Prediction  predict.Result       `json:"prediction"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// Analyze runs the pipeline: plan metrics, feature vector, rules, prediction,
// synthesis. A malformed plan payload is logged and degrades the analysis to
// lexical features only. queryID may be empty, in which case one is minted.
func (e *Engine) Analyze(queryID, queryText string, planJSON []byte, stats *feature.Stats) (*Analysis, error) {
	start := time.Now()

	if strings.TrimSpace(queryText) == "" {
		return nil, ErrEmptyQuery
	}
	if queryID == "" {
		queryID = uuid.NewString()
	}

	var metrics *plan.Metrics
	if len(planJSON) > 0 {
		tree, err := plan.Parse(planJSON)
		if err != nil {
			level.Warn(e.logger).Log("msg", "malformed plan, analyzing query text only", "query_id", queryID, "err", err)
			if e.metrics != nil {
				e.metrics.PlanParseFailures.Inc()
			}
		} else {
			metrics = plan.Summarize(tree, e.cfg.LargeRelationRowThreshold)
		}
	}

	vector := e.extractor.Extract(queryText, metrics, stats)

	candidates := e.rules.Evaluate(rules.Input{
		QueryID: queryID,
		Query:   queryText,
		Vector:  vector,
		Metrics: metrics,
		Stats:   stats,
	})

	prediction := e.predictor.Predict(vector)
	if dev := e.predictor.Deviation(queryID, prediction, stats); dev != nil {
		candidates = append(candidates, *dev)
	}

	final := suggest.Synthesize(candidates, e.cfg.MaxSuggestions)
	e.observe(final, prediction, time.Since(start))

	return &Analysis{
		QueryID:     queryID,
		Query:       queryText,
		Vector:      vector,
		PlanMetrics: metrics,
		Prediction:  prediction,
		Suggestions: final,
	}, nil
}

// Predict exposes the engine's estimator directly, bypassing rules and
// synthesis.
func (e *Engine) Predict(v feature.Vector) predict.Result {
	return e.predictor.Predict(v)
}

func (e *Engine) observe(final []suggest.Suggestion, prediction predict.Result, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.AnalysesTotal.Inc()
	e.metrics.AnalysisSeconds.Observe(elapsed.Seconds())
	for _, s := range final {
		e.metrics.SuggestionsTotal.WithLabelValues(s.Type.String()).Inc()
	}
	source := "model"
	if prediction.ModelVersion == predict.FallbackVersion {
		source = "fallback"
	}
	e.metrics.PredictionsTotal.WithLabelValues(source).Inc()
}

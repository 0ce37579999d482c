package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the analysis engine.
type Metrics struct {
	AnalysesTotal     prometheus.Counter
	AnalysisSeconds   prometheus.Histogram
	PlanParseFailures prometheus.Counter
	RuleFailures      *prometheus.CounterVec
	SuggestionsTotal  *prometheus.CounterVec
	PredictionsTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	analysesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queryiq_analyses_total",
		Help: "Total queries analyzed",
	})

	analysisSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "queryiq_analysis_duration_seconds",
		Help:    "Wall time of a single analysis call",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	planParseFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queryiq_plan_parse_failures_total",
		Help: "Total plan payloads that could not be parsed",
	})

	ruleFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryiq_rule_failures_total",
		Help: "Total rule evaluations that panicked and were skipped",
	}, []string{"rule"})

	suggestionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryiq_suggestions_total",
		Help: "Total suggestions emitted, by suggestion type",
	}, []string{"type"})

	predictionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryiq_predictions_total",
		Help: "Total predictions served, by source (model or fallback)",
	}, []string{"source"})

	reg.MustRegister(
		analysesTotal,
		analysisSeconds,
		planParseFailures,
		ruleFailures,
		suggestionsTotal,
		predictionsTotal,
	)

	return &Metrics{
		AnalysesTotal:     analysesTotal,
		AnalysisSeconds:   analysisSeconds,
		PlanParseFailures: planParseFailures,
		RuleFailures:      ruleFailures,
		SuggestionsTotal:  suggestionsTotal,
		PredictionsTotal:  predictionsTotal,
	}
}

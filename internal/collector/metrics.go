package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the collector.
type Metrics struct {
	Runs               prometheus.Counter
	RunErrors          prometheus.Counter
	StatementsAnalyzed prometheus.Counter
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queryiq_collector_runs_total",
		Help: "Total pg_stat_statements collection runs",
	})

	runErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queryiq_collector_run_errors_total",
		Help: "Total collection runs that failed",
	})

	statementsAnalyzed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queryiq_collector_statements_analyzed_total",
		Help: "Total collected statements handed to the analysis engine",
	})

	reg.MustRegister(runs, runErrors, statementsAnalyzed)

	return &Metrics{
		Runs:               runs,
		RunErrors:          runErrors,
		StatementsAnalyzed: statementsAnalyzed,
	}
}

// Package rules holds the heuristic side of the analysis: an ordered set of
// independent, pure rules evaluated over one query's feature vector.
package rules

import (
	"fmt"
	"strings"

	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/plan"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

const (
	// MinJoinsForComplexityWarning flags statements joining this many
	// relations or more.
	MinJoinsForComplexityWarning = 4
	// MinSubqueriesForFlattening flags statements nesting this many
	// subqueries or more.
	MinSubqueriesForFlattening = 2
	// MinDepthForDeepPlanWarning flags plans nested deeper than this.
	MinDepthForDeepPlanWarning = 5
	// MinCallsForCachingHint flags statements executed more often than this.
	MinCallsForCachingHint = 1000
)

// Input bundles the immutable per-query facts rules may consult. Rules never
// mutate it and never share state with each other.
type Input struct {
	QueryID string
	Query   string
	Vector  feature.Vector
	Metrics *plan.Metrics
	Stats   *feature.Stats
}

// EvalFunc is one rule: a pure function from Input to zero or one candidate
// suggestion.
type EvalFunc func(in Input) *suggest.Suggestion

// Rule pairs an evaluation function with a stable name for logging.
type Rule struct {
	Name string
	Eval EvalFunc
}

// Defaults returns the built-in rule set. Order affects presentation of
// results, never their content.
func Defaults() []Rule {
	return []Rule{
		{Name: "narrow_projection", Eval: narrowProjection},
		{Name: "missing_filter", Eval: missingFilter},
		{Name: "index_recommendation", Eval: indexRecommendation},
		{Name: "join_complexity", Eval: joinComplexity},
		{Name: "subquery_flattening", Eval: subqueryFlattening},
		{Name: "slow_execution", Eval: slowExecution},
		{Name: "high_frequency", Eval: highFrequency},
		{Name: "deep_plan", Eval: deepPlan},
	}
}

func narrowProjection(in Input) *suggest.Suggestion {
	if !in.Vector.HasSelectStar {
		return nil
	}
	return &suggest.Suggestion{
		QueryID:                in.QueryID,
		Type:                   suggest.NarrowProjection,
		Message:                "Replace SELECT * with an explicit column list to reduce row width and transfer volume",
		Confidence:             0.9,
		Source:                 suggest.Rule,
		EstimatedImprovementMs: actualTimeShare(in.Metrics, 0.1),
		ImplementationCost:     suggest.Low,
	}
}

func missingFilter(in Input) *suggest.Suggestion {
	if in.Vector.HasWhereClause {
		return nil
	}
	if in.Metrics == nil || len(in.Metrics.LargeScans) == 0 {
		return nil
	}
	target := in.Metrics.LargeScans[0]
	return &suggest.Suggestion{
		QueryID: in.QueryID,
		Type:    suggest.MissingFilter,
		Message: fmt.Sprintf("Statement reads %s without a WHERE clause; add a filter to avoid full-table access",
			relationLabel(target.Relation)),
		Confidence:             0.7,
		Source:                 suggest.Rule,
		EstimatedImprovementMs: actualTimeShare(in.Metrics, 0.5),
		ImplementationCost:     suggest.Low,
	}
}

func indexRecommendation(in Input) *suggest.Suggestion {
	if in.Metrics == nil || !in.Metrics.HasSeqScanOnLargeRelation {
		return nil
	}
	target := in.Metrics.LargestSeqScan()
	if target == nil {
		return nil
	}

	var msg string
	cols := feature.PredicateColumns(in.Query)
	if len(cols) > 0 {
		msg = fmt.Sprintf("Sequential scan over %s (%d rows); consider an index on %s(%s)",
			relationLabel(target.Relation), target.Rows, relationLabel(target.Relation), strings.Join(cols, ", "))
	} else {
		msg = fmt.Sprintf("Sequential scan over %s (%d rows); consider indexing the columns it is filtered by",
			relationLabel(target.Relation), target.Rows)
	}

	return &suggest.Suggestion{
		QueryID:                in.QueryID,
		Type:                   suggest.IndexRecommendation,
		Message:                msg,
		Confidence:             0.6,
		Source:                 suggest.Rule,
		EstimatedImprovementMs: seqScanImprovement(in.Metrics, target),
		ImplementationCost:     suggest.Medium,
	}
}

func joinComplexity(in Input) *suggest.Suggestion {
	if in.Vector.NumJoin < MinJoinsForComplexityWarning {
		return nil
	}
	return &suggest.Suggestion{
		QueryID: in.QueryID,
		Type:    suggest.JoinComplexity,
		Message: fmt.Sprintf("Statement joins %d relations; consider decomposing it or materializing a partial result",
			in.Vector.NumJoin),
		Confidence:             0.5,
		Source:                 suggest.Rule,
		EstimatedImprovementMs: actualTimeShare(in.Metrics, 0.2),
		ImplementationCost:     suggest.Medium,
	}
}

func subqueryFlattening(in Input) *suggest.Suggestion {
	if in.Vector.NumSubqueries < MinSubqueriesForFlattening {
		return nil
	}
	return &suggest.Suggestion{
		QueryID: in.QueryID,
		Type:    suggest.SubqueryFlattening,
		Message: fmt.Sprintf("Statement nests %d subqueries; rewriting them as joins usually plans better",
			in.Vector.NumSubqueries),
		Confidence:             0.5,
		Source:                 suggest.Rule,
		EstimatedImprovementMs: actualTimeShare(in.Metrics, 0.15),
		ImplementationCost:     suggest.Medium,
	}
}

func slowExecution(in Input) *suggest.Suggestion {
	if !in.Vector.IsSlowQuery || in.Stats == nil {
		return nil
	}
	improvement := in.Stats.MeanExecTimeMs * 0.5
	return &suggest.Suggestion{
		QueryID: in.QueryID,
		Type:    suggest.SlowExecution,
		Message: fmt.Sprintf("Mean execution time %.2fms exceeds the slow-query threshold; the statement needs optimization",
			in.Stats.MeanExecTimeMs),
		Confidence:             0.8,
		Source:                 suggest.Rule,
		EstimatedImprovementMs: &improvement,
		ImplementationCost:     suggest.High,
	}
}

func highFrequency(in Input) *suggest.Suggestion {
	if in.Stats == nil || in.Stats.Calls <= MinCallsForCachingHint {
		return nil
	}
	return &suggest.Suggestion{
		QueryID: in.QueryID,
		Type:    suggest.HighFrequency,
		Message: fmt.Sprintf("Statement executed %d times; consider caching its result or batching callers",
			in.Stats.Calls),
		Confidence:         0.5,
		Source:             suggest.Rule,
		ImplementationCost: suggest.Medium,
	}
}

func deepPlan(in Input) *suggest.Suggestion {
	if in.Metrics == nil || in.Metrics.Depth <= MinDepthForDeepPlanWarning {
		return nil
	}
	return &suggest.Suggestion{
		QueryID: in.QueryID,
		Type:    suggest.DeepPlan,
		Message: fmt.Sprintf("Execution plan nests %d levels; consider simplifying the statement",
			in.Metrics.Depth),
		Confidence:         0.4,
		Source:             suggest.Rule,
		ImplementationCost: suggest.Medium,
	}
}

// actualTimeShare estimates saved time as a share of the measured execution
// time. Without ANALYZE timings there is no basis for an estimate.
func actualTimeShare(m *plan.Metrics, share float64) *float64 {
	if m == nil || m.ActualTimeMs == nil {
		return nil
	}
	v := *m.ActualTimeMs * share
	if v < 0 {
		v = 0
	}
	return &v
}

// seqScanImprovement scales the measured time by the scan's share of the
// total plan cost: a scan dominating the plan promises a bigger win.
func seqScanImprovement(m *plan.Metrics, scan *plan.LargeScan) *float64 {
	if m == nil || m.ActualTimeMs == nil {
		return nil
	}
	share := 0.8
	if m.TotalCost > 0 {
		costShare := scan.TotalCost / m.TotalCost
		if costShare > 1 {
			costShare = 1
		}
		share = 0.8 * costShare
	}
	v := *m.ActualTimeMs * share
	if v < 0 {
		v = 0
	}
	return &v
}

func relationLabel(name string) string {
	if name == "" {
		return "a large relation"
	}
	return name
}

package feature

import "github.com/simplyadil/QueryIQ/internal/plan"

// Stats carries the historically observed behavior of a statement, as
// collected from pg_stat_statements or supplied by the caller.
type Stats struct {
	MeanExecTimeMs float64 `json:"mean_exec_time_ms"`
	Calls          int64   `json:"calls"`
}

// Weights configures the complexity score's linear combination. All weights
// apply as-is; zero disables a term.
type Weights struct {
	Join     float64 `json:"join" yaml:"join" mapstructure:"join"`
	Subquery float64 `json:"subquery" yaml:"subquery" mapstructure:"subquery"`
	Depth    float64 `json:"depth" yaml:"depth" mapstructure:"depth"`
	Length   float64 `json:"length" yaml:"length" mapstructure:"length"`
}

// DefaultWeights balance the terms so a flat single-table query scores well
// under 1 and a multi-join nested statement scores in the tens.
func DefaultWeights() Weights {
	return Weights{Join: 2.0, Subquery: 1.5, Depth: 0.5, Length: 0.01}
}

// Vector is the canonical per-query feature record. It is built fresh for
// every analysis and never mutated afterwards.
type Vector struct {
	NumSelect        int     `json:"num_select"`
	NumJoin          int     `json:"num_join"`
	NumSubqueries    int     `json:"num_subqueries"`
	NumGroupBy       int     `json:"num_group_by"`
	NumOrderBy       int     `json:"num_order_by"`
	NumDistinct      int     `json:"num_distinct"`
	NumLimit         int     `json:"num_limit"`
	QueryLength      int     `json:"query_length"`
	HasSelectStar    bool    `json:"has_select_star"`
	HasWhereClause   bool    `json:"has_where_clause"`
	PlanDepth        int     `json:"plan_depth"`
	IndexedScanRatio float64 `json:"indexed_scan_ratio"`
	ComplexityScore  float64 `json:"complexity_score"`
	IsSlowQuery      bool    `json:"is_slow_query"`
}

// Extractor derives feature vectors under one configuration.
type Extractor struct {
	SlowQueryThresholdMs float64
	Weights              Weights
}

// Extract always returns a fully populated vector. Lexical fields come from
// the query text alone; plan-derived fields fall back to zero values when
// metrics is nil, and IsSlowQuery is false without historical stats.
func (e Extractor) Extract(query string, metrics *plan.Metrics, stats *Stats) Vector {
	lx := scanLexical(query)

	v := Vector{
		NumSelect:      lx.numSelect,
		NumJoin:        lx.numJoin,
		NumSubqueries:  lx.numSubqueries,
		NumGroupBy:     lx.numGroupBy,
		NumOrderBy:     lx.numOrderBy,
		NumDistinct:    lx.numDistinct,
		NumLimit:       lx.numLimit,
		QueryLength:    len(query),
		HasSelectStar:  lx.hasSelectStar,
		HasWhereClause: lx.hasWhereClause,
	}

	if metrics != nil {
		v.PlanDepth = metrics.Depth
		v.IndexedScanRatio = indexedScanRatio(metrics)
	}
	if stats != nil {
		v.IsSlowQuery = stats.MeanExecTimeMs > e.SlowQueryThresholdMs
	}

	w := e.Weights
	v.ComplexityScore = w.Join*float64(v.NumJoin) +
		w.Subquery*float64(v.NumSubqueries) +
		w.Depth*float64(v.PlanDepth) +
		w.Length*float64(v.QueryLength)

	return v
}

// indexedScanRatio is 1.0 for a plan with no scan nodes at all: nothing is
// scanned, so nothing is scanned badly.
func indexedScanRatio(m *plan.Metrics) float64 {
	total := m.ScanCount()
	if total == 0 {
		return 1.0
	}
	return float64(m.IndexedScanCount()) / float64(total)
}

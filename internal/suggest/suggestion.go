// Package suggest defines the suggestion model and the synthesizer that
// merges rule- and model-sourced candidates into one ranked list.
package suggest

import "fmt"

// Type identifies what kind of optimization a suggestion proposes. Together
// with the query ID it forms the deduplication identity.
type Type int

const (
	NarrowProjection Type = iota
	MissingFilter
	IndexRecommendation
	JoinComplexity
	SubqueryFlattening
	SlowExecution
	HighFrequency
	DeepPlan
	PerformanceDeviation
)

func (t Type) String() string {
	switch t {
	case NarrowProjection:
		return "narrow_projection"
	case MissingFilter:
		return "missing_filter"
	case IndexRecommendation:
		return "index_recommendation"
	case JoinComplexity:
		return "join_complexity"
	case SubqueryFlattening:
		return "subquery_flattening"
	case SlowExecution:
		return "slow_execution"
	case HighFrequency:
		return "high_frequency"
	case DeepPlan:
		return "deep_plan"
	case PerformanceDeviation:
		return "performance_deviation"
	default:
		return "unknown"
	}
}

// MarshalText renders the type as its string name in JSON output.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	switch string(text) {
	case "narrow_projection":
		*t = NarrowProjection
	case "missing_filter":
		*t = MissingFilter
	case "index_recommendation":
		*t = IndexRecommendation
	case "join_complexity":
		*t = JoinComplexity
	case "subquery_flattening":
		*t = SubqueryFlattening
	case "slow_execution":
		*t = SlowExecution
	case "high_frequency":
		*t = HighFrequency
	case "deep_plan":
		*t = DeepPlan
	case "performance_deviation":
		*t = PerformanceDeviation
	default:
		return fmt.Errorf("unknown suggestion type %q", text)
	}
	return nil
}

// Source tells whether a suggestion came from a heuristic rule or from the
// performance model.
type Source int

const (
	Rule Source = iota
	Model
)

func (s Source) String() string {
	switch s {
	case Rule:
		return "rule"
	case Model:
		return "model"
	default:
		return "unknown"
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "rule":
		*s = Rule
	case "model":
		*s = Model
	default:
		return fmt.Errorf("unknown suggestion source %q", text)
	}
	return nil
}

// Cost grades how much work adopting a suggestion takes.
type Cost int

const (
	Low Cost = iota
	Medium
	High
)

func (c Cost) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

func (c Cost) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cost) UnmarshalText(text []byte) error {
	switch string(text) {
	case "low":
		*c = Low
	case "medium":
		*c = Medium
	case "high":
		*c = High
	default:
		return fmt.Errorf("unknown implementation cost %q", text)
	}
	return nil
}

// Suggestion is one actionable optimization recommendation for a query.
type Suggestion struct {
	QueryID                string   `json:"query_id"`
	Type                   Type     `json:"suggestion_type"`
	Message                string   `json:"message"`
	Confidence             float64  `json:"confidence"`
	Source                 Source   `json:"source"`
	EstimatedImprovementMs *float64 `json:"estimated_improvement_ms,omitempty"`
	ImplementationCost     Cost     `json:"implementation_cost"`
}

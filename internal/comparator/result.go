package comparator

import "github.com/simplyadil/QueryIQ/internal/plan"

type Direction int

const (
	Unchanged Direction = 0
	Improved  Direction = 1
	Regressed Direction = 2

	// DefaultThresholdPct is the relative change below which a metric
	// counts as unchanged.
	DefaultThresholdPct = 1.0
)

func (d Direction) String() string {
	switch d {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unchanged"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type ChangeType int

const (
	NoChange    ChangeType = 0
	Modified    ChangeType = 1
	Added       ChangeType = 2
	Removed     ChangeType = 3
	TypeChanged ChangeType = 4
)

func (c ChangeType) String() string {
	switch c {
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case TypeChanged:
		return "type_changed"
	default:
		return "no_change"
	}
}

func (c ChangeType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// NodeDelta describes how one operator changed between the before and after
// plans. Children follow the after plan's structure, with removed subtrees
// spliced in where the before plan had them.
type NodeDelta struct {
	Kind     plan.Kind  `json:"kind"`
	TypeName string     `json:"node_type"`
	Relation string     `json:"relation,omitempty"`
	Change   ChangeType `json:"change"`

	OldTypeName string `json:"old_node_type,omitempty"`
	NewTypeName string `json:"new_node_type,omitempty"`

	OldCost   float64   `json:"old_cost"`
	NewCost   float64   `json:"new_cost"`
	CostDelta float64   `json:"cost_delta"`
	CostPct   float64   `json:"cost_pct"`
	CostDir   Direction `json:"cost_dir"`

	OldTimeMs float64   `json:"old_time_ms"`
	NewTimeMs float64   `json:"new_time_ms"`
	TimeDelta float64   `json:"time_delta_ms"`
	TimePct   float64   `json:"time_pct"`
	TimeDir   Direction `json:"time_dir"`

	OldRows   int64   `json:"old_rows"`
	NewRows   int64   `json:"new_rows"`
	RowsDelta int64   `json:"rows_delta"`
	RowsPct   float64 `json:"rows_pct"`

	OldFilter string `json:"old_filter,omitempty"`
	NewFilter string `json:"new_filter,omitempty"`

	OldIndex string `json:"old_index,omitempty"`
	NewIndex string `json:"new_index,omitempty"`

	OldIndexCond string `json:"old_index_cond,omitempty"`
	NewIndexCond string `json:"new_index_cond,omitempty"`

	Children []NodeDelta `json:"children,omitempty"`
}

// Report is the outcome of comparing two plans for the same query.
type Report struct {
	Summary Summary     `json:"summary"`
	Deltas  []NodeDelta `json:"deltas"`
}

type Summary struct {
	OldTotalCost float64   `json:"old_total_cost"`
	NewTotalCost float64   `json:"new_total_cost"`
	CostDelta    float64   `json:"cost_delta"`
	CostPct      float64   `json:"cost_pct"`
	CostDir      Direction `json:"cost_dir"`

	OldExecutionTimeMs float64   `json:"old_execution_time_ms"`
	NewExecutionTimeMs float64   `json:"new_execution_time_ms"`
	TimeDelta          float64   `json:"time_delta_ms"`
	TimePct            float64   `json:"time_pct"`
	TimeDir            Direction `json:"time_dir"`

	OldPlanningTimeMs float64   `json:"old_planning_time_ms"`
	NewPlanningTimeMs float64   `json:"new_planning_time_ms"`
	PlanningDir       Direction `json:"planning_dir"`

	OldDepth int `json:"old_depth"`
	NewDepth int `json:"new_depth"`

	OldScanCounts map[plan.Kind]int `json:"old_scan_counts,omitempty"`
	NewScanCounts map[plan.Kind]int `json:"new_scan_counts,omitempty"`

	NodesAdded       int `json:"nodes_added"`
	NodesRemoved     int `json:"nodes_removed"`
	NodesModified    int `json:"nodes_modified"`
	NodesTypeChanged int `json:"nodes_type_changed"`

	Verdict string `json:"verdict"`
}

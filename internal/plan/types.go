package plan

// Kind classifies a plan node into the closed set of operator families the
// analysis cares about. Unrecognized node types map to Other so new
// PostgreSQL operators never break parsing.
type Kind int

const (
	Other Kind = iota
	SeqScan
	IndexScan
	BitmapScan
	NestedLoop
	HashJoin
	MergeJoin
	Sort
	Aggregate
)

var kindNames = map[Kind]string{
	Other:      "Other",
	SeqScan:    "Seq Scan",
	IndexScan:  "Index Scan",
	BitmapScan: "Bitmap Scan",
	NestedLoop: "Nested Loop",
	HashJoin:   "Hash Join",
	MergeJoin:  "Merge Join",
	Sort:       "Sort",
	Aggregate:  "Aggregate",
}

var kindByType = map[string]Kind{
	"Seq Scan":          SeqScan,
	"Index Scan":        IndexScan,
	"Index Only Scan":   IndexScan,
	"Bitmap Heap Scan":  BitmapScan,
	"Bitmap Index Scan": BitmapScan,
	"Nested Loop":       NestedLoop,
	"Hash Join":         HashJoin,
	"Merge Join":        MergeJoin,
	"Sort":              Sort,
	"Incremental Sort":  Sort,
	"Aggregate":         Aggregate,
	"GroupAggregate":    Aggregate,
	"HashAggregate":     Aggregate,
	"Group":             Aggregate,
}

func kindOf(nodeType string) Kind {
	if k, ok := kindByType[nodeType]; ok {
		return k
	}
	return Other
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Other"
}

// MarshalText lets Kind serve as a JSON object key in ScanTypeCounts.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText restores a Kind from its name, so persisted metrics decode
// back into the same map keys. Unknown names map to Other, mirroring the
// parser's treatment of unknown node types.
func (k *Kind) UnmarshalText(text []byte) error {
	name := string(text)
	for kind, kindName := range kindNames {
		if kindName == name {
			*k = kind
			return nil
		}
	}
	*k = Other
	return nil
}

// IsScan reports whether the node reads a relation directly.
func (k Kind) IsScan() bool {
	return k == SeqScan || k == IndexScan || k == BitmapScan
}

// IsJoin reports whether the node combines two child streams.
func (k Kind) IsJoin() bool {
	return k == NestedLoop || k == HashJoin || k == MergeJoin
}

// Node is one operator of an execution plan. Children are owned exclusively
// by their parent; the structure is always a tree.
type Node struct {
	Kind          Kind
	TypeName      string
	RelationName  string
	IndexName     string
	Filter        string
	IndexCond     string
	StartupCost   float64
	TotalCost     float64
	EstimatedRows int64
	ActualRows    int64
	ActualTimeMs  *float64
	Children      []*Node
}

// Tree is the top-level EXPLAIN (FORMAT JSON) document: the root plan node
// plus the plan-wide timings PostgreSQL reports alongside it.
type Tree struct {
	Root            *Node
	PlanningTimeMs  float64
	ExecutionTimeMs float64
	Truncated       bool
}

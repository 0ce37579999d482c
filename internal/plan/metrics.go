package plan

import "sort"

// Metrics is the immutable summary derived from one plan tree. A nil
// *Metrics means no usable plan was available for the query.
type Metrics struct {
	TotalCost                 float64      `json:"total_cost"`
	ActualTimeMs              *float64     `json:"actual_time_ms,omitempty"`
	Depth                     int          `json:"depth"`
	ScanTypeCounts            map[Kind]int `json:"scan_type_counts"`
	JoinCount                 int          `json:"join_count"`
	HasSeqScanOnLargeRelation bool         `json:"has_seq_scan_on_large_relation"`
	Truncated                 bool         `json:"truncated,omitempty"`
	Relations                 []string     `json:"relations,omitempty"`
	Indexes                   []string     `json:"indexes,omitempty"`
	LargeScans                []LargeScan  `json:"large_scans,omitempty"`
}

// LargeScan records one scan node whose row count exceeded the large-relation
// threshold, in document order.
type LargeScan struct {
	Kind      Kind    `json:"kind"`
	Relation  string  `json:"relation"`
	Rows      int64   `json:"rows"`
	TotalCost float64 `json:"total_cost"`
}

// Summarize walks the whole tree iteratively and derives Metrics. Depth is
// the maximum root-to-leaf edge count, capped at MaxDepth. Scan and join
// counts cover every node, not just leaves. A scan counts as large when its
// actual row count (preferred when present) or estimate exceeds
// largeRowThreshold.
func Summarize(t *Tree, largeRowThreshold int64) *Metrics {
	if t == nil || t.Root == nil {
		return nil
	}

	m := &Metrics{
		TotalCost:      t.Root.TotalCost,
		ScanTypeCounts: map[Kind]int{},
		Truncated:      t.Truncated,
	}
	if t.Root.ActualTimeMs != nil {
		ms := *t.Root.ActualTimeMs
		m.ActualTimeMs = &ms
	}

	relations := map[string]struct{}{}
	indexes := map[string]struct{}{}

	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{t.Root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, depth := f.node, f.depth

		if depth > m.Depth {
			m.Depth = depth
		}
		if n.Kind.IsJoin() {
			m.JoinCount++
		}
		if n.RelationName != "" {
			relations[n.RelationName] = struct{}{}
		}
		if n.IndexName != "" {
			indexes[n.IndexName] = struct{}{}
		}
		if n.Kind.IsScan() {
			m.ScanTypeCounts[n.Kind]++
			rows := n.EstimatedRows
			if n.ActualRows > 0 {
				rows = n.ActualRows
			}
			if rows > largeRowThreshold {
				m.LargeScans = append(m.LargeScans, LargeScan{
					Kind:      n.Kind,
					Relation:  n.RelationName,
					Rows:      rows,
					TotalCost: n.TotalCost,
				})
				if n.Kind == SeqScan {
					m.HasSeqScanOnLargeRelation = true
				}
			}
		}

		if depth >= MaxDepth {
			m.Truncated = true
			continue
		}
		// Push children in reverse so they pop in document order.
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n.Children[i], depth + 1})
		}
	}

	m.Relations = sortedKeys(relations)
	m.Indexes = sortedKeys(indexes)
	return m
}

// ScanCount returns the number of scan-classified nodes.
func (m *Metrics) ScanCount() int {
	total := 0
	for _, c := range m.ScanTypeCounts {
		total += c
	}
	return total
}

// IndexedScanCount returns the number of index-backed scan nodes.
func (m *Metrics) IndexedScanCount() int {
	return m.ScanTypeCounts[IndexScan] + m.ScanTypeCounts[BitmapScan]
}

// LargestSeqScan returns the large sequential scan with the highest cost, or
// nil when the plan has none.
func (m *Metrics) LargestSeqScan() *LargeScan {
	var best *LargeScan
	for i := range m.LargeScans {
		ls := &m.LargeScans[i]
		if ls.Kind != SeqScan {
			continue
		}
		if best == nil || ls.TotalCost > best.TotalCost {
			best = ls
		}
	}
	return best
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package comparator

import (
	"math"

	"github.com/simplyadil/QueryIQ/internal/plan"
)

func (c *Comparator) diffNodes(before, after *plan.Node) NodeDelta {
	delta := NodeDelta{
		Relation: coalesce(before.RelationName, after.RelationName),
	}

	if before.TypeName != after.TypeName {
		delta.Change = TypeChanged
		delta.OldTypeName = before.TypeName
		delta.NewTypeName = after.TypeName
		delta.TypeName = after.TypeName
		delta.Kind = after.Kind
	} else {
		delta.Change = Modified
		delta.TypeName = before.TypeName
		delta.Kind = before.Kind
	}

	delta.OldCost = before.TotalCost
	delta.NewCost = after.TotalCost
	delta.CostDelta = after.TotalCost - before.TotalCost
	delta.CostPct = pctChange(before.TotalCost, after.TotalCost)
	delta.CostDir = c.direction(before.TotalCost, after.TotalCost)

	delta.OldTimeMs = timeOf(before)
	delta.NewTimeMs = timeOf(after)
	delta.TimeDelta = delta.NewTimeMs - delta.OldTimeMs
	delta.TimePct = pctChange(delta.OldTimeMs, delta.NewTimeMs)
	delta.TimeDir = c.direction(delta.OldTimeMs, delta.NewTimeMs)

	delta.OldRows = rowsOf(before)
	delta.NewRows = rowsOf(after)
	delta.RowsDelta = delta.NewRows - delta.OldRows
	delta.RowsPct = pctChange(float64(delta.OldRows), float64(delta.NewRows))

	delta.OldFilter = before.Filter
	delta.NewFilter = after.Filter
	delta.OldIndex = before.IndexName
	delta.NewIndex = after.IndexName
	delta.OldIndexCond = before.IndexCond
	delta.NewIndexCond = after.IndexCond

	if delta.Change == Modified && !c.isSignificant(delta) {
		delta.Change = NoChange
	}

	delta.Children = c.diffChildren(before.Children, after.Children)

	return delta
}

// diffChildren pairs children positionally. A plan rewrite that reorders
// inputs shows up as a type change on each slot, which is still the honest
// answer for a structural diff.
func (c *Comparator) diffChildren(oldKids, newKids []*plan.Node) []NodeDelta {
	var deltas []NodeDelta

	for i := range max(len(oldKids), len(newKids)) {
		if i >= len(oldKids) {
			deltas = append(deltas, addedNode(newKids[i]))
			continue
		}
		if i >= len(newKids) {
			deltas = append(deltas, removedNode(oldKids[i]))
			continue
		}
		deltas = append(deltas, c.diffNodes(oldKids[i], newKids[i]))
	}

	return deltas
}

func addedNode(node *plan.Node) NodeDelta {
	delta := NodeDelta{
		Change:    Added,
		Kind:      node.Kind,
		TypeName:  node.TypeName,
		Relation:  node.RelationName,
		NewCost:   node.TotalCost,
		NewTimeMs: timeOf(node),
		NewRows:   rowsOf(node),
		NewFilter: node.Filter,
		NewIndex:  node.IndexName,
	}

	for _, child := range node.Children {
		delta.Children = append(delta.Children, addedNode(child))
	}

	return delta
}

func removedNode(node *plan.Node) NodeDelta {
	delta := NodeDelta{
		Change:    Removed,
		Kind:      node.Kind,
		TypeName:  node.TypeName,
		Relation:  node.RelationName,
		OldCost:   node.TotalCost,
		OldTimeMs: timeOf(node),
		OldRows:   rowsOf(node),
		OldFilter: node.Filter,
		OldIndex:  node.IndexName,
	}

	for _, child := range node.Children {
		delta.Children = append(delta.Children, removedNode(child))
	}

	return delta
}

func (c *Comparator) isSignificant(d NodeDelta) bool {
	if math.Abs(d.CostPct) > c.ThresholdPct {
		return true
	}
	if math.Abs(d.TimePct) > c.ThresholdPct {
		return true
	}
	if d.OldFilter != d.NewFilter {
		return true
	}
	if d.OldIndex != d.NewIndex {
		return true
	}
	if d.OldIndexCond != d.NewIndexCond {
		return true
	}
	return false
}

// direction judges a metric where lower is better. Moves within the
// threshold count as unchanged, so equal values never read as regressions.
func (c *Comparator) direction(old, new float64) Direction {
	if math.Abs(pctChange(old, new)) <= c.ThresholdPct {
		return Unchanged
	}
	if new < old {
		return Improved
	}
	return Regressed
}

func pctChange(old, new float64) float64 {
	if old == 0 {
		if new == 0 {
			return 0
		}
		return 100
	}
	return ((new - old) / old) * 100
}

func timeOf(n *plan.Node) float64 {
	if n.ActualTimeMs == nil {
		return 0
	}
	return *n.ActualTimeMs
}

// rowsOf prefers the measured row count over the planner's estimate, the
// same preference the plan summary applies.
func rowsOf(n *plan.Node) int64 {
	if n.ActualRows > 0 {
		return n.ActualRows
	}
	return n.EstimatedRows
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

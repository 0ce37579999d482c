// Package comparator diffs two EXPLAIN trees for the same query, typically
// captured before and after applying a suggestion, and judges whether the
// rewrite helped.
package comparator

import (
	"github.com/simplyadil/QueryIQ/internal/plan"
)

type Comparator struct {
	// ThresholdPct is the relative change, in percent, below which a
	// metric counts as unchanged.
	ThresholdPct float64
	// LargeRowThreshold feeds the per-plan summaries in the report.
	LargeRowThreshold int64
}

// Compare diffs the two trees node by node and summarizes the plan-wide
// movement. Either tree missing yields an empty report.
func (c *Comparator) Compare(before, after *plan.Tree) Report {
	if before == nil || before.Root == nil || after == nil || after.Root == nil {
		return Report{}
	}

	rootDelta := c.diffNodes(before.Root, after.Root)

	summary := Summary{
		OldTotalCost: before.Root.TotalCost,
		NewTotalCost: after.Root.TotalCost,
		CostDelta:    after.Root.TotalCost - before.Root.TotalCost,
		CostPct:      pctChange(before.Root.TotalCost, after.Root.TotalCost),
		CostDir:      c.direction(before.Root.TotalCost, after.Root.TotalCost),

		OldExecutionTimeMs: before.ExecutionTimeMs,
		NewExecutionTimeMs: after.ExecutionTimeMs,
		TimeDelta:          after.ExecutionTimeMs - before.ExecutionTimeMs,
		TimePct:            pctChange(before.ExecutionTimeMs, after.ExecutionTimeMs),
		TimeDir:            c.direction(before.ExecutionTimeMs, after.ExecutionTimeMs),

		OldPlanningTimeMs: before.PlanningTimeMs,
		NewPlanningTimeMs: after.PlanningTimeMs,
		PlanningDir:       c.direction(before.PlanningTimeMs, after.PlanningTimeMs),
	}

	if bm := plan.Summarize(before, c.LargeRowThreshold); bm != nil {
		summary.OldDepth = bm.Depth
		summary.OldScanCounts = bm.ScanTypeCounts
	}
	if am := plan.Summarize(after, c.LargeRowThreshold); am != nil {
		summary.NewDepth = am.Depth
		summary.NewScanCounts = am.ScanTypeCounts
	}

	countChanges(&rootDelta, &summary)
	summary.Verdict = verdict(summary.CostDir, summary.TimeDir)

	return Report{
		Deltas:  []NodeDelta{rootDelta},
		Summary: summary,
	}
}

func countChanges(delta *NodeDelta, summary *Summary) {
	switch delta.Change {
	case Added:
		summary.NodesAdded++
	case Removed:
		summary.NodesRemoved++
	case Modified:
		summary.NodesModified++
	case TypeChanged:
		summary.NodesTypeChanged++
	}

	for i := range delta.Children {
		countChanges(&delta.Children[i], summary)
	}
}

func verdict(costDir, timeDir Direction) string {
	switch {
	case timeDir == Improved && costDir == Improved:
		return "faster and cheaper"
	case timeDir == Regressed && costDir == Regressed:
		return "slower and more expensive"
	case timeDir == Improved && costDir == Regressed:
		return "faster but more expensive"
	case timeDir == Regressed && costDir == Improved:
		return "slower but cheaper"
	case timeDir == Improved:
		return "faster"
	case timeDir == Regressed:
		return "slower"
	case costDir == Improved:
		return "cheaper"
	case costDir == Regressed:
		return "more expensive"
	default:
		return "no significant change"
	}
}

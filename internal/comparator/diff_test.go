package comparator

import (
	"testing"

	"github.com/simplyadil/QueryIQ/internal/plan"
)

func defaultComparator() *Comparator {
	return &Comparator{ThresholdPct: 5.0, LargeRowThreshold: 10000}
}

func ms(v float64) *float64 { return &v }

func TestDiffNodes_SameNode(t *testing.T) {
	c := defaultComparator()
	node := plan.Node{
		Kind:         plan.SeqScan,
		TypeName:     "Seq Scan",
		RelationName: "users",
		TotalCost:    20.0,
		ActualTimeMs: ms(0.5),
		ActualRows:   100,
	}

	delta := c.diffNodes(&node, &node)

	if delta.Change != NoChange {
		t.Errorf("Change = %v, want NoChange", delta.Change)
	}
	if delta.CostDelta != 0 {
		t.Errorf("CostDelta = %f, want 0", delta.CostDelta)
	}
	if delta.Relation != "users" {
		t.Errorf("Relation = %q, want users", delta.Relation)
	}
}

func TestDiffNodes_CostIncrease(t *testing.T) {
	c := defaultComparator()
	before := plan.Node{
		Kind:         plan.SeqScan,
		TypeName:     "Seq Scan",
		TotalCost:    20.0,
		ActualTimeMs: ms(0.5),
		ActualRows:   100,
	}
	after := plan.Node{
		Kind:         plan.SeqScan,
		TypeName:     "Seq Scan",
		TotalCost:    40.0,
		ActualTimeMs: ms(0.5),
		ActualRows:   100,
	}

	delta := c.diffNodes(&before, &after)

	if delta.Change != Modified {
		t.Errorf("Change = %v, want Modified", delta.Change)
	}
	if delta.CostDir != Regressed {
		t.Errorf("CostDir = %v, want Regressed", delta.CostDir)
	}
	if delta.CostDelta != 20.0 {
		t.Errorf("CostDelta = %f, want 20.0", delta.CostDelta)
	}
	if delta.CostPct != 100.0 {
		t.Errorf("CostPct = %f, want 100.0", delta.CostPct)
	}
}

func TestDiffNodes_TimeImproved(t *testing.T) {
	c := defaultComparator()
	before := plan.Node{
		Kind:         plan.SeqScan,
		TypeName:     "Seq Scan",
		TotalCost:    20.0,
		ActualTimeMs: ms(10.0),
		ActualRows:   100,
	}
	after := plan.Node{
		Kind:         plan.SeqScan,
		TypeName:     "Seq Scan",
		TotalCost:    20.0,
		ActualTimeMs: ms(3.0),
		ActualRows:   100,
	}

	delta := c.diffNodes(&before, &after)

	if delta.TimeDir != Improved {
		t.Errorf("TimeDir = %v, want Improved", delta.TimeDir)
	}
}

func TestDiffNodes_TypeChanged(t *testing.T) {
	c := defaultComparator()
	before := plan.Node{
		Kind:         plan.SeqScan,
		TypeName:     "Seq Scan",
		RelationName: "users",
		TotalCost:    100.0,
		ActualRows:   1000,
	}
	after := plan.Node{
		Kind:         plan.IndexScan,
		TypeName:     "Index Scan",
		RelationName: "users",
		TotalCost:    5.0,
		ActualRows:   10,
	}

	delta := c.diffNodes(&before, &after)

	if delta.Change != TypeChanged {
		t.Errorf("Change = %v, want TypeChanged", delta.Change)
	}
	if delta.OldTypeName != "Seq Scan" {
		t.Errorf("OldTypeName = %q, want Seq Scan", delta.OldTypeName)
	}
	if delta.NewTypeName != "Index Scan" {
		t.Errorf("NewTypeName = %q, want Index Scan", delta.NewTypeName)
	}
	if delta.Kind != plan.IndexScan {
		t.Errorf("Kind = %v, want IndexScan", delta.Kind)
	}
}

func TestDiffNodes_FilterChange(t *testing.T) {
	c := defaultComparator()
	before := plan.Node{
		Kind:      plan.SeqScan,
		TypeName:  "Seq Scan",
		TotalCost: 20.0,
	}
	after := plan.Node{
		Kind:      plan.SeqScan,
		TypeName:  "Seq Scan",
		TotalCost: 20.0,
		Filter:    "(id > 1)",
	}

	delta := c.diffNodes(&before, &after)

	if delta.OldFilter != "" {
		t.Errorf("OldFilter = %q, want empty", delta.OldFilter)
	}
	if delta.NewFilter != "(id > 1)" {
		t.Errorf("NewFilter = %q, want (id > 1)", delta.NewFilter)
	}
	if delta.Change != Modified {
		t.Errorf("Change = %v, want Modified for a filter change", delta.Change)
	}
}

func TestDiffNodes_IndexChange(t *testing.T) {
	c := defaultComparator()
	before := plan.Node{
		Kind:      plan.IndexScan,
		TypeName:  "Index Scan",
		TotalCost: 5.0,
		IndexName: "users_pkey",
	}
	after := plan.Node{
		Kind:      plan.IndexScan,
		TypeName:  "Index Scan",
		TotalCost: 5.0,
		IndexName: "users_age_idx",
	}

	delta := c.diffNodes(&before, &after)

	if delta.Change != Modified {
		t.Errorf("Change = %v, want Modified for an index change", delta.Change)
	}
	if delta.OldIndex != "users_pkey" || delta.NewIndex != "users_age_idx" {
		t.Errorf("indexes = %q -> %q, want users_pkey -> users_age_idx", delta.OldIndex, delta.NewIndex)
	}
}

func TestDiffNodes_EstimatedRowsFallback(t *testing.T) {
	c := defaultComparator()
	before := plan.Node{
		Kind:          plan.SeqScan,
		TypeName:      "Seq Scan",
		TotalCost:     20.0,
		EstimatedRows: 500,
	}
	after := plan.Node{
		Kind:          plan.SeqScan,
		TypeName:      "Seq Scan",
		TotalCost:     20.0,
		EstimatedRows: 500,
		ActualRows:    42,
	}

	delta := c.diffNodes(&before, &after)

	if delta.OldRows != 500 {
		t.Errorf("OldRows = %d, want the 500-row estimate", delta.OldRows)
	}
	if delta.NewRows != 42 {
		t.Errorf("NewRows = %d, want the 42 measured rows", delta.NewRows)
	}
}

func TestDiffChildren_MatchedChildren(t *testing.T) {
	c := defaultComparator()
	oldKids := []*plan.Node{
		{Kind: plan.SeqScan, TypeName: "Seq Scan", TotalCost: 10.0},
		{Kind: plan.Other, TypeName: "Hash", TotalCost: 5.0},
	}
	newKids := []*plan.Node{
		{Kind: plan.SeqScan, TypeName: "Seq Scan", TotalCost: 10.0},
		{Kind: plan.Other, TypeName: "Hash", TotalCost: 5.0},
	}

	deltas := c.diffChildren(oldKids, newKids)

	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
}

func TestDiffChildren_AddedNode(t *testing.T) {
	c := defaultComparator()
	oldKids := []*plan.Node{
		{Kind: plan.SeqScan, TypeName: "Seq Scan", TotalCost: 10.0},
	}
	newKids := []*plan.Node{
		{Kind: plan.SeqScan, TypeName: "Seq Scan", TotalCost: 10.0},
		{Kind: plan.Other, TypeName: "Hash", TotalCost: 5.0},
	}

	deltas := c.diffChildren(oldKids, newKids)

	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if deltas[1].Change != Added {
		t.Errorf("second delta Change = %v, want Added", deltas[1].Change)
	}
}

func TestDiffChildren_RemovedNode(t *testing.T) {
	c := defaultComparator()
	oldKids := []*plan.Node{
		{Kind: plan.SeqScan, TypeName: "Seq Scan", TotalCost: 10.0},
		{Kind: plan.Other, TypeName: "Hash", TotalCost: 5.0},
	}
	newKids := []*plan.Node{
		{Kind: plan.SeqScan, TypeName: "Seq Scan", TotalCost: 10.0},
	}

	deltas := c.diffChildren(oldKids, newKids)

	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if deltas[1].Change != Removed {
		t.Errorf("second delta Change = %v, want Removed", deltas[1].Change)
	}
}

func TestDiffChildren_EmptyBoth(t *testing.T) {
	c := defaultComparator()
	deltas := c.diffChildren(nil, nil)
	if len(deltas) != 0 {
		t.Errorf("expected 0 deltas, got %d", len(deltas))
	}
}

func TestCompare_BasicComparison(t *testing.T) {
	c := defaultComparator()
	before := &plan.Tree{
		Root: &plan.Node{
			Kind:         plan.SeqScan,
			TypeName:     "Seq Scan",
			RelationName: "users",
			TotalCost:    100.0,
			ActualTimeMs: ms(10.0),
			ActualRows:   1000,
		},
		PlanningTimeMs:  1.0,
		ExecutionTimeMs: 11.0,
	}
	after := &plan.Tree{
		Root: &plan.Node{
			Kind:         plan.IndexScan,
			TypeName:     "Index Scan",
			RelationName: "users",
			TotalCost:    5.0,
			ActualTimeMs: ms(0.5),
			ActualRows:   10,
		},
		PlanningTimeMs:  1.5,
		ExecutionTimeMs: 2.0,
	}

	report := c.Compare(before, after)

	s := report.Summary
	if s.CostDir != Improved {
		t.Errorf("CostDir = %v, want Improved", s.CostDir)
	}
	if s.TimeDir != Improved {
		t.Errorf("TimeDir = %v, want Improved", s.TimeDir)
	}
	if s.NodesTypeChanged != 1 {
		t.Errorf("NodesTypeChanged = %d, want 1", s.NodesTypeChanged)
	}
	if s.OldScanCounts[plan.SeqScan] != 1 {
		t.Errorf("OldScanCounts[SeqScan] = %d, want 1", s.OldScanCounts[plan.SeqScan])
	}
	if s.NewScanCounts[plan.IndexScan] != 1 {
		t.Errorf("NewScanCounts[IndexScan] = %d, want 1", s.NewScanCounts[plan.IndexScan])
	}
}

func TestCompare_IdenticalPlans(t *testing.T) {
	c := defaultComparator()
	p := &plan.Tree{
		Root: &plan.Node{
			Kind:         plan.SeqScan,
			TypeName:     "Seq Scan",
			TotalCost:    20.0,
			ActualTimeMs: ms(1.0),
			ActualRows:   100,
		},
		PlanningTimeMs:  0.5,
		ExecutionTimeMs: 1.5,
	}

	report := c.Compare(p, p)

	s := report.Summary
	if s.CostDelta != 0 {
		t.Errorf("CostDelta = %f, want 0", s.CostDelta)
	}
	if s.TimeDelta != 0 {
		t.Errorf("TimeDelta = %f, want 0", s.TimeDelta)
	}
	total := s.NodesAdded + s.NodesRemoved + s.NodesModified + s.NodesTypeChanged
	if total != 0 {
		t.Errorf("expected 0 changes, got %d", total)
	}
}

func TestCompare_DepthChange(t *testing.T) {
	c := defaultComparator()
	before := &plan.Tree{
		Root: &plan.Node{
			Kind:     plan.HashJoin,
			TypeName: "Hash Join",
			Children: []*plan.Node{
				{Kind: plan.SeqScan, TypeName: "Seq Scan", RelationName: "orders"},
				{Kind: plan.Other, TypeName: "Hash", Children: []*plan.Node{
					{Kind: plan.SeqScan, TypeName: "Seq Scan", RelationName: "users"},
				}},
			},
		},
	}
	after := &plan.Tree{
		Root: &plan.Node{Kind: plan.IndexScan, TypeName: "Index Scan", RelationName: "orders"},
	}

	report := c.Compare(before, after)

	if report.Summary.OldDepth != 2 {
		t.Errorf("OldDepth = %d, want 2", report.Summary.OldDepth)
	}
	if report.Summary.NewDepth != 0 {
		t.Errorf("NewDepth = %d, want 0", report.Summary.NewDepth)
	}
	if report.Summary.NodesRemoved == 0 {
		t.Error("expected removed nodes for the dropped join input")
	}
}

func TestCompare_VerdictFasterAndCheaper(t *testing.T) {
	c := defaultComparator()
	before := &plan.Tree{
		Root:            &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan, TotalCost: 100.0},
		ExecutionTimeMs: 50.0,
	}
	after := &plan.Tree{
		Root:            &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan, TotalCost: 10.0},
		ExecutionTimeMs: 5.0,
	}

	report := c.Compare(before, after)
	if report.Summary.Verdict != "faster and cheaper" {
		t.Errorf("Verdict = %q, want 'faster and cheaper'", report.Summary.Verdict)
	}
}

func TestCompare_VerdictSlowerAndMoreExpensive(t *testing.T) {
	c := defaultComparator()
	before := &plan.Tree{
		Root:            &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan, TotalCost: 10.0},
		ExecutionTimeMs: 5.0,
	}
	after := &plan.Tree{
		Root:            &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan, TotalCost: 100.0},
		ExecutionTimeMs: 50.0,
	}

	report := c.Compare(before, after)
	if report.Summary.Verdict != "slower and more expensive" {
		t.Errorf("Verdict = %q, want 'slower and more expensive'", report.Summary.Verdict)
	}
}

func TestCompare_VerdictCheaperOnly(t *testing.T) {
	c := defaultComparator()
	before := &plan.Tree{Root: &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan, TotalCost: 100.0}}
	after := &plan.Tree{Root: &plan.Node{TypeName: "Index Scan", Kind: plan.IndexScan, TotalCost: 10.0}}

	report := c.Compare(before, after)
	if report.Summary.Verdict != "cheaper" {
		t.Errorf("Verdict = %q, want 'cheaper'", report.Summary.Verdict)
	}
}

func TestCompare_VerdictNoChange(t *testing.T) {
	c := defaultComparator()
	p := &plan.Tree{
		Root:            &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan, TotalCost: 20.0},
		ExecutionTimeMs: 5.0,
	}

	report := c.Compare(p, p)
	if report.Summary.Verdict != "no significant change" {
		t.Errorf("Verdict = %q, want 'no significant change'", report.Summary.Verdict)
	}
}

func TestCompare_MissingTree(t *testing.T) {
	c := defaultComparator()
	p := &plan.Tree{Root: &plan.Node{TypeName: "Seq Scan", Kind: plan.SeqScan}}

	if got := c.Compare(nil, p); len(got.Deltas) != 0 {
		t.Errorf("Compare(nil, p) deltas = %d, want 0", len(got.Deltas))
	}
	if got := c.Compare(p, &plan.Tree{}); len(got.Deltas) != 0 {
		t.Errorf("Compare(p, rootless) deltas = %d, want 0", len(got.Deltas))
	}
}

func TestPctChange(t *testing.T) {
	tests := []struct {
		old, new, want float64
	}{
		{100, 200, 100.0},
		{100, 50, -50.0},
		{100, 100, 0},
		{0, 100, 100.0},
		{0, 0, 0},
	}

	for _, tt := range tests {
		got := pctChange(tt.old, tt.new)
		if got != tt.want {
			t.Errorf("pctChange(%f, %f) = %f, want %f", tt.old, tt.new, got, tt.want)
		}
	}
}

func TestDirection(t *testing.T) {
	c := defaultComparator()
	tests := []struct {
		old, new float64
		want     Direction
	}{
		{100, 50, Improved},
		{50, 100, Regressed},
		{100, 100, Unchanged},
		{100, 99.5, Unchanged},
		{0, 0, Unchanged},
	}

	for _, tt := range tests {
		got := c.direction(tt.old, tt.new)
		if got != tt.want {
			t.Errorf("direction(%f, %f) = %v, want %v", tt.old, tt.new, got, tt.want)
		}
	}
}

func TestIsSignificant_CostChange(t *testing.T) {
	c := defaultComparator()
	d := NodeDelta{
		OldCost: 100.0,
		NewCost: 110.0,
		CostPct: 10.0,
	}
	if !c.isSignificant(d) {
		t.Error("10% cost change should be significant")
	}
}

func TestIsSignificant_TinyChange(t *testing.T) {
	c := defaultComparator()
	d := NodeDelta{
		OldCost:   100.0,
		NewCost:   100.5,
		CostPct:   0.5,
		OldTimeMs: 10.0,
		NewTimeMs: 10.05,
		TimePct:   0.5,
	}
	if c.isSignificant(d) {
		t.Error("0.5% change should not be significant")
	}
}

func TestIsSignificant_FilterChange(t *testing.T) {
	c := defaultComparator()
	d := NodeDelta{
		OldFilter: "(age > 25)",
		NewFilter: "(age > 30)",
	}
	if !c.isSignificant(d) {
		t.Error("filter change should be significant")
	}
}

package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/simplyadil/QueryIQ/internal/comparator"
	"github.com/simplyadil/QueryIQ/internal/engine"
	"github.com/simplyadil/QueryIQ/internal/plan"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// textWriter carries the first write error so render calls can chain
// without checking every printf.
type textWriter struct {
	w     io.Writer
	err   error
	color bool
}

func newTextWriter(w io.Writer) *textWriter {
	return &textWriter{w: w, color: wantColor(w)}
}

// wantColor enables ANSI sequences only for interactive terminals, keeping
// piped and redirected output clean.
func wantColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func (tw *textWriter) c(code string) string {
	if !tw.color {
		return ""
	}
	return code
}

// RenderAnalysisText writes the human-readable report for one analysis:
// plan summary, prediction, then suggestions in rank order.
func RenderAnalysisText(w io.Writer, a *engine.Analysis) error {
	tw := newTextWriter(w)

	if m := a.PlanMetrics; m != nil {
		tw.printf("%s%sPlan Summary%s\n\n", tw.c(colorBold), tw.c(colorCyan), tw.c(colorReset))
		tw.printf("  Total Cost:     %.2f\n", m.TotalCost)
		if m.ActualTimeMs != nil {
			tw.printf("  Actual Time:    %.3f ms\n", *m.ActualTimeMs)
		}
		tw.printf("  Plan Depth:     %d\n", m.Depth)
		if mix := scanMix(m); mix != "" {
			tw.printf("  Scans:          %s\n", mix)
		}
		if m.JoinCount > 0 {
			tw.printf("  Joins:          %d\n", m.JoinCount)
		}
		if len(m.Relations) > 0 {
			tw.printf("  Relations:      %s\n", strings.Join(m.Relations, ", "))
		}
		if m.Truncated {
			tw.printf("  %s(plan truncated at depth %d)%s\n", tw.c(colorDim), plan.MaxDepth, tw.c(colorReset))
		}
		tw.printf("\n")
	}

	tw.printf("%s%sPrediction%s\n\n", tw.c(colorBold), tw.c(colorCyan), tw.c(colorReset))
	tw.printf("  Predicted Time: %.1f ms\n", a.Prediction.PredictedTimeMs)
	tw.printf("  Confidence:     %.2f\n", a.Prediction.Confidence)
	tw.printf("  Model:          %s\n\n", a.Prediction.ModelVersion)

	if len(a.Suggestions) == 0 {
		tw.printf("%s%sNo suggestions.%s\n", tw.c(colorBold), tw.c(colorGreen), tw.c(colorReset))
		return tw.err
	}

	tw.printf("%s%sSuggestions (%d)%s\n\n", tw.c(colorBold), tw.c(colorCyan), len(a.Suggestions), tw.c(colorReset))

	for i, s := range a.Suggestions {
		label, color := confidenceFormat(s.Confidence)
		tw.printf("  %s%-6s%s %s (%s, %s cost)\n", tw.c(color), label, tw.c(colorReset), s.Type, s.Source, s.ImplementationCost)
		tw.printf("  %s\n", s.Message)
		if s.EstimatedImprovementMs != nil {
			tw.printf("  %s→ saves about %.1f ms%s\n", tw.c(colorDim), *s.EstimatedImprovementMs, tw.c(colorReset))
		}
		if i < len(a.Suggestions)-1 {
			tw.printf("\n")
		}
	}

	return tw.err
}

func confidenceFormat(c float64) (string, string) {
	switch {
	case c >= 0.8:
		return "HIGH", colorRed
	case c >= 0.6:
		return "MEDIUM", colorYellow
	default:
		return "LOW", colorCyan
	}
}

func scanMix(m *plan.Metrics) string {
	var parts []string
	if n := m.ScanTypeCounts[plan.SeqScan]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d seq", n))
	}
	if n := m.ScanTypeCounts[plan.IndexScan]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d index", n))
	}
	if n := m.ScanTypeCounts[plan.BitmapScan]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d bitmap", n))
	}
	return strings.Join(parts, ", ")
}

// RenderComparisonText writes the before/after plan report.
func RenderComparisonText(w io.Writer, report comparator.Report) error {
	tw := newTextWriter(w)
	s := report.Summary

	tw.printf("%s%sSummary%s\n\n", tw.c(colorBold), tw.c(colorCyan), tw.c(colorReset))
	tw.printf("  Cost:           %s\n", tw.formatDelta(s.OldTotalCost, s.NewTotalCost, s.CostPct, s.CostDir, "%.2f"))
	if s.OldExecutionTimeMs > 0 || s.NewExecutionTimeMs > 0 {
		tw.printf("  Execution Time: %s\n", tw.formatDelta(s.OldExecutionTimeMs, s.NewExecutionTimeMs, s.TimePct, s.TimeDir, "%.3f ms"))
	}
	if s.OldPlanningTimeMs > 0 || s.NewPlanningTimeMs > 0 {
		tw.printf("  Planning Time:  %s\n", tw.formatDelta(s.OldPlanningTimeMs, s.NewPlanningTimeMs, pctChange(s.OldPlanningTimeMs, s.NewPlanningTimeMs), s.PlanningDir, "%.3f ms"))
	}
	if s.OldDepth != s.NewDepth {
		tw.printf("  Plan Depth:     %d → %d\n", s.OldDepth, s.NewDepth)
	}
	tw.printf("\n")

	changes := s.NodesAdded + s.NodesRemoved + s.NodesModified + s.NodesTypeChanged
	if changes == 0 {
		tw.printf("%s%sPlans are identical.%s\n", tw.c(colorBold), tw.c(colorGreen), tw.c(colorReset))
		return tw.err
	}

	tw.printf("  Changes: %d modified, %d type changed, %d added, %d removed\n\n",
		s.NodesModified, s.NodesTypeChanged, s.NodesAdded, s.NodesRemoved)

	tw.printf("%s%sNode Details%s\n\n", tw.c(colorBold), tw.c(colorCyan), tw.c(colorReset))

	for _, delta := range report.Deltas {
		tw.renderDelta(delta, 0)
	}

	tw.renderVerdict(s)

	return tw.err
}

func (tw *textWriter) renderDelta(d comparator.NodeDelta, depth int) {
	indent := strings.Repeat("  ", depth+1)

	switch d.Change {
	case comparator.NoChange:
		for _, child := range d.Children {
			tw.renderDelta(child, depth)
		}
		return
	case comparator.Added:
		tw.renderAddedNode(indent, d)
	case comparator.Removed:
		tw.renderRemovedNode(indent, d)
	case comparator.TypeChanged:
		tw.renderTypeChangedNode(indent, d)
	case comparator.Modified:
		tw.renderModifiedNode(indent, d)
	}

	for _, child := range d.Children {
		tw.renderDelta(child, depth+1)
	}
}

func (tw *textWriter) renderAddedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s+ %s%s", indent, tw.c(colorGreen), nodeLabel(d), tw.c(colorReset))
	tw.printf(" (cost=%.2f", d.NewCost)
	if d.NewTimeMs > 0 {
		tw.printf(" time=%.3fms", d.NewTimeMs)
	}
	tw.printf(")\n")
}

func (tw *textWriter) renderRemovedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s- %s%s", indent, tw.c(colorRed), nodeLabel(d), tw.c(colorReset))
	tw.printf(" (cost=%.2f", d.OldCost)
	if d.OldTimeMs > 0 {
		tw.printf(" time=%.3fms", d.OldTimeMs)
	}
	tw.printf(")\n")
}

func (tw *textWriter) renderTypeChangedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s~ %s → %s%s", indent, tw.c(colorYellow), d.OldTypeName, d.NewTypeName, tw.c(colorReset))
	if d.Relation != "" {
		tw.printf(" on %s", d.Relation)
	}
	tw.printf("\n")
	tw.renderNodeMetrics(indent, d)
}

func (tw *textWriter) renderModifiedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s~ %s%s\n", indent, tw.c(colorYellow), nodeLabel(d), tw.c(colorReset))
	tw.renderNodeMetrics(indent, d)
}

func (tw *textWriter) renderNodeMetrics(indent string, d comparator.NodeDelta) {
	tw.renderMetricLine(indent, "cost", d.OldCost, d.NewCost, d.CostPct, d.CostDir, "%.2f")
	if d.OldTimeMs > 0 || d.NewTimeMs > 0 {
		tw.renderMetricLine(indent, "time", d.OldTimeMs, d.NewTimeMs, d.TimePct, d.TimeDir, "%.3f ms")
	}
	if d.OldRows != d.NewRows {
		tw.printf("%s  rows: %d → %d (%+.1f%%)\n", indent, d.OldRows, d.NewRows, d.RowsPct)
	}
	tw.renderTextChange(indent, "filter", d.OldFilter, d.NewFilter)
	tw.renderTextChange(indent, "index", d.OldIndex, d.NewIndex)
	tw.renderTextChange(indent, "index cond", d.OldIndexCond, d.NewIndexCond)
}

func (tw *textWriter) renderMetricLine(indent, label string, oldVal, newVal, pct float64, dir comparator.Direction, fmtStr string) {
	oldStr := fmt.Sprintf(fmtStr, oldVal)
	newStr := fmt.Sprintf(fmtStr, newVal)
	tw.printf("%s  %s: %s → %s%s %s (%+.1f%%)%s\n", indent, label, oldStr, tw.c(dirColor(dir)), newStr, dirArrow(dir), pct, tw.c(colorReset))
}

func (tw *textWriter) renderTextChange(indent, label, oldVal, newVal string) {
	if oldVal == newVal {
		return
	}
	switch {
	case oldVal == "":
		tw.printf("%s  %s%s added: %s%s\n", indent, tw.c(colorYellow), label, newVal, tw.c(colorReset))
	case newVal == "":
		tw.printf("%s  %s%s removed: %s%s\n", indent, tw.c(colorGreen), label, oldVal, tw.c(colorReset))
	default:
		tw.printf("%s  %s%s: %s → %s%s\n", indent, tw.c(colorYellow), label, oldVal, newVal, tw.c(colorReset))
	}
}

func (tw *textWriter) formatDelta(oldVal, newVal, pct float64, dir comparator.Direction, fmtStr string) string {
	oldStr := fmt.Sprintf(fmtStr, oldVal)
	newStr := fmt.Sprintf(fmtStr, newVal)
	return fmt.Sprintf("%s → %s%s %s (%+.1f%%)%s", oldStr, tw.c(dirColor(dir)), newStr, dirArrow(dir), pct, tw.c(colorReset))
}

func (tw *textWriter) renderVerdict(s comparator.Summary) {
	var color string
	switch {
	case s.TimeDir == comparator.Improved && s.CostDir == comparator.Improved:
		color = colorGreen
	case s.TimeDir == comparator.Regressed && s.CostDir == comparator.Regressed:
		color = colorRed
	case s.TimeDir == comparator.Improved || s.CostDir == comparator.Improved:
		color = colorYellow
	}
	if c := tw.c(color); c != "" {
		tw.printf("\n%sVerdict: %s%s\n", c, s.Verdict, tw.c(colorReset))
	} else {
		tw.printf("\nVerdict: %s\n", s.Verdict)
	}
}

func dirColor(d comparator.Direction) string {
	switch d {
	case comparator.Improved:
		return colorGreen
	case comparator.Regressed:
		return colorRed
	default:
		return ""
	}
}

func dirArrow(d comparator.Direction) string {
	switch d {
	case comparator.Improved:
		return "↓"
	case comparator.Regressed:
		return "↑"
	default:
		return ""
	}
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

func nodeLabel(d comparator.NodeDelta) string {
	if d.Relation != "" {
		return fmt.Sprintf("%s on %s", d.TypeName, d.Relation)
	}
	return d.TypeName
}

package suggest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ms(v float64) *float64 { return &v }

func TestSynthesize_DedupKeepsHighestConfidence(t *testing.T) {
	in := []Suggestion{
		{QueryID: "q1", Type: IndexRecommendation, Confidence: 0.6, Source: Rule},
		{QueryID: "q1", Type: IndexRecommendation, Confidence: 0.8, Source: Model},
	}
	out := Synthesize(in, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(out))
	}
	if out[0].Confidence != 0.8 || out[0].Source != Model {
		t.Errorf("kept %+v, want the 0.8 model entry", out[0])
	}
}

func TestSynthesize_DedupTiePrefersRule(t *testing.T) {
	in := []Suggestion{
		{QueryID: "q1", Type: PerformanceDeviation, Confidence: 0.7, Source: Model},
		{QueryID: "q1", Type: PerformanceDeviation, Confidence: 0.7, Source: Rule},
	}
	out := Synthesize(in, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(out))
	}
	if out[0].Source != Rule {
		t.Errorf("Source = %v, want %v on confidence tie", out[0].Source, Rule)
	}
}

func TestSynthesize_NeverTwoEntriesWithSameIdentity(t *testing.T) {
	in := []Suggestion{
		{QueryID: "q1", Type: NarrowProjection, Confidence: 0.9, Source: Rule},
		{QueryID: "q1", Type: NarrowProjection, Confidence: 0.5, Source: Model},
		{QueryID: "q1", Type: MissingFilter, Confidence: 0.7, Source: Rule},
		{QueryID: "q2", Type: NarrowProjection, Confidence: 0.9, Source: Rule},
		{QueryID: "q1", Type: NarrowProjection, Confidence: 0.9, Source: Model},
	}
	out := Synthesize(in, 10)

	seen := map[identity]bool{}
	for _, s := range out {
		k := identity{s.QueryID, s.Type}
		if seen[k] {
			t.Fatalf("duplicate identity %v in output", k)
		}
		seen[k] = true
	}
	if len(out) != 3 {
		t.Errorf("expected 3 distinct identities, got %d", len(out))
	}
}

func TestSynthesize_Ordering(t *testing.T) {
	in := []Suggestion{
		{QueryID: "q", Type: SubqueryFlattening, Confidence: 0.5, Source: Rule},
		{QueryID: "q", Type: JoinComplexity, Confidence: 0.5, Source: Rule, EstimatedImprovementMs: ms(200)},
		{QueryID: "q", Type: NarrowProjection, Confidence: 0.9, Source: Rule, EstimatedImprovementMs: ms(10)},
		{QueryID: "q", Type: IndexRecommendation, Confidence: 0.6, Source: Rule, EstimatedImprovementMs: ms(500)},
	}
	out := Synthesize(in, 10)

	want := []Type{NarrowProjection, IndexRecommendation, JoinComplexity, SubqueryFlattening}
	for i, typ := range want {
		if out[i].Type != typ {
			t.Fatalf("position %d: got %v, want %v (full order %v)", i, out[i].Type, typ, typesOf(out))
		}
	}
}

func TestSynthesize_EqualConfidenceTypeTiebreak(t *testing.T) {
	in := []Suggestion{
		{QueryID: "q", Type: SubqueryFlattening, Confidence: 0.5, Source: Rule},
		{QueryID: "q", Type: JoinComplexity, Confidence: 0.5, Source: Rule},
	}
	out := Synthesize(in, 10)
	if out[0].Type != JoinComplexity {
		t.Errorf("got %v first, want %v (type ascending tiebreak)", out[0].Type, JoinComplexity)
	}
}

func TestSynthesize_Truncation(t *testing.T) {
	var in []Suggestion
	for i := 0; i < 25; i++ {
		in = append(in, Suggestion{
			QueryID:    "q",
			Type:       Type(i), // distinct identities
			Confidence: float64(i) / 25,
			Source:     Rule,
		})
	}
	out := Synthesize(in, 10)
	if len(out) != 10 {
		t.Errorf("len = %d, want 10", len(out))
	}

	out = Synthesize(in, 0)
	if len(out) != DefaultMaxSuggestions {
		t.Errorf("len = %d, want default %d", len(out), DefaultMaxSuggestions)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	in := []Suggestion{
		{QueryID: "q", Type: NarrowProjection, Confidence: 0.9, Source: Rule},
		{QueryID: "q", Type: MissingFilter, Confidence: 0.7, Source: Rule, EstimatedImprovementMs: ms(120)},
		{QueryID: "q", Type: PerformanceDeviation, Confidence: 0.7, Source: Model, EstimatedImprovementMs: ms(120)},
		{QueryID: "q", Type: IndexRecommendation, Confidence: 0.6, Source: Rule},
	}
	first := Synthesize(in, 10)
	second := Synthesize(in, 10)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("synthesis not deterministic (-first +second):\n%s", diff)
	}
}

func TestSynthesize_EmptyInput(t *testing.T) {
	if out := Synthesize(nil, 10); len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

func typesOf(in []Suggestion) []Type {
	types := make([]Type, len(in))
	for i, s := range in {
		types[i] = s.Type
	}
	return types
}

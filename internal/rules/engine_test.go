package rules

import (
	"testing"

	"github.com/go-kit/log"

	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

func TestEngineEvaluatesAllRules(t *testing.T) {
	e := NewEngine(log.NewNopLogger())
	in := Input{
		QueryID: "q1",
		Query:   "SELECT * FROM users WHERE age > 25",
		Vector: feature.Vector{
			HasSelectStar:  true,
			HasWhereClause: true,
		},
		Metrics: metricsWithLargeSeqScan(150),
	}

	got := e.Evaluate(in)

	want := map[suggest.Type]bool{
		suggest.NarrowProjection:    true,
		suggest.IndexRecommendation: true,
	}
	for _, s := range got {
		delete(want, s.Type)
	}
	for typ := range want {
		t.Errorf("missing suggestion of type %v", typ)
	}
}

func TestEngineIsolatesPanickingRule(t *testing.T) {
	var failed []string
	e := &Engine{
		Rules: []Rule{
			{Name: "explodes", Eval: func(Input) *suggest.Suggestion {
				panic("boom")
			}},
			{Name: "survives", Eval: func(in Input) *suggest.Suggestion {
				return &suggest.Suggestion{
					QueryID:    in.QueryID,
					Type:       suggest.JoinComplexity,
					Message:    "still here",
					Confidence: 0.5,
					Source:     suggest.Rule,
				}
			}},
		},
		Logger:    log.NewNopLogger(),
		OnFailure: func(rule string) { failed = append(failed, rule) },
	}

	got := e.Evaluate(Input{QueryID: "q1"})

	if len(got) != 1 || got[0].Message != "still here" {
		t.Fatalf("Evaluate = %+v, want the surviving rule's suggestion only", got)
	}
	if len(failed) != 1 || failed[0] != "explodes" {
		t.Errorf("OnFailure calls = %v, want [explodes]", failed)
	}
}

func TestEngineSkipsNilResults(t *testing.T) {
	e := NewEngine(nil)
	got := e.Evaluate(Input{QueryID: "q1", Query: "SELECT id FROM t WHERE id = 1"})
	for _, s := range got {
		if s.QueryID != "q1" {
			t.Errorf("suggestion carries QueryID %q, want q1", s.QueryID)
		}
	}
}

func TestDefaultsAreNamed(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Defaults() {
		if r.Name == "" {
			t.Error("rule with empty name")
		}
		if seen[r.Name] {
			t.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		if r.Eval == nil {
			t.Errorf("rule %q has nil Eval", r.Name)
		}
	}
}

package rules

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/simplyadil/QueryIQ/internal/suggest"
)

// Engine evaluates a fixed, ordered rule set. Rules are independent: a rule
// that panics is logged and skipped without affecting the others.
type Engine struct {
	Rules  []Rule
	Logger log.Logger

	// OnFailure, when set, is invoked with the name of every rule whose
	// evaluation had to be discarded.
	OnFailure func(rule string)
}

// NewEngine builds an engine with the default rule set.
func NewEngine(logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{Rules: Defaults(), Logger: logger}
}

// Evaluate runs every rule in order and collects the candidate suggestions.
func (e *Engine) Evaluate(in Input) []suggest.Suggestion {
	out := make([]suggest.Suggestion, 0, len(e.Rules))
	for _, r := range e.Rules {
		if s := e.evalOne(r, in); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (e *Engine) evalOne(r Rule, in Input) (s *suggest.Suggestion) {
	defer func() {
		if rec := recover(); rec != nil {
			level.Warn(e.Logger).Log("msg", "rule evaluation failed, skipping", "rule", r.Name, "err", rec)
			if e.OnFailure != nil {
				e.OnFailure(r.Name)
			}
			s = nil
		}
	}()
	return r.Eval(in)
}

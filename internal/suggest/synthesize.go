package suggest

import "sort"

// DefaultMaxSuggestions caps the final list when the caller does not
// configure a limit.
const DefaultMaxSuggestions = 10

// Synthesize merges candidate suggestions from all sources into the final
// ordered list: duplicates by (query ID, type) collapse to the most
// confident entry, the survivors sort by confidence, then estimated
// improvement, then type, and the list truncates to maxSuggestions. The
// result is deterministic for identical input.
func Synthesize(candidates []Suggestion, maxSuggestions int) []Suggestion {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	out := dedupe(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

type identity struct {
	queryID string
	typ     Type
}

// dedupe keeps, per identity, the entry with the highest confidence. On a
// confidence tie a rule-sourced entry wins over a model-sourced one, since
// rules explain themselves.
func dedupe(in []Suggestion) []Suggestion {
	index := make(map[identity]int, len(in))
	out := make([]Suggestion, 0, len(in))
	for _, s := range in {
		k := identity{s.QueryID, s.Type}
		if i, ok := index[k]; ok {
			if replaces(s, out[i]) {
				out[i] = s
			}
			continue
		}
		index[k] = len(out)
		out = append(out, s)
	}
	return out
}

func replaces(challenger, incumbent Suggestion) bool {
	if challenger.Confidence != incumbent.Confidence {
		return challenger.Confidence > incumbent.Confidence
	}
	return challenger.Source == Rule && incumbent.Source == Model
}

func less(a, b Suggestion) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	ai, bi := improvementOf(a), improvementOf(b)
	if ai != bi {
		return ai > bi
	}
	return a.Type < b.Type
}

// improvementOf treats a missing estimate as the smallest value so entries
// without one sort after those with one.
func improvementOf(s Suggestion) float64 {
	if s.EstimatedImprovementMs == nil {
		return -1
	}
	return *s.EstimatedImprovementMs
}

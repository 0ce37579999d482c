package predict

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"

	"github.com/simplyadil/QueryIQ/internal/feature"
)

// Artifact is a trained linear regression over the feature vector,
// serialized as JSON on disk. Weights are keyed by feature name; features
// missing from the map simply contribute nothing.
type Artifact struct {
	Version    string             `json:"version"`
	Confidence float64            `json:"confidence"`
	Intercept  float64            `json:"intercept"`
	Weights    map[string]float64 `json:"weights"`
}

// Validate rejects artifacts that could not produce a usable prediction.
func (a *Artifact) Validate() error {
	if a.Version == "" {
		return errors.New("artifact has no version")
	}
	if math.IsNaN(a.Confidence) || a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", a.Confidence)
	}
	if len(a.Weights) == 0 {
		return errors.New("artifact has no weights")
	}
	if !isFinite(a.Intercept) {
		return errors.New("intercept is not finite")
	}
	for name, w := range a.Weights {
		if _, ok := featureValue(feature.Vector{}, name); !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		if !isFinite(w) {
			return fmt.Errorf("weight for %q is not finite", name)
		}
	}
	return nil
}

// Evaluate applies the regression to one vector. Weights are summed in
// sorted key order so identical inputs always produce the identical float.
// A negative sum clamps to zero; execution time cannot be negative.
func (a *Artifact) Evaluate(v feature.Vector) (float64, error) {
	names := make([]string, 0, len(a.Weights))
	for name := range a.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := a.Intercept
	for _, name := range names {
		x, ok := featureValue(v, name)
		if !ok {
			return 0, fmt.Errorf("unknown feature %q", name)
		}
		sum += a.Weights[name] * x
	}
	if !isFinite(sum) {
		return 0, errors.New("prediction is not finite")
	}
	if sum < 0 {
		return 0, nil
	}
	return sum, nil
}

func featureValue(v feature.Vector, name string) (float64, bool) {
	switch name {
	case "num_select":
		return float64(v.NumSelect), true
	case "num_join":
		return float64(v.NumJoin), true
	case "num_subqueries":
		return float64(v.NumSubqueries), true
	case "num_group_by":
		return float64(v.NumGroupBy), true
	case "num_order_by":
		return float64(v.NumOrderBy), true
	case "num_distinct":
		return float64(v.NumDistinct), true
	case "num_limit":
		return float64(v.NumLimit), true
	case "query_length":
		return float64(v.QueryLength), true
	case "has_select_star":
		return boolValue(v.HasSelectStar), true
	case "has_where_clause":
		return boolValue(v.HasWhereClause), true
	case "plan_depth":
		return float64(v.PlanDepth), true
	case "indexed_scan_ratio":
		return v.IndexedScanRatio, true
	case "complexity_score":
		return v.ComplexityScore, true
	case "is_slow_query":
		return boolValue(v.IsSlowQuery), true
	}
	return 0, false
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Registry holds the active artifact behind an atomic pointer. Readers call
// Current on every prediction and never block; a reload swaps the pointer in
// one step, so concurrent predictions observe either the old artifact or the
// new one, never a mix.
type Registry struct {
	logger  log.Logger
	current atomic.Pointer[Artifact]
}

func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Registry{logger: logger}
}

// Current returns the active artifact, or nil when none is loaded.
func (r *Registry) Current() *Artifact {
	return r.current.Load()
}

// Swap installs an artifact directly. Passing nil unloads the model and
// sends every prediction through the fallback estimator.
func (r *Registry) Swap(a *Artifact) {
	r.current.Store(a)
}

// LoadFile reads, decodes and validates a JSON artifact from disk. On any
// failure the previously active artifact stays in place.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model artifact: %w", err)
	}
	a := &Artifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("decode model artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate model artifact: %w", err)
	}
	r.current.Store(a)
	level.Info(r.logger).Log("msg", "model artifact loaded", "path", path, "version", a.Version, "weights", len(a.Weights))
	return nil
}

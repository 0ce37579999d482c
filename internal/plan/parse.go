package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// MaxDepth bounds plan-tree nesting. Children below the cap are dropped and
// the tree is marked truncated instead of recursing without limit.
const MaxDepth = 256

// Parse decodes EXPLAIN (FORMAT JSON) output into a Tree. It accepts the
// usual one-element array form, a bare {"Plan": ...} object, or a bare node
// object, and tolerates numbers encoded as strings. Any structural problem
// (missing node type or cost, a Plans field that is not a list) returns an
// error; callers treat that as a degraded analysis, not a fatal one.
func Parse(data []byte) (*Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid EXPLAIN JSON: %w", err)
	}

	entry, err := firstEntry(payload)
	if err != nil {
		return nil, err
	}

	nodeMap := entry
	if raw, ok := entry["Plan"]; ok {
		nodeMap, err = asObject(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid Plan root: %w", err)
		}
	} else if _, ok := entry["Node Type"]; !ok {
		return nil, errors.New("EXPLAIN JSON missing Plan root")
	}

	t := &Tree{
		PlanningTimeMs:  asFloat(entry["Planning Time"]),
		ExecutionTimeMs: asFloat(entry["Execution Time"]),
	}
	root, err := t.parseNode(nodeMap, 0)
	if err != nil {
		return nil, err
	}
	t.Root = root
	return t, nil
}

func (t *Tree) parseNode(m map[string]any, depth int) (*Node, error) {
	typeName := asString(m["Node Type"])
	if typeName == "" {
		return nil, errors.New("plan node missing Node Type")
	}
	if _, ok := m["Total Cost"]; !ok {
		return nil, fmt.Errorf("plan node %q missing Total Cost", typeName)
	}

	n := &Node{
		Kind:          kindOf(typeName),
		TypeName:      typeName,
		RelationName:  asString(m["Relation Name"]),
		IndexName:     asString(m["Index Name"]),
		Filter:        asString(m["Filter"]),
		IndexCond:     asString(m["Index Cond"]),
		StartupCost:   nonNegative(asFloat(m["Startup Cost"])),
		TotalCost:     nonNegative(asFloat(m["Total Cost"])),
		EstimatedRows: asInt64(m["Plan Rows"]),
		ActualRows:    asInt64(m["Actual Rows"]),
	}
	if v, ok := m["Actual Total Time"]; ok {
		ms := nonNegative(asFloat(v))
		n.ActualTimeMs = &ms
	}

	raw, ok := m["Plans"]
	if !ok || raw == nil {
		return n, nil
	}
	children, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("plan node %q: Plans is not a list", typeName)
	}
	if depth >= MaxDepth {
		t.Truncated = true
		return n, nil
	}
	for i, cv := range children {
		cm, err := asObject(cv)
		if err != nil {
			return nil, fmt.Errorf("child %d of %q: %w", i, typeName, err)
		}
		child, err := t.parseNode(cm, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func firstEntry(payload any) (map[string]any, error) {
	switch v := payload.(type) {
	case []any:
		if len(v) == 0 {
			return nil, errors.New("empty EXPLAIN output")
		}
		entry, err := asObject(v[0])
		if err != nil {
			return nil, fmt.Errorf("invalid EXPLAIN entry: %w", err)
		}
		return entry, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected EXPLAIN top-level type %T", payload)
	}
}

func asObject(v any) (map[string]any, error) {
	if v == nil {
		return nil, errors.New("nil object")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return m, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return int64(f)
	case float64:
		return int64(n)
	case int64:
		return n
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return int64(f)
	default:
		return 0
	}
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

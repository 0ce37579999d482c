package plan

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Input bundles what the analyze command gathered for one query: the SQL
// text and, when available, the raw EXPLAIN JSON for it.
type Input struct {
	Query string
	Plan  []byte
}

// Resolve turns command-line arguments into an Input. queryArg is "-" for
// stdin, a path to a .sql file, or literal SQL. The plan comes from planFile
// when given, otherwise from a live EXPLAIN when a connection string is
// available; with neither, analysis proceeds on the query text alone.
func Resolve(ctx context.Context, queryArg, planFile, connStr string, analyze bool) (Input, error) {
	query, err := readQuery(queryArg)
	if err != nil {
		return Input{}, err
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Input{}, fmt.Errorf("empty query input")
	}
	if strings.HasPrefix(strings.ToUpper(trimmed), "EXPLAIN") {
		return Input{}, fmt.Errorf("input should not include EXPLAIN prefix - provide the raw query only")
	}

	in := Input{Query: trimmed}

	switch {
	case planFile != "":
		data, err := os.ReadFile(planFile)
		if err != nil {
			return Input{}, fmt.Errorf("reading plan file: %w", err)
		}
		in.Plan = data
	case connStr != "":
		data, err := Explain(ctx, connStr, trimmed, analyze)
		if err != nil {
			return Input{}, err
		}
		in.Plan = data
	}

	return in, nil
}

func readQuery(arg string) (string, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case looksLikeFile(arg):
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		return string(data), nil
	default:
		return arg, nil
	}
}

func looksLikeFile(arg string) bool {
	if !strings.HasSuffix(arg, ".sql") && !strings.HasSuffix(arg, ".txt") {
		return false
	}
	_, err := os.Stat(arg)
	return err == nil
}

package plan

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Explain runs the statement under EXPLAIN inside a transaction that is
// always rolled back, and returns the raw FORMAT JSON document. With analyze
// set the plan carries actual row counts and timings; the statement is then
// really executed, which is why the rollback matters.
func Explain(ctx context.Context, connStr string, sql string, analyze bool) ([]byte, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prefix := "EXPLAIN (VERBOSE, FORMAT JSON) "
	if analyze {
		prefix = "EXPLAIN (ANALYZE, VERBOSE, BUFFERS, FORMAT JSON) "
	}

	var jsonStr string
	if err := tx.QueryRow(ctx, prefix+sql).Scan(&jsonStr); err != nil {
		return nil, fmt.Errorf("executing EXPLAIN: %w", err)
	}
	return []byte(jsonStr), nil
}

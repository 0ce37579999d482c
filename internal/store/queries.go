package store

import (
	"database/sql"
	"time"
)

// UpsertQuery inserts or refreshes one collected statement. The collector
// revisits the same statements every interval, so conflicts on query_id
// simply overwrite the stored counters.
func (db *DB) UpsertQuery(q *QueryRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO queries
		(query_id, query_text, query_hash, db_user, database_name,
		 total_exec_time_ms, mean_exec_time_ms, calls, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_id) DO UPDATE SET
			query_text         = excluded.query_text,
			query_hash         = excluded.query_hash,
			db_user            = excluded.db_user,
			database_name      = excluded.database_name,
			total_exec_time_ms = excluded.total_exec_time_ms,
			mean_exec_time_ms  = excluded.mean_exec_time_ms,
			calls              = excluded.calls,
			collected_at       = excluded.collected_at`,
		q.ID, q.Text, q.Hash, q.DBUser, q.Database,
		q.TotalExecTimeMs, q.MeanExecTimeMs, q.Calls,
		q.CollectedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetQuery returns a query by ID, or nil if it was never collected.
func (db *DB) GetQuery(queryID string) (*QueryRecord, error) {
	row := db.conn.QueryRow(`
		SELECT query_id, query_text, query_hash, db_user, database_name,
		       total_exec_time_ms, mean_exec_time_ms, calls, collected_at
		FROM queries WHERE query_id = ?`, queryID)
	return scanQuery(row)
}

// RecentQueries returns the most recently collected statements, newest
// first. limit <= 0 falls back to 50.
func (db *DB) RecentQueries(limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT query_id, query_text, query_hash, db_user, database_name,
		       total_exec_time_ms, mean_exec_time_ms, calls, collected_at
		FROM queries
		ORDER BY collected_at DESC, query_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []QueryRecord
	for rows.Next() {
		var q QueryRecord
		var user, database sql.NullString
		var collectedAt string
		if err := rows.Scan(
			&q.ID, &q.Text, &q.Hash, &user, &database,
			&q.TotalExecTimeMs, &q.MeanExecTimeMs, &q.Calls, &collectedAt,
		); err != nil {
			return nil, err
		}
		q.DBUser = user.String
		q.Database = database.String
		q.CollectedAt, _ = time.Parse(time.RFC3339, collectedAt)
		records = append(records, q)
	}
	return records, rows.Err()
}

// SlowestQueries returns the statements with the highest mean execution
// time, slowest first.
func (db *DB) SlowestQueries(limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT query_id, query_text, query_hash, db_user, database_name,
		       total_exec_time_ms, mean_exec_time_ms, calls, collected_at
		FROM queries
		ORDER BY mean_exec_time_ms DESC, query_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []QueryRecord
	for rows.Next() {
		var q QueryRecord
		var user, database sql.NullString
		var collectedAt string
		if err := rows.Scan(
			&q.ID, &q.Text, &q.Hash, &user, &database,
			&q.TotalExecTimeMs, &q.MeanExecTimeMs, &q.Calls, &collectedAt,
		); err != nil {
			return nil, err
		}
		q.DBUser = user.String
		q.Database = database.String
		q.CollectedAt, _ = time.Parse(time.RFC3339, collectedAt)
		records = append(records, q)
	}
	return records, rows.Err()
}

func scanQuery(row *sql.Row) (*QueryRecord, error) {
	var q QueryRecord
	var user, database sql.NullString
	var collectedAt string
	err := row.Scan(
		&q.ID, &q.Text, &q.Hash, &user, &database,
		&q.TotalExecTimeMs, &q.MeanExecTimeMs, &q.Calls, &collectedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.DBUser = user.String
	q.Database = database.String
	q.CollectedAt, _ = time.Parse(time.RFC3339, collectedAt)
	return &q, nil
}

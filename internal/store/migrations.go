package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			query_id           TEXT PRIMARY KEY,
			query_text         TEXT NOT NULL,
			query_hash         TEXT NOT NULL,
			db_user            TEXT,
			database_name      TEXT,
			total_exec_time_ms REAL NOT NULL DEFAULT 0,
			mean_exec_time_ms  REAL NOT NULL DEFAULT 0,
			calls              INTEGER NOT NULL DEFAULT 0,
			collected_at       TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS analyses (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			query_id              TEXT NOT NULL REFERENCES queries(query_id),
			analyzed_at           TEXT NOT NULL,
			features              TEXT NOT NULL,
			plan_metrics          TEXT,
			predicted_time_ms     REAL NOT NULL,
			prediction_confidence REAL NOT NULL,
			model_version         TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS suggestions (
			id                       INTEGER PRIMARY KEY AUTOINCREMENT,
			query_id                 TEXT NOT NULL REFERENCES queries(query_id),
			analysis_id              INTEGER NOT NULL REFERENCES analyses(id),
			suggestion_type          TEXT NOT NULL,
			message                  TEXT NOT NULL,
			confidence               REAL NOT NULL,
			source                   TEXT NOT NULL,
			estimated_improvement_ms REAL,
			implementation_cost      TEXT NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_queries_hash ON queries(query_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_collected ON queries(collected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_query ON analyses(query_id)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_query ON suggestions(query_id)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_analysis ON suggestions(analysis_id)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

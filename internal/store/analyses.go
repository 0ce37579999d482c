package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simplyadil/QueryIQ/internal/suggest"
)

// SaveAnalysis stores one analysis and its suggestions in a single
// transaction. Suggestions from earlier analyses of the same query are
// replaced, so the stored set always mirrors the latest run. Returns the
// new analysis row ID.
func (db *DB) SaveAnalysis(rec *AnalysisRecord, suggestions []suggest.Suggestion) (int64, error) {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return 0, fmt.Errorf("encoding features: %w", err)
	}
	var planMetrics any
	if rec.PlanMetrics != nil {
		b, err := json.Marshal(rec.PlanMetrics)
		if err != nil {
			return 0, fmt.Errorf("encoding plan metrics: %w", err)
		}
		planMetrics = string(b)
	}

	analyzedAt := rec.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO analyses
		(query_id, analyzed_at, features, plan_metrics,
		 predicted_time_ms, prediction_confidence, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.QueryID, analyzedAt.UTC().Format(time.RFC3339), string(features), planMetrics,
		rec.PredictedTimeMs, rec.PredictionConfidence, rec.ModelVersion,
	)
	if err != nil {
		return 0, err
	}
	analysisID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec("DELETE FROM suggestions WHERE query_id = ?", rec.QueryID); err != nil {
		return 0, err
	}
	for _, s := range suggestions {
		var improvement any
		if s.EstimatedImprovementMs != nil {
			improvement = *s.EstimatedImprovementMs
		}
		if _, err := tx.Exec(`
			INSERT INTO suggestions
			(query_id, analysis_id, suggestion_type, message, confidence,
			 source, estimated_improvement_ms, implementation_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.QueryID, analysisID, s.Type.String(), s.Message, s.Confidence,
			s.Source.String(), improvement, s.ImplementationCost.String(),
		); err != nil {
			return 0, err
		}
	}

	return analysisID, tx.Commit()
}

// LatestAnalysis returns the most recent analysis for a query, or nil when
// the query has never been analyzed.
func (db *DB) LatestAnalysis(queryID string) (*AnalysisRecord, error) {
	row := db.conn.QueryRow(`
		SELECT id, query_id, analyzed_at, features, plan_metrics,
		       predicted_time_ms, prediction_confidence, model_version
		FROM analyses WHERE query_id = ?
		ORDER BY id DESC LIMIT 1`, queryID)

	var rec AnalysisRecord
	var analyzedAt, features string
	var planMetrics sql.NullString
	err := row.Scan(
		&rec.ID, &rec.QueryID, &analyzedAt, &features, &planMetrics,
		&rec.PredictedTimeMs, &rec.PredictionConfidence, &rec.ModelVersion,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.AnalyzedAt, _ = time.Parse(time.RFC3339, analyzedAt)
	if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
		return nil, fmt.Errorf("decoding features: %w", err)
	}
	if planMetrics.Valid {
		if err := json.Unmarshal([]byte(planMetrics.String), &rec.PlanMetrics); err != nil {
			return nil, fmt.Errorf("decoding plan metrics: %w", err)
		}
	}
	return &rec, nil
}

// SuggestionsForQuery returns the stored suggestions for a query, ranked the
// way the synthesizer emitted them.
func (db *DB) SuggestionsForQuery(queryID string) ([]suggest.Suggestion, error) {
	rows, err := db.conn.Query(`
		SELECT query_id, suggestion_type, message, confidence,
		       source, estimated_improvement_ms, implementation_cost
		FROM suggestions WHERE query_id = ?
		ORDER BY id`, queryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var suggestions []suggest.Suggestion
	for rows.Next() {
		var s suggest.Suggestion
		var typ, source, cost string
		var improvement sql.NullFloat64
		if err := rows.Scan(
			&s.QueryID, &typ, &s.Message, &s.Confidence,
			&source, &improvement, &cost,
		); err != nil {
			return nil, err
		}
		if err := s.Type.UnmarshalText([]byte(typ)); err != nil {
			return nil, err
		}
		if err := s.Source.UnmarshalText([]byte(source)); err != nil {
			return nil, err
		}
		if err := s.ImplementationCost.UnmarshalText([]byte(cost)); err != nil {
			return nil, err
		}
		if improvement.Valid {
			v := improvement.Float64
			s.EstimatedImprovementMs = &v
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

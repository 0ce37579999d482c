package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/simplyadil/QueryIQ/internal/feature"
	"github.com/simplyadil/QueryIQ/internal/plan"
)

// HashQueryText derives the stable hash stored in the query_hash column,
// used to spot the same statement arriving under different query IDs.
func HashQueryText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// QueryRecord is one collected statement, keyed by the collector's query ID.
type QueryRecord struct {
	ID              string    `json:"query_id"`
	Text            string    `json:"query_text"`
	Hash            string    `json:"query_hash"`
	DBUser          string    `json:"db_user,omitempty"`
	Database        string    `json:"database_name,omitempty"`
	TotalExecTimeMs float64   `json:"total_exec_time_ms"`
	MeanExecTimeMs  float64   `json:"mean_exec_time_ms"`
	Calls           int64     `json:"calls"`
	CollectedAt     time.Time `json:"collected_at"`
}

// Stats views the record as the historical input the analysis consumes.
func (q *QueryRecord) Stats() *feature.Stats {
	return &feature.Stats{MeanExecTimeMs: q.MeanExecTimeMs, Calls: q.Calls}
}

// AnalysisRecord is one stored analysis outcome. Features and plan metrics
// are persisted as JSON documents.
type AnalysisRecord struct {
	ID                   int64          `json:"id"`
	QueryID              string         `json:"query_id"`
	AnalyzedAt           time.Time      `json:"analyzed_at"`
	Features             feature.Vector `json:"features"`
	PlanMetrics          *plan.Metrics  `json:"plan_metrics,omitempty"`
	PredictedTimeMs      float64        `json:"predicted_time_ms"`
	PredictionConfidence float64        `json:"prediction_confidence"`
	ModelVersion         string         `json:"model_version"`
}

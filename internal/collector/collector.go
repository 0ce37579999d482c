package collector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"

	"github.com/simplyadil/QueryIQ/internal/engine"
	"github.com/simplyadil/QueryIQ/internal/store"
)

// Config tunes the pg_stat_statements polling loop.
type Config struct {
	// Interval between collection runs.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// Limit caps how many statements one run pulls, ordered by mean time.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`
	// MinMeanTimeMs filters out statements faster than this on average.
	MinMeanTimeMs float64 `json:"min_mean_time_ms" yaml:"min_mean_time_ms" mapstructure:"min_mean_time_ms"`
	// CacheSize bounds the seen-statement cache that suppresses re-analysis
	// of statements whose call counts have not moved.
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

func DefaultConfig() Config {
	return Config{
		Interval:  60 * time.Second,
		Limit:     100,
		CacheSize: 1024,
	}
}

// statRow is one pg_stat_statements entry as this collector reads it.
type statRow struct {
	queryID         string
	query           string
	calls           int64
	meanExecTimeMs  float64
	totalExecTimeMs float64
	user            string
	database        string
}

// Collector polls pg_stat_statements, persists the statements it sees and
// runs each changed statement through the analysis engine.
type Collector struct {
	db        *sql.DB
	dbVersion semver.Version
	engine    *engine.Engine
	store     *store.DB
	cfg       Config
	logger    log.Logger
	metrics   *Metrics

	seen    *lru.Cache[string, int64]
	running *atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New builds a collector over an open connection. metrics may be nil.
func New(db *sql.DB, dbVersion semver.Version, eng *engine.Engine, st *store.DB, cfg Config, logger log.Logger, metrics *Metrics) (*Collector, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	seen, err := lru.New[string, int64](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}
	return &Collector{
		db:        db,
		dbVersion: dbVersion,
		engine:    eng,
		store:     st,
		cfg:       cfg,
		logger:    log.With(logger, "component", "collector"),
		metrics:   metrics,
		seen:      seen,
		running:   atomic.NewBool(false),
	}, nil
}

// Start launches the polling loop. The first run happens immediately; the
// loop exits when ctx is canceled or Stop is called.
func (c *Collector) Start(ctx context.Context) {
	c.running.Store(true)
	ctx, cancel := context.WithCancel(ctx)
	c.ctx = ctx
	c.cancel = cancel

	go func() {
		defer c.running.Store(false)

		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		for {
			if err := c.collectOnce(c.ctx); err != nil {
				level.Error(c.logger).Log("msg", "collection run failed", "err", err)
				if c.metrics != nil {
					c.metrics.RunErrors.Inc()
				}
			}

			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (c *Collector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Collector) Stopped() bool {
	return !c.running.Load()
}

// statStatementsQuery builds the poll statement for the server version at
// hand: the timing columns were renamed in PostgreSQL 13.
func statStatementsQuery(dbVersion semver.Version) string {
	meanCol, totalCol := "mean_exec_time", "total_exec_time"
	if semver.MustParseRange("<13.0.0")(dbVersion) {
		meanCol, totalCol = "mean_time", "total_time"
	}
	return fmt.Sprintf(`
		SELECT s.queryid::text,
		       s.query,
		       s.calls,
		       s.%[1]s,
		       s.%[2]s,
		       COALESCE(r.rolname, ''),
		       COALESCE(d.datname, '')
		FROM pg_stat_statements s
		LEFT JOIN pg_roles r ON r.oid = s.userid
		LEFT JOIN pg_database d ON d.oid = s.dbid
		WHERE s.query NOT ILIKE '%%pg_stat_statements%%'
		  AND s.calls > 0
		  AND s.%[1]s >= $1
		ORDER BY s.%[1]s DESC
		LIMIT $2`, meanCol, totalCol)
}

func (c *Collector) collectOnce(ctx context.Context) error {
	if c.metrics != nil {
		c.metrics.Runs.Inc()
	}

	rows, err := c.db.QueryContext(ctx, statStatementsQuery(c.dbVersion), c.cfg.MinMeanTimeMs, c.cfg.Limit)
	if err != nil {
		return fmt.Errorf("query pg_stat_statements: %w", err)
	}
	defer rows.Close()

	var collected, analyzed int
	for rows.Next() {
		var row statRow
		if err := rows.Scan(
			&row.queryID, &row.query, &row.calls,
			&row.meanExecTimeMs, &row.totalExecTimeMs,
			&row.user, &row.database,
		); err != nil {
			return fmt.Errorf("scan pg_stat_statements row: %w", err)
		}
		collected++

		ran, err := c.handleStat(ctx, row)
		if err != nil {
			level.Warn(c.logger).Log("msg", "statement skipped", "query_id", row.queryID, "err", err)
			continue
		}
		if ran {
			analyzed++
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read pg_stat_statements: %w", err)
	}

	level.Debug(c.logger).Log("msg", "collection run finished", "collected", collected, "analyzed", analyzed)
	return nil
}

// handleStat persists one statement and analyzes it, unless its call count
// has not moved since the last time it was seen.
func (c *Collector) handleStat(ctx context.Context, row statRow) (bool, error) {
	if isUtilityStatement(row.query) {
		return false, nil
	}
	if prev, ok := c.seen.Get(row.queryID); ok && prev == row.calls {
		return false, nil
	}

	rec := &store.QueryRecord{
		ID:              row.queryID,
		Text:            row.query,
		Hash:            store.HashQueryText(row.query),
		DBUser:          row.user,
		Database:        row.database,
		TotalExecTimeMs: row.totalExecTimeMs,
		MeanExecTimeMs:  row.meanExecTimeMs,
		Calls:           row.calls,
		CollectedAt:     time.Now().UTC(),
	}
	if err := c.store.UpsertQuery(rec); err != nil {
		return false, fmt.Errorf("persist statement: %w", err)
	}

	analysis, err := c.engine.Analyze(row.queryID, row.query, c.explainPlan(ctx, row.query), rec.Stats())
	if err != nil {
		return false, fmt.Errorf("analyze statement: %w", err)
	}
	if _, err := c.store.SaveAnalysis(&store.AnalysisRecord{
		QueryID:              analysis.QueryID,
		AnalyzedAt:           rec.CollectedAt,
		Features:             analysis.Vector,
		PlanMetrics:          analysis.PlanMetrics,
		PredictedTimeMs:      analysis.Prediction.PredictedTimeMs,
		PredictionConfidence: analysis.Prediction.Confidence,
		ModelVersion:         analysis.Prediction.ModelVersion,
	}, analysis.Suggestions); err != nil {
		return false, fmt.Errorf("persist analysis: %w", err)
	}

	c.seen.Add(row.queryID, row.calls)
	if c.metrics != nil {
		c.metrics.StatementsAnalyzed.Inc()
	}
	return true, nil
}

// explainPlan fetches EXPLAIN (FORMAT JSON) for statements that are safe to
// plan as-is. Failure just means the analysis runs on query text alone, so
// it is logged at debug and swallowed.
func (c *Collector) explainPlan(ctx context.Context, query string) []byte {
	if c.db == nil || !canExplain(query) {
		return nil
	}
	var doc string
	if err := c.db.QueryRowContext(ctx, "EXPLAIN (FORMAT JSON) "+query).Scan(&doc); err != nil {
		level.Debug(c.logger).Log("msg", "explain skipped", "err", err)
		return nil
	}
	return []byte(doc)
}

// canExplain reports whether a tracked statement can be handed to EXPLAIN:
// a single SELECT with no parameter placeholders. pg_stat_statements
// normalizes constants into $n, so most tracked statements fail this and
// analyze on text alone.
func canExplain(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}
	head := strings.ToUpper(strings.Fields(trimmed)[0])
	if head != "SELECT" && head != "WITH" {
		return false
	}
	if strings.Contains(trimmed, "$") {
		return false
	}
	if strings.Contains(strings.TrimRight(trimmed, "; \t\n"), ";") {
		return false
	}
	return true
}

// utilityPrefixes are statement heads pg_stat_statements may track that carry
// nothing this analysis can work with.
var utilityPrefixes = map[string]bool{
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true, "SET": true, "SHOW": true,
	"EXPLAIN": true, "VACUUM": true, "ANALYZE": true, "CREATE": true,
	"ALTER": true, "DROP": true, "GRANT": true, "REVOKE": true,
	"DEALLOCATE": true, "PREPARE": true, "FETCH": true, "CHECKPOINT": true,
	"LISTEN": true, "NOTIFY": true, "RESET": true, "COPY": true,
}

func isUtilityStatement(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return true
	}
	return utilityPrefixes[strings.ToUpper(fields[0])]
}

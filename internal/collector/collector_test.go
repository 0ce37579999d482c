package collector

import (
	"context"
	"strings"
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplyadil/QueryIQ/internal/engine"
	"github.com/simplyadil/QueryIQ/internal/store"
	"github.com/simplyadil/QueryIQ/internal/suggest"
)

func TestParseServerVersion(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"16.4 (Debian 16.4-1.pgdg120+1)", "16.4.0", false},
		{"12.9", "12.9.0", false},
		{"18beta1", "18.0.0", false},
		{"13.2.1", "13.2.1", false},
		{"mystery", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseServerVersion(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestStatStatementsQueryVersionGating(t *testing.T) {
	modern := statStatementsQuery(semver.MustParse("16.0.0"))
	assert.Contains(t, modern, "s.mean_exec_time")
	assert.Contains(t, modern, "s.total_exec_time")

	boundary := statStatementsQuery(semver.MustParse("13.0.0"))
	assert.Contains(t, boundary, "s.mean_exec_time")

	legacy := statStatementsQuery(semver.MustParse("12.9.0"))
	assert.Contains(t, legacy, "s.mean_time")
	assert.Contains(t, legacy, "s.total_time")
	assert.NotContains(t, legacy, "s.mean_exec_time")
}

func TestIsUtilityStatement(t *testing.T) {
	utility := []string{
		"BEGIN", "commit", "SET search_path TO app",
		"EXPLAIN SELECT 1", "VACUUM ANALYZE users", "  ",
		"CREATE INDEX idx_users_age ON users(age)",
	}
	for _, q := range utility {
		assert.True(t, isUtilityStatement(q), "query %q", q)
	}

	analyzable := []string{
		"SELECT * FROM users",
		"select id from t where id = $1",
		"INSERT INTO users (name) VALUES ($1)",
		"UPDATE users SET name = $1 WHERE id = $2",
		"DELETE FROM users WHERE id = $1",
		"WITH recent AS (SELECT 1) SELECT * FROM recent",
	}
	for _, q := range analyzable {
		assert.False(t, isUtilityStatement(q), "query %q", q)
	}
}

func testCollector(t *testing.T) (*Collector, *store.DB) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	eng := engine.New(engine.DefaultConfig(), nil, nil, nil)
	c, err := New(nil, semver.MustParse("16.0.0"), eng, db, DefaultConfig(), nil, nil)
	require.NoError(t, err)
	return c, db
}

func TestHandleStatPersistsAndAnalyzes(t *testing.T) {
	c, db := testCollector(t)

	row := statRow{
		queryID:         "1234",
		query:           "SELECT * FROM users",
		calls:           50,
		meanExecTimeMs:  2500,
		totalExecTimeMs: 125000,
		user:            "app",
		database:        "shop",
	}

	ran, err := c.handleStat(context.Background(), row)
	require.NoError(t, err)
	assert.True(t, ran)

	rec, err := db.GetQuery("1234")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, row.query, rec.Text)
	assert.Equal(t, int64(50), rec.Calls)

	sugs, err := db.SuggestionsForQuery("1234")
	require.NoError(t, err)
	require.NotEmpty(t, sugs)

	types := make([]string, 0, len(sugs))
	for _, s := range sugs {
		types = append(types, s.Type.String())
	}
	assert.Contains(t, types, suggest.NarrowProjection.String())
	assert.Contains(t, types, suggest.SlowExecution.String(), "2500ms mean is past the slow threshold")
}

func TestHandleStatSuppressesUnchangedCalls(t *testing.T) {
	c, _ := testCollector(t)
	row := statRow{queryID: "7", query: "SELECT * FROM users", calls: 10, meanExecTimeMs: 5}

	ran, err := c.handleStat(context.Background(), row)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = c.handleStat(context.Background(), row)
	require.NoError(t, err)
	assert.False(t, ran, "unchanged call count should not re-analyze")

	row.calls = 11
	ran, err = c.handleStat(context.Background(), row)
	require.NoError(t, err)
	assert.True(t, ran, "moved call count should re-analyze")
}

func TestHandleStatSkipsUtilityStatements(t *testing.T) {
	c, db := testCollector(t)

	ran, err := c.handleStat(context.Background(), statRow{queryID: "9", query: "BEGIN", calls: 3})
	require.NoError(t, err)
	assert.False(t, ran)

	rec, err := db.GetQuery("9")
	require.NoError(t, err)
	assert.Nil(t, rec, "utility statements should not be persisted")
}

func TestCanExplain(t *testing.T) {
	explainable := []string{
		"SELECT * FROM users",
		"  select id, name from users where age > 25  ",
		"WITH recent AS (SELECT 1) SELECT * FROM recent",
		"SELECT count(*) FROM orders;",
	}
	for _, q := range explainable {
		assert.True(t, canExplain(q), "query %q", q)
	}

	notExplainable := []string{
		"",
		"SELECT * FROM users WHERE id = $1",
		"INSERT INTO users (name) VALUES ('x')",
		"UPDATE users SET name = 'x'",
		"SELECT 1; SELECT 2",
	}
	for _, q := range notExplainable {
		assert.False(t, canExplain(q), "query %q", q)
	}
}

func TestStatStatementsQueryShape(t *testing.T) {
	q := statStatementsQuery(semver.MustParse("16.0.0"))
	assert.True(t, strings.Contains(q, "pg_stat_statements s"))
	assert.True(t, strings.Contains(q, "NOT ILIKE '%pg_stat_statements%'"))
	assert.True(t, strings.Contains(q, "LIMIT $2"))
}

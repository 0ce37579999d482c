package collector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// versSanitizeRegex strips distro suffixes like "16.4 (Debian 16.4-1)" and
// prerelease tags like "18beta1" down to the numeric core.
var versSanitizeRegex = regexp.MustCompile(`[0-9]+(\.[0-9]+)*`)

// Connect opens a pooled connection to the monitored database and resolves
// its server version, which gates the pg_stat_statements column names.
func Connect(ctx context.Context, connString string) (*sql.DB, semver.Version, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, semver.Version{}, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, semver.Version{}, fmt.Errorf("ping database: %w", err)
	}

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT current_setting('server_version')").Scan(&raw); err != nil {
		_ = db.Close()
		return nil, semver.Version{}, fmt.Errorf("read server version: %w", err)
	}
	version, err := parseServerVersion(raw)
	if err != nil {
		_ = db.Close()
		return nil, semver.Version{}, err
	}
	return db, version, nil
}

func parseServerVersion(raw string) (semver.Version, error) {
	found := versSanitizeRegex.FindString(raw)
	version, err := semver.ParseTolerant(found)
	if err != nil {
		return semver.Version{}, fmt.Errorf("parse server version %q: %w", raw, err)
	}
	return version, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// column types differing between dialects
type ddlTypes struct {
	id, date, timestamp, float string
}

var dialectTypes = map[string]ddlTypes{
	dialect.Postgres: {id: "UUID", date: "DATE", timestamp: "TIMESTAMPTZ", float: "DOUBLE PRECISION"},
	dialect.SQLite:   {id: "TEXT", date: "DATE", timestamp: "DATETIME", float: "REAL"},
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS challenges (
	id {{id}} PRIMARY KEY,
	slack_channel_id TEXT NOT NULL,
	activity_type TEXT NOT NULL,
	start_date {{date}} NOT NULL,
	end_date {{date}} NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at {{timestamp}} NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS challenges_one_active_per_channel ON challenges (slack_channel_id) WHERE is_active;
CREATE TABLE IF NOT EXISTS results (
	id {{id}} PRIMARY KEY,
	challenge_id {{id}} NOT NULL REFERENCES challenges (id),
	user_id TEXT NOT NULL,
	date {{date}} NOT NULL,
	value {{float}} NOT NULL CHECK (value > 0),
	unit TEXT NOT NULL,
	screenshot_url TEXT,
	is_validated BOOLEAN NOT NULL,
	validation_error TEXT,
	validated_by TEXT,
	validated_at {{timestamp}},
	created_at {{timestamp}} NOT NULL
);
CREATE INDEX IF NOT EXISTS results_challenge_user ON results (challenge_id, user_id);
`

// Migrate creates the challenges and results tables if missing.
func (d *DB) Migrate(ctx context.Context) error {
	t, ok := dialectTypes[d.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", d.dialect)
	}
	ddl := strings.NewReplacer(
		"{{id}}", t.id,
		"{{date}}", t.date,
		"{{timestamp}}", t.timestamp,
		"{{float}}", t.float,
	).Replace(schemaDDL)

	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			d.logger.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Info("database schema up to date", "dialect", d.dialect)
	return nil
}

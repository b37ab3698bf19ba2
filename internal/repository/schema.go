package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/landlorddocs/smartreview/internal/common"
)

// Timestamps are stored as RFC 3339 text so the same schema works on both
// sqlite and postgres without driver-specific time handling.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS evidence_files (
	id                TEXT PRIMARY KEY,
	case_id           TEXT NOT NULL,
	source_path       TEXT NOT NULL,
	filename          TEXT NOT NULL,
	file_ext          TEXT NOT NULL,
	file_size         INTEGER NOT NULL,
	content_hash      TEXT NOT NULL,
	mime_class        TEXT NOT NULL,
	declared_category TEXT NOT NULL,
	page_count        INTEGER NOT NULL DEFAULT 0,
	uploaded_at       TEXT NOT NULL,
	UNIQUE (case_id, content_hash)
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	case_id        TEXT NOT NULL,
	total_pages    INTEGER NOT NULL,
	duration_ms    INTEGER NOT NULL,
	limit_exceeded INTEGER NOT NULL,
	from_cache     INTEGER NOT NULL DEFAULT 0,
	started_at     TEXT NOT NULL,
	finished_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_files (
	run_id      TEXT NOT NULL,
	file_id     TEXT NOT NULL,
	file_hash   TEXT NOT NULL,
	status      TEXT NOT NULL,
	skip_reason TEXT NOT NULL DEFAULT '',
	pages       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS case_facts (
	case_id     TEXT NOT NULL,
	field_name  TEXT NOT NULL,
	value       TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	source      TEXT NOT NULL,
	file_hash   TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	promoted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS warnings (
	case_id          TEXT NOT NULL,
	run_id           TEXT NOT NULL,
	file_hash        TEXT NOT NULL DEFAULT '',
	code             TEXT NOT NULL,
	severity         TEXT NOT NULL,
	category         TEXT NOT NULL,
	message          TEXT NOT NULL,
	related_field    TEXT NOT NULL DEFAULT '',
	related_category TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_evidence_files_case ON evidence_files (case_id);
CREATE INDEX IF NOT EXISTS idx_runs_case ON runs (case_id, id);
CREATE INDEX IF NOT EXISTS idx_case_facts_case ON case_facts (case_id, field_name, run_id);
CREATE INDEX IF NOT EXISTS idx_warnings_case ON warnings (case_id, file_hash, run_id);
`

// Migrate applies the schema. Statements are idempotent and executed one at
// a time because pgx's extended protocol rejects multi-statement strings.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(schemaDDL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return common.NewAppError("DB_ERROR", "apply schema", err)
		}
	}
	return nil
}

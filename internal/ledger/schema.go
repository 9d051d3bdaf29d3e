// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"fmt"
	"time"
)

// Schema statements are additive only: once shipped, a column is never
// dropped or renamed here. A later column addition uses ALTER TABLE ADD
// COLUMN IF NOT EXISTS in its own migration, never a rewrite of the
// statements below.
const (
	createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	profile_id    TEXT NOT NULL,
	schedule_name TEXT NOT NULL,
	date          TEXT NOT NULL,
	status        TEXT NOT NULL,
	was_active    BOOLEAN NOT NULL DEFAULT FALSE,

	start_time    TIMESTAMP,
	end_time      TIMESTAMP,

	image_count   INTEGER NOT NULL DEFAULT 0,
	lux_min       DOUBLE,
	lux_max       DOUBLE,
	lux_avg       DOUBLE,
	iso_min       INTEGER,
	iso_max       INTEGER,
	wb_min        INTEGER,
	wb_max        INTEGER,

	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	createCapturesTable = `
CREATE TABLE IF NOT EXISTS captures (
	id                 TEXT PRIMARY KEY,
	session_id         TEXT NOT NULL,
	timestamp          TIMESTAMP NOT NULL,
	filename           TEXT NOT NULL,

	settings_json      TEXT NOT NULL,

	is_bracket         BOOLEAN NOT NULL DEFAULT FALSE,
	bracket_index      INTEGER NOT NULL DEFAULT 0,
	bracket_ev_offset  DOUBLE NOT NULL DEFAULT 0,

	is_hdr_result      BOOLEAN NOT NULL DEFAULT FALSE,
	source_bracket_ids TEXT, -- JSON array, populated on the fused result row
	hdr_result_id      TEXT  -- populated on every source bracket once fused
);
`

	createTimelapsesTable = `
CREATE TABLE IF NOT EXISTS timelapses (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	filename      TEXT NOT NULL,
	absolute_path TEXT NOT NULL,
	size_mb       DOUBLE NOT NULL,
	frame_count   INTEGER NOT NULL,
	fps           INTEGER NOT NULL,
	quality_label TEXT NOT NULL,
	quality_tier  TEXT NOT NULL,

	profile_id    TEXT NOT NULL,
	schedule_name TEXT NOT NULL,
	date          TEXT NOT NULL,

	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	createSessionsIndexes = `
CREATE INDEX IF NOT EXISTS idx_sessions_lookup ON sessions (profile_id, date, schedule_name);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions (status);
`

	createCapturesIndexes = `
CREATE INDEX IF NOT EXISTS idx_captures_session ON captures (session_id);
CREATE INDEX IF NOT EXISTS idx_captures_hdr_result ON captures (hdr_result_id);
`

	createTimelapsesIndexes = `
CREATE INDEX IF NOT EXISTS idx_timelapses_session ON timelapses (session_id);
CREATE INDEX IF NOT EXISTS idx_timelapses_lookup ON timelapses (profile_id, schedule_name, date, quality_tier);
`
)

// applySchema creates every table and index the ledger needs. Every
// statement is idempotent, so this runs unconditionally on every startup.
func (l *Ledger) applySchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		createSessionsTable,
		createCapturesTable,
		createTimelapsesTable,
		createSessionsIndexes,
		createCapturesIndexes,
		createTimelapsesIndexes,
	}
	for _, stmt := range statements {
		if _, err := l.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ledger: schema statement failed: %w", err)
		}
	}
	return nil
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// SessionID is deterministic so GetOrCreateSession is idempotent across
// retries and process restarts: the same (profile, date, schedule) triple
// always maps to the same row.
func SessionID(profileID, date, scheduleName string) string {
	return fmt.Sprintf("%s_%s_%s", profileID, date, scheduleName)
}

// GetOrCreateSession returns the session row for (profileID, date,
// scheduleName), inserting a new active session if none exists yet. Safe
// to call on every capture in a burst.
func (l *Ledger) GetOrCreateSession(ctx context.Context, profileID, scheduleName, date string, start time.Time) (*models.Session, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	id := SessionID(profileID, date, scheduleName)

	if s, err := l.getSession(ctx, id); err == nil {
		return s, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetOrCreateSession", err, "session_id", id)
	}

	_, err := l.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, profile_id, schedule_name, date, status, was_active, start_time)
		VALUES (?, ?, ?, ?, ?, TRUE, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, profileID, scheduleName, date, models.SessionActive, start)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetOrCreateSession", err, "session_id", id)
	}

	s, err := l.getSession(ctx, id)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetOrCreateSession", err, "session_id", id)
	}
	return s, nil
}

func (l *Ledger) getSession(ctx context.Context, id string) (*models.Session, error) {
	row := l.conn.QueryRowContext(ctx, `
		SELECT id, profile_id, schedule_name, date, status, was_active,
		       start_time, end_time, image_count,
		       lux_min, lux_max, lux_avg, iso_min, iso_max, wb_min, wb_max,
		       created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var s models.Session
	var endTime sql.NullTime
	if err := row.Scan(
		&s.ID, &s.ProfileID, &s.ScheduleName, &s.Date, &s.Status, &s.WasActive,
		&s.StartTime, &endTime, &s.ImageCount,
		&s.LuxMin, &s.LuxMax, &s.LuxAvg, &s.ISOMin, &s.ISOMax, &s.WBMin, &s.WBMax,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if endTime.Valid {
		s.EndTime = endTime.Time
	}
	return &s, nil
}

// GetWasActive returns the persisted was_active flag for a session, or
// false if the session does not exist yet — the scheduler treats a
// not-yet-created session as inactive on its first tick.
func (l *Ledger) GetWasActive(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var wasActive bool
	err := l.conn.QueryRowContext(ctx, `SELECT was_active FROM sessions WHERE id = ?`, sessionID).Scan(&wasActive)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, skyerr.New(skyerr.KindLedgerTx, "ledger.GetWasActive", err, "session_id", sessionID)
	}
	return wasActive, nil
}

// UpdateWasActive persists the scheduler's last-observed window state for
// a session. A no-op, not an error, if the session row does not exist —
// the scheduler calls this before any capture has necessarily happened.
func (l *Ledger) UpdateWasActive(ctx context.Context, sessionID string, wasActive bool) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err := l.conn.ExecContext(ctx,
		`UPDATE sessions SET was_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		wasActive, sessionID)
	if err != nil {
		return skyerr.New(skyerr.KindLedgerTx, "ledger.UpdateWasActive", err, "session_id", sessionID)
	}
	return nil
}

// MarkSessionComplete transitions a session to complete and records its
// end time, once the scheduler observes its window has closed.
func (l *Ledger) MarkSessionComplete(ctx context.Context, sessionID string, end time.Time) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err := l.conn.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, end_time = ?, was_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.SessionComplete, end, sessionID)
	if err != nil {
		return skyerr.New(skyerr.KindLedgerTx, "ledger.MarkSessionComplete", err, "session_id", sessionID)
	}
	return nil
}

// MarkTimelapseGenerated transitions a session past complete once its
// timelapse render has finished, so a restarted worker never re-enqueues
// work for a session it already rendered.
func (l *Ledger) MarkTimelapseGenerated(ctx context.Context, sessionID string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err := l.conn.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.SessionTimelapseGenerated, sessionID)
	if err != nil {
		return skyerr.New(skyerr.KindLedgerTx, "ledger.MarkTimelapseGenerated", err, "session_id", sessionID)
	}
	return nil
}

// HasTimelapse reports whether a timelapse of the given tier already
// exists for sessionID, the application-level idempotency check the
// worker runs before rendering so a redelivered job is a safe no-op.
func (l *Ledger) HasTimelapse(ctx context.Context, sessionID string, tier models.QualityTier) (bool, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var count int
	err := l.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM timelapses WHERE session_id = ? AND quality_tier = ?`,
		sessionID, tier).Scan(&count)
	if err != nil {
		return false, skyerr.New(skyerr.KindLedgerTx, "ledger.HasTimelapse", err, "session_id", sessionID)
	}
	return count > 0, nil
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// RecordCapture appends one capture row and folds its settings into the
// owning session's running light-metering aggregates (min/max/mean lux,
// ISO, and white-balance temperature) inside a single transaction, so a
// crash mid-write can never leave the aggregates out of sync with the
// capture rows they summarize.
func (l *Ledger) RecordCapture(ctx context.Context, sessionID string, c models.Capture) (*models.Capture, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	c.SessionID = sessionID

	settingsJSON, err := goccyjson.Marshal(c.Settings)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordCapture", err, "session_id", sessionID)
	}

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordCapture", err, "session_id", sessionID)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO captures (id, session_id, timestamp, filename, settings_json,
		                       is_bracket, bracket_index, bracket_ev_offset, is_hdr_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SessionID, c.Timestamp, c.Filename, string(settingsJSON),
		c.IsBracket, c.BracketIndex, c.BracketEVOffset, c.IsHDRResult)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordCapture", err, "session_id", sessionID)
	}

	if err := updateSessionAggregates(ctx, tx, sessionID, c.Settings); err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordCapture", err, "session_id", sessionID)
	}

	if err := tx.Commit(); err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordCapture", err, "session_id", sessionID)
	}
	return &c, nil
}

// updateSessionAggregates folds one capture's settings into the session's
// running min/max/mean fields using a Welford-style incremental mean
// update, so the lux average never needs a full table scan to recompute.
func updateSessionAggregates(ctx context.Context, tx *sql.Tx, sessionID string, s models.CaptureSettings) error {
	var imageCount int
	var luxAvg sql.NullFloat64
	var luxMin, luxMax sql.NullFloat64
	var isoMin, isoMax sql.NullInt64
	var wbMin, wbMax sql.NullInt64

	err := tx.QueryRowContext(ctx, `
		SELECT image_count, lux_avg, lux_min, lux_max, iso_min, iso_max, wb_min, wb_max
		FROM sessions WHERE id = ?
	`, sessionID).Scan(&imageCount, &luxAvg, &luxMin, &luxMax, &isoMin, &isoMax, &wbMin, &wbMax)
	if err != nil {
		return fmt.Errorf("load session aggregates: %w", err)
	}

	n := imageCount + 1
	newAvg := s.Lux
	if luxAvg.Valid {
		newAvg = luxAvg.Float64 + (s.Lux-luxAvg.Float64)/float64(n)
	}

	newLuxMin := s.Lux
	if luxMin.Valid && luxMin.Float64 < s.Lux {
		newLuxMin = luxMin.Float64
	}
	newLuxMax := s.Lux
	if luxMax.Valid && luxMax.Float64 > s.Lux {
		newLuxMax = luxMax.Float64
	}

	newISOMin := s.ISO
	if isoMin.Valid && int(isoMin.Int64) < s.ISO {
		newISOMin = int(isoMin.Int64)
	}
	newISOMax := s.ISO
	if isoMax.Valid && int(isoMax.Int64) > s.ISO {
		newISOMax = int(isoMax.Int64)
	}

	newWBMin := s.WBTempKelvin
	if wbMin.Valid && int(wbMin.Int64) < s.WBTempKelvin {
		newWBMin = int(wbMin.Int64)
	}
	newWBMax := s.WBTempKelvin
	if wbMax.Valid && int(wbMax.Int64) > s.WBTempKelvin {
		newWBMax = int(wbMax.Int64)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET image_count = ?, lux_avg = ?, lux_min = ?, lux_max = ?,
		    iso_min = ?, iso_max = ?, wb_min = ?, wb_max = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, n, newAvg, newLuxMin, newLuxMax, newISOMin, newISOMax, newWBMin, newWBMax, sessionID)
	if err != nil {
		return fmt.Errorf("update session aggregates: %w", err)
	}
	return nil
}

// RecordFusionResult appends the fused HDR frame produced from
// sourceCaptureIDs and links every source bracket row to it, inside a
// single transaction.
func (l *Ledger) RecordFusionResult(ctx context.Context, sessionID string, sourceCaptureIDs []string, result models.Capture) (*models.Capture, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	result.SessionID = sessionID
	result.IsHDRResult = true
	result.SourceBracketIDs = sourceCaptureIDs

	settingsJSON, err := goccyjson.Marshal(result.Settings)
	if err != nil {
		return nil, skyerr.New(skyerr.KindFusionFailed, "ledger.RecordFusionResult", err, "session_id", sessionID)
	}
	sourceJSON, err := goccyjson.Marshal(sourceCaptureIDs)
	if err != nil {
		return nil, skyerr.New(skyerr.KindFusionFailed, "ledger.RecordFusionResult", err, "session_id", sessionID)
	}

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordFusionResult", err, "session_id", sessionID)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO captures (id, session_id, timestamp, filename, settings_json,
		                       is_hdr_result, source_bracket_ids)
		VALUES (?, ?, ?, ?, ?, TRUE, ?)
	`, result.ID, result.SessionID, result.Timestamp, result.Filename, string(settingsJSON), string(sourceJSON))
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordFusionResult", err, "session_id", sessionID)
	}

	for _, sourceID := range sourceCaptureIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE captures SET hdr_result_id = ? WHERE id = ?`, result.ID, sourceID); err != nil {
			return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordFusionResult", err, "session_id", sessionID, "source_capture_id", sourceID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordFusionResult", err, "session_id", sessionID)
	}
	return &result, nil
}

// GetCaptures returns every capture recorded for a session, ordered by
// timestamp — the frame list the timelapse worker assembles into a
// concat-demuxer input.
func (l *Ledger) GetCaptures(ctx context.Context, sessionID string) ([]models.Capture, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := l.conn.QueryContext(ctx, `
		SELECT id, session_id, timestamp, filename, settings_json,
		       is_bracket, bracket_index, bracket_ev_offset,
		       is_hdr_result, source_bracket_ids, hdr_result_id
		FROM captures WHERE session_id = ? ORDER BY timestamp ASC
	`, sessionID)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetCaptures", err, "session_id", sessionID)
	}
	defer rows.Close()

	var out []models.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetCaptures", err, "session_id", sessionID)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCapture(rows *sql.Rows) (models.Capture, error) {
	var c models.Capture
	var settingsJSON string
	var sourceBracketIDs, hdrResultID sql.NullString

	if err := rows.Scan(
		&c.ID, &c.SessionID, &c.Timestamp, &c.Filename, &settingsJSON,
		&c.IsBracket, &c.BracketIndex, &c.BracketEVOffset,
		&c.IsHDRResult, &sourceBracketIDs, &hdrResultID,
	); err != nil {
		return models.Capture{}, err
	}
	if err := goccyjson.Unmarshal([]byte(settingsJSON), &c.Settings); err != nil {
		return models.Capture{}, fmt.Errorf("unmarshal capture settings: %w", err)
	}
	if sourceBracketIDs.Valid && sourceBracketIDs.String != "" {
		if err := goccyjson.Unmarshal([]byte(sourceBracketIDs.String), &c.SourceBracketIDs); err != nil {
			return models.Capture{}, fmt.Errorf("unmarshal source bracket ids: %w", err)
		}
	}
	if hdrResultID.Valid {
		c.HDRResultID = hdrResultID.String
	}
	return c, nil
}

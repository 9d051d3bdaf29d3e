// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/skylapse/internal/ledger/query"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// RecordTimelapse appends one rendered-timelapse result row. Rows are
// append-only; rendering the same (session, quality tier) pair twice
// produces two rows, so callers must check HasTimelapse first if
// at-most-once semantics are required.
func (l *Ledger) RecordTimelapse(ctx context.Context, t models.Timelapse) (*models.Timelapse, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := l.conn.ExecContext(ctx, `
		INSERT INTO timelapses (id, session_id, filename, absolute_path, size_mb,
		                         frame_count, fps, quality_label, quality_tier,
		                         profile_id, schedule_name, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SessionID, t.Filename, t.AbsolutePath, t.SizeMB,
		t.FrameCount, t.FPS, t.QualityLabel, t.QualityTier,
		t.ProfileID, t.ScheduleName, t.Date)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.RecordTimelapse", err, "session_id", t.SessionID)
	}
	return &t, nil
}

// GetTimelapses lists timelapse rows matching filter, newest first.
func (l *Ledger) GetTimelapses(ctx context.Context, filter models.TimelapseFilter) ([]models.Timelapse, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder()
	if filter.ProfileID != "" {
		wb.AddProfiles([]string{filter.ProfileID})
	}
	if filter.ScheduleName != "" {
		wb.AddSchedules([]string{filter.ScheduleName})
	}
	if filter.QualityTier != "" {
		wb.AddQualityTiers([]string{string(filter.QualityTier)})
	}
	if filter.Date != "" {
		wb.AddClause("date = ?", filter.Date)
	}
	whereClause, args := wb.BuildWithPrefix()

	rows, err := l.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, session_id, filename, absolute_path, size_mb, frame_count, fps,
		       quality_label, quality_tier, profile_id, schedule_name, date, created_at
		FROM timelapses
		%s
		ORDER BY created_at DESC
	`, whereClause), args...)
	if err != nil {
		return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetTimelapses", err)
	}
	defer rows.Close()

	var out []models.Timelapse
	for rows.Next() {
		var t models.Timelapse
		if err := rows.Scan(
			&t.ID, &t.SessionID, &t.Filename, &t.AbsolutePath, &t.SizeMB, &t.FrameCount, &t.FPS,
			&t.QualityLabel, &t.QualityTier, &t.ProfileID, &t.ScheduleName, &t.Date, &t.CreatedAt,
		); err != nil {
			return nil, skyerr.New(skyerr.KindLedgerTx, "ledger.GetTimelapses", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

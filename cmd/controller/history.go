// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"

	"github.com/tomtom215/skylapse/internal/ledger"
	"github.com/tomtom215/skylapse/internal/models"
)

// ledgerHistory adapts the ledger's capture log to
// internal/exposure.SmoothingHistory, trimming to the trailing n
// captures the planner asks for.
type ledgerHistory struct {
	ledger *ledger.Ledger
}

func (h *ledgerHistory) RecentSettings(ctx context.Context, sessionID string, n int) ([]models.CaptureSettings, error) {
	captures, err := h.ledger.GetCaptures(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(captures) {
		n = len(captures)
	}
	recent := captures[len(captures)-n:]
	out := make([]models.CaptureSettings, len(recent))
	for i, c := range recent {
		out[i] = c.Settings
	}
	return out, nil
}

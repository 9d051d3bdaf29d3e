// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/skylapse/internal/fusion"
	"github.com/tomtom215/skylapse/internal/metrics"
	"github.com/tomtom215/skylapse/internal/models"
)

// runFusionStep fuses every not-yet-fused bracket set found in captures.
// A fusion failure on one group is logged and does not abort the job; the
// remaining groups (and the video) still assemble, falling back to that
// group's first frame. Returns captures with each recorded fused row
// appended and each fused member's HDRResultID pointing at it, for render
// to substitute in the final frame list.
func (w *Worker) runFusionStep(ctx context.Context, sessionID, profileDir string, captures []models.Capture, logger zerolog.Logger) []models.Capture {
	groups := fusion.GroupBracketSets(captures)
	if len(groups) == 0 {
		return captures
	}

	for _, group := range groups {
		leaderID := group.Captures[0].ID

		sourcePaths := make([]string, len(group.Captures))
		sourceIDs := make([]string, len(group.Captures))
		for i, c := range group.Captures {
			sourcePaths[i] = filepath.Join(profileDir, c.Filename)
			sourceIDs[i] = c.ID
		}

		outPath := hdrOutputPath(profileDir, group.Captures[0].Filename)
		if err := w.Fuser.Fuse(ctx, sourcePaths, outPath); err != nil {
			metrics.RecordFusion("failed")
			logger.Warn().Err(err).Str("leader_capture_id", leaderID).Msg("bracket fusion failed, falling back to first frame")
			continue
		}

		result := models.Capture{
			Filename: filepath.Base(outPath),
			Settings: group.Captures[0].Settings,
		}
		recorded, err := w.Ledger.RecordFusionResult(ctx, sessionID, sourceIDs, result)
		if err != nil {
			metrics.RecordFusion("failed")
			logger.Warn().Err(err).Str("leader_capture_id", leaderID).Msg("recording fusion result failed, falling back to first frame")
			continue
		}
		metrics.RecordFusion("success")

		for _, c := range group.Captures {
			captures[indexOf(captures, c.ID)].HDRResultID = recorded.ID
		}
		captures = append(captures, *recorded)

		for _, path := range sourcePaths {
			if err := os.Remove(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to remove fused bracket source file")
			}
		}
	}

	return captures
}

// hdrOutputPath derives "{base}_hdr.jpg" from a source frame's filename.
func hdrOutputPath(profileDir, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	return filepath.Join(profileDir, base+"_hdr"+ext)
}

func indexOf(captures []models.Capture, id string) int {
	for i, c := range captures {
		if c.ID == id {
			return i
		}
	}
	return -1
}

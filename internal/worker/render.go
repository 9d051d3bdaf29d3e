// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/skylapse/internal/encode"
	"github.com/tomtom215/skylapse/internal/fusion"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// render composes the filter chain, writes the concat list, invokes the
// encoder and thumbnail extraction, and records the resulting timelapse
// row. Returns the metrics outcome label alongside any error.
func (w *Worker) render(ctx context.Context, job models.TimelapseJob, tier models.QualityTier, profileDir string, captures []models.Capture, schedule models.Schedule, profile models.Profile, logger zerolog.Logger) (string, error) {
	useFused := true
	if schedule.Name != "" {
		useFused = schedule.StackImagesUseFused
	}
	frames := buildFrameList(captures, useFused)
	if len(frames) == 0 {
		return "success", nil
	}

	framePaths := make([]string, len(frames))
	for i, c := range frames {
		framePaths[i] = filepath.Join(profileDir, c.Filename)
	}

	fps := w.Processing.VideoFPS
	if fps <= 0 {
		fps = 30
	}
	filterChain := encode.BuildFilterChain(schedule.VideoDebug, frames, fps, profile.VideoFilters)

	concatDir, err := os.MkdirTemp("", "skylapse-worker-*")
	if err != nil {
		return "encode_failed", skyerr.New(skyerr.KindEncodeFailed, "worker.render", err, "session_id", job.SessionID)
	}
	defer os.RemoveAll(concatDir)

	frameDuration := time.Second / time.Duration(fps)
	concatListPath, err := encode.WriteConcatList(concatDir, framePaths, frameDuration)
	if err != nil {
		return "encode_failed", skyerr.New(skyerr.KindEncodeFailed, "worker.render", err, "session_id", job.SessionID)
	}

	dateStr := formatDate(job.Date)
	archiveSuffix := ""
	if tier == models.TierArchive {
		archiveSuffix = "_archive"
	}
	outputFilename := fmt.Sprintf("profile-%s_%s_%s%s.mp4", job.ProfileID, job.ScheduleName, dateStr, archiveSuffix)
	outputPath := filepath.Join(w.VideosDir, outputFilename)

	preset := encode.ResolvePreset(tier, w.Processing.VideoQuality)
	req := encode.EncodeRequest{
		ConcatListPath: concatListPath,
		OutputPath:     outputPath,
		FPS:            fps,
		CRF:            preset.CRF,
		Preset:         preset.Preset,
		Codec:          w.Processing.Codec,
		FilterChain:    filterChain,
		QualityTier:    string(tier),
	}
	if err := w.Encoder.Encode(ctx, req); err != nil {
		return "encode_failed", err
	}

	thumbPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_thumb.jpg"
	if err := w.Encoder.Thumbnail(ctx, outputPath, thumbPath, thumbnailAtSeconds); err != nil {
		return "encode_failed", err
	}

	sizeMB := 0.0
	if info, statErr := os.Stat(outputPath); statErr == nil {
		sizeMB = float64(info.Size()) / (1024 * 1024)
	}

	timelapse := models.Timelapse{
		SessionID:    job.SessionID,
		Filename:     outputFilename,
		AbsolutePath: outputPath,
		SizeMB:       sizeMB,
		FrameCount:   len(framePaths),
		FPS:          fps,
		QualityLabel: preset.Preset,
		QualityTier:  tier,
		ProfileID:    job.ProfileID,
		ScheduleName: job.ScheduleName,
		Date:         job.Date,
	}
	if _, err := w.Ledger.RecordTimelapse(ctx, timelapse); err != nil {
		return "ledger_error", skyerr.New(skyerr.KindLedgerTx, "worker.render", err, "session_id", job.SessionID)
	}

	if tier == models.TierPreview {
		if err := w.Ledger.MarkTimelapseGenerated(ctx, job.SessionID); err != nil {
			logger.Warn().Err(err).Msg("mark_timelapse_generated failed")
		}
	}

	logger.Info().Str("output_path", outputPath).Int("frame_count", len(framePaths)).Msg("timelapse rendered")
	return "success", nil
}

// buildFrameList assembles the final, ordered frame list for the concat
// demuxer: one entry per bracket group (its fused HDR frame if fusion
// succeeded, else its first raw frame) when useFused is set, or every raw
// capture unchanged when it is not.
func buildFrameList(captures []models.Capture, useFused bool) []models.Capture {
	groups := fusion.GroupBracketSets(captures)
	leaderOf := make(map[string]string, len(captures))
	groupByLeader := make(map[string][]models.Capture, len(groups))
	for _, g := range groups {
		leader := g.Captures[0].ID
		groupByLeader[leader] = g.Captures
		for _, c := range g.Captures {
			leaderOf[c.ID] = leader
		}
	}

	emitted := make(map[string]bool, len(groups))
	out := make([]models.Capture, 0, len(captures))
	for _, c := range captures {
		if c.IsHDRResult {
			// Fused result rows are substituted in at their group's
			// position below; they never appear here on their own.
			continue
		}
		leader, grouped := leaderOf[c.ID]
		if !grouped || !useFused {
			out = append(out, c)
			continue
		}
		if emitted[leader] {
			continue
		}
		emitted[leader] = true
		out = append(out, resolveGroupFrame(captures, groupByLeader[leader]))
	}
	return out
}

// resolveGroupFrame returns a group's fused result capture if one of its
// members now carries an HDRResultID, else the group's first raw frame.
func resolveGroupFrame(all []models.Capture, group []models.Capture) models.Capture {
	for _, member := range group {
		if member.HDRResultID == "" {
			continue
		}
		for _, c := range all {
			if c.ID == member.HDRResultID {
				return c
			}
		}
	}
	return group[0]
}

// formatDate converts a session's YYYYMMDD date into the YYYY-MM-DD form
// used in output filenames, passing it through unchanged if it does not
// parse (defensive only -- the scheduler always produces YYYYMMDD).
func formatDate(date string) string {
	t, err := time.Parse("20060102", date)
	if err != nil {
		return date
	}
	return t.Format("2006-01-02")
}

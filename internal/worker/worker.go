// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/encode"
	"github.com/tomtom215/skylapse/internal/fusion"
	"github.com/tomtom215/skylapse/internal/metrics"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// Ledger is the subset of ledger operations the worker needs.
type Ledger interface {
	GetCaptures(ctx context.Context, sessionID string) ([]models.Capture, error)
	RecordFusionResult(ctx context.Context, sessionID string, sourceCaptureIDs []string, result models.Capture) (*models.Capture, error)
	RecordTimelapse(ctx context.Context, t models.Timelapse) (*models.Timelapse, error)
	MarkTimelapseGenerated(ctx context.Context, sessionID string) error
	HasTimelapse(ctx context.Context, sessionID string, tier models.QualityTier) (bool, error)
}

// thumbnailAtSeconds is the fixed still-frame offset the spec mandates for
// every rendered timelapse's companion thumbnail.
const thumbnailAtSeconds = 1.0

// Worker renders one session's captures into a timelapse video per job.
// Profiles and Schedules are looked up by name/id from the running
// config, since a TimelapseJob only carries their names.
type Worker struct {
	Ledger     Ledger
	Fuser      fusion.Fuser
	Encoder    encode.Encoder
	ImagesDir  string
	VideosDir  string
	Profiles   map[string]models.Profile
	Schedules  map[string]models.Schedule
	Processing config.ProcessingConfig
	Logger     zerolog.Logger
}

// New builds a Worker. profiles and schedules are indexed by ID and name
// respectively.
func New(ledger Ledger, fuser fusion.Fuser, encoder encode.Encoder, profiles []models.Profile, schedules []models.Schedule, imagesDir, videosDir string, processing config.ProcessingConfig, logger zerolog.Logger) *Worker {
	profileIndex := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		profileIndex[p.ID] = p
	}
	scheduleIndex := make(map[string]models.Schedule, len(schedules))
	for _, s := range schedules {
		scheduleIndex[s.Name] = s
	}
	return &Worker{
		Ledger:     ledger,
		Fuser:      fuser,
		Encoder:    encoder,
		ImagesDir:  imagesDir,
		VideosDir:  videosDir,
		Profiles:   profileIndex,
		Schedules:  scheduleIndex,
		Processing: processing,
		Logger:     logger.With().Str("component", "worker").Logger(),
	}
}

// Process implements the full timelapse-worker algorithm for one job:
// load captures, check idempotency, fail fast on a missing frame, fuse
// bracket sets, compose filters, encode, thumbnail, and record the
// result. A redelivered job for a session that already has a timelapse
// of the requested tier is a no-op success.
func (w *Worker) Process(ctx context.Context, job models.TimelapseJob) error {
	start := time.Now()
	tier := job.QualityTier
	if tier == "" {
		tier = models.TierPreview
	}
	logger := w.Logger.With().Str("session_id", job.SessionID).Str("quality_tier", string(tier)).Logger()

	done, err := w.Ledger.HasTimelapse(ctx, job.SessionID, tier)
	if err != nil {
		return skyerr.New(skyerr.KindLedgerTx, "worker.Process", err, "session_id", job.SessionID)
	}
	if done {
		logger.Info().Msg("timelapse already recorded, skipping (idempotent no-op)")
		return nil
	}

	captures, err := w.Ledger.GetCaptures(ctx, job.SessionID)
	if err != nil {
		metrics.RecordJob("ledger_error", string(tier), time.Since(start))
		return skyerr.New(skyerr.KindLedgerTx, "worker.Process", err, "session_id", job.SessionID)
	}
	if len(captures) == 0 {
		logger.Info().Msg("session has no captures, nothing to render (no-op)")
		return nil
	}

	profileDir := filepath.Join(w.ImagesDir, fmt.Sprintf("profile-%s", job.ProfileID))
	if err := checkFramesExist(profileDir, captures); err != nil {
		metrics.RecordJob("frame_missing", string(tier), time.Since(start))
		return err
	}

	if w.Processing.FusionEnabled {
		captures = w.runFusionStep(ctx, job.SessionID, profileDir, captures, logger)
	}

	schedule := w.Schedules[job.ScheduleName]
	profile := w.Profiles[job.ProfileID]

	outcome, err := w.render(ctx, job, tier, profileDir, captures, schedule, profile, logger)
	metrics.RecordJob(outcome, string(tier), time.Since(start))
	return err
}

// checkFramesExist resolves every capture's filename under profileDir and
// fails fast the first time one is missing, per the spec's step 3.
func checkFramesExist(profileDir string, captures []models.Capture) error {
	for _, c := range captures {
		path := filepath.Join(profileDir, c.Filename)
		if _, err := os.Stat(path); err != nil {
			return skyerr.New(skyerr.KindFrameMissing, "worker.checkFramesExist", err, "path", path, "capture_id", c.ID)
		}
	}
	return nil
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator implements one capture burst: for a single
// profile under a schedule, it plans an exposure, drives the camera
// adapter through a capture-and-download round trip (once per bracket
// frame, if the profile brackets), and records every resulting frame in
// the ledger. It satisfies internal/scheduler.CaptureOrchestrator.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/skylapse/internal/metrics"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// Adapter is the camera round trip the orchestrator drives: capture one
// exposure and fetch its bytes. internal/camera.Client and
// internal/camera.CircuitBreakerClient both satisfy it.
type Adapter interface {
	Capture(ctx context.Context, settings models.CaptureSettings) (string, *models.CaptureSettings, error)
	Download(ctx context.Context, profileID, filename string) ([]byte, error)
}

// Planner computes one burst step's exposure settings.
type Planner interface {
	Plan(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID string, loc models.Location, at time.Time) models.CaptureSettings
}

// Ledger is the subset of ledger operations RunBurst needs.
type Ledger interface {
	RecordCapture(ctx context.Context, sessionID string, c models.Capture) (*models.Capture, error)
}

// settleDelay is the pause between finishing one profile's burst and
// letting the scheduler move to the next, giving the camera adapter a
// moment to settle (AGC/AWB convergence) before its next exposure.
const settleDelay = 500 * time.Millisecond

// Orchestrator drives capture bursts for every profile.
type Orchestrator struct {
	Adapter   Adapter
	Planner   Planner
	Ledger    Ledger
	Location  models.Location
	ImagesDir string
	Logger    zerolog.Logger

	// Sleep is swapped out in tests to avoid a real 0.5s delay per case.
	Sleep func(time.Duration)
}

// New builds an Orchestrator.
func New(adapter Adapter, planner Planner, ledger Ledger, loc models.Location, imagesDir string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Adapter:   adapter,
		Planner:   planner,
		Ledger:    ledger,
		Location:  loc,
		ImagesDir: imagesDir,
		Logger:    logger.With().Str("component", "orchestrator").Logger(),
		Sleep:     time.Sleep,
	}
}

// RunBurst executes one burst for profile: plan, capture (once per
// bracket frame), download, and record. A failure on one bracket frame is
// logged and the remaining frames in the burst still run, since a
// partially successful bracket set is still useful footage; RunBurst only
// returns an error when every frame in the burst failed, so the scheduler
// can tell "camera unreachable this tick" apart from "one bad frame".
func (o *Orchestrator) RunBurst(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID string) error {
	logger := o.Logger.With().Str("profile", profile.ID).Str("schedule", schedule.Name).Str("session_id", sessionID).Logger()
	defer o.Sleep(settleDelay)

	now := time.Now()
	settings := o.Planner.Plan(ctx, profile, schedule, sessionID, o.Location, now)

	frames := bracketFrames(settings)

	var lastErr error
	successes := 0
	for _, frame := range frames {
		start := time.Now()
		if err := o.runOne(ctx, profile, sessionID, frame); err != nil {
			lastErr = err
			metrics.RecordCapture(profile.ID, outcomeFor(err), time.Since(start))
			logger.Warn().Err(err).Int("bracket_index", frame.BracketIndex).Msg("capture failed, continuing burst")
			continue
		}
		metrics.RecordCapture(profile.ID, "success", time.Since(start))
		successes++
	}

	if successes == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// frame is one exposure within a burst: a bracket set produces several,
// a non-bracketing profile produces exactly one.
type frame struct {
	settings        models.CaptureSettings
	isBracket       bool
	bracketIndex    int
	bracketEVOffset float64
}

// bracketFrames expands one planned CaptureSettings into its bracket set,
// biasing EV per offset. A non-bracketing plan (BracketCount <= 1)
// produces a single, unmodified frame.
func bracketFrames(settings models.CaptureSettings) []frame {
	if settings.BracketCount <= 1 || len(settings.BracketEV) == 0 {
		return []frame{{settings: settings}}
	}

	frames := make([]frame, 0, len(settings.BracketEV))
	for i, offset := range settings.BracketEV {
		s := settings
		s.EV = clampEV(settings.EV + offset)
		frames = append(frames, frame{
			settings:        s,
			isBracket:       true,
			bracketIndex:    i,
			bracketEVOffset: offset,
		})
	}
	return frames
}

func clampEV(v float64) float64 {
	if v < -2 {
		return -2
	}
	if v > 2 {
		return 2
	}
	return v
}

// runOne drives a single capture-download-record round trip for one
// frame and persists the downloaded bytes under ImagesDir.
func (o *Orchestrator) runOne(ctx context.Context, profile models.Profile, sessionID string, f frame) error {
	imagePath, echoed, err := o.Adapter.Capture(ctx, f.settings)
	if err != nil {
		return err
	}
	settings := f.settings
	if echoed != nil {
		settings = *echoed
	}

	basename := filepath.Base(imagePath)

	data, err := o.Adapter.Download(ctx, profile.ID, basename)
	if err != nil {
		return err
	}

	profileDir := filepath.Join(o.ImagesDir, fmt.Sprintf("profile-%s", profile.ID))
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return skyerr.New(skyerr.KindDownloadFailed, "orchestrator.runOne", err, "profile", profile.ID)
	}
	destPath := filepath.Join(profileDir, basename)
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return skyerr.New(skyerr.KindDownloadFailed, "orchestrator.runOne", err, "profile", profile.ID, "path", destPath)
	}

	capture := models.Capture{
		Timestamp:       time.Now().UTC(),
		Filename:        basename,
		Settings:        settings,
		IsBracket:       f.isBracket,
		BracketIndex:    f.bracketIndex,
		BracketEVOffset: f.bracketEVOffset,
	}
	if _, err := o.Ledger.RecordCapture(ctx, sessionID, capture); err != nil {
		return err
	}
	return nil
}

func outcomeFor(err error) string {
	switch skyerr.KindOf(err) {
	case skyerr.KindAdapterUnavailable:
		return "adapter_unavailable"
	case skyerr.KindDownloadFailed:
		return "download_failed"
	default:
		return "error"
	}
}

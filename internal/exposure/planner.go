// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"context"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
)

// SmoothingHistory supplies the trailing capture settings for a session so
// Plan can temporally smooth its output. Implementations typically wrap
// the ledger's capture history, trimmed to the profile's own captures.
type SmoothingHistory interface {
	RecentSettings(ctx context.Context, sessionID string, n int) ([]models.CaptureSettings, error)
}

// Planner computes CaptureSettings from a profile's adaptive configuration
// and the ambient light at capture time. A Planner is stateless and safe
// for concurrent use across profiles; all per-session state lives in the
// ledger and is read through Meterer/SmoothingHistory on each call.
type Planner struct {
	Meter   Meterer
	History SmoothingHistory
}

// NewPlanner builds a Planner. meter or history may be nil: a nil meter
// always falls back to the solar-altitude estimate, and a nil history
// disables temporal smoothing.
func NewPlanner(meter Meterer, history SmoothingHistory) *Planner {
	return &Planner{Meter: meter, History: history}
}

// Plan computes the full CaptureSettings for one burst step. It never
// returns an error: every failure mode (metering, history lookup) has a
// defined degraded behavior, because a timelapse session should keep
// capturing on a best-effort exposure rather than stall.
func (p *Planner) Plan(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID string, loc models.Location, at time.Time) models.CaptureSettings {
	kind := lightKind(schedule, loc, at)
	lux := meterLux(ctx, p.Meter, profile.ID, loc, at)

	target := exposureCurve(lux)
	ev := 0.0
	if profile.AdaptiveEV.Enabled {
		ev = evBias(kind)
	}

	var recent []models.CaptureSettings
	if p.History != nil {
		if hist, err := p.History.RecentSettings(ctx, sessionID, smoothingWindow(schedule)); err == nil {
			recent = hist
		}
	}

	sm := smoothTarget(schedule.Smoothing, target, recent)
	iso := nearestISO(sm.iso)
	_, shutterLabel := nearestShutterStop(sm.shutterSeconds)

	kelvin, wbMode := 5500, "daylight"
	if profile.AdaptiveWB.Enabled {
		kelvin, wbMode = whiteBalanceCurve(profile.AdaptiveWB.Curve, kind)
	}

	settings := models.CaptureSettings{
		Profile:      profile.ID,
		ISO:          iso,
		ShutterSpeed: shutterLabel,
		EV:           clampEV(ev),
		Lux:          lux,
		WBTempKelvin: kelvin,
		WBMode:       wbMode,
		AEMetering:   models.AEMeteringMatrix,
		AFMode:       "manual",
		LensPos:      0,
		Sharpness:    profile.Base.Sharpness,
		Contrast:     profile.Base.Contrast,
		Saturation:   profile.Base.Saturation,
	}

	if schedule.StackImages {
		count, offsets := bracketOffsets(schedule.StackCount)
		settings.BracketCount = count
		settings.BracketEV = offsets
	}

	return settings
}

// lightKind classifies the schedule's solar context at the moment of
// capture, used to bias EV and white balance toward golden-hour warmth.
func lightKind(schedule models.Schedule, loc models.Location, at time.Time) LightKind {
	if schedule.Kind != models.ScheduleSolarRelative {
		return LightDaytime
	}
	switch schedule.Anchor {
	case models.AnchorSunrise, models.AnchorCivilDawn:
		return LightSunrise
	case models.AnchorSunset, models.AnchorCivilDusk:
		return LightSunset
	default:
		return LightDaytime
	}
}

// smoothingWindow returns how many trailing captures to request for
// smoothing, defaulting to a small fixed window when the schedule has no
// explicit SmoothingConfig (smoothTarget itself still no-ops without one).
func smoothingWindow(schedule models.Schedule) int {
	if schedule.Smoothing != nil && schedule.Smoothing.WindowFrames > 0 {
		return schedule.Smoothing.WindowFrames
	}
	return 5
}

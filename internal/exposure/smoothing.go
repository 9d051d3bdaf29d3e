// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"math"

	"github.com/tomtom215/skylapse/internal/models"
)

// smoothed holds the temporally-smoothed continuous targets the curve
// produced, before they are snapped back onto the discrete ISO/shutter
// ladders.
type smoothed struct {
	iso            float64
	shutterSeconds float64
}

// smoothTarget blends a freshly computed exposure target against the
// trailing window's historical average, then clamps the result to a
// bounded per-frame change relative to the most recent actual setting.
// This keeps a single noisy lux reading (a bird crossing the frame, a
// cloud edge) from producing a visible flicker in the final timelapse,
// while still letting a genuine, sustained light change (dawn brightening)
// through within a few frames.
//
// recent is ordered oldest-first; the last element is the most recent
// actual capture. An empty recent slice (first frame of a session, or a
// history read failure) disables smoothing entirely — the raw target
// passes through unchanged.
func smoothTarget(cfg *models.SmoothingConfig, target isoShutter, recent []models.CaptureSettings) smoothed {
	raw := smoothed{iso: float64(target.iso), shutterSeconds: target.shutterSeconds}
	if cfg == nil || len(recent) == 0 {
		return raw
	}

	window := recent
	if cfg.WindowFrames > 0 && len(window) > cfg.WindowFrames {
		window = window[len(window)-cfg.WindowFrames:]
	}

	var isoSum, shutterSum float64
	for _, c := range window {
		isoSum += float64(c.ISO)
		if s, err := parseShutterSeconds(c.ShutterSpeed); err == nil {
			shutterSum += s
		}
	}
	isoAvg := isoSum / float64(len(window))
	shutterAvg := shutterSum / float64(len(window))

	isoWeight := cfg.ISOWeight
	if isoWeight == 0 {
		isoWeight = 1
	}
	shutterWeight := cfg.ShutterWeight
	if shutterWeight == 0 {
		shutterWeight = 1
	}

	blendedISO := isoWeight*raw.iso + (1-isoWeight)*isoAvg
	blendedShutter := shutterWeight*raw.shutterSeconds + (1-shutterWeight)*shutterAvg

	last := window[len(window)-1]
	lastShutterSeconds, _ := parseShutterSeconds(last.ShutterSpeed)

	maxChange := cfg.MaxChangePerFrame
	if maxChange <= 0 {
		maxChange = 1
	}

	blendedISO = clampDelta(blendedISO, float64(last.ISO), maxChange)
	blendedShutter = clampDelta(blendedShutter, lastShutterSeconds, maxChange)

	return smoothed{iso: blendedISO, shutterSeconds: blendedShutter}
}

// clampDelta bounds value to within maxFraction*|reference| of reference.
// A zero reference (no prior frame, or an unparsable shutter string)
// disables clamping for that axis since there is nothing to bound against.
func clampDelta(value, reference, maxFraction float64) float64 {
	if reference == 0 {
		return value
	}
	bound := maxFraction * math.Abs(reference)
	lo, hi := reference-bound, reference+bound
	return clamp(value, lo, hi)
}

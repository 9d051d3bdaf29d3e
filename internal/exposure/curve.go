// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"fmt"
	"math"
	"sort"
)

// allowedISO is the discrete ISO ladder the camera adapter accepts, lowest
// first. The curve always prefers the lowest ISO that keeps the computed
// shutter time within shutterStops' range.
var allowedISO = []int{100, 200, 400, 800, 1600, 3200}

// shutterStop is one point on the discrete shutter-speed ladder: a
// duration in seconds and the canonical string the camera adapter and the
// ledger's settings echo expect.
type shutterStop struct {
	seconds float64
	label   string
}

// shutterStops runs from the fastest stop to the slowest, matching the
// ladder named in the exposure curve's contract: 1/8000 ... 1/2, 1s, 2s.
var shutterStops = []shutterStop{
	{1.0 / 8000, "1/8000"},
	{1.0 / 4000, "1/4000"},
	{1.0 / 2000, "1/2000"},
	{1.0 / 1000, "1/1000"},
	{1.0 / 500, "1/500"},
	{1.0 / 250, "1/250"},
	{1.0 / 125, "1/125"},
	{1.0 / 60, "1/60"},
	{1.0 / 30, "1/30"},
	{1.0 / 15, "1/15"},
	{1.0 / 8, "1/8"},
	{1.0 / 4, "1/4"},
	{1.0 / 2, "1/2"},
	{1, "1s"},
	{2, "2s"},
}

const (
	minShutterSeconds = 1.0 / 8000
	maxShutterSeconds = 2.0

	// fixedAperture models Skylapse's fixed-lens cameras (no iris
	// control), expressed as an f-number. Only the exposure curve uses
	// it; it never reaches CaptureSettings.
	fixedAperture = 2.8

	// incidentLuxConstant is the standard incident-light metering
	// constant relating lux, ISO, aperture, and shutter time:
	// N^2/t = lux * ISO / incidentLuxConstant.
	incidentLuxConstant = 250.0

	minEV = -2.0
	maxEV = 2.0
)

// LightKind names the part of the day a schedule's window falls in, used
// only to bias the exposure curve's EV compensation and the white-balance
// curve's color temperature.
type LightKind string

const (
	LightSunrise LightKind = "sunrise"
	LightSunset  LightKind = "sunset"
	LightDaytime LightKind = "daytime"
)

// evBias returns the exposure curve's EV compensation for a light kind:
// sunrise and sunset are biased warmer and slightly over-exposed: daytime
// is neutral.
func evBias(kind LightKind) float64 {
	switch kind {
	case LightSunrise, LightSunset:
		return 0.3
	default:
		return 0.0
	}
}

// isoShutter is the adaptive-EV curve's raw output before smoothing: the
// lowest ISO that keeps the computed shutter time on the discrete ladder,
// and that shutter time in seconds (not yet snapped to a stop).
type isoShutter struct {
	iso            int
	shutterSeconds float64
}

// exposureCurve maps an ambient lux reading to a target (ISO, shutter)
// pair. For each ISO candidate, ascending, it computes the shutter time a
// fixed-aperture lens would need to correctly expose that lux, and
// accepts the first candidate whose required time falls inside
// [minShutterSeconds, maxShutterSeconds]. If even ISO 100 needs a faster
// shutter than the ladder allows (very bright scene), the fastest stop is
// used at ISO 100. If even ISO 3200 needs a slower shutter than the ladder
// allows (very dark scene, or a non-positive lux reading), the slowest stop
// is used at ISO 3200.
func exposureCurve(lux float64) isoShutter {
	if lux <= 0 {
		return isoShutter{iso: allowedISO[len(allowedISO)-1], shutterSeconds: maxShutterSeconds}
	}

	for _, iso := range allowedISO {
		t := shutterSecondsFor(lux, iso)
		if t >= minShutterSeconds && t <= maxShutterSeconds {
			return isoShutter{iso: iso, shutterSeconds: t}
		}
	}

	// Every candidate fell outside the ladder: pick whichever extreme is
	// closer. A very bright scene needs a faster shutter than even ISO
	// 100 can reach within the ladder, so clamp to the fastest stop at
	// the lowest ISO; a very dark scene needs a slower shutter than even
	// ISO 3200 reaches, so clamp to the slowest stop at the highest ISO.
	lowT := shutterSecondsFor(lux, allowedISO[0])
	if lowT < minShutterSeconds {
		return isoShutter{iso: allowedISO[0], shutterSeconds: minShutterSeconds}
	}
	return isoShutter{iso: allowedISO[len(allowedISO)-1], shutterSeconds: maxShutterSeconds}
}

// shutterSecondsFor returns the shutter time a fixed-aperture lens at the
// given ISO needs to correctly expose lux, using the standard incident
// metering relation N^2/t = lux*ISO/incidentLuxConstant.
func shutterSecondsFor(lux float64, iso int) float64 {
	return (fixedAperture * fixedAperture * incidentLuxConstant) / (lux * float64(iso))
}

// nearestISO snaps a continuous ISO value to the nearest member of
// allowedISO.
func nearestISO(v float64) int {
	best := allowedISO[0]
	bestDist := math.Abs(v - float64(best))
	for _, iso := range allowedISO[1:] {
		d := math.Abs(v - float64(iso))
		if d < bestDist {
			best, bestDist = iso, d
		}
	}
	return best
}

// nearestShutterStop snaps a continuous shutter duration (seconds) to the
// nearest discrete stop and returns its canonical label.
func nearestShutterStop(seconds float64) (float64, string) {
	best := shutterStops[0]
	bestDist := math.Abs(seconds - best.seconds)
	for _, s := range shutterStops[1:] {
		d := math.Abs(seconds - s.seconds)
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best.seconds, best.label
}

// parseShutterSeconds is the inverse of the stop table: it recovers the
// duration in seconds a shutter string names, for use as smoothing
// history. Accepts "1/N" and "Ns" (or a bare decimal number of seconds).
func parseShutterSeconds(label string) (float64, error) {
	for _, s := range shutterStops {
		if s.label == label {
			return s.seconds, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(label, "1/%d", &n); err == nil && n > 0 {
		return 1.0 / float64(n), nil
	}
	var secs float64
	if _, err := fmt.Sscanf(label, "%gs", &secs); err == nil && secs > 0 {
		return secs, nil
	}
	return 0, fmt.Errorf("exposure: unrecognized shutter string %q", label)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampEV(v float64) float64 { return clamp(v, minEV, maxEV) }

// isAllowedISO reports whether v is one of the discrete ISO values the
// camera adapter accepts.
func isAllowedISO(v int) bool {
	i := sort.SearchInts(allowedISO, v)
	return i < len(allowedISO) && allowedISO[i] == v
}

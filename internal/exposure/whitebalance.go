// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import "github.com/tomtom215/skylapse/internal/models"

// whiteBalanceCurve maps a light kind and a profile's configured WBCurve to
// a target color temperature (Kelvin) and the adapter-facing mode string.
// Three curves are supported, each biasing sunrise/sunset warmer by a
// different amount:
//
//   - balanced: a conservative daylight white balance that only nudges
//     warmer at the golden hours.
//   - conservative: stays close to daylight (5500K) at all times, trading
//     golden-hour color for frame-to-frame consistency.
//   - warm: leans heavily into golden-hour warmth, for profiles that want
//     a strongly amber sunrise/sunset look.
func whiteBalanceCurve(curve models.WBCurve, kind LightKind) (kelvin int, mode string) {
	golden := kind == LightSunrise || kind == LightSunset

	switch curve {
	case models.WBConservative:
		if golden {
			return 5200, "daylight"
		}
		return 5500, "daylight"
	case models.WBWarm:
		if golden {
			return 3200, "tungsten"
		}
		return 5000, "daylight"
	case models.WBBalanced:
		fallthrough
	default:
		if golden {
			return 4200, "cloudy"
		}
		return 5500, "daylight"
	}
}

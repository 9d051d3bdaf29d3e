// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/solar"
)

// Meterer queries the current ambient light level for a profile, in lux.
// The camera adapter client implements this against its metering endpoint.
type Meterer interface {
	Meter(ctx context.Context, profileID string) (lux float64, err error)
}

// minAltitudeLux and maxAltitudeLux anchor the solar-altitude fallback
// curve: civil twilight (-6 degrees) reads as deep-twilight light levels,
// and a sun well clear of the horizon (60 degrees) reads as full daylight.
const (
	minAltitudeDeg = -6.0
	minAltitudeLux = 0.01
	maxAltitudeDeg = 60.0
	maxAltitudeLux = 100000.0
)

// estimateLux derives a lux reading from solar geometry alone, used
// whenever the camera adapter's meter endpoint is unreachable or returns
// an error. It interpolates in log-lux space between two anchor points,
// since illuminance spans several orders of magnitude across a single
// morning and a linear interpolation would be badly wrong at the dim end.
func estimateLux(loc models.Location, at time.Time) float64 {
	alt := solar.Altitude(loc, at)

	if alt <= minAltitudeDeg {
		return minAltitudeLux
	}
	if alt >= maxAltitudeDeg {
		return maxAltitudeLux
	}

	frac := (alt - minAltitudeDeg) / (maxAltitudeDeg - minAltitudeDeg)
	logLux := math.Log10(minAltitudeLux) + frac*(math.Log10(maxAltitudeLux)-math.Log10(minAltitudeLux))
	return math.Pow(10, logLux)
}

// meterLux queries m for the current ambient lux, falling back to the
// solar-altitude estimate on any error so that a camera adapter outage
// degrades exposure quality instead of blocking the burst.
func meterLux(ctx context.Context, m Meterer, profileID string, loc models.Location, at time.Time) float64 {
	if m != nil {
		if lux, err := m.Meter(ctx, profileID); err == nil && lux > 0 {
			return lux
		}
	}
	return estimateLux(loc, at)
}

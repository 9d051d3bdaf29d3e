// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package solar computes sunrise, sunset, civil dawn, civil dusk, and solar
// noon for a given location and calendar date using the NOAA solar
// position equations. It has no external dependencies: this is domain math,
// not ambient plumbing, so it is hand-written rather than pulled from a
// library.
package solar

import (
	"math"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
)

// floatEpsilon bounds the tolerance used when a computed altitude needs to
// be compared against a threshold for determinism across platforms.
const floatEpsilon = 1e-9

// degrees at which the sun's center sits for each named anchor. Standard
// sunrise/sunset uses -0.833 deg to account for atmospheric refraction and
// the sun's apparent radius; civil twilight uses -6 deg.
const (
	zenithSunriseSunset = 90.833
	zenithCivil         = 96.0
)

// Times holds every solar instant for one location and date, each in the
// Location's configured zone.
type Times struct {
	CivilDawn time.Time
	Sunrise   time.Time
	SolarNoon time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// Compute returns every solar instant for loc on the calendar date that
// `local` falls on, in loc's zone. `local` must already carry loc's
// *time.Location (callers obtain it via time.LoadLocation(loc.Timezone)).
func Compute(loc models.Location, local time.Time) (Times, error) {
	zone := local.Location()
	year, month, day := local.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, zone)

	noon, err := solarNoon(loc, midnight)
	if err != nil {
		return Times{}, err
	}
	sunrise, sunset, err := sunriseSunset(loc, midnight, noon, zenithSunriseSunset)
	if err != nil {
		return Times{}, err
	}
	dawn, dusk, err := sunriseSunset(loc, midnight, noon, zenithCivil)
	if err != nil {
		return Times{}, err
	}
	return Times{
		CivilDawn: dawn,
		Sunrise:   sunrise,
		SolarNoon: noon,
		Sunset:    sunset,
		CivilDusk: dusk,
	}, nil
}

// Anchor resolves a single named anchor for loc at the calendar date
// `local` falls on.
func Anchor(loc models.Location, local time.Time, anchor models.AnchorKind) (time.Time, error) {
	times, err := Compute(loc, local)
	if err != nil {
		return time.Time{}, err
	}
	switch anchor {
	case models.AnchorSunrise:
		return times.Sunrise, nil
	case models.AnchorSunset:
		return times.Sunset, nil
	case models.AnchorCivilDawn:
		return times.CivilDawn, nil
	case models.AnchorCivilDusk:
		return times.CivilDusk, nil
	case models.AnchorNoon:
		return times.SolarNoon, nil
	default:
		return time.Time{}, &UnknownAnchorError{Anchor: anchor}
	}
}

// UnknownAnchorError is returned when an AnchorKind has no known mapping.
type UnknownAnchorError struct {
	Anchor models.AnchorKind
}

func (e *UnknownAnchorError) Error() string {
	return "solar: unknown anchor " + string(e.Anchor)
}

// solarNoon computes the instant the sun transits the local meridian on
// the day of midnight, using the equation of time correction.
func solarNoon(loc models.Location, midnight time.Time) (time.Time, error) {
	n := dayOfYear(midnight)
	_, offsetSeconds := midnight.Zone()
	utcOffsetHours := float64(offsetSeconds) / 3600.0

	eqTime := equationOfTimeMinutes(n)
	// Solar noon, in local clock hours, is 12:00 minus the longitude
	// correction minus the equation-of-time correction, adjusted for the
	// local UTC offset.
	noonHours := 12.0 - (loc.Longitude/15.0 - utcOffsetHours) - eqTime/60.0
	return addHours(midnight, noonHours), nil
}

// sunriseSunset computes the two instants the sun crosses the given zenith
// angle (measured from vertical) on the day of midnight, using solarNoon
// (already computed) as the transit instant.
func sunriseSunset(loc models.Location, midnight, noon time.Time, zenithDeg float64) (rise, set time.Time, err error) {
	n := dayOfYear(midnight)
	decl := solarDeclinationRadians(n)
	latRad := degToRad(loc.Latitude)
	zenithRad := degToRad(zenithDeg)

	cosH := (math.Cos(zenithRad) - math.Sin(latRad)*math.Sin(decl)) / (math.Cos(latRad) * math.Cos(decl))
	if cosH < -1-floatEpsilon || cosH > 1+floatEpsilon {
		// Sun never crosses this zenith today (polar day/night). Report
		// the transit instant for both endpoints so callers still get a
		// well-formed, zero-width window rather than an error.
		return noon, noon, nil
	}
	cosH = clamp(cosH, -1, 1)
	hourAngleDeg := radToDeg(math.Acos(cosH))

	halfDayHours := hourAngleDeg / 15.0
	rise = addHours(noon, -halfDayHours)
	set = addHours(noon, halfDayHours)
	return rise, set, nil
}

func dayOfYear(t time.Time) int { return t.YearDay() }

// solarDeclinationRadians approximates the sun's declination for day n of
// the year (1-indexed), using the standard single-harmonic approximation.
func solarDeclinationRadians(n int) float64 {
	gamma := 2.0 * math.Pi / 365.0 * (float64(n) - 1)
	return 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)
}

// equationOfTimeMinutes approximates the equation of time, in minutes, for
// day n of the year.
func equationOfTimeMinutes(n int) float64 {
	gamma := 2.0 * math.Pi / 365.0 * (float64(n) - 1)
	return 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
func radToDeg(r float64) float64 { return r * 180.0 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func addHours(t time.Time, hours float64) time.Time {
	return t.Add(time.Duration(hours * float64(time.Hour)))
}

// Altitude returns the sun's altitude above the horizon, in degrees, at
// instant `at` for location loc. Used by the exposure planner as a lux
// fallback when the camera adapter's meter is unavailable: altitude
// decreases monotonically with distance below the horizon, which is all
// the fallback curve needs.
func Altitude(loc models.Location, at time.Time) float64 {
	n := dayOfYear(at)
	decl := solarDeclinationRadians(n)
	latRad := degToRad(loc.Latitude)

	zone := at.Location()
	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, zone)
	noon, err := solarNoon(loc, midnight)
	if err != nil {
		return 0
	}
	hoursFromNoon := at.Sub(noon).Hours()
	hourAngleRad := degToRad(hoursFromNoon * 15.0)

	sinAlt := math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(hourAngleRad)
	sinAlt = clamp(sinAlt, -1, 1)
	return radToDeg(math.Asin(sinAlt))
}

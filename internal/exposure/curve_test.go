// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExposureCurve_BrightSceneClampsToFastestStopLowestISO(t *testing.T) {
	r := exposureCurve(100000)
	assert.Equal(t, allowedISO[0], r.iso)
}

func TestExposureCurve_DarkSceneClampsToSlowestStopHighestISO(t *testing.T) {
	r := exposureCurve(0.001)
	assert.Equal(t, allowedISO[len(allowedISO)-1], r.iso)
}

func TestExposureCurve_NonPositiveLuxDoesNotPanic(t *testing.T) {
	r := exposureCurve(0)
	assert.True(t, isAllowedISO(r.iso))
}

func TestExposureCurve_AlwaysProducesAllowedISO(t *testing.T) {
	for _, lux := range []float64{0.01, 1, 10, 100, 1000, 10000, 50000} {
		r := exposureCurve(lux)
		assert.True(t, isAllowedISO(r.iso), "lux=%v iso=%v", lux, r.iso)
		assert.GreaterOrEqual(t, r.shutterSeconds, minShutterSeconds)
		assert.LessOrEqual(t, r.shutterSeconds, maxShutterSeconds)
	}
}

func TestNearestShutterStop_RoundTripsKnownLabels(t *testing.T) {
	for _, s := range shutterStops {
		secs, label := nearestShutterStop(s.seconds)
		assert.Equal(t, s.label, label)
		assert.InDelta(t, s.seconds, secs, 1e-9)
	}
}

func TestParseShutterSeconds_RoundTripsLabels(t *testing.T) {
	for _, s := range shutterStops {
		got, err := parseShutterSeconds(s.label)
		assert.NoError(t, err)
		assert.InDelta(t, s.seconds, got, 1e-9)
	}
}

func TestParseShutterSeconds_RejectsGarbage(t *testing.T) {
	_, err := parseShutterSeconds("bogus")
	assert.Error(t, err)
}

func TestClampEV_BoundsToPlusMinusTwo(t *testing.T) {
	assert.Equal(t, -2.0, clampEV(-10))
	assert.Equal(t, 2.0, clampEV(10))
	assert.Equal(t, 0.5, clampEV(0.5))
}

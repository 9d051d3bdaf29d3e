// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/skylapse/internal/models"
)

func TestWhiteBalanceCurve_GoldenHourIsWarmerThanDaytime(t *testing.T) {
	for _, curve := range []models.WBCurve{models.WBBalanced, models.WBConservative, models.WBWarm} {
		golden, _ := whiteBalanceCurve(curve, LightSunrise)
		daytime, _ := whiteBalanceCurve(curve, LightDaytime)
		assert.LessOrEqual(t, golden, daytime, "curve=%v", curve)
	}
}

func TestWhiteBalanceCurve_WarmIsWarmerThanConservativeAtGoldenHour(t *testing.T) {
	warm, _ := whiteBalanceCurve(models.WBWarm, LightSunset)
	conservative, _ := whiteBalanceCurve(models.WBConservative, LightSunset)
	assert.Less(t, warm, conservative)
}

func TestWhiteBalanceCurve_UnknownCurveFallsBackToBalanced(t *testing.T) {
	unknown, unknownMode := whiteBalanceCurve(models.WBCurve("bogus"), LightDaytime)
	balanced, balancedMode := whiteBalanceCurve(models.WBBalanced, LightDaytime)
	assert.Equal(t, balanced, unknown)
	assert.Equal(t, balancedMode, unknownMode)
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/skylapse/internal/models"
)

type fixedHistory struct {
	settings []models.CaptureSettings
}

func (h fixedHistory) RecentSettings(ctx context.Context, sessionID string, n int) ([]models.CaptureSettings, error) {
	return h.settings, nil
}

func baseProfile() models.Profile {
	return models.Profile{
		ID:         "a",
		Name:       "summit",
		Enabled:    true,
		Base:       models.BaseSettings{Sharpness: 1, Contrast: 0, Saturation: 0},
		AdaptiveWB: models.AdaptiveWB{Enabled: true, Curve: models.WBBalanced},
		AdaptiveEV: models.AdaptiveEV{Enabled: true, Curve: models.EVCurveAdaptive},
	}
}

func baseSchedule() models.Schedule {
	return models.Schedule{
		Name:            "sunrise",
		Kind:            models.ScheduleSolarRelative,
		Enabled:         true,
		Anchor:          models.AnchorSunrise,
		IntervalSeconds: 30,
		Profiles:        []string{"a"},
	}
}

// TestPlan_NeverErrorsAndAlwaysProducesValidSettings covers testable
// property 11: ISO is always one of the allowed discrete values and EV is
// always within [-2, 2], across a spread of lux conditions, meterer
// failures, and missing history.
func TestPlan_NeverErrorsAndAlwaysProducesValidSettings(t *testing.T) {
	loc := telluride
	at := mustTime(t, "2026-01-15T13:30:00Z")

	meterers := []Meterer{nil, stubMeterer{lux: 0.5}, stubMeterer{lux: 50000}, stubMeterer{err: assert.AnError}}
	histories := []SmoothingHistory{nil, fixedHistory{}, fixedHistory{settings: []models.CaptureSettings{{ISO: 100, ShutterSpeed: "1/125"}}}}

	for _, m := range meterers {
		for _, h := range histories {
			p := NewPlanner(m, h)
			settings := p.Plan(context.Background(), baseProfile(), baseSchedule(), "a_20260115_sunrise", loc, at)

			assert.True(t, isAllowedISO(settings.ISO))
			assert.GreaterOrEqual(t, settings.EV, -2.0)
			assert.LessOrEqual(t, settings.EV, 2.0)
			assert.NotEmpty(t, settings.ShutterSpeed)
			assert.Equal(t, "a", settings.Profile)
		}
	}
}

func TestPlan_BracketingPopulatesCountAndOffsets(t *testing.T) {
	schedule := baseSchedule()
	schedule.StackImages = true
	schedule.StackCount = 3

	p := NewPlanner(stubMeterer{lux: 1000}, nil)
	settings := p.Plan(context.Background(), baseProfile(), schedule, "sess", telluride, time.Now())

	require.Equal(t, 3, settings.BracketCount)
	assert.Equal(t, []float64{-1, 0, 1}, settings.BracketEV)
}

func TestPlan_NoStackingLeavesBracketFieldsZero(t *testing.T) {
	p := NewPlanner(stubMeterer{lux: 1000}, nil)
	settings := p.Plan(context.Background(), baseProfile(), baseSchedule(), "sess", telluride, mustTime(t, "2026-01-15T13:30:00Z"))

	assert.Equal(t, 0, settings.BracketCount)
	assert.Nil(t, settings.BracketEV)
}

func TestPlan_DisabledAdaptiveEVKeepsNeutralEV(t *testing.T) {
	profile := baseProfile()
	profile.AdaptiveEV.Enabled = false

	p := NewPlanner(stubMeterer{lux: 1000}, nil)
	settings := p.Plan(context.Background(), profile, baseSchedule(), "sess", telluride, mustTime(t, "2026-01-15T13:30:00Z"))

	assert.Equal(t, 0.0, settings.EV)
}

func TestPlan_DisabledAdaptiveWBKeepsDaylightDefault(t *testing.T) {
	profile := baseProfile()
	profile.AdaptiveWB.Enabled = false

	p := NewPlanner(stubMeterer{lux: 1000}, nil)
	settings := p.Plan(context.Background(), profile, baseSchedule(), "sess", telluride, mustTime(t, "2026-01-15T13:30:00Z"))

	assert.Equal(t, 5500, settings.WBTempKelvin)
	assert.Equal(t, "daylight", settings.WBMode)
}

func TestLightKind_SolarAnchorsMapCorrectly(t *testing.T) {
	loc := telluride
	now := time.Now()

	sunrise := baseSchedule()
	assert.Equal(t, LightSunrise, lightKind(sunrise, loc, now))

	sunset := baseSchedule()
	sunset.Anchor = models.AnchorSunset
	assert.Equal(t, LightSunset, lightKind(sunset, loc, now))

	noon := baseSchedule()
	noon.Anchor = models.AnchorNoon
	assert.Equal(t, LightDaytime, lightKind(noon, loc, now))

	timeOfDay := models.Schedule{Kind: models.ScheduleTimeOfDay}
	assert.Equal(t, LightDaytime, lightKind(timeOfDay, loc, now))
}

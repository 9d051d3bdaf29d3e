// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package encode_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/skylapse/internal/encode"
	"github.com/tomtom215/skylapse/internal/models"
)

// splitFilterChain splits a -vf chain on its top-level commas, keeping the
// backslash-escaped commas inside each drawtext enable expression intact.
func splitFilterChain(chain string) []string {
	parts := strings.Split(strings.ReplaceAll(chain, `\,`, "\x00"), ",")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "\x00", `\,`)
	}
	return parts
}

func TestBuildFilterChain_DebugDisabledOnlyUsesVideoFilters(t *testing.T) {
	chain := encode.BuildFilterChain(nil, nil, 30, "eq=brightness=0.1")
	assert.Equal(t, "eq=brightness=0.1", chain)
}

func TestBuildFilterChain_DebugOverlayPrecedesVideoFilters(t *testing.T) {
	debug := &models.VideoDebugConfig{Enabled: true, FontSize: 16, Position: "bottom-left"}
	captures := []models.Capture{
		{Settings: models.CaptureSettings{ISO: 400, ShutterSpeed: "1/250"}},
		{Settings: models.CaptureSettings{ISO: 800, ShutterSpeed: "1/125"}},
	}

	chain := encode.BuildFilterChain(debug, captures, 2, "eq=brightness=0.1")

	parts := splitFilterChain(chain)
	assert.Len(t, parts, 3)
	assert.Contains(t, parts[0], "drawtext")
	assert.Contains(t, parts[0], "ISO 400")
	assert.Contains(t, parts[1], "ISO 800")
	assert.Equal(t, "eq=brightness=0.1", parts[2])
}

func TestBuildFilterChain_EachFrameGetsItsOwnEnableWindow(t *testing.T) {
	debug := &models.VideoDebugConfig{Enabled: true, FontSize: 16, Position: "top-right"}
	captures := []models.Capture{
		{Settings: models.CaptureSettings{ISO: 100}},
		{Settings: models.CaptureSettings{ISO: 200}},
	}

	chain := encode.BuildFilterChain(debug, captures, 10, "")
	parts := splitFilterChain(chain)
	assert.Contains(t, parts[0], "between(t\\,0.0000\\,0.1000)")
	assert.Contains(t, parts[1], "between(t\\,0.1000\\,0.2000)")
}

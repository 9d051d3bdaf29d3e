// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package encode

import (
	"fmt"
	"strings"

	"github.com/tomtom215/skylapse/internal/models"
)

// BuildFilterChain composes the encoder's -vf argument: an optional
// per-frame debug overlay first, then the profile's optional video_filters
// expression, joined with commas in that order.
func BuildFilterChain(debug *models.VideoDebugConfig, captures []models.Capture, fps int, videoFilters string) string {
	var parts []string
	if debug != nil && debug.Enabled && fps > 0 {
		parts = append(parts, debugOverlayFilters(debug, captures, fps)...)
	}
	if videoFilters != "" {
		parts = append(parts, videoFilters)
	}
	return strings.Join(parts, ",")
}

// debugOverlayFilters returns one drawtext filter per frame, each enabled
// only for that frame's exact display interval in the encoded output.
func debugOverlayFilters(cfg *models.VideoDebugConfig, captures []models.Capture, fps int) []string {
	x, y := positionExpr(cfg.Position)
	frameSeconds := 1.0 / float64(fps)

	filters := make([]string, 0, len(captures))
	for i, c := range captures {
		start := float64(i) * frameSeconds
		end := float64(i+1) * frameSeconds
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontsize=%d:fontcolor=white:box=1:boxcolor=%s:x=%s:y=%s:enable='between(t\\,%.4f\\,%.4f)'",
			escapeDrawtext(overlayText(c.Settings)), cfg.FontSize, boxColor(cfg.Background), x, y, start, end,
		))
	}
	return filters
}

// overlayText renders the captured settings the debug overlay burns in:
// ISO, shutter, EV, white balance, focus, lux, and the sharpness/contrast/
// saturation triplet.
func overlayText(s models.CaptureSettings) string {
	return fmt.Sprintf("ISO %d  %s  EV %+.1f  %dK %s  focus %.2f  %.0f lux  s/c/s %d/%d/%d",
		s.ISO, s.ShutterSpeed, s.EV, s.WBTempKelvin, s.WBMode, s.LensPos, s.Lux,
		s.Sharpness, s.Contrast, s.Saturation)
}

// positionExpr maps a VideoDebugConfig.Position value to drawtext's x/y
// coordinate expressions.
func positionExpr(position string) (x, y string) {
	const margin = "10"
	switch position {
	case "top-left":
		return margin, margin
	case "top-right":
		return "w-text_w-" + margin, margin
	case "bottom-right":
		return "w-text_w-" + margin, "h-text_h-" + margin
	default: // "bottom-left"
		return margin, "h-text_h-" + margin
	}
}

func boxColor(background string) string {
	if background == "" {
		return "black@0.5"
	}
	return background
}

// escapeDrawtext escapes the characters ffmpeg's drawtext filter treats
// specially inside a filtergraph option value.
func escapeDrawtext(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(text)
}

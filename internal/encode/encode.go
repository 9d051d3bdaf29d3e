// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package encode

import (
	"context"

	"github.com/tomtom215/skylapse/internal/models"
)

// EncodeRequest is one render invocation: a concat-demuxer frame list
// already written to disk, the resolved quality preset, and the optional
// filter chain built by BuildFilterChain.
type EncodeRequest struct {
	ConcatListPath string
	OutputPath     string
	FPS            int
	CRF            int
	Preset         string
	Codec          string
	PixelFormat    string
	FilterChain    string
	QualityTier    string // metrics label only
}

// Encoder renders a concat-demuxer frame list into one video file and can
// extract a still-frame thumbnail from it. FFmpegEncoder is the default
// implementation; the worker depends only on this interface so tests can
// substitute a stub.
type Encoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
	Thumbnail(ctx context.Context, videoPath, outPath string, atSeconds float64) error
}

// Preset names one row of the tier x quality-level CRF/speed table.
type Preset struct {
	CRF    int
	Preset string
}

// presetTable is the spec's mandated quality presets: two tiers (preview,
// web-optimized; archive, near-lossless) each with three named levels.
var presetTable = map[models.QualityTier]map[string]Preset{
	models.TierPreview: {
		"low":    {CRF: 28, Preset: "fast"},
		"medium": {CRF: 23, Preset: "medium"},
		"high":   {CRF: 18, Preset: "medium"},
	},
	models.TierArchive: {
		"low":    {CRF: 20, Preset: "medium"},
		"medium": {CRF: 16, Preset: "slow"},
		"high":   {CRF: 12, Preset: "slow"},
	},
}

// presetLevels fixes iteration order for ResolvePreset's tie-breaking.
var presetLevels = []string{"low", "medium", "high"}

// ResolvePreset picks the named preset level within tier whose CRF is
// closest to configuredCRF, so the single processing.video_quality knob
// still lands on one of the three mandated preset rows rather than an
// arbitrary CRF/speed combination.
func ResolvePreset(tier models.QualityTier, configuredCRF int) Preset {
	levels := presetTable[tier]
	best := levels["medium"]
	bestDiff := abs(best.CRF - configuredCRF)
	for _, name := range presetLevels {
		p := levels[name]
		if d := abs(p.CRF - configuredCRF); d < bestDiff {
			best = p
			bestDiff = d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

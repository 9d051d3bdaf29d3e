// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

// AnchorKind names the solar event a solar_relative schedule is anchored
// to. Noon refers to solar noon (the sun's transit of the local meridian),
// never 12:00 wall-clock time.
type AnchorKind string

const (
	AnchorSunrise   AnchorKind = "sunrise"
	AnchorSunset    AnchorKind = "sunset"
	AnchorCivilDawn AnchorKind = "civil_dawn"
	AnchorCivilDusk AnchorKind = "civil_dusk"
	AnchorNoon      AnchorKind = "noon"
)

// ScheduleKind distinguishes a solar-anchored window from a fixed local
// time-of-day window.
type ScheduleKind string

const (
	ScheduleSolarRelative ScheduleKind = "solar_relative"
	ScheduleTimeOfDay     ScheduleKind = "time_of_day"
)

// SmoothingConfig controls the exposure planner's temporal smoothing of
// ISO, shutter, EV, and white balance across the trailing capture window.
type SmoothingConfig struct {
	WindowFrames     int     `koanf:"window_frames" json:"window_frames" validate:"gte=1"`
	MaxChangePerFrame float64 `koanf:"max_change_per_frame" json:"max_change_per_frame" validate:"gt=0,lte=1"`
	ISOWeight        float64 `koanf:"iso_weight" json:"iso_weight" validate:"gte=0,lte=1"`
	ShutterWeight    float64 `koanf:"shutter_weight" json:"shutter_weight" validate:"gte=0,lte=1"`
}

// VideoDebugConfig overlays capture settings as burned-in text during
// encode, for a schedule that wants a debug-annotated render.
type VideoDebugConfig struct {
	Enabled    bool   `koanf:"enabled" json:"enabled"`
	FontSize   int    `koanf:"font_size" json:"font_size" validate:"gte=8"`
	Position   string `koanf:"position" json:"position" validate:"oneof=bottom-left top-left bottom-right top-right"`
	Background string `koanf:"background" json:"background"`
}

// Schedule describes one named capture window shared by one or more
// profiles. Exactly one of the solar_relative or time_of_day field groups
// applies, selected by Kind.
type Schedule struct {
	Name    string       `koanf:"name" json:"name" validate:"required"`
	Kind    ScheduleKind `koanf:"type" json:"type" validate:"required,oneof=solar_relative time_of_day"`
	Enabled bool         `koanf:"enabled" json:"enabled"`

	// solar_relative fields.
	Anchor         AnchorKind `koanf:"anchor" json:"anchor,omitempty"`
	OffsetMinutes  float64    `koanf:"offset_minutes" json:"offset_minutes,omitempty"`
	DurationMinutes float64   `koanf:"duration_minutes" json:"duration_minutes,omitempty"`

	// time_of_day fields, "HH:MM" in the Location's zone.
	StartTime string `koanf:"start_time" json:"start_time,omitempty"`
	EndTime   string `koanf:"end_time" json:"end_time,omitempty"`

	IntervalSeconds int      `koanf:"interval_seconds" json:"interval_seconds" validate:"gt=0"`
	Profiles        []string `koanf:"profiles" json:"profiles" validate:"required,min=1"`

	Smoothing    *SmoothingConfig  `koanf:"smoothing" json:"smoothing,omitempty"`
	VideoDebug   *VideoDebugConfig `koanf:"video_debug" json:"video_debug,omitempty"`
	StackImages  bool              `koanf:"stack_images" json:"stack_images"`
	StackCount   int               `koanf:"stack_count" json:"stack_count,omitempty"`

	// StackImagesUseFused selects whether the timelapse worker prefers
	// fused HDR frames over raw bracket frames when assembling its concat
	// list. A schedule that leaves the key out gets false; the worker uses
	// fused frames by default only for a job whose schedule name is not in
	// its config.
	StackImagesUseFused bool `koanf:"stack_images_use_fused" json:"stack_images_use_fused"`
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// SessionStatus tracks a session's lifecycle from first capture through
// window close and preview-tier timelapse generation.
type SessionStatus string

const (
	SessionActive             SessionStatus = "active"
	SessionComplete           SessionStatus = "complete"
	SessionTimelapseGenerated SessionStatus = "timelapse_generated"
)

// Session groups every capture for one (profile, date, schedule) triple.
// Its ID is deterministic — "{profile}_{YYYYMMDD}_{schedule}" — which makes
// get-or-create idempotent under retry and crash recovery.
type Session struct {
	ID           string
	ProfileID    string
	ScheduleName string
	Date         string // YYYYMMDD, in the owning Location's timezone
	Status       SessionStatus
	WasActive    bool

	StartTime time.Time
	EndTime   time.Time

	ImageCount int
	LuxMin     *float64
	LuxMax     *float64
	LuxAvg     *float64
	ISOMin     *int
	ISOMax     *int
	WBMin      *int
	WBMax      *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AEMeteringMode names the camera adapter's auto-exposure metering
// strategy, echoed back on every capture settings round trip.
type AEMeteringMode string

const (
	AEMeteringCenter AEMeteringMode = "center"
	AEMeteringSpot   AEMeteringMode = "spot"
	AEMeteringMatrix AEMeteringMode = "matrix"
)

// CaptureSettings is the full exposure-planner output: the request body
// sent to the camera adapter's POST /capture, and the settings echo stored
// on the resulting capture row.
type CaptureSettings struct {
	Profile string `json:"profile" validate:"required"`

	ISO          int     `json:"iso" validate:"oneof=100 200 400 800 1600 3200"`
	ShutterSpeed string  `json:"shutter_speed" validate:"required"`
	EV           float64 `json:"ev" validate:"gte=-2,lte=2"`
	Lux          float64 `json:"lux"`

	WBTempKelvin int    `json:"wb_temp_kelvin"`
	WBMode       string `json:"wb_mode"`

	AEMetering AEMeteringMode `json:"ae_metering"`
	AFMode     string         `json:"af_mode"`
	LensPos    float64        `json:"lens_position"`

	Sharpness  int `json:"sharpness"`
	Contrast   int `json:"contrast"`
	Saturation int `json:"saturation"`

	AnalogGain  float64 `json:"analog_gain"`
	DigitalGain float64 `json:"digital_gain"`

	HDRMode      bool      `json:"hdr_mode"`
	BracketCount int       `json:"bracket_count" validate:"omitempty,oneof=1 3 5"`
	BracketEV    []float64 `json:"bracket_ev,omitempty"`
}

// Capture is one append-only row recording a single exposure, one bracket
// frame within an HDR burst, or a fused HDR result frame.
type Capture struct {
	ID        string
	SessionID string
	Timestamp time.Time
	Filename  string // basename only; the directory is derived from profile

	Settings CaptureSettings

	IsBracket       bool
	BracketIndex    int
	BracketEVOffset float64

	IsHDRResult      bool
	SourceBracketIDs []string // populated on the fused result row
	HDRResultID      string   // populated on every source bracket row once fused
}

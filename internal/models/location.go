// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the shared domain types for Skylapse: locations,
// capture profiles, schedules, sessions, captures, and timelapses. These
// types are intentionally free of database and transport concerns so every
// other package can import them without creating import cycles.
package models

// Location is the observer's geographic position. Immutable for the life
// of a process; used by the solar calculator to derive sunrise, sunset,
// civil-twilight, and solar-noon instants for a given calendar date.
type Location struct {
	Latitude  float64 `koanf:"latitude" json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `koanf:"longitude" json:"longitude" validate:"gte=-180,lte=180"`
	// Timezone is an IANA zone name (e.g. "America/Denver"). All schedule
	// windows are computed, persisted, and reported in this zone.
	Timezone string `koanf:"timezone" json:"timezone" validate:"required"`
}

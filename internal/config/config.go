// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates Skylapse's on-disk configuration:
// location, profiles, schedules, the camera adapter ("pi"), storage paths,
// and processing/worker settings. Loading is layered through koanf
// (defaults -> optional YAML file -> environment variables); Validate
// enumerates every rule and returns every violation it finds so a bad
// config fails fast with a complete error list rather than one at a time.
package config

import (
	"time"

	"github.com/tomtom215/skylapse/internal/models"
)

// Config is the full Skylapse configuration tree.
type Config struct {
	Location   models.Location    `koanf:"location"`
	Profiles   []models.Profile   `koanf:"profiles"`
	Schedules  []models.Schedule  `koanf:"schedules"`
	Pi         PiConfig           `koanf:"pi"`
	Storage    StorageConfig      `koanf:"storage"`
	Processing ProcessingConfig   `koanf:"processing"`
	Database   DatabaseConfig     `koanf:"database"`
	Queue      QueueConfig        `koanf:"queue"`
	Server     ServerConfig       `koanf:"server"`
	Logging    LoggingConfig      `koanf:"logging"`
}

// PiConfig is the camera adapter's network address and client behavior.
type PiConfig struct {
	Host           string        `koanf:"host" validate:"required"`
	Port           int           `koanf:"port" validate:"gte=1,lte=65535"`
	TimeoutSeconds int           `koanf:"timeout_seconds" validate:"gt=0"`
	UseTLS         bool          `koanf:"use_tls"`
}

// Timeout returns Pi's request timeout as a time.Duration.
func (p PiConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// StorageConfig names the filesystem roots for captured frames and
// rendered timelapses.
type StorageConfig struct {
	ImagesDir string `koanf:"images_dir" validate:"required"`
	VideosDir string `koanf:"videos_dir" validate:"required"`
}

// ProcessingConfig tunes the timelapse worker's encode behavior.
type ProcessingConfig struct {
	VideoFPS       int    `koanf:"video_fps" validate:"gte=1,lte=120"`
	VideoQuality   int    `koanf:"video_quality" validate:"gte=0,lte=51"`
	Codec          string `koanf:"codec"`
	JobTimeout     time.Duration `koanf:"job_timeout"`
	FusionEnabled  bool   `koanf:"fusion_enabled"`
	ArchiveTier    bool   `koanf:"archive_tier_enabled"`

	// FFmpegPath and FusionBinaryPath locate the two external subprocess
	// dependencies the worker shells out to. Both default to a bare
	// command name, resolved against $PATH.
	FFmpegPath       string `koanf:"ffmpeg_path"`
	FusionBinaryPath string `koanf:"fusion_binary_path"`
}

// DatabaseConfig configures the embedded DuckDB ledger file.
type DatabaseConfig struct {
	Path                   string `koanf:"path" validate:"required"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// QueueConfig configures the durable job queue transport.
type QueueConfig struct {
	// Backend selects the transport: "badger" (default, embedded, single
	// host) or "nats" (JetStream, requires the nats build tag).
	Backend       string        `koanf:"backend" validate:"oneof=badger nats"`
	DataDir       string        `koanf:"data_dir"`
	LeaseDuration time.Duration `koanf:"lease_duration"`
	MaxRedeliver  int           `koanf:"max_redeliver" validate:"gte=0"`

	NATSURL      string        `koanf:"nats_url"`
	StreamName   string        `koanf:"stream_name"`
	DurableName  string        `koanf:"durable_name"`
	AckWait      time.Duration `koanf:"ack_wait"`
}

// ServerConfig is the controller's thin status/health HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig mirrors internal/logging.Config in koanf-tagged form.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

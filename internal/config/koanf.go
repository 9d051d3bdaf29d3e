// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order
// of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/skylapse/config.yaml",
	"/etc/skylapse/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "SKYLAPSE_CONFIG"

// envPrefix is stripped from every environment variable before it is
// mapped onto a koanf path, e.g. SKYLAPSE_SERVER_PORT -> server.port.
const envPrefix = "SKYLAPSE_"

func defaultConfig() *Config {
	return &Config{
		Pi: PiConfig{
			Port:           8080,
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			ImagesDir: "/data/images",
			VideosDir: "/data/videos",
		},
		Processing: ProcessingConfig{
			VideoFPS:      30,
			VideoQuality:  20,
			Codec:         "libx264",
			JobTimeout:       20 * time.Minute,
			FusionEnabled:    true,
			ArchiveTier:      true,
			FFmpegPath:       "ffmpeg",
			FusionBinaryPath: "opencv_fusion",
		},
		Database: DatabaseConfig{
			Path:                   "/data/skylapse.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Queue: QueueConfig{
			Backend:       "badger",
			DataDir:       "/data/queue",
			LeaseDuration: 2 * time.Minute,
			MaxRedeliver:  5,
			StreamName:    "SKYLAPSE_JOBS",
			DurableName:   "skylapse-worker",
			AckWait:       5 * time.Minute,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    9090,
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration by layering, in increasing priority: built-in
// defaults, an optional YAML file (found via SKYLAPSE_CONFIG or
// DefaultConfigPaths), then environment variables prefixed SKYLAPSE_.
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed:\n%w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings lists every environment variable Skylapse recognizes,
// mapped to its koanf path. Profiles and schedules are lists of structs
// and are configured exclusively through the YAML file; only scalar
// top-level settings are overridable via environment variables, so a
// table beats a generic underscore-to-dot transform (several field names
// contain underscores themselves, e.g. timeout_seconds).
var envMappings = map[string]string{
	"SKYLAPSE_LOCATION_LATITUDE":  "location.latitude",
	"SKYLAPSE_LOCATION_LONGITUDE": "location.longitude",
	"SKYLAPSE_LOCATION_TIMEZONE":  "location.timezone",

	"SKYLAPSE_PI_HOST":            "pi.host",
	"SKYLAPSE_PI_PORT":            "pi.port",
	"SKYLAPSE_PI_TIMEOUT_SECONDS": "pi.timeout_seconds",
	"SKYLAPSE_PI_USE_TLS":         "pi.use_tls",

	"SKYLAPSE_STORAGE_IMAGES_DIR": "storage.images_dir",
	"SKYLAPSE_STORAGE_VIDEOS_DIR": "storage.videos_dir",

	"SKYLAPSE_PROCESSING_VIDEO_FPS":      "processing.video_fps",
	"SKYLAPSE_PROCESSING_VIDEO_QUALITY":  "processing.video_quality",
	"SKYLAPSE_PROCESSING_CODEC":          "processing.codec",
	"SKYLAPSE_PROCESSING_JOB_TIMEOUT":    "processing.job_timeout",
	"SKYLAPSE_PROCESSING_FUSION_ENABLED": "processing.fusion_enabled",
	"SKYLAPSE_PROCESSING_ARCHIVE_TIER_ENABLED": "processing.archive_tier_enabled",
	"SKYLAPSE_PROCESSING_FFMPEG_PATH":           "processing.ffmpeg_path",
	"SKYLAPSE_PROCESSING_FUSION_BINARY_PATH":    "processing.fusion_binary_path",

	"SKYLAPSE_DATABASE_PATH":                     "database.path",
	"SKYLAPSE_DATABASE_MAX_MEMORY":                "database.max_memory",
	"SKYLAPSE_DATABASE_THREADS":                   "database.threads",
	"SKYLAPSE_DATABASE_PRESERVE_INSERTION_ORDER":  "database.preserve_insertion_order",

	"SKYLAPSE_QUEUE_BACKEND":        "queue.backend",
	"SKYLAPSE_QUEUE_DATA_DIR":       "queue.data_dir",
	"SKYLAPSE_QUEUE_LEASE_DURATION": "queue.lease_duration",
	"SKYLAPSE_QUEUE_MAX_REDELIVER":  "queue.max_redeliver",
	"SKYLAPSE_QUEUE_NATS_URL":       "queue.nats_url",
	"SKYLAPSE_QUEUE_STREAM_NAME":    "queue.stream_name",
	"SKYLAPSE_QUEUE_DURABLE_NAME":   "queue.durable_name",
	"SKYLAPSE_QUEUE_ACK_WAIT":       "queue.ack_wait",

	"SKYLAPSE_SERVER_HOST":    "server.host",
	"SKYLAPSE_SERVER_PORT":    "server.port",
	"SKYLAPSE_SERVER_TIMEOUT": "server.timeout",

	"SKYLAPSE_LOGGING_LEVEL":  "logging.level",
	"SKYLAPSE_LOGGING_FORMAT": "logging.format",
	"SKYLAPSE_LOGGING_CALLER": "logging.caller",
}

// envTransform resolves a recognized SKYLAPSE_ environment variable to its
// koanf path, or returns it unchanged (lowercased, prefix stripped) if
// unrecognized - koanf then silently ignores any key with no matching
// struct field.
func envTransform(key string) string {
	if path, ok := envMappings[key]; ok {
		return path
	}
	return strings.ToLower(strings.TrimPrefix(key, envPrefix))
}

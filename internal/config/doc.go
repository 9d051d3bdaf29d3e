// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates Skylapse's configuration tree.
//
// Load() layers three sources in increasing priority: built-in defaults,
// an optional YAML file (config.yaml by default, or the path named by
// SKYLAPSE_CONFIG), and environment variables prefixed SKYLAPSE_. The
// result is validated before being returned; a validation failure lists
// every problem found, not just the first.
package config

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package encode assembles a session's frame list into one rendered
// timelapse: a concat-demuxer frame list (never a glob, for determinism),
// an optional drawtext/video-filter chain, and an invocation of an
// external encoder. The worker depends only on the Encoder interface;
// FFmpegEncoder is the default implementation.
package encode

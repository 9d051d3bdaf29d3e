// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package encode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/tomtom215/skylapse/internal/metrics"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// stderrTailLimit bounds how much of a failed invocation's stderr is
// attached to the returned error.
const stderrTailLimit = 4096

// defaultTimeout applies when an FFmpegEncoder is built with a zero
// timeout.
const defaultTimeout = 25 * time.Minute

// FFmpegEncoder shells out to ffmpeg for both the concat-demuxer render
// and the still-frame thumbnail extraction.
type FFmpegEncoder struct {
	BinaryPath string
	Timeout    time.Duration
}

var _ Encoder = (*FFmpegEncoder)(nil)

// NewFFmpegEncoder builds an FFmpegEncoder. A zero timeout is replaced
// with defaultTimeout, generous for a high-resolution session's render.
func NewFFmpegEncoder(binaryPath string, timeout time.Duration) *FFmpegEncoder {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FFmpegEncoder{BinaryPath: binaryPath, Timeout: timeout}
}

// Encode invokes ffmpeg against req.ConcatListPath with the concat
// demuxer, the resolved CRF/preset, and the composed filter chain.
func (e *FFmpegEncoder) Encode(ctx context.Context, req EncodeRequest) error {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	codec := req.Codec
	if codec == "" {
		codec = "libx264"
	}
	pixFmt := req.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}

	args := []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-r", strconv.Itoa(req.FPS),
		"-i", req.ConcatListPath,
		"-c:v", codec,
		"-crf", strconv.Itoa(req.CRF),
		"-preset", req.Preset,
		"-pix_fmt", pixFmt,
	}
	if req.FilterChain != "" {
		args = append(args, "-vf", req.FilterChain)
	}
	args = append(args, req.OutputPath)

	start := time.Now()
	err := e.run(ctx, args)
	outcome := "success"
	if err != nil {
		outcome = "encode_failed"
	}
	metrics.RecordEncode(req.QualityTier, outcome, time.Since(start))
	if err != nil {
		return skyerr.New(skyerr.KindEncodeFailed, "encode.Encode", err, "output_path", req.OutputPath)
	}
	return nil
}

// Thumbnail extracts a single still frame at atSeconds into the video.
func (e *FFmpegEncoder) Thumbnail(ctx context.Context, videoPath, outPath string, atSeconds float64) error {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", atSeconds),
		"-i", videoPath,
		"-frames:v", "1",
		outPath,
	}
	if err := e.run(ctx, args); err != nil {
		return skyerr.New(skyerr.KindEncodeFailed, "encode.Thumbnail", err, "video_path", videoPath, "out_path", outPath)
	}
	return nil
}

func (e *FFmpegEncoder) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.Bytes()
		if len(tail) > stderrTailLimit {
			tail = tail[len(tail)-stderrTailLimit:]
		}
		return fmt.Errorf("%w: %s", err, string(tail))
	}
	return nil
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package fusion

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/tomtom215/skylapse/internal/skyerr"
)

// stderrTailLimit bounds how much of a failed invocation's stderr is
// attached to the returned error.
const stderrTailLimit = 4096

// defaultTimeout applies when a MertensFuser is built with a zero
// Timeout -- generous for fusing a handful of raw frames.
const defaultTimeout = 2 * time.Minute

// MertensFuser fuses a bracket set by shelling out to an external,
// OpenCV-backed fusion binary, the same subprocess-wrapper shape
// internal/encode uses for ffmpeg: context-bound timeout, captured
// stderr tail on failure.
type MertensFuser struct {
	BinaryPath string
	Timeout    time.Duration
}

var _ Fuser = (*MertensFuser)(nil)

// NewMertensFuser builds a MertensFuser. A zero timeout is replaced with
// defaultTimeout.
func NewMertensFuser(binaryPath string, timeout time.Duration) *MertensFuser {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &MertensFuser{BinaryPath: binaryPath, Timeout: timeout}
}

// Fuse runs `<binary> mertens -o <outPath> <sourcePaths...>`, the CLI
// shim's equal-weight Mertens exposure fusion mode.
func (f *MertensFuser) Fuse(ctx context.Context, sourcePaths []string, outPath string) error {
	if len(sourcePaths) < 2 {
		return skyerr.New(skyerr.KindFusionFailed, "fusion.Fuse",
			fmt.Errorf("need at least 2 source frames, got %d", len(sourcePaths)), "out_path", outPath)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	args := append([]string{"mertens", "-o", outPath}, sourcePaths...)
	cmd := exec.CommandContext(ctx, f.BinaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.Bytes()
		if len(tail) > stderrTailLimit {
			tail = tail[len(tail)-stderrTailLimit:]
		}
		return skyerr.New(skyerr.KindFusionFailed, "fusion.Fuse", err, "out_path", outPath, "stderr", string(tail))
	}
	return nil
}

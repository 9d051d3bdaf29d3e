// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package encode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteConcatList writes an ffmpeg concat-demuxer list file for
// framePaths, in order, to dir. This is the determinism guarantee the
// worker relies on instead of a glob: the encoder reads exactly this
// ordered list, nothing more, nothing less.
//
// The final entry is repeated without a duration directive, which is the
// documented ffmpeg concat-demuxer workaround for its own quirk of
// ignoring the last duration line; without the repeat, the rendered video
// would be one frame-interval short.
func WriteConcatList(dir string, framePaths []string, frameDuration time.Duration) (string, error) {
	if len(framePaths) == 0 {
		return "", fmt.Errorf("encode: no frames to concat")
	}

	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	seconds := frameDuration.Seconds()
	for _, p := range framePaths {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(p))
		fmt.Fprintf(&b, "duration %.6f\n", seconds)
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(framePaths[len(framePaths)-1]))

	listPath := filepath.Join(dir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("encode: write concat list: %w", err)
	}
	return listPath, nil
}

func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

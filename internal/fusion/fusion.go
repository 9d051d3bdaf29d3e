// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package fusion

import "context"

// Fuser merges sourcePaths -- already resolved to full filesystem paths,
// in bracket order -- into one fused HDR frame written to outPath.
type Fuser interface {
	Fuse(ctx context.Context, sourcePaths []string, outPath string) error
}

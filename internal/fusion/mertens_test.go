// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package fusion_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/skylapse/internal/fusion"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

func writeFakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-fusion.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestMertensFuser_Fuse_SuccessWritesOutput(t *testing.T) {
	bin := writeFakeBinary(t, `
out="$3"
echo fused > "$out"
`)
	f := fusion.NewMertensFuser(bin, 0)

	outPath := filepath.Join(t.TempDir(), "out_hdr.jpg")
	err := f.Fuse(context.Background(), []string{"/a.jpg", "/b.jpg", "/c.jpg"}, outPath)

	require.NoError(t, err)
	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Equal(t, "fused\n", string(data))
}

func TestMertensFuser_Fuse_NonZeroExitFails(t *testing.T) {
	bin := writeFakeBinary(t, `echo "boom" 1>&2; exit 1`)
	f := fusion.NewMertensFuser(bin, 0)

	err := f.Fuse(context.Background(), []string{"/a.jpg", "/b.jpg"}, filepath.Join(t.TempDir(), "out.jpg"))

	require.Error(t, err)
	assert.True(t, skyerr.Is(err, skyerr.KindFusionFailed))
}

func TestMertensFuser_Fuse_FewerThanTwoSourcesFails(t *testing.T) {
	f := fusion.NewMertensFuser("/bin/true", 0)
	err := f.Fuse(context.Background(), []string{"/a.jpg"}, "/out.jpg")
	assert.Error(t, err)
}

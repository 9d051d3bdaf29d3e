// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/orchestrator"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

type stubAdapter struct {
	captureCalls int
	failCapture  bool
	failDownload bool
}

func (s *stubAdapter) Capture(ctx context.Context, settings models.CaptureSettings) (string, *models.CaptureSettings, error) {
	s.captureCalls++
	if s.failCapture {
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "test", errors.New("down"))
	}
	return "frame.jpg", nil, nil
}

func (s *stubAdapter) Download(ctx context.Context, profileID, filename string) ([]byte, error) {
	if s.failDownload {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "test", errors.New("timeout"))
	}
	return []byte("jpegbytes"), nil
}

type stubPlanner struct {
	settings models.CaptureSettings
}

func (p stubPlanner) Plan(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID string, loc models.Location, at time.Time) models.CaptureSettings {
	return p.settings
}

type stubLedger struct {
	recorded []models.Capture
}

func (l *stubLedger) RecordCapture(ctx context.Context, sessionID string, c models.Capture) (*models.Capture, error) {
	l.recorded = append(l.recorded, c)
	return &c, nil
}

func newOrchestrator(t *testing.T, adapter *stubAdapter, planner stubPlanner, ledger *stubLedger) *orchestrator.Orchestrator {
	t.Helper()
	o := orchestrator.New(adapter, planner, ledger, models.Location{Latitude: 1, Longitude: 1, Timezone: "UTC"}, t.TempDir(), zerolog.Nop())
	o.Sleep = func(time.Duration) {} // no real settle delay in tests
	return o
}

func TestRunBurst_SingleFrameRecordsOneCapture(t *testing.T) {
	adapter := &stubAdapter{}
	ledger := &stubLedger{}
	o := newOrchestrator(t, adapter, stubPlanner{settings: models.CaptureSettings{Profile: "a", ISO: 100, ShutterSpeed: "1/125"}}, ledger)

	err := o.RunBurst(context.Background(), models.Profile{ID: "a"}, models.Schedule{Name: "sunrise"}, "sess1")

	require.NoError(t, err)
	require.Len(t, ledger.recorded, 1)
	assert.False(t, ledger.recorded[0].IsBracket)
	assert.Equal(t, "frame.jpg", ledger.recorded[0].Filename)

	data, err := os.ReadFile(filepath.Join(o.ImagesDir, "profile-a", "frame.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegbytes"), data)
}

func TestRunBurst_BracketingRecordsOneCapturePerOffset(t *testing.T) {
	adapter := &stubAdapter{}
	ledger := &stubLedger{}
	settings := models.CaptureSettings{Profile: "a", ISO: 100, ShutterSpeed: "1/125", BracketCount: 3, BracketEV: []float64{-1, 0, 1}}
	o := newOrchestrator(t, adapter, stubPlanner{settings: settings}, ledger)

	err := o.RunBurst(context.Background(), models.Profile{ID: "a"}, models.Schedule{Name: "sunrise"}, "sess1")

	require.NoError(t, err)
	require.Len(t, ledger.recorded, 3)
	for i, c := range ledger.recorded {
		assert.True(t, c.IsBracket)
		assert.Equal(t, i, c.BracketIndex)
	}
	assert.Equal(t, 3, adapter.captureCalls)
}

func TestRunBurst_AllFramesFailReturnsError(t *testing.T) {
	adapter := &stubAdapter{failCapture: true}
	ledger := &stubLedger{}
	o := newOrchestrator(t, adapter, stubPlanner{settings: models.CaptureSettings{Profile: "a"}}, ledger)

	err := o.RunBurst(context.Background(), models.Profile{ID: "a"}, models.Schedule{Name: "sunrise"}, "sess1")

	assert.Error(t, err)
	assert.True(t, skyerr.Is(err, skyerr.KindAdapterUnavailable))
	assert.Empty(t, ledger.recorded)
}

func TestRunBurst_PartialBracketFailureStillRecordsSuccessfulFrames(t *testing.T) {
	adapter := &stubAdapter{}
	ledger := &stubLedger{}
	settings := models.CaptureSettings{Profile: "a", BracketCount: 3, BracketEV: []float64{-1, 0, 1}}
	o := newOrchestrator(t, adapter, stubPlanner{settings: settings}, ledger)

	// First download fails, then succeeds for the rest, by flipping the
	// flag after the first call via a small wrapper.
	calls := 0
	o.Adapter = downloadFlakyAdapter{stubAdapter: adapter, failFirstN: 1, calls: &calls}

	err := o.RunBurst(context.Background(), models.Profile{ID: "a"}, models.Schedule{Name: "sunrise"}, "sess1")

	require.NoError(t, err)
	assert.Len(t, ledger.recorded, 2)
}

type downloadFlakyAdapter struct {
	*stubAdapter
	failFirstN int
	calls      *int
}

func (d downloadFlakyAdapter) Download(ctx context.Context, profileID, filename string) ([]byte, error) {
	*d.calls++
	if *d.calls <= d.failFirstN {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "test", errors.New("timeout"))
	}
	return []byte("jpegbytes"), nil
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/encode"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/worker"
)

type stubLedger struct {
	captures            []models.Capture
	hasTimelapse        bool
	fusionResults       []models.Capture
	recordedTimelapses  []models.Timelapse
	markedGenerated     bool
	failGetCaptures     bool
	failRecordTimelapse bool
	nextFusionID        int
}

func (l *stubLedger) GetCaptures(ctx context.Context, sessionID string) ([]models.Capture, error) {
	if l.failGetCaptures {
		return nil, errors.New("db down")
	}
	return l.captures, nil
}

func (l *stubLedger) RecordFusionResult(ctx context.Context, sessionID string, sourceCaptureIDs []string, result models.Capture) (*models.Capture, error) {
	l.nextFusionID++
	result.ID = "hdr-" + string(rune('0'+l.nextFusionID))
	result.IsHDRResult = true
	result.SourceBracketIDs = sourceCaptureIDs
	l.fusionResults = append(l.fusionResults, result)
	return &result, nil
}

func (l *stubLedger) RecordTimelapse(ctx context.Context, t models.Timelapse) (*models.Timelapse, error) {
	if l.failRecordTimelapse {
		return nil, errors.New("ledger tx failed")
	}
	l.recordedTimelapses = append(l.recordedTimelapses, t)
	return &t, nil
}

func (l *stubLedger) MarkTimelapseGenerated(ctx context.Context, sessionID string) error {
	l.markedGenerated = true
	return nil
}

func (l *stubLedger) HasTimelapse(ctx context.Context, sessionID string, tier models.QualityTier) (bool, error) {
	return l.hasTimelapse, nil
}

type stubFuser struct {
	fail    bool
	fuseErr error
	calls   int
}

func (f *stubFuser) Fuse(ctx context.Context, sourcePaths []string, outPath string) error {
	f.calls++
	if f.fail {
		return f.fuseErr
	}
	return os.WriteFile(outPath, []byte("fused"), 0o644)
}

type stubEncoder struct {
	encodeErr   error
	thumbErr    error
	encodeCalls int
}

func (e *stubEncoder) Encode(ctx context.Context, req encode.EncodeRequest) error {
	e.encodeCalls++
	if e.encodeErr != nil {
		return e.encodeErr
	}
	return os.WriteFile(req.OutputPath, []byte("video"), 0o644)
}

func (e *stubEncoder) Thumbnail(ctx context.Context, videoPath, outPath string, atSeconds float64) error {
	if e.thumbErr != nil {
		return e.thumbErr
	}
	return os.WriteFile(outPath, []byte("thumb"), 0o644)
}

func newWorker(t *testing.T, ledger worker.Ledger, fuser *stubFuser, encoder *stubEncoder) (*worker.Worker, string, string) {
	t.Helper()
	imagesDir := t.TempDir()
	videosDir := t.TempDir()
	profile := models.Profile{ID: "a"}
	schedule := models.Schedule{Name: "sunrise", StackImagesUseFused: true}
	processing := config.ProcessingConfig{VideoFPS: 10, VideoQuality: 23, FusionEnabled: fuser != nil}

	w := worker.New(ledger, fuser, encoder, []models.Profile{profile}, []models.Schedule{schedule}, imagesDir, videosDir, processing, zerolog.Nop())
	return w, imagesDir, videosDir
}

func writeFrame(t *testing.T, imagesDir, profileID, filename string) {
	t.Helper()
	dir := filepath.Join(imagesDir, "profile-"+profileID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte("jpeg"), 0o644))
}

func TestProcess_NoCapturesIsNoOp(t *testing.T) {
	ledger := &stubLedger{}
	w, _, _ := newWorker(t, ledger, nil, &stubEncoder{})

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.NoError(t, err)
	assert.Empty(t, ledger.recordedTimelapses)
}

func TestProcess_AlreadyRecordedIsIdempotentNoOp(t *testing.T) {
	ledger := &stubLedger{hasTimelapse: true, captures: []models.Capture{{ID: "c1", Filename: "f1.jpg"}}}
	w, imagesDir, _ := newWorker(t, ledger, nil, &stubEncoder{})
	writeFrame(t, imagesDir, "a", "f1.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.NoError(t, err)
	assert.Empty(t, ledger.recordedTimelapses)
}

func TestProcess_MissingFrameFailsFast(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{{ID: "c1", Filename: "missing.jpg"}}}
	w, _, _ := newWorker(t, ledger, nil, &stubEncoder{})

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.Error(t, err)
}

func TestProcess_SimpleSessionEncodesAndRecords(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{
		{ID: "c1", Filename: "f1.jpg"},
		{ID: "c2", Filename: "f2.jpg"},
	}}
	encoder := &stubEncoder{}
	w, imagesDir, videosDir := newWorker(t, ledger, nil, encoder)
	writeFrame(t, imagesDir, "a", "f1.jpg")
	writeFrame(t, imagesDir, "a", "f2.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101", QualityTier: models.TierPreview})

	require.NoError(t, err)
	require.Len(t, ledger.recordedTimelapses, 1)
	_ = videosDir
}

func TestProcess_PreviewTierMarksSessionGenerated(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{{ID: "c1", Filename: "f1.jpg"}}}
	w, imagesDir, _ := newWorker(t, ledger, nil, &stubEncoder{})
	writeFrame(t, imagesDir, "a", "f1.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101", QualityTier: models.TierPreview})

	require.NoError(t, err)
	assert.True(t, ledger.markedGenerated)
}

func TestProcess_ArchiveTierDoesNotMarkSessionGenerated(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{{ID: "c1", Filename: "f1.jpg"}}}
	w, imagesDir, _ := newWorker(t, ledger, nil, &stubEncoder{})
	writeFrame(t, imagesDir, "a", "f1.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101", QualityTier: models.TierArchive})

	require.NoError(t, err)
	assert.False(t, ledger.markedGenerated)
}

func TestProcess_EncodeFailurePropagatesError(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{{ID: "c1", Filename: "f1.jpg"}}}
	encoder := &stubEncoder{encodeErr: errors.New("ffmpeg exited 1")}
	w, imagesDir, _ := newWorker(t, ledger, nil, encoder)
	writeFrame(t, imagesDir, "a", "f1.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.Error(t, err)
	assert.Empty(t, ledger.recordedTimelapses)
}

func TestProcess_FusesBracketSetAndUsesFusedFrame(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{
		{ID: "b1", Filename: "b1.jpg", IsBracket: true, BracketIndex: 0},
		{ID: "b2", Filename: "b2.jpg", IsBracket: true, BracketIndex: 1},
	}}
	fuser := &stubFuser{}
	encoder := &stubEncoder{}
	w, imagesDir, _ := newWorker(t, ledger, fuser, encoder)
	writeFrame(t, imagesDir, "a", "b1.jpg")
	writeFrame(t, imagesDir, "a", "b2.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.NoError(t, err)
	assert.Equal(t, 1, fuser.calls)
	require.Len(t, ledger.fusionResults, 1)
	require.Len(t, ledger.recordedTimelapses, 1)
	assert.Equal(t, 1, ledger.recordedTimelapses[0].FrameCount)
}

func TestProcess_FusionFailureFallsBackToFirstFrame(t *testing.T) {
	ledger := &stubLedger{captures: []models.Capture{
		{ID: "b1", Filename: "b1.jpg", IsBracket: true, BracketIndex: 0},
		{ID: "b2", Filename: "b2.jpg", IsBracket: true, BracketIndex: 1},
	}}
	fuser := &stubFuser{fail: true, fuseErr: errors.New("opencv_fusion: bad input")}
	encoder := &stubEncoder{}
	w, imagesDir, _ := newWorker(t, ledger, fuser, encoder)
	writeFrame(t, imagesDir, "a", "b1.jpg")
	writeFrame(t, imagesDir, "a", "b2.jpg")

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.NoError(t, err)
	require.Empty(t, ledger.fusionResults)
	require.Len(t, ledger.recordedTimelapses, 1)
	assert.Equal(t, 1, ledger.recordedTimelapses[0].FrameCount)
}

func TestProcess_LedgerErrorOnGetCapturesPropagates(t *testing.T) {
	ledger := &stubLedger{failGetCaptures: true}
	w, _, _ := newWorker(t, ledger, nil, &stubEncoder{})

	err := w.Process(context.Background(), models.TimelapseJob{SessionID: "s1", ProfileID: "a", ScheduleName: "sunrise", Date: "20260101"})

	require.Error(t, err)
}

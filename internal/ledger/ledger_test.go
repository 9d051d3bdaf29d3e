// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/ledger"
	"github.com/tomtom215/skylapse/internal/models"
)

// testDBSemaphore serializes DuckDB connection creation across tests in this
// package; concurrent CGO connection setup has been observed to hang under
// CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	l, err := ledger.New(config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestGetOrCreateSession_IsIdempotent(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", now)
	require.NoError(t, err)

	second, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", now.Add(time.Minute))
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, ledger.SessionID("a", "20260701", "sunrise"), first.ID)
	require.Equal(t, models.SessionActive, second.Status)
}

func TestWasActive_DefaultsFalseForUnknownSession(t *testing.T) {
	l := setupTestLedger(t)
	wasActive, err := l.GetWasActive(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.False(t, wasActive)
}

func TestUpdateWasActive_RoundTrips(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	s, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, l.UpdateWasActive(ctx, s.ID, true))
	wasActive, err := l.GetWasActive(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, wasActive)

	require.NoError(t, l.UpdateWasActive(ctx, s.ID, false))
	wasActive, err = l.GetWasActive(ctx, s.ID)
	require.NoError(t, err)
	require.False(t, wasActive)
}

func TestRecordCapture_UpdatesRunningAggregates(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	s, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	luxValues := []float64{100, 300, 200}
	for _, lux := range luxValues {
		_, err := l.RecordCapture(ctx, s.ID, models.Capture{
			Filename: "frame.jpg",
			Settings: models.CaptureSettings{
				Profile: "a", ISO: 400, ShutterSpeed: "1/500", Lux: lux, WBTempKelvin: 5500,
			},
		})
		require.NoError(t, err)
	}

	updated, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	require.Equal(t, 3, updated.ImageCount)
	require.InDelta(t, 200.0, *updated.LuxAvg, 0.001)
	require.InDelta(t, 100.0, *updated.LuxMin, 0.001)
	require.InDelta(t, 300.0, *updated.LuxMax, 0.001)
	require.Equal(t, 400, *updated.ISOMin)
	require.Equal(t, 400, *updated.ISOMax)
}

func TestGetCaptures_OrderedByTimestamp(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	s, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	base := time.Now().UTC()
	for i, name := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		_, err := l.RecordCapture(ctx, s.ID, models.Capture{
			Filename:  name,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Settings:  models.CaptureSettings{Profile: "a", ISO: 100, ShutterSpeed: "1/250"},
		})
		require.NoError(t, err)
	}

	captures, err := l.GetCaptures(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, captures, 3)
	require.Equal(t, "c.jpg", captures[0].Filename)
	require.Equal(t, "b.jpg", captures[2].Filename)
}

func TestRecordFusionResult_LinksSourceBrackets(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	s, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	var sourceIDs []string
	for i := 0; i < 3; i++ {
		c, err := l.RecordCapture(ctx, s.ID, models.Capture{
			Filename:     "bracket.jpg",
			IsBracket:    true,
			BracketIndex: i,
			Settings:     models.CaptureSettings{Profile: "a", ISO: 100, ShutterSpeed: "1/250"},
		})
		require.NoError(t, err)
		sourceIDs = append(sourceIDs, c.ID)
	}

	fused, err := l.RecordFusionResult(ctx, s.ID, sourceIDs, models.Capture{
		Filename: "fused.jpg",
		Settings: models.CaptureSettings{Profile: "a", ISO: 100, ShutterSpeed: "1/250"},
	})
	require.NoError(t, err)
	require.True(t, fused.IsHDRResult)
	require.Len(t, fused.SourceBracketIDs, 3)

	captures, err := l.GetCaptures(ctx, s.ID)
	require.NoError(t, err)
	for _, c := range captures {
		if c.IsBracket {
			require.Equal(t, fused.ID, c.HDRResultID)
		}
	}
}

func TestMarkSessionComplete_AndTimelapseGenerated(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	s, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, l.MarkSessionComplete(ctx, s.ID, time.Now().UTC()))
	require.NoError(t, l.MarkTimelapseGenerated(ctx, s.ID))

	has, err := l.HasTimelapse(ctx, s.ID, models.TierPreview)
	require.NoError(t, err)
	require.False(t, has)

	_, err = l.RecordTimelapse(ctx, models.Timelapse{
		SessionID: s.ID, Filename: "out.mp4", AbsolutePath: "/data/videos/out.mp4",
		SizeMB: 12.5, FrameCount: 10, FPS: 30, QualityLabel: "preview",
		QualityTier: models.TierPreview, ProfileID: "a", ScheduleName: "sunrise", Date: "20260701",
	})
	require.NoError(t, err)

	has, err = l.HasTimelapse(ctx, s.ID, models.TierPreview)
	require.NoError(t, err)
	require.True(t, has)
}

func TestGetTimelapses_FiltersByQualityTier(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	for _, tier := range []models.QualityTier{models.TierPreview, models.TierArchive} {
		_, err := l.RecordTimelapse(ctx, models.Timelapse{
			SessionID: "a_20260701_sunrise", Filename: string(tier) + ".mp4",
			AbsolutePath: "/data/videos/" + string(tier) + ".mp4",
			SizeMB: 1, FrameCount: 10, FPS: 30, QualityLabel: string(tier),
			QualityTier: tier, ProfileID: "a", ScheduleName: "sunrise", Date: "20260701",
		})
		require.NoError(t, err)
	}

	archiveOnly, err := l.GetTimelapses(ctx, models.TimelapseFilter{QualityTier: models.TierArchive})
	require.NoError(t, err)
	require.Len(t, archiveOnly, 1)
	require.Equal(t, models.TierArchive, archiveOnly[0].QualityTier)
}

func TestRecordCapture_SequentialBurstStaysConsistent(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	s, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)

	const n = 20
	for i := 0; i < n; i++ {
		_, err := l.RecordCapture(ctx, s.ID, models.Capture{
			Filename: "frame.jpg",
			Settings: models.CaptureSettings{Profile: "a", ISO: 100, ShutterSpeed: "1/250", Lux: 150},
		})
		require.NoError(t, err)
	}

	updated, err := l.GetOrCreateSession(ctx, "a", "sunrise", "20260701", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, n, updated.ImageCount)
}

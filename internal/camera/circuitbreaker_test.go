// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package camera_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/skylapse/internal/camera"
	"github.com/tomtom215/skylapse/internal/models"
)

func TestCircuitBreakerClient_TripsOpenAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	inner := newTestClient(t, srv)
	cb := camera.NewCircuitBreakerClient(inner, "test-adapter")

	for i := 0; i < 10; i++ {
		_, _, err := cb.Capture(context.Background(), models.CaptureSettings{Profile: "a"})
		assert.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, _, err := cb.Capture(context.Background(), models.CaptureSettings{Profile: "a"})
	assert.Error(t, err)
}

func TestCircuitBreakerClient_PassesThroughOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","image_path":"f.jpg"}`))
	}))
	defer srv.Close()

	inner := newTestClient(t, srv)
	cb := camera.NewCircuitBreakerClient(inner, "test-adapter-2")

	path, _, err := cb.Capture(context.Background(), models.CaptureSettings{Profile: "a"})
	require.NoError(t, err)
	assert.Equal(t, "f.jpg", path)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

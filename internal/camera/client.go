// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package camera is the HTTP client for the Raspberry Pi camera adapter.
// It implements the three mandated endpoints (POST /capture, GET
// /images/profile-{id}/{filename}, GET /health) plus an additive GET
// /meter/profile-{id} ambient-light query the exposure planner's Meterer
// interface needs; the mandated contract defines no metering endpoint, so
// this one is documented as a Skylapse extension rather than treated as
// part of it.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// Client talks to one camera adapter instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// CaptureResponse is the adapter's POST /capture response. ImagePath names
// the basename a subsequent GET /images/profile-{id}/{filename} fetches;
// SettingsEcho, when present, is the settings the adapter actually applied
// (a camera may clamp a requested value to its own supported range).
type CaptureResponse struct {
	Status       string                  `json:"status"`
	ImagePath    string                  `json:"image_path"`
	SettingsEcho *models.CaptureSettings `json:"settings_echo,omitempty"`
}

// meterResponse is the adapter's GET /meter/profile-{id} response body.
type meterResponse struct {
	Lux float64 `json:"lux"`
}

// New builds a Client from the Pi adapter's network config.
func New(cfg config.PiConfig) *Client {
	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}
	return &Client{
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Capture requests one exposure from the adapter and returns the image
// path it was written under, plus the settings the adapter actually
// applied, if it echoed them. The adapter performs the actual exposure
// synchronously and responds once the frame is on disk. A non-"success"
// status or an empty image_path is treated as failure, per the adapter
// contract — both surface as the same KindAdapterUnavailable error so
// callers don't need to special-case the two shapes of a bad response.
func (c *Client) Capture(ctx context.Context, settings models.CaptureSettings) (string, *models.CaptureSettings, error) {
	body, err := json.Marshal(settings)
	if err != nil {
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Capture", err, "profile", settings.Profile)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/capture", bytes.NewReader(body))
	if err != nil {
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Capture", err, "profile", settings.Profile)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Capture", err, "profile", settings.Profile)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Capture",
			fmt.Errorf("adapter returned status %d: %s", resp.StatusCode, string(b)),
			"profile", settings.Profile, "status", resp.StatusCode)
	}

	var out CaptureResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Capture", err, "profile", settings.Profile)
	}
	if out.Status != "success" || out.ImagePath == "" {
		return "", nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Capture",
			fmt.Errorf("adapter reported status %q with image_path %q", out.Status, out.ImagePath),
			"profile", settings.Profile)
	}
	return out.ImagePath, out.SettingsEcho, nil
}

// Download fetches a previously captured frame's bytes.
func (c *Client) Download(ctx context.Context, profileID, filename string) ([]byte, error) {
	url := fmt.Sprintf("%s/images/profile-%s/%s", c.baseURL, profileID, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "camera.Download", err, "profile", profileID, "filename", filename)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "camera.Download", err, "profile", profileID, "filename", filename)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "camera.Download",
			fmt.Errorf("adapter returned status %d", resp.StatusCode),
			"profile", profileID, "filename", filename, "status", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "camera.Download", err, "profile", profileID, "filename", filename)
	}
	if len(data) == 0 {
		return nil, skyerr.New(skyerr.KindDownloadFailed, "camera.Download",
			fmt.Errorf("adapter returned zero-length image"), "profile", profileID, "filename", filename)
	}
	return data, nil
}

// Health checks the adapter's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return skyerr.New(skyerr.KindAdapterUnavailable, "camera.Health", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return skyerr.New(skyerr.KindAdapterUnavailable, "camera.Health", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return skyerr.New(skyerr.KindAdapterUnavailable, "camera.Health",
			fmt.Errorf("adapter returned status %d", resp.StatusCode), "status", resp.StatusCode)
	}
	return nil
}

// Meter queries the adapter's ambient-light reading for a profile. This
// satisfies internal/exposure.Meterer.
func (c *Client) Meter(ctx context.Context, profileID string) (float64, error) {
	url := fmt.Sprintf("%s/meter/profile-%s", c.baseURL, profileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Meter", err, "profile", profileID)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Meter", err, "profile", profileID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Meter",
			fmt.Errorf("adapter returned status %d", resp.StatusCode), "profile", profileID, "status", resp.StatusCode)
	}

	var out meterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, skyerr.New(skyerr.KindAdapterUnavailable, "camera.Meter", err, "profile", profileID)
	}
	return out.Lux, nil
}

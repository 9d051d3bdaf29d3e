// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package httpapi exposes Skylapse's thin HTTP surface: liveness,
// readiness, health, and Prometheus metrics. It carries no business
// endpoints of its own; the scheduler, exposure planner, ledger, and
// worker all run without it.
package httpapi

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/skylapse/internal/logging"
)

// Response is the standardized envelope for every httpapi JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError carries a machine-readable error code and a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries response metadata shared by every endpoint.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// Error codes used across the health handlers.
const (
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

func respondJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal httpapi response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write httpapi response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &Response{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &Meta{Timestamp: time.Now()},
	})
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Timestamp: time.Now()},
	})
}

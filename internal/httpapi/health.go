// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by the ledger connection backing a Handler's
// readiness check. *ledger.Ledger implements this directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves Skylapse's health, liveness, and readiness endpoints.
type Handler struct {
	ledger    Pinger
	startTime time.Time
}

// NewHandler builds a Handler. ledger may be nil in tests that only
// exercise liveness.
func NewHandler(ledger Pinger) *Handler {
	return &Handler{ledger: ledger, startTime: time.Now()}
}

// Health reports overall status: the ledger connection and process uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	ledgerConnected := h.pingLedger(r.Context())
	status := "healthy"
	if !ledgerConnected {
		status = "degraded"
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"status":            status,
		"ledger_connected":  ledgerConnected,
		"uptime_seconds":    time.Since(h.startTime).Seconds(),
	})
}

// HealthLive answers a Kubernetes-style liveness probe: 200 as long as
// the process is running, regardless of dependency state.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers a Kubernetes-style readiness probe: 200 only once
// the ledger connection is up, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	ready := h.pingLedger(r.Context())
	status := http.StatusOK
	label := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		label = "not_ready"
	}

	respondData(w, status, map[string]interface{}{
		"status":           label,
		"ledger_connected": ready,
		"uptime_seconds":   time.Since(h.startTime).Seconds(),
	})
}

func (h *Handler) pingLedger(ctx context.Context) bool {
	if h.ledger == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.ledger.Ping(ctx) == nil
}

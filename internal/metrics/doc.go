// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus instrumentation for the controller
// and worker processes.
//
// Metrics are exposed at /metrics by internal/httpapi and cover six
// areas: the scheduler's tick loop and window transitions, camera capture
// outcomes and the adapter's circuit breaker state, ledger transaction
// latency, work-queue depth and redeliveries, the timelapse worker's
// job/fusion/encode pipeline, and requests to the HTTP status surface.
//
//	curl http://localhost:9090/metrics
package metrics

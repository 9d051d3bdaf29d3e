// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics declares every Prometheus metric Skylapse exports and a
// thin set of Record* helpers so call sites never touch a prometheus.*
// type directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scheduler Metrics

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skylapse_scheduler_tick_duration_seconds",
			Help:    "Duration of one scheduler tick across every enabled schedule",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScheduleWindowActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skylapse_schedule_window_active",
			Help: "1 if a schedule's capture window is currently open, else 0",
		},
		[]string{"schedule"},
	)

	TimelapseJobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_timelapse_jobs_enqueued_total",
			Help: "Total number of timelapse jobs enqueued at window close",
		},
		[]string{"schedule"},
	)

	// Capture Metrics

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_captures_total",
			Help: "Total number of captures attempted, by profile and outcome",
		},
		[]string{"profile", "outcome"}, // outcome: "success", "adapter_unavailable", "download_failed"
	)

	CaptureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skylapse_capture_duration_seconds",
			Help:    "Duration of a single capture-and-download round trip",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"profile"},
	)

	CaptureLux = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skylapse_capture_lux",
			Help: "Most recently metered lux value, by profile",
		},
		[]string{"profile"},
	)

	CaptureISO = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skylapse_capture_iso",
			Help: "Most recently planned ISO value, by profile",
		},
		[]string{"profile"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skylapse_camera_circuit_breaker_state",
			Help: "Camera adapter circuit breaker state: 0=closed, 1=half-open, 2=open",
		},
		[]string{"profile"},
	)

	// Ledger Metrics

	LedgerTxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skylapse_ledger_tx_duration_seconds",
			Help:    "Duration of a ledger transaction, by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	LedgerTxErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_ledger_tx_errors_total",
			Help: "Total number of failed ledger transactions, by operation",
		},
		[]string{"operation"},
	)

	// Queue Metrics

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skylapse_queue_depth",
			Help: "Current number of undelivered jobs on the work queue",
		},
		[]string{"backend"},
	)

	QueueRedeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_queue_redeliveries_total",
			Help: "Total number of jobs redelivered after a consumer timeout",
		},
		[]string{"backend"},
	)

	// Timelapse Worker Metrics

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_worker_jobs_processed_total",
			Help: "Total number of timelapse jobs processed, by outcome",
		},
		[]string{"outcome"}, // "success", "fusion_failed", "encode_failed", "frame_missing"
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skylapse_worker_job_duration_seconds",
			Help:    "Duration of one end-to-end timelapse job, by quality tier",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"quality_tier"},
	)

	FusionInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_fusion_invocations_total",
			Help: "Total number of HDR bracket fusion attempts, by outcome",
		},
		[]string{"outcome"},
	)

	EncodeInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_encode_invocations_total",
			Help: "Total number of encoder subprocess invocations, by outcome",
		},
		[]string{"outcome"},
	)

	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skylapse_encode_duration_seconds",
			Help:    "Duration of a single ffmpeg encode invocation, by quality tier",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"quality_tier"},
	)

	// HTTP API Metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skylapse_http_requests_total",
			Help: "Total number of HTTP API requests, by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skylapse_http_request_duration_seconds",
			Help:    "Duration of an HTTP API request, by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActiveHTTPRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skylapse_http_active_requests",
			Help: "Current number of in-flight HTTP API requests",
		},
	)
)

// RecordCapture records the outcome and duration of one capture attempt.
func RecordCapture(profile, outcome string, duration time.Duration) {
	CapturesTotal.WithLabelValues(profile, outcome).Inc()
	CaptureDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

// RecordLedgerTx records the duration of a ledger operation and, on
// failure, increments its error counter.
func RecordLedgerTx(operation string, duration time.Duration, err error) {
	LedgerTxDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		LedgerTxErrors.WithLabelValues(operation).Inc()
	}
}

// RecordJob records the outcome and total duration of one timelapse job.
func RecordJob(outcome, qualityTier string, duration time.Duration) {
	JobsProcessed.WithLabelValues(outcome).Inc()
	if qualityTier != "" {
		JobDuration.WithLabelValues(qualityTier).Observe(duration.Seconds())
	}
}

// RecordFusion records the outcome of one HDR bracket-fusion attempt.
func RecordFusion(outcome string) {
	FusionInvocations.WithLabelValues(outcome).Inc()
}

// RecordEncode records the outcome and duration of one encoder invocation.
func RecordEncode(qualityTier, outcome string, duration time.Duration) {
	EncodeInvocations.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		EncodeDuration.WithLabelValues(qualityTier).Observe(duration.Seconds())
	}
}

// RecordAPIRequest records one completed HTTP API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		ActiveHTTPRequests.Inc()
		return
	}
	ActiveHTTPRequests.Dec()
}

// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the Skylapse controller process.
//
// The controller owns the capture side of the pipeline: it runs the
// scheduler's tick loop, which drives the exposure planner and camera
// adapter through a burst on every active schedule window and records
// each resulting frame in the ledger. On window close it enqueues a
// timelapse render job onto the durable job queue for cmd/worker to pick
// up. It also serves a thin HTTP surface (liveness, readiness, health,
// Prometheus metrics) — no capture or rendering logic is reachable over
// HTTP.
//
// # Initialization order
//
//  1. Configuration: koanf-layered config (defaults -> config.yaml -> env)
//  2. Logging: zerolog, configured from the loaded config
//  3. Ledger: embedded DuckDB connection
//  4. Job queue: badger (default, embedded) or nats (JetStream), selected
//     by queue.backend
//  5. Camera adapter: HTTP client to the Pi capture service, wrapped in a
//     circuit breaker
//  6. Exposure planner and capture orchestrator
//  7. Scheduler: the tick loop driving the above on every schedule window
//  8. Supervisor tree: scheduler on the messaging layer, HTTP server on
//     the API layer
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the scheduler finishes
// its in-flight tick, the HTTP server drains in-flight requests, and the
// ledger and queue connections are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/skylapse/internal/camera"
	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/exposure"
	"github.com/tomtom215/skylapse/internal/httpapi"
	"github.com/tomtom215/skylapse/internal/ledger"
	"github.com/tomtom215/skylapse/internal/logging"
	"github.com/tomtom215/skylapse/internal/orchestrator"
	"github.com/tomtom215/skylapse/internal/scheduler"
	"github.com/tomtom215/skylapse/internal/supervisor"
	"github.com/tomtom215/skylapse/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Int("profiles", len(cfg.Profiles)).
		Int("schedules", len(cfg.Schedules)).
		Str("queue_backend", cfg.Queue.Backend).
		Msg("starting skylapse controller")

	led, err := ledger.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open ledger")
	}
	defer func() {
		if err := led.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing ledger")
		}
	}()

	jobQueue, err := openQueueBackend(cfg.Queue)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open job queue")
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing job queue")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := jobQueue.RecoverPending(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to recover pending queue deliveries")
	} else if n > 0 {
		logging.Info().Int("count", n).Msg("recovered pending queue deliveries")
	}

	cameraClient := camera.New(cfg.Pi)
	adapter := camera.NewCircuitBreakerClient(cameraClient, "pi-camera")

	planner := exposure.NewPlanner(adapter, &ledgerHistory{ledger: led})
	orch := orchestrator.New(adapter, planner, led, cfg.Location, cfg.Storage.ImagesDir, logging.Logger())

	sched := scheduler.New(led, orch, jobQueue, logging.Logger(), scheduler.Config{Schedules: cfg.Schedules})

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewSchedulerService(sched))

	handler := httpapi.NewHandler(led)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpapi.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("controller stopped gracefully")
}

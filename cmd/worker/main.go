// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the Skylapse timelapse worker
// process.
//
// The worker owns the render side of the pipeline: it consumes
// timelapse render jobs from the durable job queue that cmd/controller
// enqueues on window close, fuses any HDR bracket sets, encodes the
// resulting frame list into an MP4 via ffmpeg, extracts a thumbnail, and
// records the rendered timelapse in the ledger. It runs independently of
// the controller so a render backlog never blocks the next capture
// window, and can be scaled out as a separate deployment.
//
// # Initialization order
//
//  1. Configuration: the same koanf-layered config the controller loads
//  2. Logging
//  3. Ledger: embedded DuckDB connection (shared file with the controller)
//  4. Job queue: the consumer half of the same backend cmd/controller
//     enqueues onto
//  5. Fusion and encode subprocess shims (Mertens HDR fusion, ffmpeg)
//  6. Worker and its dequeue-ack/nack run loop
//
// # Signal handling
//
// SIGINT and SIGTERM stop the run loop after its in-flight job finishes,
// then close the ledger and queue connections.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/encode"
	"github.com/tomtom215/skylapse/internal/fusion"
	"github.com/tomtom215/skylapse/internal/ledger"
	"github.com/tomtom215/skylapse/internal/logging"
	"github.com/tomtom215/skylapse/internal/worker"
)

// subprocessTimeout bounds each ffmpeg/fusion invocation so a wedged
// subprocess can't hang the worker's single-job run loop indefinitely.
const subprocessTimeout = 5 * time.Minute

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
		Msg("starting skylapse worker")

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

	fuser := fusion.NewMertensFuser(cfg.Processing.FusionBinaryPath, subprocessTimeout)
	encoder := encode.NewFFmpegEncoder(cfg.Processing.FFmpegPath, subprocessTimeout)

	w := worker.New(led, fuser, encoder, cfg.Profiles, cfg.Schedules, cfg.Storage.ImagesDir, cfg.Storage.VideosDir, cfg.Processing, logging.Logger())
	runLoop := worker.NewRunLoop(w, jobQueue)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := runLoop.Start(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to start worker run loop")
	}

	<-ctx.Done()
	logging.Info().Msg("context canceled, stopping worker run loop")

	if err := runLoop.Stop(); err != nil {
		logging.Error().Err(err).Msg("error stopping worker run loop")
	}

	logging.Info().Msg("worker stopped gracefully")
}
